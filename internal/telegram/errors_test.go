package telegram

import (
	"errors"
	"testing"
	"time"

	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsFloodWait(t *testing.T) {
	t.Run("FLOOD_WAIT с длительностью", func(t *testing.T) {
		wait, ok := AsFloodWait(tgerr.New(420, "FLOOD_WAIT_5"))
		require.True(t, ok)
		assert.Equal(t, 5*time.Second, wait)
	})

	t.Run("обычная ошибка", func(t *testing.T) {
		_, ok := AsFloodWait(errors.New("connection reset"))
		assert.False(t, ok)
	})

	t.Run("другая ошибка платформы", func(t *testing.T) {
		_, ok := AsFloodWait(tgerr.New(400, "PEER_ID_INVALID"))
		assert.False(t, ok)
	})
}

func TestIsTakeoutDelay(t *testing.T) {
	assert.True(t, IsTakeoutDelay(tgerr.New(420, "TAKEOUT_INIT_DELAY_86400")))
	assert.False(t, IsTakeoutDelay(tgerr.New(420, "FLOOD_WAIT_5")))
	assert.False(t, IsTakeoutDelay(errors.New("connection reset")))
	assert.False(t, IsTakeoutDelay(nil))
}
