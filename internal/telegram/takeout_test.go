package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gotd/td/bin"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureInvoker struct {
	input bin.Encoder
}

func (c *captureInvoker) Invoke(_ context.Context, input bin.Encoder, _ bin.Decoder) error {
	c.input = input
	return nil
}

func TestTakeoutRequestEncode(t *testing.T) {
	query := &tg.AccountFinishTakeoutSessionRequest{Success: true}
	query.SetFlags()

	req := &takeoutRequest{id: 7, query: query}
	var b bin.Buffer
	require.NoError(t, req.Encode(&b))

	// Заголовок обертки: конструктор и id takeout-сессии.
	id, err := b.ID()
	require.NoError(t, err)
	assert.Equal(t, uint32(invokeWithTakeoutID), id)

	takeoutID, err := b.Long()
	require.NoError(t, err)
	assert.Equal(t, int64(7), takeoutID)

	// Остаток буфера — это сам запрос без изменений.
	var plain bin.Buffer
	require.NoError(t, query.Encode(&plain))
	assert.Equal(t, plain.Buf, b.Buf)
}

func TestTakeoutInvokerWrapsEveryRequest(t *testing.T) {
	capture := &captureInvoker{}
	invoker := &takeoutInvoker{next: capture, id: 42}

	query := &tg.MessagesGetHistoryRequest{Peer: &tg.InputPeerSelf{}, Limit: 10}
	require.NoError(t, invoker.Invoke(context.Background(), query, nil))

	wrapped, ok := capture.input.(*takeoutRequest)
	require.True(t, ok, "запрос должен быть обернут в invokeWithTakeout")
	assert.Equal(t, int64(42), wrapped.id)

	var b bin.Buffer
	require.NoError(t, wrapped.Encode(&b))
	id, err := b.ID()
	require.NoError(t, err)
	assert.Equal(t, uint32(invokeWithTakeoutID), id)
}

func newTestSession(handle func(input bin.Encoder, output bin.Decoder) error) *exportSession {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newExportSession(1, &scriptedInvoker{handle: handle}, newPeerCache(), log)
}

func TestExportSessionResolvePeer(t *testing.T) {
	ctx := context.Background()

	t.Run("попадание в кэш не ходит в сеть", func(t *testing.T) {
		s := newTestSession(func(_ bin.Encoder, _ bin.Decoder) error {
			t.Fatal("при попадании в кэш запросов быть не должно")
			return nil
		})
		u := &tg.User{ID: 8, FirstName: "Bob"}
		u.SetFlags()
		s.peers.Fill([]tg.UserClass{u}, nil)

		resolved, err := s.ResolvePeer(ctx, &tg.PeerUser{UserID: 8})
		require.NoError(t, err)
		assert.Equal(t, "Bob", resolved.Name)
	})

	t.Run("промах кэша дозапрашивает пользователя", func(t *testing.T) {
		var calls int
		s := newTestSession(func(input bin.Encoder, output bin.Decoder) error {
			calls++
			wrapped, ok := input.(*takeoutRequest)
			require.True(t, ok, "дозапрос должен идти внутри takeout-сессии")
			req, ok := wrapped.query.(*tg.UsersGetUsersRequest)
			require.True(t, ok)
			require.Len(t, req.ID, 1)

			u := &tg.User{ID: 9, FirstName: "Carol"}
			u.SetFlags()
			output.(*tg.UserClassVector).Elems = []tg.UserClass{u}
			return nil
		})

		resolved, err := s.ResolvePeer(ctx, &tg.PeerUser{UserID: 9})
		require.NoError(t, err)
		assert.Equal(t, "Carol", resolved.Name)
		assert.Equal(t, "user9", resolved.TaggedID)

		// Повторное разрешение обслуживается из кэша.
		_, err = s.ResolvePeer(ctx, &tg.PeerUser{UserID: 9})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("ошибка дозапроса оставляет голый тег", func(t *testing.T) {
		s := newTestSession(func(_ bin.Encoder, _ bin.Decoder) error {
			return errors.New("rpc error code 400: USER_ID_INVALID")
		})

		resolved, err := s.ResolvePeer(ctx, &tg.PeerUser{UserID: 10})
		require.NoError(t, err)
		assert.Empty(t, resolved.Name)
		assert.Equal(t, "user10", resolved.TaggedID)
	})

	t.Run("FLOOD_WAIT при дозапросе пробрасывается", func(t *testing.T) {
		s := newTestSession(func(_ bin.Encoder, _ bin.Decoder) error {
			return tgerr.New(420, "FLOOD_WAIT_5")
		})

		_, err := s.ResolvePeer(ctx, &tg.PeerUser{UserID: 11})
		require.Error(t, err)
		_, ok := tgerr.AsFloodWait(err)
		assert.True(t, ok)
	})
}
