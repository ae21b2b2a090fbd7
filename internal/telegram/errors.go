package telegram

import (
	"errors"
	"time"

	"github.com/gotd/td/tgerr"
)

// ErrTakeoutConfirmationRequired возвращается, когда платформа требует
// подтвердить выгрузку данных в официальном приложении. Ошибка не
// восстанавливается автоматически: нужно действие пользователя.
var ErrTakeoutConfirmationRequired = errors.New("takeout requires confirmation in the official Telegram app")

// AsFloodWait извлекает длительность ожидания из ошибки FLOOD_WAIT.
func AsFloodWait(err error) (time.Duration, bool) {
	return tgerr.AsFloodWait(err)
}

// IsTakeoutDelay сообщает, является ли ошибка отказом TAKEOUT_INIT_DELAY.
func IsTakeoutDelay(err error) bool {
	if rpcErr, ok := tgerr.As(err); ok {
		return rpcErr.Type == "TAKEOUT_INIT_DELAY"
	}
	return false
}
