package ports

import (
	"telegram-chat-exporter/internal/domain"
)

// StateStore определяет интерфейс для чтения и записи файла export.json.
type StateStore interface {
	// Load читает сохраненное состояние экспорта из каталога чата.
	// Отсутствующий файл не является ошибкой: возвращается (nil, nil).
	Load(dir string) (*domain.ExportedChat, error)
	// Save атомарно перезаписывает весь документ состояния.
	Save(dir string, chat *domain.ExportedChat) error
}
