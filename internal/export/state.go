// Package export содержит контроллер выгрузки чата и хранилище
// файла export.json.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"telegram-chat-exporter/internal/domain"
)

const stateFileName = "export.json"

// FileStore читает и записывает export.json в каталоге чата.
// Формат файла повторяет экспорт Telegram Desktop: отступ в один пробел,
// без экранирования HTML-символов.
type FileStore struct{}

// Load читает сохраненное состояние экспорта. Отсутствующий файл
// не является ошибкой: возвращается (nil, nil).
func (FileStore) Load(dir string) (*domain.ExportedChat, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", stateFileName, err)
	}

	var chat domain.ExportedChat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("parse %s: %w", stateFileName, err)
	}
	return &chat, nil
}

// Save атомарно перезаписывает весь документ: запись идет во временный
// файл рядом, затем он подменяет целевой. Прерывание между батчами
// никогда не оставляет частично записанный export.json.
func (FileStore) Save(dir string, chat *domain.ExportedChat) error {
	target := filepath.Join(dir, stateFileName)
	tmp := target + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")
	if err := enc.Encode(chat); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", stateFileName, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", stateFileName, err)
	}
	return nil
}
