package serialize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/gotd/td/tg"

	"telegram-chat-exporter/internal/ports"
)

// Materializer скачивает медиафайлы в каталог чата. Уже существующий
// файл не скачивается повторно: это делает безопасными повторные запуски
// и повтор батча после FLOOD_WAIT.
type Materializer struct {
	fetcher ports.MediaFetcher
	log     *slog.Logger
}

// MaterializerOption — функциональная опция для настройки материализатора.
type MaterializerOption func(*Materializer)

// MaterializerWithLogger устанавливает логгер.
func MaterializerWithLogger(l *slog.Logger) MaterializerOption {
	return func(m *Materializer) {
		if l != nil {
			m.log = l
		}
	}
}

// NewMaterializer создает материализатор поверх загрузчика файлов.
func NewMaterializer(fetcher ports.MediaFetcher, opts ...MaterializerOption) *Materializer {
	m := &Materializer{
		fetcher: fetcher,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Materialize гарантирует наличие файла по абсолютному пути dest и
// возвращает относительный путь внутри каталога чата — relDir и имя
// файла, соединенные прямой косой чертой независимо от платформы.
// Именно относительный путь попадает в запись сообщения.
func (m *Materializer) Materialize(ctx context.Context, location tg.InputFileLocationClass, size int64, dest, relDir string) (string, error) {
	rel := path.Join(relDir, filepath.Base(dest))

	if _, err := os.Stat(dest); err == nil {
		return rel, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat %s: %w", dest, err)
	}

	if m.fetcher == nil {
		return "", ErrMissingClient
	}

	data, err := m.fetcher.DownloadFile(ctx, location, size)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rel, err)
	}

	if err := m.WriteLocal(dest, data); err != nil {
		return "", err
	}
	m.log.Debug("файл скачан",
		slog.String("path", rel),
		slog.Int("bytes", len(data)),
	)
	return rel, nil
}

// WriteLocal записывает уже имеющееся содержимое (например, vcard-карточку)
// по абсолютному пути, создавая недостающие каталоги.
func (m *Materializer) WriteLocal(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", dest, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
