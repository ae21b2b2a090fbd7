package ports

import (
	"context"

	"github.com/gotd/td/tg"

	"telegram-chat-exporter/internal/domain"
)

// TelegramClient определяет публичный интерфейс для клиента Telegram,
// потребляемый контроллером экспорта.
type TelegramClient interface {
	// ResolveChat разрешает ссылку на чат из конфигурации
	// ("@username", числовой id или "me") в идентичность чата.
	ResolveChat(ctx context.Context, ref string) (domain.ChatInfo, error)
	// Takeout открывает эксклюзивную takeout-сессию для массовой выгрузки.
	// Незавершенная сессия предыдущего запуска закрывается автоматически.
	Takeout(ctx context.Context, fileMaxSize int64) (ExportSession, error)
}

// ExportSession представляет открытую takeout-сессию: все запросы внутри нее
// выполняются с оберткой invokeWithTakeout и льготными лимитами платформы.
type ExportSession interface {
	PeerResolver
	MediaFetcher
	EmojiResolver

	// History возвращает одну страницу сообщений чата в порядке возрастания
	// id, строго после afterID. Пустая страница означает конец истории.
	History(ctx context.Context, peer tg.InputPeerClass, afterID, limit int) ([]tg.MessageClass, error)
	// Close завершает takeout-сессию.
	Close(ctx context.Context, success bool) error
}

// PeerResolver определяет интерфейс для разрешения пиров в имена и идентификаторы.
type PeerResolver interface {
	// ResolvePeer разрешает пира в отображаемое имя и теговый идентификатор.
	// Неизвестный пир не является ошибкой: возвращается запись с пустым
	// именем. Ошибка означает сбой запроса к API (например, FLOOD_WAIT).
	ResolvePeer(ctx context.Context, peer tg.PeerClass) (domain.Peer, error)
}

// MediaFetcher определяет интерфейс для загрузки бинарного содержимого медиа.
type MediaFetcher interface {
	// DownloadFile скачивает файл целиком в память.
	DownloadFile(ctx context.Context, location tg.InputFileLocationClass, size int64) ([]byte, error)
}

// EmojiResolver определяет интерфейс для разрешения кастомных эмодзи в документы.
type EmojiResolver interface {
	CustomEmojiDocuments(ctx context.Context, ids []int64) ([]tg.DocumentClass, error)
}
