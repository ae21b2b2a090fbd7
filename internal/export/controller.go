package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gotd/td/tg"

	"telegram-chat-exporter/internal/domain"
	"telegram-chat-exporter/internal/ports"
	"telegram-chat-exporter/internal/serialize"
	"telegram-chat-exporter/internal/telegram"
)

// Config содержит настройки выгрузки.
type Config struct {
	// BatchSize — размер страницы истории и батча сериализации.
	BatchSize int
	// MaxFileSize — порог размера скачиваемых файлов в байтах.
	MaxFileSize int64
	// Path — корневой каталог экспорта; каждый чат получает свой подкаталог.
	Path string
}

// Controller выгружает историю чатов, возобновляя прерванный экспорт
// с последнего сохраненного сообщения.
type Controller struct {
	client ports.TelegramClient
	store  ports.StateStore
	cfg    Config
	log    *slog.Logger

	// sleep подменяется в тестах, чтобы не ждать FLOOD_WAIT по-настоящему.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option определяет функциональную опцию для конфигурации контроллера.
type Option func(*Controller)

// WithLogger устанавливает логгер для контроллера.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// NewController создает контроллер выгрузки.
func NewController(client ports.TelegramClient, store ports.StateStore, cfg Config, opts ...Option) *Controller {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	c := &Controller{
		client: client,
		store:  store,
		cfg:    cfg,
		log:    slog.Default(),
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export выгружает один чат целиком. Повторный запуск продолжает с
// последнего сохраненного сообщения; уже выгруженная часть не трогается.
func (c *Controller) Export(ctx context.Context, ref string) error {
	info, err := c.client.ResolveChat(ctx, ref)
	if err != nil {
		return fmt.Errorf("resolve chat %q: %w", ref, err)
	}

	dir := filepath.Join(c.cfg.Path, chatDirName(info))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create chat dir: %w", err)
	}

	state, err := c.store.Load(dir)
	if err != nil {
		return err
	}
	if state == nil {
		state = &domain.ExportedChat{Messages: []domain.Message{}}
	}
	// Метаданные чата обновляются при каждом запуске: чат могли
	// переименовать между сессиями экспорта.
	state.Name = info.Name
	state.Type = info.Type
	state.ID = info.ID

	afterID := 0
	for _, m := range state.Messages {
		if m.ID > afterID {
			afterID = m.ID
		}
	}

	c.log.InfoContext(ctx, "Starting chat export",
		"chat", info.Name, "chat_id", info.ID, "resume_after", afterID)

	session, err := c.openTakeout(ctx)
	if err != nil {
		return err
	}
	success := true
	defer func() {
		if closeErr := session.Close(ctx, success); closeErr != nil {
			c.log.WarnContext(ctx, "Failed to close takeout session", "error", closeErr)
		}
	}()

	serializer := serialize.NewSerializer(session, session, session, dir, serialize.WithLogger(c.log))

	total := len(state.Messages)
	for {
		page, err := c.historyPage(ctx, session, info.InputPeer, afterID)
		if err != nil {
			success = false
			return fmt.Errorf("fetch history: %w", err)
		}
		if len(page) == 0 {
			break
		}

		batch, err := c.serializeBatch(ctx, serializer, page)
		if err != nil {
			success = false
			return fmt.Errorf("serialize batch after %d: %w", afterID, err)
		}

		state.Messages = append(state.Messages, batch...)
		afterID = page[len(page)-1].GetID()
		total += len(batch)

		if err := c.store.Save(dir, state); err != nil {
			success = false
			return err
		}
		c.log.InfoContext(ctx, "Batch exported",
			"chat", info.Name, "batch", len(batch), "total", total, "last_id", afterID)
	}

	// Финальная запись фиксирует обновленные метаданные даже без новых сообщений.
	if err := c.store.Save(dir, state); err != nil {
		success = false
		return err
	}

	c.log.InfoContext(ctx, "Chat export finished", "chat", info.Name, "total", total)
	return nil
}

// openTakeout открывает takeout-сессию, пережидая FLOOD_WAIT.
// Требование подтверждения в официальном приложении не пережидается:
// экспорт прерывается с понятной пользователю ошибкой.
func (c *Controller) openTakeout(ctx context.Context) (ports.ExportSession, error) {
	for {
		session, err := c.client.Takeout(ctx, c.cfg.MaxFileSize)
		if err == nil {
			return session, nil
		}
		if telegram.IsTakeoutDelay(err) {
			return nil, fmt.Errorf("%w: %v", telegram.ErrTakeoutConfirmationRequired, err)
		}
		wait, ok := telegram.AsFloodWait(err)
		if !ok {
			return nil, fmt.Errorf("open takeout session: %w", err)
		}
		c.log.WarnContext(ctx, "FLOOD_WAIT on takeout init, waiting", "wait", wait)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// historyPage запрашивает страницу истории, пережидая FLOOD_WAIT.
func (c *Controller) historyPage(ctx context.Context, session ports.ExportSession, peer tg.InputPeerClass, afterID int) ([]tg.MessageClass, error) {
	for {
		page, err := session.History(ctx, peer, afterID, c.cfg.BatchSize)
		if err == nil {
			return page, nil
		}
		wait, ok := telegram.AsFloodWait(err)
		if !ok {
			return nil, err
		}
		c.log.WarnContext(ctx, "FLOOD_WAIT on history page, waiting", "wait", wait)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// serializeBatch сериализует страницу сообщений. При FLOOD_WAIT батч
// приостанавливается и повторяется целиком: уже скачанные файлы при
// повторе не скачиваются заново.
func (c *Controller) serializeBatch(ctx context.Context, serializer *serialize.Serializer, page []tg.MessageClass) ([]domain.Message, error) {
	for {
		batch, err := c.serializeOnce(ctx, serializer, page)
		if err == nil {
			return batch, nil
		}
		wait, ok := telegram.AsFloodWait(err)
		if !ok {
			return nil, err
		}
		c.log.WarnContext(ctx, "FLOOD_WAIT during batch, suspending", "wait", wait, "batch", len(page))
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// serializeOnce выполняет одну попытку сериализации батча: сообщения
// обрабатываются параллельно, результат собирается в исходном порядке.
func (c *Controller) serializeOnce(ctx context.Context, serializer *serialize.Serializer, page []tg.MessageClass) ([]domain.Message, error) {
	results := make([]*domain.Message, len(page))
	errs := make([]error, len(page))

	var wg sync.WaitGroup
	for i, msg := range page {
		wg.Add(1)
		go func(i int, msg tg.MessageClass) {
			defer wg.Done()
			results[i], errs[i] = serializer.Serialize(ctx, msg)
		}(i, msg)
	}
	wg.Wait()

	// FLOOD_WAIT имеет приоритет над прочими ошибками: он определяет,
	// будет ли батч повторен.
	var firstErr error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if _, ok := telegram.AsFloodWait(err); ok {
			return nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	out := make([]domain.Message, 0, len(page))
	for _, m := range results {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

// chatDirName строит имя подкаталога чата. Каталог привязан к
// идентификатору, а не к имени: переименованный чат продолжает
// выгружаться в тот же каталог.
func chatDirName(info domain.ChatInfo) string {
	return strconv.FormatInt(info.ID, 10)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
