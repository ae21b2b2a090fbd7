package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"telegram-chat-exporter/internal/export"
	applog "telegram-chat-exporter/internal/log"
	"telegram-chat-exporter/internal/pkg/config"
	"telegram-chat-exporter/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера с маскировкой секретов
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if len(cfg.Export.Chats) == 0 {
		return errors.New("export.chats пуст: укажите хотя бы один чат (см. утилиту listchats)")
	}

	// 4. Инициализация клиента Telegram
	client := telegram.NewClient(telegram.Config{
		APIID:       cfg.TelegramAPI.APIID,
		APIHash:     cfg.TelegramAPI.APIHash,
		PhoneNumber: cfg.TelegramAPI.PhoneNumber,
		SessionPath: cfg.TelegramAPI.SessionFile,
	}, telegram.WithLogger(logger))

	controller := export.NewController(client, export.FileStore{}, export.Config{
		BatchSize:   cfg.Export.BatchSize,
		MaxFileSize: cfg.Export.MaxFileSize,
		Path:        cfg.Export.Path,
	}, export.WithLogger(logger))

	// 5. Запуск экспорта с остановкой по сигналу
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = client.Run(ctx, func(ctx context.Context) error {
		for _, chat := range cfg.Export.Chats {
			if err := controller.Export(ctx, chat); err != nil {
				return fmt.Errorf("export %q: %w", chat, err)
			}
		}
		return nil
	})

	switch {
	case errors.Is(err, telegram.ErrTakeoutConfirmationRequired):
		logger.Error("Платформа требует подтвердить выгрузку данных: " +
			"откройте официальное приложение Telegram, разрешите экспорт в служебном " +
			"уведомлении и запустите экспорт снова")
		return err
	case errors.Is(err, context.Canceled):
		logger.Info("Экспорт прерван, прогресс сохранен; повторный запуск продолжит с места остановки")
		return nil
	case err != nil:
		return err
	}

	logger.Info("Экспорт завершен")
	return nil
}

// newLogger создает логгер по настройкам: уровень, формат и маскировка секретов.
func newLogger(cfg config.Logging) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return applog.NewMaskedLogger(handler)
}
