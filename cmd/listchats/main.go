// Команда listchats выводит диалоги аккаунта с идентификаторами,
// пригодными для секции export.chats конфигурации.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"telegram-chat-exporter/internal/domain"
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

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := applog.NewMaskedLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	client := telegram.NewClient(telegram.Config{
		APIID:       cfg.TelegramAPI.APIID,
		APIHash:     cfg.TelegramAPI.APIHash,
		PhoneNumber: cfg.TelegramAPI.PhoneNumber,
		SessionPath: cfg.TelegramAPI.SessionFile,
	}, telegram.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return client.Run(ctx, func(ctx context.Context) error {
		dialogs, err := client.Dialogs(ctx)
		if err != nil {
			return err
		}
		printDialogs(dialogs)
		return nil
	})
}

// printDialogs группирует диалоги по виду и печатает их идентификаторы.
func printDialogs(dialogs []domain.Dialog) {
	groups := []struct {
		title string
		kind  domain.PeerKind
	}{
		{"Личные чаты", domain.PeerKindUser},
		{"Группы", domain.PeerKindChat},
		{"Каналы и супергруппы", domain.PeerKindChannel},
	}

	for _, group := range groups {
		printed := false
		for _, d := range dialogs {
			if d.Kind != group.kind {
				continue
			}
			if !printed {
				fmt.Printf("\n%s:\n", group.title)
				printed = true
			}
			if d.Username != "" {
				fmt.Printf("  %14d  %s (@%s)\n", d.ID, d.Name, d.Username)
			} else {
				fmt.Printf("  %14d  %s\n", d.ID, d.Name)
			}
		}
	}

	fmt.Println("\nУкажите идентификатор или @username в секции export.chats файла config.yml")
}
