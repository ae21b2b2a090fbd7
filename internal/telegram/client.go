// Package telegram содержит клиент MTProto поверх gotd и takeout-сессию
// для массовой выгрузки истории.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"golang.org/x/term"

	"telegram-chat-exporter/internal/domain"
	"telegram-chat-exporter/internal/ports"
	trm "telegram-chat-exporter/internal/pkg/term"
)

// telegramRunner определяет зависимости от клиента gotd.
// Это позволяет создавать моки в тестах.
type telegramRunner interface {
	Run(ctx context.Context, f func(ctx context.Context) error) error
	Invoker() tg.Invoker
	Auth() telegramAuth
}

// telegramAuth представляет клиент аутентификации.
type telegramAuth interface {
	auth.FlowClient
}

// prodRunner является оберткой вокруг реального *telegram.Client для удовлетворения интерфейса telegramRunner.
type prodRunner struct {
	*telegram.Client
}

func (p *prodRunner) Invoker() tg.Invoker {
	return p.Client
}

func (p *prodRunner) Auth() telegramAuth {
	return p.Client.Auth()
}

// authFlow определяет интерфейс для процесса аутентификации.
type authFlow interface {
	Run(ctx context.Context, client auth.FlowClient) error
}

// Client представляет собой клиент Telegram API, который инкапсулирует
// аутентификацию, соединение и открытие takeout-сессий. Методы
// ResolveChat, Takeout и Dialogs допустимы только внутри колбэка Run,
// пока соединение активно.
type Client struct {
	id         string
	tgRunner   telegramRunner
	authFlow   authFlow
	isTerminal func(fd int) bool
	peers      *peerCache
	log        *slog.Logger
}

// Config содержит конфигурацию для создания нового клиента.
type Config struct {
	APIID       int
	APIHash     string
	PhoneNumber string
	SessionPath string
}

// ClientOption определяет функциональную опцию для конфигурации клиента.
type ClientOption func(*Client)

// WithLogger устанавливает логгер для клиента.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient создает новый экземпляр Client.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	// Создаем аутентификатор для терминала.
	termAuth := trm.NewTerminal(cfg.PhoneNumber)

	// Настраиваем хранилище сессии.
	sessionStorage := &session.FileStorage{Path: cfg.SessionPath}

	// Создаем и настраиваем базовый клиент gotd.
	tgClient := telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: sessionStorage,
	})

	c := &Client{
		id:         uuid.NewString(),
		tgRunner:   &prodRunner{Client: tgClient},
		authFlow:   auth.NewFlow(termAuth, auth.SendCodeOptions{}),
		isTerminal: func(fd int) bool { return term.IsTerminal(fd) },
		peers:      newPeerCache(),
		log:        slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ID возвращает уникальный идентификатор клиента.
func (c *Client) ID() string {
	return c.id
}

// Run устанавливает соединение, проверяет аутентификацию и выполняет job.
// Соединение закрывается при возврате из job.
func (c *Client) Run(ctx context.Context, job func(ctx context.Context) error) error {
	return c.tgRunner.Run(ctx, func(runCtx context.Context) error {
		c.log.InfoContext(runCtx, "Telegram client connected", "client_id", c.id)

		// Проверяем статус аутентификации при запуске.
		if _, err := c.api().UsersGetUsers(runCtx, []tg.InputUserClass{&tg.InputUserSelf{}}); err != nil {
			// Если ошибка - это ожидаемое отсутствие сессии, логируем кратко.
			// Для всех остальных, непредвиденных ошибок, сохраняем полный вывод.
			if strings.Contains(err.Error(), "AUTH_KEY_UNREGISTERED") {
				c.log.WarnContext(runCtx, "Session check failed, attempting interactive auth", "client_id", c.id, "reason", "AUTH_KEY_UNREGISTERED")
			} else {
				c.log.WarnContext(runCtx, "Session check failed, attempting interactive auth", "client_id", c.id, "error", err)
			}
			if !c.isTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("session is invalid and cannot perform interactive auth in non-terminal: %w", err)
			}
			if authErr := c.authFlow.Run(runCtx, c.tgRunner.Auth()); authErr != nil {
				return fmt.Errorf("interactive auth failed: %w", authErr)
			}
			c.log.InfoContext(runCtx, "Interactive auth successful, session saved", "client_id", c.id)
		}
		c.log.InfoContext(runCtx, "Telegram client authenticated and ready", "client_id", c.id)

		return job(runCtx)
	})
}

// api возвращает типизированный клиент поверх текущего соединения.
func (c *Client) api() *tg.Client {
	return tg.NewClient(c.tgRunner.Invoker())
}

// Takeout открывает takeout-сессию. Возможная незавершенная сессия
// предыдущего запуска закрывается, ее ошибки игнорируются.
func (c *Client) Takeout(ctx context.Context, fileMaxSize int64) (ports.ExportSession, error) {
	api := c.api()

	if _, err := api.AccountFinishTakeoutSession(ctx, &tg.AccountFinishTakeoutSessionRequest{}); err != nil {
		c.log.DebugContext(ctx, "No stale takeout session to finish", "error", err)
	}

	req := &tg.AccountInitTakeoutSessionRequest{
		MessageUsers:      true,
		MessageChats:      true,
		MessageMegagroups: true,
		MessageChannels:   true,
		Files:             true,
	}
	req.SetFileMaxSize(fileMaxSize)

	takeout, err := api.AccountInitTakeoutSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("init takeout session: %w", err)
	}
	c.log.InfoContext(ctx, "Takeout session opened", "client_id", c.id, "takeout_id", takeout.ID)

	return newExportSession(takeout.ID, c.tgRunner.Invoker(), c.peers, c.log), nil
}

// ResolveChat разрешает ссылку из конфигурации в идентичность чата:
// "@username", "me" или числовой id в отмеченном формате.
func (c *Client) ResolveChat(ctx context.Context, ref string) (domain.ChatInfo, error) {
	api := c.api()
	ref = strings.TrimSpace(ref)

	switch {
	case ref == "":
		return domain.ChatInfo{}, errors.New("пустая ссылка на чат")

	case ref == "me" || ref == "self":
		users, err := api.UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUserSelf{}})
		if err != nil {
			return domain.ChatInfo{}, fmt.Errorf("resolve self: %w", err)
		}
		u, ok := firstUser(users)
		if !ok {
			return domain.ChatInfo{}, errors.New("self user not found")
		}
		c.peers.Fill(users, nil)
		return userChatInfo(u), nil

	case strings.HasPrefix(ref, "@"):
		resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
			Username: strings.TrimPrefix(ref, "@"),
		})
		if err != nil {
			return domain.ChatInfo{}, fmt.Errorf("resolve username %s: %w", ref, err)
		}
		c.peers.Fill(resolved.Users, resolved.Chats)
		return c.chatInfoOf(resolved.Peer, resolved.Users, resolved.Chats)

	default:
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return domain.ChatInfo{}, fmt.Errorf("некорректная ссылка на чат %q", ref)
		}
		return c.findInDialogs(ctx, id)
	}
}

// findInDialogs ищет чат с отмеченным id среди диалогов аккаунта.
// Диалоги — единственный способ получить access_hash пира,
// известного только по числовому идентификатору.
func (c *Client) findInDialogs(ctx context.Context, markedID int64) (domain.ChatInfo, error) {
	var found domain.ChatInfo
	err := c.walkDialogs(ctx, func(peer tg.PeerClass, users []tg.UserClass, chats []tg.ChatClass) (bool, error) {
		if markedPeerID(peer) != markedID {
			return false, nil
		}
		info, err := c.chatInfoOf(peer, users, chats)
		if err != nil {
			return false, err
		}
		found = info
		return true, nil
	})
	if err != nil {
		return domain.ChatInfo{}, err
	}
	if found.InputPeer == nil {
		return domain.ChatInfo{}, fmt.Errorf("чат %d не найден среди диалогов", markedID)
	}
	return found, nil
}

// Dialogs возвращает все диалоги аккаунта с отмеченными идентификаторами.
func (c *Client) Dialogs(ctx context.Context) ([]domain.Dialog, error) {
	var out []domain.Dialog
	err := c.walkDialogs(ctx, func(peer tg.PeerClass, users []tg.UserClass, chats []tg.ChatClass) (bool, error) {
		resolved := c.peers.Resolve(peer)
		name := resolved.DisplayName()
		if name == "" {
			name = resolved.TaggedID
		}
		out = append(out, domain.Dialog{
			ID:       markedPeerID(peer),
			Name:     name,
			Username: resolved.Username,
			Kind:     resolved.Kind,
		})
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// walkDialogs постранично обходит диалоги, пополняя кэш пиров.
// visit возвращает true, чтобы остановить обход.
func (c *Client) walkDialogs(ctx context.Context, visit func(peer tg.PeerClass, users []tg.UserClass, chats []tg.ChatClass) (bool, error)) error {
	api := c.api()
	const pageSize = 100

	offsetDate := 0
	offsetID := 0
	var offsetPeer tg.InputPeerClass = &tg.InputPeerEmpty{}

	for {
		res, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetDate: offsetDate,
			OffsetID:   offsetID,
			OffsetPeer: offsetPeer,
			Limit:      pageSize,
		})
		if err != nil {
			return fmt.Errorf("get dialogs: %w", err)
		}

		var (
			dialogs  []tg.DialogClass
			messages []tg.MessageClass
			users    []tg.UserClass
			chats    []tg.ChatClass
			hasMore  bool
		)
		switch d := res.(type) {
		case *tg.MessagesDialogs:
			dialogs, messages, users, chats = d.Dialogs, d.Messages, d.Users, d.Chats
		case *tg.MessagesDialogsSlice:
			dialogs, messages, users, chats = d.Dialogs, d.Messages, d.Users, d.Chats
			hasMore = len(dialogs) == pageSize
		default:
			return fmt.Errorf("unexpected dialogs response %T", res)
		}
		c.peers.Fill(users, chats)

		for _, dialog := range dialogs {
			d, ok := dialog.(*tg.Dialog)
			if !ok {
				continue
			}
			stop, err := visit(d.Peer, users, chats)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}

		if !hasMore || len(dialogs) == 0 {
			return nil
		}

		// Смещение следующей страницы берется из последнего сообщения.
		var last *tg.Dialog
		for i := len(dialogs) - 1; i >= 0 && last == nil; i-- {
			last, _ = dialogs[i].(*tg.Dialog)
		}
		if last == nil {
			return nil
		}
		offsetPeer = inputPeerFor(last.Peer, users, chats)
		for _, msg := range messages {
			if msg.GetID() == last.TopMessage {
				if m, ok := msg.(*tg.Message); ok {
					offsetDate = m.Date
				}
				offsetID = msg.GetID()
			}
		}
	}
}

// chatInfoOf строит идентичность чата по пиру и справочным спискам ответа.
func (c *Client) chatInfoOf(peer tg.PeerClass, users []tg.UserClass, chats []tg.ChatClass) (domain.ChatInfo, error) {
	switch p := peer.(type) {
	case *tg.PeerUser:
		for _, uc := range users {
			if u, ok := uc.(*tg.User); ok && u.ID == p.UserID {
				return userChatInfo(u), nil
			}
		}
	case *tg.PeerChat:
		for _, cc := range chats {
			if ch, ok := cc.(*tg.Chat); ok && ch.ID == p.ChatID {
				return domain.ChatInfo{
					ID:        ch.ID,
					Name:      ch.Title,
					Type:      "private_group",
					InputPeer: &tg.InputPeerChat{ChatID: ch.ID},
				}, nil
			}
		}
	case *tg.PeerChannel:
		for _, cc := range chats {
			if ch, ok := cc.(*tg.Channel); ok && ch.ID == p.ChannelID {
				return domain.ChatInfo{
					ID:        ch.ID,
					Name:      ch.Title,
					Type:      channelChatType(ch),
					InputPeer: &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash},
				}, nil
			}
		}
	}
	return domain.ChatInfo{}, fmt.Errorf("пир %v отсутствует в ответе платформы", peer)
}

func userChatInfo(u *tg.User) domain.ChatInfo {
	info := domain.ChatInfo{
		ID:        u.ID,
		Name:      displayUserName(u),
		InputPeer: &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash},
	}
	switch {
	case u.Self:
		info.Type = "saved_messages"
	case u.Bot:
		info.Type = "bot_chat"
	default:
		info.Type = "personal_chat"
	}
	return info
}

func channelChatType(ch *tg.Channel) string {
	_, public := ch.GetUsername()
	if ch.Megagroup {
		if public {
			return "public_supergroup"
		}
		return "private_supergroup"
	}
	if public {
		return "public_channel"
	}
	return "private_channel"
}

// markedPeerID возвращает id пира в отмеченном формате: пользователи
// положительные, группы отрицательные, каналы со сдвигом -1000000000000.
func markedPeerID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return -p.ChatID
	case *tg.PeerChannel:
		return -1000000000000 - p.ChannelID
	default:
		return 0
	}
}

func inputPeerFor(peer tg.PeerClass, users []tg.UserClass, chats []tg.ChatClass) tg.InputPeerClass {
	switch p := peer.(type) {
	case *tg.PeerUser:
		for _, uc := range users {
			if u, ok := uc.(*tg.User); ok && u.ID == p.UserID {
				return &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}
			}
		}
	case *tg.PeerChat:
		return &tg.InputPeerChat{ChatID: p.ChatID}
	case *tg.PeerChannel:
		for _, cc := range chats {
			if ch, ok := cc.(*tg.Channel); ok && ch.ID == p.ChannelID {
				return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
			}
		}
	}
	return &tg.InputPeerEmpty{}
}

func firstUser(users []tg.UserClass) (*tg.User, bool) {
	for _, uc := range users {
		if u, ok := uc.(*tg.User); ok {
			return u, true
		}
	}
	return nil, false
}
