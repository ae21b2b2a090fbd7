// Package serialize преобразует сырые записи Telegram API в каноничные
// записи формата экспорта Telegram Desktop.
package serialize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gotd/td/tg"

	"telegram-chat-exporter/internal/domain"
	"telegram-chat-exporter/internal/ports"
)

// ErrMissingClient возвращается, когда сериализатору не передана сессия
// для разрешения пиров. Это ошибка конфигурации, она не восстанавливается.
var ErrMissingClient = errors.New("no telegram session available for peer resolution")

// Serializer преобразует сообщения одного чата. Он не хранит изменяемого
// состояния и безопасен для одновременного использования: параллельные
// вызовы пишут только в непересекающиеся пути внутри каталога чата.
type Serializer struct {
	resolver ports.PeerResolver
	emoji    ports.EmojiResolver
	media    *Materializer
	root     string
	log      *slog.Logger

	contactMu sync.Mutex
}

// Option — функциональная опция для настройки сериализатора.
type Option func(*Serializer)

// WithLogger устанавливает логгер для сериализатора.
func WithLogger(l *slog.Logger) Option {
	return func(s *Serializer) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSerializer создает сериализатор для одного чата. root — каталог чата,
// в который складываются подкаталоги медиа (photos, stickers и т.д.).
func NewSerializer(resolver ports.PeerResolver, emoji ports.EmojiResolver, fetcher ports.MediaFetcher, root string, opts ...Option) *Serializer {
	s := &Serializer{
		resolver: resolver,
		emoji:    emoji,
		root:     root,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.media = NewMaterializer(fetcher, MaterializerWithLogger(s.log))
	return s
}

// Serialize преобразует одно сообщение в каноничную запись.
// Для записей, не являющихся сообщениями (MessageEmpty), возвращается
// (nil, nil) — вызывающая сторона пропускает их.
func (s *Serializer) Serialize(ctx context.Context, msg tg.MessageClass) (*domain.Message, error) {
	if s == nil || s.resolver == nil {
		return nil, ErrMissingClient
	}

	switch m := msg.(type) {
	case *tg.Message:
		return s.serializeMessage(ctx, m)
	case *tg.MessageService:
		return s.serializeService(ctx, m)
	default:
		return nil, nil
	}
}

func (s *Serializer) serializeMessage(ctx context.Context, m *tg.Message) (*domain.Message, error) {
	out := &domain.Message{ID: m.ID, Type: "message"}
	out.Date, out.DateUnixtime = formatTime(m.Date)
	if editDate, ok := m.GetEditDate(); ok {
		out.Edited, out.EditedUnixtime = formatTime(editDate)
	}

	// Платформенная особенность: у собственных сообщений from_id может
	// отсутствовать, тогда отправителем считается сам пир диалога.
	sender, err := s.resolver.ResolvePeer(ctx, senderPeer(m, m.PeerID))
	if err != nil {
		return nil, fmt.Errorf("resolve sender of message %d: %w", m.ID, err)
	}
	out.From = sender.DisplayName()
	out.FromID = sender.TaggedID

	if fwd, ok := m.GetFwdFrom(); ok {
		forwarded, err := s.forwardedFrom(ctx, fwd)
		if err != nil {
			return nil, fmt.Errorf("resolve forward origin of message %d: %w", m.ID, err)
		}
		out.ForwardedFrom = forwarded
	}

	if replyTo, ok := m.GetReplyTo(); ok {
		fillReply(replyTo, &out.ReplyToMessageID, &out.ReplyToPeerID)
	}

	if botID, ok := m.GetViaBotID(); ok {
		bot, err := s.resolver.ResolvePeer(ctx, &tg.PeerUser{UserID: botID})
		if err != nil {
			return nil, fmt.Errorf("resolve via_bot of message %d: %w", m.ID, err)
		}
		if bot.Username != "" {
			out.ViaBot = "@" + bot.Username
		}
	}

	if media, ok := m.GetMedia(); ok {
		if err := s.serializeMedia(ctx, m, media, out); err != nil {
			return nil, fmt.Errorf("serialize media of message %d: %w", m.ID, err)
		}
	}

	if err := s.fillText(ctx, m.Message, m.Entities, out); err != nil {
		return nil, fmt.Errorf("serialize text of message %d: %w", m.ID, err)
	}

	if markup, ok := m.GetReplyMarkup(); ok {
		if inline, ok := markup.(*tg.ReplyInlineMarkup); ok {
			out.InlineBotButtons = serializeButtons(inline.Rows)
		}
	}

	return out, nil
}

func (s *Serializer) serializeService(ctx context.Context, m *tg.MessageService) (*domain.Message, error) {
	out := &domain.Message{ID: m.ID, Type: "service"}
	out.Date, out.DateUnixtime = formatTime(m.Date)

	if err := s.serializeAction(ctx, m, out); err != nil {
		return nil, fmt.Errorf("serialize action of message %d: %w", m.ID, err)
	}

	// Сервисные сообщения не несут текста, но эталонный формат
	// всегда содержит поля text и text_entities.
	if err := s.fillText(ctx, "", nil, out); err != nil {
		return nil, err
	}

	return out, nil
}

// forwardedFrom определяет отображаемое происхождение пересланного
// сообщения. Порядок предпочтения зафиксирован форматом: разрешенное имя,
// метка удаленного аккаунта, числовой id, заголовок чата, сырое имя.
func (s *Serializer) forwardedFrom(ctx context.Context, fwd tg.MessageFwdHeader) (any, error) {
	if from, ok := fwd.GetFromID(); ok {
		p, err := s.resolver.ResolvePeer(ctx, from)
		if err != nil {
			return nil, err
		}
		switch {
		case p.Name != "":
			return p.Name, nil
		case p.Deleted:
			return domain.DeletedAccountName, nil
		case p.Kind == domain.PeerKindUser:
			return p.ID, nil
		case p.Title != "":
			return p.Title, nil
		default:
			return p.ID, nil
		}
	}
	if name, ok := fwd.GetFromName(); ok && name != "" {
		return name, nil
	}
	return nil, nil
}

// senderPeer возвращает пира-отправителя, подставляя пира диалога,
// если from_id в записи отсутствует.
func senderPeer(m interface {
	GetFromID() (tg.PeerClass, bool)
}, peerID tg.PeerClass) tg.PeerClass {
	if from, ok := m.GetFromID(); ok && from != nil {
		return from
	}
	return peerID
}

// fillReply заносит идентификатор цели ответа и, для межчатовых ответов,
// теговый идентификатор исходного чата. msgIDField выбирает ключ записи:
// reply_to_message_id, message_id или game_message_id.
func fillReply(replyTo tg.MessageReplyHeaderClass, msgIDField *int, peerField *string) {
	header, ok := replyTo.(*tg.MessageReplyHeader)
	if !ok {
		return
	}
	msgID, ok := header.GetReplyToMsgID()
	if !ok {
		return
	}
	*msgIDField = msgID
	if peer, ok := header.GetReplyToPeerID(); ok {
		*peerField = peerTag(peer)
	}
}

// peerTag возвращает теговый идентификатор пира: user<id>, chat<id>, channel<id>.
func peerTag(peer tg.PeerClass) string {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return "user" + strconv.FormatInt(p.UserID, 10)
	case *tg.PeerChat:
		return "chat" + strconv.FormatInt(p.ChatID, 10)
	case *tg.PeerChannel:
		return "channel" + strconv.FormatInt(p.ChannelID, 10)
	default:
		return ""
	}
}

// formatTime возвращает дату в локальном времени в формате эталонного
// экспорта и unix-время в виде десятичной строки.
func formatTime(ts int) (string, string) {
	t := time.Unix(int64(ts), 0)
	return t.Format("2006-01-02T15:04:05"), strconv.FormatInt(t.Unix(), 10)
}
