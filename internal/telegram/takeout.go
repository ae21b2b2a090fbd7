package telegram

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/gotd/td/bin"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"telegram-chat-exporter/internal/domain"
)

// invokeWithTakeoutID — идентификатор конструктора invokeWithTakeout#aca9fd2e.
const invokeWithTakeoutID = 0xaca9fd2e

// takeoutInvoker оборачивает каждый запрос в invokeWithTakeout, привязывая
// его к открытой takeout-сессии. Сам gotd такой обертки не предоставляет,
// поэтому конструктор кодируется вручную.
type takeoutInvoker struct {
	next tg.Invoker
	id   int64
}

func (t *takeoutInvoker) Invoke(ctx context.Context, input bin.Encoder, output bin.Decoder) error {
	return t.next.Invoke(ctx, &takeoutRequest{id: t.id, query: input}, output)
}

type takeoutRequest struct {
	id    int64
	query bin.Encoder
}

func (r *takeoutRequest) Encode(b *bin.Buffer) error {
	b.PutID(invokeWithTakeoutID)
	b.PutLong(r.id)
	return r.query.Encode(b)
}

// exportSession реализует ports.ExportSession: история, файлы и справочные
// запросы выполняются внутри takeout-сессии.
type exportSession struct {
	id       int64
	api      *tg.Client
	peers    *peerCache
	download *downloader.Downloader
	log      *slog.Logger
}

func newExportSession(id int64, invoker tg.Invoker, peers *peerCache, log *slog.Logger) *exportSession {
	return &exportSession{
		id:       id,
		api:      tg.NewClient(&takeoutInvoker{next: invoker, id: id}),
		peers:    peers,
		download: downloader.NewDownloader(),
		log:      log,
	}
}

// History возвращает страницу сообщений строго после afterID в порядке
// возрастания id. Платформа отдает историю от новых к старым, поэтому
// запрос использует отрицательный AddOffset, а результат разворачивается.
func (s *exportSession) History(ctx context.Context, peer tg.InputPeerClass, afterID, limit int) ([]tg.MessageClass, error) {
	res, err := s.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:      peer,
		OffsetID:  afterID,
		AddOffset: -limit,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("get history after %d: %w", afterID, err)
	}

	var messages []tg.MessageClass
	switch h := res.(type) {
	case *tg.MessagesMessages:
		s.peers.Fill(h.Users, h.Chats)
		messages = h.Messages
	case *tg.MessagesMessagesSlice:
		s.peers.Fill(h.Users, h.Chats)
		messages = h.Messages
	case *tg.MessagesChannelMessages:
		s.peers.Fill(h.Users, h.Chats)
		messages = h.Messages
	default:
		return nil, fmt.Errorf("unexpected history response %T", res)
	}

	out := make([]tg.MessageClass, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		// Страница вокруг OffsetID может зацепить и более старые записи.
		if messages[i].GetID() > afterID {
			out = append(out, messages[i])
		}
	}
	return out, nil
}

// DownloadFile скачивает файл целиком в память.
func (s *exportSession) DownloadFile(ctx context.Context, location tg.InputFileLocationClass, size int64) ([]byte, error) {
	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}
	if _, err := s.download.Download(s.api, location).Stream(ctx, &buf); err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	return buf.Bytes(), nil
}

// CustomEmojiDocuments разрешает идентификаторы кастомных эмодзи в документы.
func (s *exportSession) CustomEmojiDocuments(ctx context.Context, ids []int64) ([]tg.DocumentClass, error) {
	docs, err := s.api.MessagesGetCustomEmojiDocuments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get custom emoji documents: %w", err)
	}
	return docs, nil
}

// ResolvePeer разрешает пира по кэшу, накопленному из ответов платформы.
// Промах кэша (например, автор пересланного сообщения не из этого чата)
// дозапрашивается у платформы; если и это не помогло, пир возвращается
// с тегом, но без имени.
func (s *exportSession) ResolvePeer(ctx context.Context, peer tg.PeerClass) (domain.Peer, error) {
	if resolved, ok := s.peers.Lookup(peer); ok {
		return resolved, nil
	}
	if err := s.fetchPeer(ctx, peer); err != nil {
		if _, ok := tgerr.AsFloodWait(err); ok {
			return domain.Peer{}, err
		}
		s.log.DebugContext(ctx, "Peer fetch failed, keeping bare tag",
			"peer", peer.String(), "error", err)
	}
	return s.peers.Resolve(peer), nil
}

// fetchPeer запрашивает справочную запись пира и пополняет кэш.
func (s *exportSession) fetchPeer(ctx context.Context, peer tg.PeerClass) error {
	switch p := peer.(type) {
	case *tg.PeerUser:
		users, err := s.api.UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUser{UserID: p.UserID}})
		if err != nil {
			return fmt.Errorf("get user %d: %w", p.UserID, err)
		}
		s.peers.Fill(users, nil)
	case *tg.PeerChat:
		res, err := s.api.MessagesGetChats(ctx, []int64{p.ChatID})
		if err != nil {
			return fmt.Errorf("get chat %d: %w", p.ChatID, err)
		}
		s.peers.Fill(nil, res.GetChats())
	case *tg.PeerChannel:
		res, err := s.api.ChannelsGetChannels(ctx, []tg.InputChannelClass{&tg.InputChannel{ChannelID: p.ChannelID}})
		if err != nil {
			return fmt.Errorf("get channel %d: %w", p.ChannelID, err)
		}
		s.peers.Fill(nil, res.GetChats())
	}
	return nil
}

// Close завершает takeout-сессию. Запрос выполняется внутри самой сессии,
// как того требует платформа.
func (s *exportSession) Close(ctx context.Context, success bool) error {
	req := &tg.AccountFinishTakeoutSessionRequest{Success: success}
	if _, err := s.api.AccountFinishTakeoutSession(ctx, req); err != nil {
		return fmt.Errorf("finish takeout session: %w", err)
	}
	s.log.InfoContext(ctx, "Takeout session closed", "takeout_id", s.id, "success", success)
	return nil
}
