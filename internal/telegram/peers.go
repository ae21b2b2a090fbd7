package telegram

import (
	"strconv"
	"strings"
	"sync"

	"github.com/gotd/td/tg"

	"telegram-chat-exporter/internal/domain"
)

// peerCache накапливает пользователей и чаты из справочных списков ответов
// платформы. История всегда приходит вместе с упомянутыми в ней пирами,
// поэтому к моменту разрешения пир уже обычно есть в кэше.
type peerCache struct {
	mu       sync.RWMutex
	users    map[int64]*tg.User
	chats    map[int64]*tg.Chat
	channels map[int64]*tg.Channel
}

func newPeerCache() *peerCache {
	return &peerCache{
		users:    make(map[int64]*tg.User),
		chats:    make(map[int64]*tg.Chat),
		channels: make(map[int64]*tg.Channel),
	}
}

// Fill пополняет кэш из справочных списков ответа.
func (p *peerCache) Fill(users []tg.UserClass, chats []tg.ChatClass) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, uc := range users {
		if u, ok := uc.(*tg.User); ok {
			p.users[u.ID] = u
		}
	}
	for _, cc := range chats {
		switch ch := cc.(type) {
		case *tg.Chat:
			p.chats[ch.ID] = ch
		case *tg.Channel:
			p.channels[ch.ID] = ch
		}
	}
}

// Lookup возвращает запись пира только если он есть в кэше.
func (p *peerCache) Lookup(peer tg.PeerClass) (domain.Peer, bool) {
	p.mu.RLock()
	known := false
	switch pr := peer.(type) {
	case *tg.PeerUser:
		_, known = p.users[pr.UserID]
	case *tg.PeerChat:
		_, known = p.chats[pr.ChatID]
	case *tg.PeerChannel:
		_, known = p.channels[pr.ChannelID]
	}
	p.mu.RUnlock()

	if !known {
		return domain.Peer{}, false
	}
	return p.Resolve(peer), true
}

// Resolve возвращает запись пира. Отсутствие пира в кэше не является
// ошибкой: тег строится из самого пира, имя остается пустым.
func (p *peerCache) Resolve(peer tg.PeerClass) domain.Peer {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch pr := peer.(type) {
	case *tg.PeerUser:
		out := domain.Peer{
			ID:       pr.UserID,
			Kind:     domain.PeerKindUser,
			TaggedID: "user" + strconv.FormatInt(pr.UserID, 10),
		}
		if u, ok := p.users[pr.UserID]; ok {
			out.Name = displayUserName(u)
			out.Username, _ = u.GetUsername()
			out.Deleted = u.Deleted
			out.Bot = u.Bot
		}
		return out

	case *tg.PeerChat:
		out := domain.Peer{
			ID:       pr.ChatID,
			Kind:     domain.PeerKindChat,
			TaggedID: "chat" + strconv.FormatInt(pr.ChatID, 10),
		}
		if ch, ok := p.chats[pr.ChatID]; ok {
			out.Title = ch.Title
		}
		return out

	case *tg.PeerChannel:
		out := domain.Peer{
			ID:       pr.ChannelID,
			Kind:     domain.PeerKindChannel,
			TaggedID: "channel" + strconv.FormatInt(pr.ChannelID, 10),
		}
		if ch, ok := p.channels[pr.ChannelID]; ok {
			out.Title = ch.Title
			out.Username, _ = ch.GetUsername()
		}
		return out

	default:
		return domain.Peer{}
	}
}

// displayUserName собирает отображаемое имя пользователя из имени и фамилии.
func displayUserName(u *tg.User) string {
	first, _ := u.GetFirstName()
	last, _ := u.GetLastName()
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
