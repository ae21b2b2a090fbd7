// Package domain содержит модели данных экспорта в формате,
// совместимом с экспортом Telegram Desktop.
package domain

import (
	"encoding/json"

	"github.com/gotd/td/tg"
)

// ExportedChat представляет корневую структуру файла export.json.
type ExportedChat struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	ID       int64     `json:"id"`
	Messages []Message `json:"messages"`
}

// Message представляет одно сообщение в чате. Структура плоская:
// каждая разновидность сообщения (обычное, сервисное, с медиа)
// заполняет свое подмножество полей, остальные опускаются при
// маршалинге. Сборка через явные поля вместо слияния словарей
// гарантирует, что ключи не перезаписывают друг друга.
type Message struct {
	ID             int    `json:"id"`
	Type           string `json:"type"`
	Date           string `json:"date"`
	DateUnixtime   string `json:"date_unixtime"`
	Edited         string `json:"edited,omitempty"`
	EditedUnixtime string `json:"edited_unixtime,omitempty"`

	// Поля отправителя: from/from_id для обычных сообщений,
	// actor/actor_id для сервисных.
	Actor   string `json:"actor,omitempty"`
	ActorID string `json:"actor_id,omitempty"`
	From    string `json:"from,omitempty"`
	FromID  string `json:"from_id,omitempty"`

	// forwarded_from может быть строкой (имя, заголовок) или числом (id).
	ForwardedFrom    any    `json:"forwarded_from,omitempty"`
	ViaBot           string `json:"via_bot,omitempty"`
	ReplyToMessageID int    `json:"reply_to_message_id,omitempty"`
	ReplyToPeerID    string `json:"reply_to_peer_id,omitempty"`

	// Поля сервисных событий.
	Action        string  `json:"action,omitempty"`
	MessageID     int     `json:"message_id,omitempty"`
	GameMessageID int     `json:"game_message_id,omitempty"`
	Score         *int    `json:"score,omitempty"`
	DiscardReason *string `json:"discard_reason,omitempty"`
	Distance      int     `json:"distance,omitempty"`
	To            string  `json:"to,omitempty"`
	ToID          string  `json:"to_id,omitempty"`
	Period        int     `json:"period,omitempty"`
	Emoticon      string  `json:"emoticon,omitempty"`
	Cost          any     `json:"cost,omitempty"`
	Months        int     `json:"months,omitempty"`
	Stars         int64   `json:"stars,omitempty"`
	GiftID        int64   `json:"gift_id,omitempty"`
	IsLimited     *bool   `json:"is_limited,omitempty"`
	IsAnonymous   *bool   `json:"is_anonymous,omitempty"`
	GiftText      string  `json:"gift_text,omitempty"`

	// Поля медиа.
	Photo                     string        `json:"photo,omitempty"`
	Width                     int           `json:"width,omitempty"`
	Height                    int           `json:"height,omitempty"`
	File                      string        `json:"file,omitempty"`
	FileName                  string        `json:"file_name,omitempty"`
	Thumbnail                 string        `json:"thumbnail,omitempty"`
	MediaType                 string        `json:"media_type,omitempty"`
	StickerEmoji              string        `json:"sticker_emoji,omitempty"`
	Performer                 string        `json:"performer,omitempty"`
	Title                     string        `json:"title,omitempty"`
	MimeType                  string        `json:"mime_type,omitempty"`
	DurationSeconds           *int          `json:"duration_seconds,omitempty"`
	SelfDestructPeriodSeconds int           `json:"self_destruct_period_seconds,omitempty"`
	ContactInformation        *ContactInfo  `json:"contact_information,omitempty"`
	ContactVcard              string        `json:"contact_vcard,omitempty"`
	LocationInformation       *LocationInfo `json:"location_information,omitempty"`
	LiveLocationPeriodSeconds int           `json:"live_location_period_seconds,omitempty"`
	GameTitle                 string        `json:"game_title,omitempty"`
	GameDescription           string        `json:"game_description,omitempty"`
	GameLink                  string        `json:"game_link,omitempty"`
	Poll                      *Poll         `json:"poll,omitempty"`
	PaidStarsAmount           int64         `json:"paid_stars_amount,omitempty"`

	// text хранит либо строку, либо смешанный массив строк и объектов.
	Text             json.RawMessage  `json:"text"`
	TextEntities     []TextEntity     `json:"text_entities"`
	InlineBotButtons [][]InlineButton `json:"inline_bot_buttons,omitempty"`
}

// TextEntity представляет один сегмент текста: обычный ("plain")
// или размеченный (упоминание, ссылка, жирный и т.д.).
type TextEntity struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	UserID     int64   `json:"user_id,omitempty"`
	DocumentID string  `json:"document_id,omitempty"`
	Language   *string `json:"language,omitempty"`
	Href       string  `json:"href,omitempty"`
}

// InlineButton представляет одну кнопку inline-клавиатуры.
type InlineButton struct {
	Type        string  `json:"type"`
	Text        string  `json:"text,omitempty"`
	Data        *string `json:"data,omitempty"`
	DataBase64  string  `json:"dataBase64,omitempty"`
	ForwardText string  `json:"forward_text,omitempty"`
	ButtonID    string  `json:"button_id,omitempty"`
}

// ContactInfo представляет вложенную контактную карточку.
type ContactInfo struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

// LocationInfo представляет геоточку, округленную до шести знаков.
type LocationInfo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Poll представляет опрос.
type Poll struct {
	Question    string       `json:"question"`
	Closed      bool         `json:"closed"`
	TotalVoters int          `json:"total_voters"`
	Answers     []PollAnswer `json:"answers"`
}

// PollAnswer представляет один вариант ответа опроса.
type PollAnswer struct {
	Text   string `json:"text"`
	Voters int    `json:"voters"`
	Chosen bool   `json:"chosen"`
}

// DeletedAccountName — метка удаленного аккаунта в эталонном экспорте.
const DeletedAccountName = "Deleted Account"

// PeerKind различает разновидности пиров Telegram.
type PeerKind int

const (
	PeerKindUser PeerKind = iota
	PeerKindChat
	PeerKindChannel
)

// Peer представляет разрешенного пира: пользователя, группу или канал.
type Peer struct {
	ID       int64
	Kind     PeerKind
	TaggedID string // "user<id>", "chat<id>" или "channel<id>"
	Name     string // отображаемое имя пользователя
	Title    string // заголовок группы или канала
	Username string
	Deleted  bool
	Bot      bool
}

// DisplayName возвращает имя для полей from/actor.
func (p Peer) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Deleted {
		return DeletedAccountName
	}
	return p.Title
}

// ChatInfo описывает чат, выбранный для экспорта.
type ChatInfo struct {
	ID        int64
	Name      string
	Type      string
	InputPeer tg.InputPeerClass
}

// Dialog описывает один диалог из списка чатов аккаунта.
type Dialog struct {
	// ID в "отмеченном" формате: отрицательный для групп и каналов,
	// в том виде, в котором его ожидает конфигурация экспорта.
	ID       int64
	Name     string
	Username string
	Kind     PeerKind
}
