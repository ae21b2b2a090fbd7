package serialize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"unicode/utf16"

	"github.com/gotd/td/tg"

	"telegram-chat-exporter/internal/domain"
)

// fillText разбивает текст сообщения на сегменты по разметке и заполняет
// поля text и text_entities записи. Смещения и длины сущностей заданы
// платформой в кодовых единицах UTF-16, поэтому разбиение выполняется
// над UTF-16-представлением текста, а не над рунами или байтами.
func (s *Serializer) fillText(ctx context.Context, text string, entities []tg.MessageEntityClass, out *domain.Message) error {
	segments, err := s.segmentText(ctx, text, entities)
	if err != nil {
		return err
	}

	out.TextEntities = segments

	// Поле text повторяет сегменты в смешанной форме: при отсутствии
	// разметки это просто строка, иначе — массив, где обычные сегменты
	// записаны голыми строками, а размеченные — объектами.
	if len(entities) == 0 {
		raw, err := marshalRaw(text)
		if err != nil {
			return err
		}
		out.Text = raw
		return nil
	}

	parts := make([]any, 0, len(segments))
	for _, seg := range segments {
		if seg.Type == "plain" {
			parts = append(parts, seg.Text)
		} else {
			parts = append(parts, seg)
		}
	}
	raw, err := marshalRaw(parts)
	if err != nil {
		return err
	}
	out.Text = raw
	return nil
}

// segmentText возвращает полный упорядоченный список сегментов текста:
// размеченные участки перемежаются обычными ("plain") без потерь символов.
func (s *Serializer) segmentText(ctx context.Context, text string, entities []tg.MessageEntityClass) ([]domain.TextEntity, error) {
	segments := make([]domain.TextEntity, 0, 2*len(entities)+1)

	if len(entities) == 0 {
		if text != "" {
			segments = append(segments, domain.TextEntity{Type: "plain", Text: text})
		}
		return segments, nil
	}

	units := utf16.Encode([]rune(text))
	cursor := 0
	for _, ent := range entities {
		offset := ent.GetOffset()
		length := ent.GetLength()
		// Пересекающиеся или вышедшие за границы сущности пропускаются:
		// текст участка остается в составе обычного сегмента.
		if offset < cursor || length <= 0 || offset+length > len(units) {
			s.log.Warn("пропущена некорректная сущность разметки",
				slog.String("type", ent.TypeName()),
				slog.Int("offset", offset),
				slog.Int("length", length),
			)
			continue
		}
		if offset > cursor {
			segments = append(segments, domain.TextEntity{
				Type: "plain",
				Text: decodeUnits(units[cursor:offset]),
			})
		}
		seg, err := s.entitySegment(ctx, ent, decodeUnits(units[offset:offset+length]))
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
		cursor = offset + length
	}
	if cursor < len(units) {
		segments = append(segments, domain.TextEntity{
			Type: "plain",
			Text: decodeUnits(units[cursor:]),
		})
	}

	// Причуда эталонного формата: если текст содержит хотя бы один
	// не-ASCII символ и последний сегмент размечен, в конец добавляется
	// пустой обычный сегмент.
	if hasNonASCII(text) && len(segments) > 0 && segments[len(segments)-1].Type != "plain" {
		segments = append(segments, domain.TextEntity{Type: "plain", Text: ""})
	}

	return segments, nil
}

// entitySegment переводит одну сущность разметки в сегмент записи.
func (s *Serializer) entitySegment(ctx context.Context, ent tg.MessageEntityClass, text string) (domain.TextEntity, error) {
	seg := domain.TextEntity{Text: text}

	switch e := ent.(type) {
	case *tg.MessageEntityMention:
		seg.Type = "mention"
	case *tg.MessageEntityHashtag:
		seg.Type = "hashtag"
	case *tg.MessageEntityBotCommand:
		seg.Type = "bot_command"
	case *tg.MessageEntityURL:
		seg.Type = "link"
	case *tg.MessageEntityEmail:
		seg.Type = "email"
	case *tg.MessageEntityBold:
		seg.Type = "bold"
	case *tg.MessageEntityItalic:
		seg.Type = "italic"
	case *tg.MessageEntityCode:
		seg.Type = "code"
	case *tg.MessageEntityPre:
		seg.Type = "pre"
		lang := e.Language
		seg.Language = &lang
	case *tg.MessageEntityTextURL:
		seg.Type = "text_link"
		seg.Href = e.URL
	case *tg.MessageEntityMentionName:
		seg.Type = "mention_name"
		seg.UserID = e.UserID
	case *tg.MessageEntityPhone:
		seg.Type = "phone"
	case *tg.MessageEntityCashtag:
		seg.Type = "cashtag"
	case *tg.MessageEntityUnderline:
		seg.Type = "underline"
	case *tg.MessageEntityStrike:
		seg.Type = "strikethrough"
	case *tg.MessageEntityBankCard:
		seg.Type = "bank_card"
	case *tg.MessageEntitySpoiler:
		seg.Type = "spoiler"
	case *tg.MessageEntityCustomEmoji:
		seg.Type = "custom_emoji"
		path, err := s.materializeCustomEmoji(ctx, e.DocumentID)
		if err != nil {
			return domain.TextEntity{}, err
		}
		seg.DocumentID = path
	case *tg.MessageEntityBlockquote:
		seg.Type = "blockquote"
	default:
		seg.Type = "unknown"
	}

	return seg, nil
}

// materializeCustomEmoji скачивает документ кастомного эмодзи и возвращает
// относительный путь к файлу. Если разрешить документ не удалось без
// ошибки API (эмодзи удален), вместо пути остается числовой идентификатор.
func (s *Serializer) materializeCustomEmoji(ctx context.Context, id int64) (string, error) {
	if s.emoji == nil {
		return strconv.FormatInt(id, 10), nil
	}

	docs, err := s.emoji.CustomEmojiDocuments(ctx, []int64{id})
	if err != nil {
		return "", fmt.Errorf("resolve custom emoji %d: %w", id, err)
	}

	var doc *tg.Document
	for _, d := range docs {
		if full, ok := d.(*tg.Document); ok && full.ID == id {
			doc = full
			break
		}
	}
	if doc == nil {
		s.log.Warn("документ кастомного эмодзи недоступен", slog.Int64("document_id", id))
		return strconv.FormatInt(id, 10), nil
	}

	dir, ext := emojiDestination(doc.MimeType)
	dest := filepath.Join(s.root, dir, strconv.FormatInt(doc.ID, 10)+ext)
	rel, err := s.media.Materialize(ctx, documentLocation(doc, ""), doc.Size, dest, dir)
	if err != nil {
		return "", fmt.Errorf("download custom emoji %d: %w", id, err)
	}
	return rel, nil
}

// emojiDestination выбирает каталог и расширение файла эмодзи по mime-типу.
func emojiDestination(mime string) (dir, ext string) {
	switch mime {
	case "video/webm":
		return "video_files", ".webm"
	case "application/x-tgsticker":
		return "stickers", ".tgs"
	default:
		return "stickers", ".webp"
	}
}

func decodeUnits(units []uint16) string {
	return string(utf16.Decode(units))
}

// hasNonASCII сообщает, содержит ли текст символы вне диапазона ASCII,
// то есть занимает ли его UTF-8-представление больше байт, чем рун.
func hasNonASCII(text string) bool {
	for _, r := range text {
		if r >= 0x80 {
			return true
		}
	}
	return false
}

// marshalRaw маршалит значение без экранирования HTML-символов,
// как это делает эталонный экспорт.
func marshalRaw(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
