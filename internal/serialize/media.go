package serialize

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gotd/td/tg"

	"telegram-chat-exporter/internal/domain"
)

// Каталоги медиа внутри каталога чата, как в экспорте Telegram Desktop.
const (
	dirPhotos      = "photos"
	dirFiles       = "files"
	dirStickers    = "stickers"
	dirVideos      = "video_files"
	dirRoundVideos = "round_video_messages"
	dirVoice       = "voice_messages"
	dirContacts    = "contacts"
)

// serializeMedia заполняет медиаполя записи по вложению сообщения,
// скачивая файлы при необходимости. Неизвестные виды вложений не
// прерывают экспорт: запись остается без медиаполей.
func (s *Serializer) serializeMedia(ctx context.Context, m *tg.Message, media tg.MessageMediaClass, out *domain.Message) error {
	switch md := media.(type) {
	case *tg.MessageMediaPhoto:
		if ttl, ok := md.GetTTLSeconds(); ok {
			out.SelfDestructPeriodSeconds = ttl
		}
		photo, ok := md.Photo.(*tg.Photo)
		if !ok {
			return nil
		}
		return s.serializePhoto(ctx, photo, out)

	case *tg.MessageMediaDocument:
		if ttl, ok := md.GetTTLSeconds(); ok {
			out.SelfDestructPeriodSeconds = ttl
		}
		doc, ok := md.Document.(*tg.Document)
		if !ok {
			return nil
		}
		return s.serializeDocument(ctx, doc, out)

	case *tg.MessageMediaContact:
		return s.serializeContact(md, out)

	case *tg.MessageMediaGeo:
		if point, ok := md.Geo.(*tg.GeoPoint); ok {
			out.LocationInformation = locationOf(point)
		}
		return nil

	case *tg.MessageMediaGeoLive:
		if point, ok := md.Geo.(*tg.GeoPoint); ok {
			out.LocationInformation = locationOf(point)
			out.LiveLocationPeriodSeconds = md.Period
		}
		return nil

	case *tg.MessageMediaGame:
		return s.serializeGame(ctx, m, md, out)

	case *tg.MessageMediaPoll:
		out.Poll = serializePoll(md)
		return nil

	case *tg.MessageMediaPaidMedia:
		out.PaidStarsAmount = md.StarsAmount
		return nil

	case *tg.MessageMediaWebPage:
		// Предпросмотр ссылки не несет собственного содержимого,
		// текст ссылки уже есть в сообщении.
		return nil

	default:
		s.log.Warn("неподдерживаемый вид вложения пропущен",
			slog.Int("message_id", m.ID),
			slog.String("media", media.TypeName()),
		)
		return nil
	}
}

// serializePhoto скачивает наибольший доступный размер фотографии.
func (s *Serializer) serializePhoto(ctx context.Context, photo *tg.Photo, out *domain.Message) error {
	var best *tg.PhotoSize
	for _, size := range photo.Sizes {
		ps, ok := size.(*tg.PhotoSize)
		if !ok {
			continue
		}
		if best == nil || ps.W*ps.H > best.W*best.H {
			best = ps
		}
	}
	if best == nil {
		s.log.Warn("у фотографии нет скачиваемых размеров", slog.Int64("photo_id", photo.ID))
		return nil
	}

	dest := filepath.Join(s.root, dirPhotos, strconv.FormatInt(photo.ID, 10)+".jpg")
	location := &tg.InputPhotoFileLocation{
		ID:            photo.ID,
		AccessHash:    photo.AccessHash,
		FileReference: photo.FileReference,
		ThumbSize:     best.Type,
	}
	rel, err := s.media.Materialize(ctx, location, int64(best.Size), dest, dirPhotos)
	if err != nil {
		return err
	}
	out.Photo = rel
	out.Width = best.W
	out.Height = best.H
	return nil
}

// serializeDocument классифицирует документ по атрибутам и скачивает его
// вместе с миниатюрой. Тип определяется первым встреченным типовым
// атрибутом; сочетание animated+video трактуется как анимация с
// размерами и длительностью видео.
func (s *Serializer) serializeDocument(ctx context.Context, doc *tg.Document, out *domain.Message) error {
	var (
		sticker  *tg.DocumentAttributeSticker
		video    *tg.DocumentAttributeVideo
		audio    *tg.DocumentAttributeAudio
		animated bool
		primary  string
	)
	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeSticker:
			sticker = a
			if primary == "" {
				primary = "sticker"
			}
		case *tg.DocumentAttributeVideo:
			video = a
			if primary == "" {
				primary = "video"
			}
		case *tg.DocumentAttributeAudio:
			audio = a
			if primary == "" {
				primary = "audio"
			}
		case *tg.DocumentAttributeAnimated:
			animated = true
			if primary == "" {
				primary = "animated"
			}
		case *tg.DocumentAttributeFilename:
			out.FileName = a.FileName
		case *tg.DocumentAttributeImageSize:
			out.Width, out.Height = a.W, a.H
		}
	}
	if animated && video != nil {
		primary = "animated"
	}

	dir := dirFiles
	switch primary {
	case "sticker":
		out.MediaType = "sticker"
		dir = dirStickers
		out.StickerEmoji = sticker.Alt
		// У видеостикера берутся только размеры: длительность пишется
		// лишь тогда, когда ее несет сам основной атрибут.
		if video != nil {
			out.Width, out.Height = video.W, video.H
		}
	case "animated":
		out.MediaType = "animation"
		dir = dirVideos
		if video != nil {
			fillVideo(video, out)
		}
	case "video":
		if video.RoundMessage {
			out.MediaType = "video_message"
			dir = dirRoundVideos
		} else {
			out.MediaType = "video_file"
			dir = dirVideos
		}
		fillVideo(video, out)
	case "audio":
		if audio.Voice {
			out.MediaType = "voice_message"
			dir = dirVoice
		} else {
			out.MediaType = "audio_file"
			if performer, ok := audio.GetPerformer(); ok {
				out.Performer = performer
			}
			if title, ok := audio.GetTitle(); ok {
				out.Title = title
			}
		}
		duration := audio.Duration
		out.DurationSeconds = &duration
	}

	ext := documentExtension(doc.MimeType, out.FileName)
	dest := filepath.Join(s.root, dir, strconv.FormatInt(doc.ID, 10)+ext)
	rel, err := s.media.Materialize(ctx, documentLocation(doc, ""), doc.Size, dest, dir)
	if err != nil {
		return err
	}
	out.File = rel
	out.MimeType = doc.MimeType

	if thumbs, ok := doc.GetThumbs(); ok {
		for _, thumb := range thumbs {
			ps, ok := thumb.(*tg.PhotoSize)
			if !ok {
				continue
			}
			thumbDest := filepath.Join(s.root, dir, strconv.FormatInt(doc.ID, 10)+ext+"_thumb.jpg")
			thumbRel, err := s.media.Materialize(ctx, documentLocation(doc, ps.Type), int64(ps.Size), thumbDest, dir)
			if err != nil {
				return err
			}
			out.Thumbnail = thumbRel
			break
		}
	}
	return nil
}

func (s *Serializer) serializeContact(md *tg.MessageMediaContact, out *domain.Message) error {
	out.ContactInformation = &domain.ContactInfo{
		FirstName:   md.FirstName,
		LastName:    md.LastName,
		PhoneNumber: FormatPhone(md.PhoneNumber),
	}
	if md.Vcard == "" {
		return nil
	}

	// Номера карточек выдаются последовательно по содержимому каталога,
	// поэтому выделение и запись выполняются под общим замком.
	s.contactMu.Lock()
	defer s.contactMu.Unlock()

	dir := filepath.Join(s.root, dirContacts)
	n, err := nextContactNumber(dir)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("contact_%d.vcard", n)
	if err := s.media.WriteLocal(filepath.Join(dir, name), []byte(md.Vcard)); err != nil {
		return err
	}
	out.ContactVcard = path.Join(dirContacts, name)
	return nil
}

func (s *Serializer) serializeGame(ctx context.Context, m *tg.Message, md *tg.MessageMediaGame, out *domain.Message) error {
	out.GameTitle = md.Game.Title
	out.GameDescription = md.Game.Description

	botID, ok := m.GetViaBotID()
	if !ok {
		return nil
	}
	bot, err := s.resolver.ResolvePeer(ctx, &tg.PeerUser{UserID: botID})
	if err != nil {
		return err
	}
	if bot.Username != "" {
		out.GameLink = fmt.Sprintf("https://t.me/%s?game=%s", bot.Username, md.Game.ShortName)
	}
	return nil
}

func serializePoll(md *tg.MessageMediaPoll) *domain.Poll {
	poll := &domain.Poll{
		Question:    md.Poll.Question.Text,
		Closed:      md.Poll.Closed,
		TotalVoters: md.Results.TotalVoters,
		Answers:     make([]domain.PollAnswer, 0, len(md.Poll.Answers)),
	}
	for _, answer := range md.Poll.Answers {
		entry := domain.PollAnswer{Text: answer.Text.Text}
		for _, result := range md.Results.Results {
			if string(result.Option) == string(answer.Option) {
				entry.Voters = result.Voters
				entry.Chosen = result.Chosen
				break
			}
		}
		poll.Answers = append(poll.Answers, entry)
	}
	return poll
}

func fillVideo(video *tg.DocumentAttributeVideo, out *domain.Message) {
	out.Width = video.W
	out.Height = video.H
	duration := int(video.Duration)
	out.DurationSeconds = &duration
}

// nextContactNumber возвращает следующий свободный номер vcard-карточки,
// просматривая существующие файлы contact_<n>.vcard.
func nextContactNumber(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read contacts dir: %w", err)
	}
	max := 0
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "contact_") || !strings.HasSuffix(name, ".vcard") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "contact_"), ".vcard"))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

func locationOf(point *tg.GeoPoint) *domain.LocationInfo {
	return &domain.LocationInfo{
		Latitude:  round6(point.Lat),
		Longitude: round6(point.Long),
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func documentLocation(doc *tg.Document, thumbSize string) tg.InputFileLocationClass {
	return &tg.InputDocumentFileLocation{
		ID:            doc.ID,
		AccessHash:    doc.AccessHash,
		FileReference: doc.FileReference,
		ThumbSize:     thumbSize,
	}
}

// mimeExtensions отображает mime-типы платформы в расширения файлов.
// Telegram отдает голосовые как audio/ogg, файл при этом сохраняется
// с расширением .ogg, а не .oga.
var mimeExtensions = map[string]string{
	"image/jpeg":              ".jpg",
	"image/png":               ".png",
	"image/gif":               ".gif",
	"image/webp":              ".webp",
	"video/mp4":               ".mp4",
	"video/webm":              ".webm",
	"video/quicktime":         ".mov",
	"audio/mpeg":              ".mp3",
	"audio/ogg":               ".ogg",
	"audio/mp4":               ".m4a",
	"audio/flac":              ".flac",
	"audio/x-wav":             ".wav",
	"application/x-tgsticker": ".tgs",
	"application/pdf":         ".pdf",
	"application/zip":         ".zip",
	"text/plain":              ".txt",
}

// documentExtension выбирает расширение файла: сначала по mime-типу,
// затем по исходному имени файла, в крайнем случае .bin.
func documentExtension(mime, fileName string) string {
	if ext, ok := mimeExtensions[mime]; ok {
		return ext
	}
	if ext := filepath.Ext(fileName); ext != "" {
		return ext
	}
	return ".bin"
}
