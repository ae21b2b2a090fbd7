package serialize

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-exporter/internal/domain"
)

func messageWithMedia(media tg.MessageMediaClass) *tg.Message {
	msg := &tg.Message{
		ID:     20,
		Date:   1700000000,
		PeerID: &tg.PeerUser{UserID: 7},
		Media:  media,
	}
	msg.SetFlags()
	return msg
}

func TestSerializePhotoMedia(t *testing.T) {
	fetcher := &stubFetcher{data: []byte("jpeg")}
	s, root := newTestSerializer(t, stubResolver{}, stubEmoji{}, fetcher)

	photo := &tg.Photo{
		ID:         777,
		AccessHash: 1,
		Sizes: []tg.PhotoSizeClass{
			&tg.PhotoSize{Type: "m", W: 320, H: 240, Size: 100},
			&tg.PhotoSize{Type: "x", W: 1280, H: 960, Size: 400},
		},
	}
	photo.SetFlags()
	media := &tg.MessageMediaPhoto{Photo: photo}
	media.SetFlags()

	out, err := s.Serialize(context.Background(), messageWithMedia(media))
	require.NoError(t, err)

	assert.Equal(t, "photos/777.jpg", out.Photo)
	assert.Equal(t, 1280, out.Width)
	assert.Equal(t, 960, out.Height)

	_, statErr := os.Stat(filepath.Join(root, "photos", "777.jpg"))
	assert.NoError(t, statErr)
}

func TestSerializeDocumentMedia(t *testing.T) {
	newDocument := func(mime string, attrs ...tg.DocumentAttributeClass) *tg.Document {
		doc := &tg.Document{
			ID:         555,
			AccessHash: 2,
			MimeType:   mime,
			Size:       4,
			Attributes: attrs,
		}
		doc.SetFlags()
		return doc
	}

	serializeDoc := func(t *testing.T, doc *tg.Document) (*domain.Message, string) {
		t.Helper()
		fetcher := &stubFetcher{data: []byte("blob")}
		s, root := newTestSerializer(t, stubResolver{}, stubEmoji{}, fetcher)
		media := &tg.MessageMediaDocument{Document: doc}
		media.SetFlags()
		out, err := s.Serialize(context.Background(), messageWithMedia(media))
		require.NoError(t, err)
		return out, root
	}

	t.Run("стикер", func(t *testing.T) {
		out, _ := serializeDoc(t, newDocument("image/webp",
			&tg.DocumentAttributeImageSize{W: 512, H: 512},
			&tg.DocumentAttributeSticker{Alt: "😀"},
		))
		assert.Equal(t, "sticker", out.MediaType)
		assert.Equal(t, "stickers/555.webp", out.File)
		assert.Equal(t, "😀", out.StickerEmoji)
		assert.Equal(t, 512, out.Width)
	})

	t.Run("видеостикер без длительности", func(t *testing.T) {
		video := &tg.DocumentAttributeVideo{W: 512, H: 512, Duration: 2.9}
		video.SetFlags()
		out, _ := serializeDoc(t, newDocument("video/webm",
			&tg.DocumentAttributeSticker{Alt: "🎉"},
			video,
		))
		assert.Equal(t, "sticker", out.MediaType)
		assert.Equal(t, 512, out.Width)
		assert.Equal(t, 512, out.Height)
		assert.Nil(t, out.DurationSeconds)
	})

	t.Run("голосовое сообщение", func(t *testing.T) {
		audio := &tg.DocumentAttributeAudio{Voice: true, Duration: 3}
		audio.SetFlags()
		out, _ := serializeDoc(t, newDocument("audio/ogg", audio))
		assert.Equal(t, "voice_message", out.MediaType)
		assert.Equal(t, "voice_messages/555.ogg", out.File)
		require.NotNil(t, out.DurationSeconds)
		assert.Equal(t, 3, *out.DurationSeconds)
	})

	t.Run("аудиофайл с исполнителем", func(t *testing.T) {
		audio := &tg.DocumentAttributeAudio{Duration: 180, Performer: "Artist", Title: "Song"}
		audio.SetFlags()
		out, _ := serializeDoc(t, newDocument("audio/mpeg", audio))
		assert.Equal(t, "audio_file", out.MediaType)
		assert.Equal(t, "files/555.mp3", out.File)
		assert.Equal(t, "Artist", out.Performer)
		assert.Equal(t, "Song", out.Title)
	})

	t.Run("круглое видео", func(t *testing.T) {
		video := &tg.DocumentAttributeVideo{RoundMessage: true, W: 240, H: 240, Duration: 7}
		video.SetFlags()
		out, _ := serializeDoc(t, newDocument("video/mp4", video))
		assert.Equal(t, "video_message", out.MediaType)
		assert.Equal(t, "round_video_messages/555.mp4", out.File)
	})

	t.Run("анимация поверх видео", func(t *testing.T) {
		video := &tg.DocumentAttributeVideo{W: 320, H: 240, Duration: 2}
		video.SetFlags()
		out, _ := serializeDoc(t, newDocument("video/mp4", video, &tg.DocumentAttributeAnimated{}))
		assert.Equal(t, "animation", out.MediaType)
		assert.Equal(t, "video_files/555.mp4", out.File)
		require.NotNil(t, out.DurationSeconds)
		assert.Equal(t, 2, *out.DurationSeconds)
	})

	t.Run("обычный файл без типового атрибута", func(t *testing.T) {
		out, _ := serializeDoc(t, newDocument("application/pdf",
			&tg.DocumentAttributeFilename{FileName: "doc.pdf"},
		))
		assert.Empty(t, out.MediaType)
		assert.Equal(t, "files/555.pdf", out.File)
		assert.Equal(t, "doc.pdf", out.FileName)
		assert.Equal(t, "application/pdf", out.MimeType)
	})

	t.Run("миниатюра скачивается рядом с файлом", func(t *testing.T) {
		doc := newDocument("video/mp4")
		doc.Thumbs = []tg.PhotoSizeClass{&tg.PhotoSize{Type: "m", W: 90, H: 90, Size: 10}}
		doc.SetFlags()
		out, root := serializeDoc(t, doc)
		assert.Equal(t, "files/555.mp4_thumb.jpg", out.Thumbnail)
		_, err := os.Stat(filepath.Join(root, "files", "555.mp4_thumb.jpg"))
		assert.NoError(t, err)
	})
}

func TestSerializeContactMedia(t *testing.T) {
	t.Run("контакт с карточкой vcard", func(t *testing.T) {
		s, root := newTestSerializer(t, stubResolver{}, stubEmoji{}, &stubFetcher{})
		media := &tg.MessageMediaContact{
			FirstName:   "Boris",
			LastName:    "Ivanov",
			PhoneNumber: "79261234567",
			Vcard:       "BEGIN:VCARD",
		}

		out, err := s.Serialize(context.Background(), messageWithMedia(media))
		require.NoError(t, err)

		require.NotNil(t, out.ContactInformation)
		assert.Equal(t, "Boris", out.ContactInformation.FirstName)
		assert.Equal(t, "+7 926 123 4567", out.ContactInformation.PhoneNumber)
		assert.Equal(t, "contacts/contact_1.vcard", out.ContactVcard)

		data, err := os.ReadFile(filepath.Join(root, "contacts", "contact_1.vcard"))
		require.NoError(t, err)
		assert.Equal(t, "BEGIN:VCARD", string(data))
	})

	t.Run("номер карточки продолжает нумерацию", func(t *testing.T) {
		s, root := newTestSerializer(t, stubResolver{}, stubEmoji{}, &stubFetcher{})
		require.NoError(t, os.MkdirAll(filepath.Join(root, "contacts"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "contacts", "contact_3.vcard"), []byte("x"), 0o644))

		media := &tg.MessageMediaContact{FirstName: "A", Vcard: "BEGIN:VCARD"}
		out, err := s.Serialize(context.Background(), messageWithMedia(media))
		require.NoError(t, err)
		assert.Equal(t, "contacts/contact_4.vcard", out.ContactVcard)
	})

	t.Run("контакт без vcard не создает файла", func(t *testing.T) {
		s, root := newTestSerializer(t, stubResolver{}, stubEmoji{}, &stubFetcher{})
		media := &tg.MessageMediaContact{FirstName: "A"}
		out, err := s.Serialize(context.Background(), messageWithMedia(media))
		require.NoError(t, err)
		assert.Empty(t, out.ContactVcard)
		_, statErr := os.Stat(filepath.Join(root, "contacts"))
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestSerializeGeoMedia(t *testing.T) {
	s, _ := newTestSerializer(t, stubResolver{}, stubEmoji{}, &stubFetcher{})

	t.Run("геоточка округляется до шести знаков", func(t *testing.T) {
		point := &tg.GeoPoint{Lat: 55.12345678, Long: 37.98765432}
		point.SetFlags()
		media := &tg.MessageMediaGeo{Geo: point}

		out, err := s.Serialize(context.Background(), messageWithMedia(media))
		require.NoError(t, err)
		require.NotNil(t, out.LocationInformation)
		assert.Equal(t, 55.123457, out.LocationInformation.Latitude)
		assert.Equal(t, 37.987654, out.LocationInformation.Longitude)
	})

	t.Run("живая геолокация несет период", func(t *testing.T) {
		point := &tg.GeoPoint{Lat: 1, Long: 2}
		point.SetFlags()
		media := &tg.MessageMediaGeoLive{Geo: point, Period: 900}
		media.SetFlags()

		out, err := s.Serialize(context.Background(), messageWithMedia(media))
		require.NoError(t, err)
		require.NotNil(t, out.LocationInformation)
		assert.Equal(t, 900, out.LiveLocationPeriodSeconds)
	})
}

func TestSerializeGameMedia(t *testing.T) {
	resolver := stubResolver{users: map[int64]domain.Peer{
		9: {ID: 9, Kind: domain.PeerKindUser, TaggedID: "user9", Name: "Game Bot", Username: "gamebot", Bot: true},
	}}
	s, _ := newTestSerializer(t, resolver, stubEmoji{}, &stubFetcher{})

	media := &tg.MessageMediaGame{Game: tg.Game{
		Title:       "Snake",
		Description: "Classic",
		ShortName:   "snake",
	}}
	msg := messageWithMedia(media)
	msg.ViaBotID = 9
	msg.SetFlags()

	out, err := s.Serialize(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "Snake", out.GameTitle)
	assert.Equal(t, "Classic", out.GameDescription)
	assert.Equal(t, "https://t.me/gamebot?game=snake", out.GameLink)
}

func TestSerializePollMedia(t *testing.T) {
	s, _ := newTestSerializer(t, stubResolver{}, stubEmoji{}, &stubFetcher{})

	media := &tg.MessageMediaPoll{
		Poll: tg.Poll{
			Question: tg.TextWithEntities{Text: "Лучший язык?"},
			Answers: []tg.PollAnswer{
				{Text: tg.TextWithEntities{Text: "Go"}, Option: []byte{0}},
				{Text: tg.TextWithEntities{Text: "Rust"}, Option: []byte{1}},
			},
			Closed: true,
		},
		Results: tg.PollResults{
			TotalVoters: 10,
			Results: []tg.PollAnswerVoters{
				{Option: []byte{0}, Voters: 7, Chosen: true},
				{Option: []byte{1}, Voters: 3},
			},
		},
	}

	out, err := s.Serialize(context.Background(), messageWithMedia(media))
	require.NoError(t, err)

	require.NotNil(t, out.Poll)
	assert.Equal(t, "Лучший язык?", out.Poll.Question)
	assert.True(t, out.Poll.Closed)
	assert.Equal(t, 10, out.Poll.TotalVoters)
	require.Len(t, out.Poll.Answers, 2)
	assert.Equal(t, domain.PollAnswer{Text: "Go", Voters: 7, Chosen: true}, out.Poll.Answers[0])
	assert.Equal(t, domain.PollAnswer{Text: "Rust", Voters: 3}, out.Poll.Answers[1])
}

func TestSerializeUnsupportedMedia(t *testing.T) {
	s, _ := newTestSerializer(t, stubResolver{}, stubEmoji{}, &stubFetcher{})

	out, err := s.Serialize(context.Background(), messageWithMedia(&tg.MessageMediaUnsupported{}))
	require.NoError(t, err)
	assert.Empty(t, out.File)
	assert.Empty(t, out.Photo)
}

func TestDocumentExtension(t *testing.T) {
	assert.Equal(t, ".ogg", documentExtension("audio/ogg", ""))
	assert.Equal(t, ".jpg", documentExtension("image/jpeg", ""))
	assert.Equal(t, ".csv", documentExtension("text/csv", "data.csv"))
	assert.Equal(t, ".bin", documentExtension("application/octet-stream", ""))
}
