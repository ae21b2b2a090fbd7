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

func segmentsOf(t *testing.T, s *Serializer, text string, entities []tg.MessageEntityClass) []domain.TextEntity {
	t.Helper()
	segments, err := s.segmentText(context.Background(), text, entities)
	require.NoError(t, err)
	return segments
}

func TestSegmentText(t *testing.T) {
	s, _ := newTestSerializer(t, stubResolver{}, stubEmoji{}, &stubFetcher{})

	t.Run("текст без разметки", func(t *testing.T) {
		segments := segmentsOf(t, s, "просто текст", nil)
		require.Len(t, segments, 1)
		assert.Equal(t, domain.TextEntity{Type: "plain", Text: "просто текст"}, segments[0])
	})

	t.Run("пустой текст без разметки", func(t *testing.T) {
		segments := segmentsOf(t, s, "", nil)
		assert.NotNil(t, segments)
		assert.Empty(t, segments)
	})

	t.Run("разметка с обычными сегментами вокруг", func(t *testing.T) {
		entities := []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 4, Length: 4},
		}
		segments := segmentsOf(t, s, "see bold end", entities)
		require.Len(t, segments, 3)
		assert.Equal(t, domain.TextEntity{Type: "plain", Text: "see "}, segments[0])
		assert.Equal(t, domain.TextEntity{Type: "bold", Text: "bold"}, segments[1])
		assert.Equal(t, domain.TextEntity{Type: "plain", Text: " end"}, segments[2])
	})

	t.Run("смещения считаются в единицах UTF-16", func(t *testing.T) {
		// "😀" занимает две единицы UTF-16, поэтому "bold" начинается с 3.
		entities := []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 3, Length: 4},
		}
		segments := segmentsOf(t, s, "😀 bold", entities)
		require.Len(t, segments, 3)
		assert.Equal(t, domain.TextEntity{Type: "plain", Text: "😀 "}, segments[0])
		assert.Equal(t, domain.TextEntity{Type: "bold", Text: "bold"}, segments[1])
		// Текст не-ASCII и заканчивается размеченным сегментом,
		// поэтому добавлен пустой хвост.
		assert.Equal(t, domain.TextEntity{Type: "plain", Text: ""}, segments[2])
	})

	t.Run("пустой хвостовой сегмент при не-ASCII тексте", func(t *testing.T) {
		entities := []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 3, Length: 4},
		}
		segments := segmentsOf(t, s, "😀 bold", entities)
		require.NotEmpty(t, segments)
		last := segments[len(segments)-1]
		assert.Equal(t, "plain", last.Type)
		assert.Equal(t, "", last.Text)
	})

	t.Run("кириллица тоже дает пустой хвостовой сегмент", func(t *testing.T) {
		entities := []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 0, Length: 6},
		}
		segments := segmentsOf(t, s, "привет", entities)
		require.Len(t, segments, 2)
		assert.Equal(t, domain.TextEntity{Type: "bold", Text: "привет"}, segments[0])
		assert.Equal(t, domain.TextEntity{Type: "plain", Text: ""}, segments[1])
	})

	t.Run("на чистом ASCII хвост не добавляется", func(t *testing.T) {
		entities := []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 0, Length: 4},
		}
		segments := segmentsOf(t, s, "bold", entities)
		require.Len(t, segments, 1)
		assert.Equal(t, "bold", segments[0].Type)
	})

	t.Run("пересекающаяся сущность пропускается", func(t *testing.T) {
		entities := []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 0, Length: 5},
			&tg.MessageEntityItalic{Offset: 3, Length: 4},
		}
		segments := segmentsOf(t, s, "0123456789", entities)
		require.Len(t, segments, 2)
		assert.Equal(t, "bold", segments[0].Type)
		assert.Equal(t, "01234", segments[0].Text)
		assert.Equal(t, domain.TextEntity{Type: "plain", Text: "56789"}, segments[1])
	})

	t.Run("сущность за границами текста пропускается", func(t *testing.T) {
		entities := []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 8, Length: 10},
		}
		segments := segmentsOf(t, s, "short", entities)
		require.Len(t, segments, 1)
		assert.Equal(t, domain.TextEntity{Type: "plain", Text: "short"}, segments[0])
	})

	t.Run("виды сущностей", func(t *testing.T) {
		text := "0123456789"
		testCases := []struct {
			name   string
			entity tg.MessageEntityClass
			check  func(t *testing.T, seg domain.TextEntity)
		}{
			{"ссылка", &tg.MessageEntityURL{Offset: 0, Length: 5}, func(t *testing.T, seg domain.TextEntity) {
				assert.Equal(t, "link", seg.Type)
			}},
			{"текстовая ссылка", &tg.MessageEntityTextURL{Offset: 0, Length: 5, URL: "https://example.org"}, func(t *testing.T, seg domain.TextEntity) {
				assert.Equal(t, "text_link", seg.Type)
				assert.Equal(t, "https://example.org", seg.Href)
			}},
			{"блок кода с языком", &tg.MessageEntityPre{Offset: 0, Length: 5, Language: "go"}, func(t *testing.T, seg domain.TextEntity) {
				assert.Equal(t, "pre", seg.Type)
				require.NotNil(t, seg.Language)
				assert.Equal(t, "go", *seg.Language)
			}},
			{"упоминание по id", &tg.MessageEntityMentionName{Offset: 0, Length: 5, UserID: 77}, func(t *testing.T, seg domain.TextEntity) {
				assert.Equal(t, "mention_name", seg.Type)
				assert.Equal(t, int64(77), seg.UserID)
			}},
			{"зачеркнутый", &tg.MessageEntityStrike{Offset: 0, Length: 5}, func(t *testing.T, seg domain.TextEntity) {
				assert.Equal(t, "strikethrough", seg.Type)
			}},
			{"спойлер", &tg.MessageEntitySpoiler{Offset: 0, Length: 5}, func(t *testing.T, seg domain.TextEntity) {
				assert.Equal(t, "spoiler", seg.Type)
			}},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				segments := segmentsOf(t, s, text, []tg.MessageEntityClass{tc.entity})
				require.NotEmpty(t, segments)
				assert.Equal(t, "01234", segments[0].Text)
				tc.check(t, segments[0])
			})
		}
	})
}

func TestCustomEmoji(t *testing.T) {
	t.Run("документ скачивается и путь попадает в document_id", func(t *testing.T) {
		fetcher := &stubFetcher{data: []byte("webp-bytes")}
		emoji := stubEmoji{docs: []tg.DocumentClass{
			&tg.Document{ID: 99, MimeType: "image/webp", Size: 10},
		}}
		s, root := newTestSerializer(t, stubResolver{}, emoji, fetcher)

		entities := []tg.MessageEntityClass{
			&tg.MessageEntityCustomEmoji{Offset: 0, Length: 2, DocumentID: 99},
		}
		segments := segmentsOf(t, s, "😀", entities)
		require.NotEmpty(t, segments)
		assert.Equal(t, "custom_emoji", segments[0].Type)
		assert.Equal(t, "stickers/99.webp", segments[0].DocumentID)

		data, err := os.ReadFile(filepath.Join(root, "stickers", "99.webp"))
		require.NoError(t, err)
		assert.Equal(t, []byte("webp-bytes"), data)
	})

	t.Run("недоступный документ оставляет числовой id", func(t *testing.T) {
		s, _ := newTestSerializer(t, stubResolver{}, stubEmoji{}, &stubFetcher{})
		entities := []tg.MessageEntityClass{
			&tg.MessageEntityCustomEmoji{Offset: 0, Length: 2, DocumentID: 555},
		}
		segments := segmentsOf(t, s, "😀", entities)
		require.NotEmpty(t, segments)
		assert.Equal(t, "555", segments[0].DocumentID)
	})

	t.Run("каталог зависит от mime-типа", func(t *testing.T) {
		dir, ext := emojiDestination("video/webm")
		assert.Equal(t, "video_files", dir)
		assert.Equal(t, ".webm", ext)

		dir, ext = emojiDestination("application/x-tgsticker")
		assert.Equal(t, "stickers", dir)
		assert.Equal(t, ".tgs", ext)
	})
}

func TestFillText(t *testing.T) {
	s, _ := newTestSerializer(t, stubResolver{}, stubEmoji{}, &stubFetcher{})

	t.Run("без разметки text является строкой", func(t *testing.T) {
		var out domain.Message
		require.NoError(t, s.fillText(context.Background(), "a<b", nil, &out))
		assert.Equal(t, `"a<b"`, string(out.Text))
		require.Len(t, out.TextEntities, 1)
		assert.Equal(t, domain.TextEntity{Type: "plain", Text: "a<b"}, out.TextEntities[0])
	})

	t.Run("с разметкой text является смешанным массивом", func(t *testing.T) {
		var out domain.Message
		entities := []tg.MessageEntityClass{
			&tg.MessageEntityBold{Offset: 4, Length: 4},
		}
		require.NoError(t, s.fillText(context.Background(), "see bold", entities, &out))
		assert.JSONEq(t, `["see ", {"type": "bold", "text": "bold"}]`, string(out.Text))
		require.Len(t, out.TextEntities, 2)
		assert.Equal(t, "plain", out.TextEntities[0].Type)
		assert.Equal(t, "bold", out.TextEntities[1].Type)
	})
}
