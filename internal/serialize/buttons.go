package serialize

import (
	"encoding/base64"
	"strconv"

	"github.com/gotd/td/tg"

	"telegram-chat-exporter/internal/domain"
)

// serializeButtons преобразует inline-клавиатуру бота в строки кнопок
// записи, сохраняя исходную сетку.
func serializeButtons(rows []tg.KeyboardButtonRow) [][]domain.InlineButton {
	out := make([][]domain.InlineButton, 0, len(rows))
	for _, row := range rows {
		line := make([]domain.InlineButton, 0, len(row.Buttons))
		for _, button := range row.Buttons {
			line = append(line, serializeButton(button))
		}
		out = append(out, line)
	}
	return out
}

func serializeButton(button tg.KeyboardButtonClass) domain.InlineButton {
	switch b := button.(type) {
	case *tg.KeyboardButtonCallback:
		kind := "callback"
		if b.RequiresPassword {
			kind = "callback_with_password"
		}
		// Полезная нагрузка кнопки — произвольные байты: в поле data
		// пишется пустая строка, содержимое уходит в dataBase64.
		entry := buttonWithData(kind, b.Text, "")
		entry.DataBase64 = base64.StdEncoding.EncodeToString(b.Data)
		return entry

	case *tg.KeyboardButtonRequestPhone:
		return domain.InlineButton{Type: "request_phone", Text: b.Text}

	case *tg.KeyboardButtonRequestGeoLocation:
		return domain.InlineButton{Type: "request_location", Text: b.Text}

	case *tg.KeyboardButtonRequestPoll:
		return domain.InlineButton{Type: "request_poll", Text: b.Text}

	case *tg.KeyboardButtonRequestPeer:
		return domain.InlineButton{Type: "request_peer", Text: b.Text}

	case *tg.KeyboardButtonURL:
		return buttonWithData("url", b.Text, b.URL)

	case *tg.KeyboardButtonURLAuth:
		entry := buttonWithData("auth", b.Text, b.URL)
		if fwd, ok := b.GetFwdText(); ok {
			entry.ForwardText = fwd
		}
		entry.ButtonID = strconv.Itoa(b.ButtonID)
		return entry

	case *tg.KeyboardButtonWebView:
		return buttonWithData("web_view", b.Text, b.URL)

	case *tg.KeyboardButtonSimpleWebView:
		return buttonWithData("simple_web_view", b.Text, b.URL)

	case *tg.KeyboardButtonCopy:
		return buttonWithData("copy_text", b.Text, b.CopyText)

	case *tg.KeyboardButtonUserProfile:
		return buttonWithData("user_profile", b.Text, strconv.FormatInt(b.UserID, 10))

	case *tg.KeyboardButtonSwitchInline:
		kind := "switch_inline"
		if b.SamePeer {
			kind = "switch_inline_same"
		}
		return buttonWithData(kind, b.Text, b.Query)

	case *tg.KeyboardButtonBuy:
		return domain.InlineButton{Type: "buy", Text: b.Text}

	case *tg.KeyboardButtonGame:
		return domain.InlineButton{Type: "game", Text: b.Text}

	default:
		return domain.InlineButton{Type: "default", Text: button.GetText()}
	}
}

func buttonWithData(kind, text, data string) domain.InlineButton {
	return domain.InlineButton{Type: kind, Text: text, Data: &data}
}
