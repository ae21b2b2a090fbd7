package serialize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gotd/td/tg"

	"telegram-chat-exporter/internal/domain"
)

// serializeAction заполняет поля сервисного события. Незнакомое событие
// не прерывает экспорт: запись получает тег "unknown" без актора.
func (s *Serializer) serializeAction(ctx context.Context, m *tg.MessageService, out *domain.Message) error {
	withActor := true

	switch a := m.Action.(type) {
	case *tg.MessageActionPinMessage:
		out.Action = "pin_message"
		if replyTo, ok := m.GetReplyTo(); ok {
			fillReply(replyTo, &out.MessageID, &out.ReplyToPeerID)
		}

	case *tg.MessageActionHistoryClear:
		out.Action = "clear_history"

	case *tg.MessageActionGameScore:
		out.Action = "score_in_game"
		score := a.Score
		out.Score = &score
		if replyTo, ok := m.GetReplyTo(); ok {
			fillReply(replyTo, &out.GameMessageID, &out.ReplyToPeerID)
		}

	case *tg.MessageActionPhoneCall:
		out.Action = "phone_call"
		// Длительность и причина завершения записываются только для
		// состоявшихся звонков: у пропущенных нет ни того, ни другого.
		if duration, ok := a.GetDuration(); ok {
			out.DurationSeconds = &duration
			reason := ""
			if r, ok := a.GetReason(); ok {
				reason = discardReasonName(r)
			}
			out.DiscardReason = &reason
		}

	case *tg.MessageActionScreenshotTaken:
		out.Action = "take_screenshot"

	case *tg.MessageActionContactSignUp:
		out.Action = "joined_telegram"

	case *tg.MessageActionGeoProximityReached:
		out.Action = "proximity_reached"
		withActor = false
		from, err := s.resolver.ResolvePeer(ctx, a.FromID)
		if err != nil {
			return fmt.Errorf("resolve proximity source: %w", err)
		}
		to, err := s.resolver.ResolvePeer(ctx, a.ToID)
		if err != nil {
			return fmt.Errorf("resolve proximity target: %w", err)
		}
		out.From = from.DisplayName()
		out.FromID = from.TaggedID
		out.To = to.DisplayName()
		out.ToID = to.TaggedID
		out.Distance = a.Distance

	case *tg.MessageActionSetMessagesTTL:
		out.Action = "set_messages_ttl"
		out.Period = a.Period

	case *tg.MessageActionSetChatTheme:
		out.Action = "edit_chat_theme"
		if theme, ok := a.Theme.(*tg.ChatTheme); ok {
			out.Emoticon = theme.Emoticon
		}

	case *tg.MessageActionGiftPremium:
		out.Action = "send_premium_gift"
		out.Cost = a.Amount
		// Платформа отдает срок подписки в днях, формат экспорта — в месяцах.
		out.Months = a.Days / 30

	case *tg.MessageActionSuggestProfilePhoto:
		out.Action = "suggest_profile_photo"
		if photo, ok := a.Photo.(*tg.Photo); ok {
			if err := s.serializePhoto(ctx, photo, out); err != nil {
				return err
			}
		}

	case *tg.MessageActionSetChatWallPaper:
		if a.Same {
			out.Action = "set_same_chat_wallpaper"
		} else {
			out.Action = "set_chat_wallpaper"
		}
		if replyTo, ok := m.GetReplyTo(); ok {
			fillReply(replyTo, &out.MessageID, &out.ReplyToPeerID)
		}

	case *tg.MessageActionGiftStars:
		out.Action = "send_stars_gift"
		out.Cost = FormatCurrency(a.Currency, a.Amount)
		out.Stars = a.Stars

	case *tg.MessageActionStarGift:
		out.Action = "send_star_gift"
		if gift, ok := a.Gift.(*tg.StarGift); ok {
			out.GiftID = gift.ID
			out.Stars = gift.Stars
			limited := gift.Limited
			out.IsLimited = &limited
		}
		anonymous := a.NameHidden
		out.IsAnonymous = &anonymous
		if text, ok := a.GetMessage(); ok {
			out.GiftText = text.Text
		}

	default:
		out.Action = "unknown"
		withActor = false
		s.log.Debug("незнакомое сервисное событие",
			slog.Int("message_id", m.ID),
			slog.String("action", m.Action.TypeName()),
		)
	}

	if withActor {
		actor, err := s.resolver.ResolvePeer(ctx, senderPeer(m, m.PeerID))
		if err != nil {
			return fmt.Errorf("resolve actor: %w", err)
		}
		out.Actor = actor.DisplayName()
		out.ActorID = actor.TaggedID
	}
	return nil
}

func discardReasonName(reason tg.PhoneCallDiscardReasonClass) string {
	switch reason.(type) {
	case *tg.PhoneCallDiscardReasonBusy:
		return "busy"
	case *tg.PhoneCallDiscardReasonDisconnect:
		return "disconnect"
	case *tg.PhoneCallDiscardReasonHangup:
		return "hangup"
	case *tg.PhoneCallDiscardReasonMissed:
		return "missed"
	default:
		return ""
	}
}
