package telegrambot

import (
	"context"
	"errors"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/telegram-repost-bot/internal/moderation"
)

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if !b.isAdmin(ctx, query.From.ID) {
		return
	}

	action, recordID, ok := strings.Cut(query.Data, ":")
	if !ok || recordID == "" {
		b.answerCallback(query.ID, "Malformed action")

		return
	}

	b.logger.Info().
		Str("action", action).
		Str("record_id", recordID).
		Int64("user_id", query.From.ID).
		Msg("moderation action")

	switch action {
	case "publish":
		b.callbackPublish(ctx, query, recordID)
	case "edit":
		b.setPendingEdit(query.From.ID, recordID)
		b.answerCallback(query.ID, "Send the replacement text as your next message")
	case "rephrase":
		b.callbackRephrase(ctx, query, recordID)
	case "reject":
		b.callbackReject(ctx, query, recordID)
	case "retry":
		b.callbackRetry(ctx, query, recordID)
	default:
		b.answerCallback(query.ID, "Unknown action")
	}
}

func (b *Bot) callbackPublish(ctx context.Context, query *tgbotapi.CallbackQuery, recordID string) {
	record, err := b.machine.Publish(ctx, recordID, moderation.TriggerOperator)
	if err != nil {
		if errors.Is(err, moderation.ErrAlreadyProcessed) {
			b.answerCallback(query.ID, "Already processed")
			b.clearKeyboard(query)

			return
		}

		b.logger.Error().Err(err).Str("record_id", recordID).Msg("publish failed")
		b.answerCallback(query.ID, "Publication failed: "+truncate(err.Error(), 150))

		return
	}

	b.answerCallback(query.ID, "Published ✅")
	b.clearKeyboard(query)
	b.logger.Info().Str("record_id", record.ID).Msg("published by operator")
}

func (b *Bot) callbackRephrase(ctx context.Context, query *tgbotapi.CallbackQuery, recordID string) {
	newText, err := b.machine.RephraseAgain(ctx, recordID)
	if err != nil {
		if errors.Is(err, moderation.ErrAlreadyProcessed) {
			b.answerCallback(query.ID, "Already processed")
			b.clearKeyboard(query)

			return
		}

		b.logger.Error().Err(err).Str("record_id", recordID).Msg("rephrase failed")
		b.answerCallback(query.ID, "Rephrase failed")

		return
	}

	b.answerCallback(query.ID, "New wording ready")

	// Offer the new candidate with a fresh keyboard.
	msg := tgbotapi.NewMessage(query.Message.Chat.ID, "🔄 <b>New candidate</b>\n\n"+html.EscapeString(truncate(newText, 3000)))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = moderationKeyboard(recordID)

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Msg("failed to send rephrased candidate")
	}
}

func (b *Bot) callbackReject(ctx context.Context, query *tgbotapi.CallbackQuery, recordID string) {
	if err := b.machine.Reject(ctx, recordID); err != nil {
		if errors.Is(err, moderation.ErrAlreadyProcessed) {
			b.answerCallback(query.ID, "Already processed")
			b.clearKeyboard(query)

			return
		}

		b.logger.Error().Err(err).Str("record_id", recordID).Msg("reject failed")
		b.answerCallback(query.ID, "Reject failed")

		return
	}

	b.answerCallback(query.ID, "Rejected 🚫")
	b.clearKeyboard(query)
}

func (b *Bot) callbackRetry(ctx context.Context, query *tgbotapi.CallbackQuery, recordID string) {
	if err := b.machine.Retry(ctx, recordID); err != nil {
		if errors.Is(err, moderation.ErrAlreadyProcessed) {
			b.answerCallback(query.ID, "Record is not awaiting retry")

			return
		}

		b.logger.Error().Err(err).Str("record_id", recordID).Msg("retry failed")
		b.answerCallback(query.ID, "Retry failed")

		return
	}

	record, err := b.machine.Publish(ctx, recordID, moderation.TriggerOperator)
	if err != nil {
		b.answerCallback(query.ID, "Still failing: "+truncate(err.Error(), 150))

		return
	}

	b.answerCallback(query.ID, "Published ✅")
	b.clearKeyboard(query)
	b.logger.Info().Str("record_id", record.ID).Msg("published after retry")
}

func (b *Bot) answerCallback(callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Error().Err(err).Msg("failed to answer callback")
	}
}

// clearKeyboard removes the inline keyboard from a handled moderation message
// so stale buttons do not invite double actions.
func (b *Bot) clearKeyboard(query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(query.Message.Chat.ID, query.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})

	if _, err := b.api.Request(edit); err != nil {
		b.logger.Debug().Err(err).Msg("failed to clear keyboard")
	}
}
