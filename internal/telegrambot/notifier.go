package telegrambot

import (
	"context"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
	"github.com/lueurxax/telegram-repost-bot/internal/platform/config"
	"github.com/lueurxax/telegram-repost-bot/internal/storage"
)

// Notifier pushes moderation prompts to the admins. The pipeline worker uses
// it without running the bot update loop, so it only needs the API client.
type Notifier struct {
	cfg      *config.Config
	database *db.DB
	api      *tgbotapi.BotAPI
	logger   *zerolog.Logger
}

func NewNotifier(cfg *config.Config, database *db.DB, api *tgbotapi.BotAPI, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		database: database,
		api:      api,
		logger:   logger,
	}
}

// RecordPending offers a fresh pending record to every admin with the
// moderation keyboard.
func (n *Notifier) RecordPending(ctx context.Context, record *domain.Record) {
	sourceTitle := record.SourceID
	if source, err := n.database.GetSource(ctx, record.SourceID); err == nil {
		sourceTitle = sourceDisplayName(source)
	}

	destinationTitle := record.DestinationID
	if destination, err := n.database.GetDestination(ctx, record.DestinationID); err == nil {
		destinationTitle = destination.Title
	}

	text := formatRecordPreview(record, sourceTitle, destinationTitle)
	keyboard := moderationKeyboard(record.ID)

	n.broadcast(ctx, text, &keyboard)
}

// PublishFailed alerts the admins that a publication attempt failed and
// offers a retry.
func (n *Notifier) PublishFailed(ctx context.Context, record *domain.Record, cause error) {
	text := fmt.Sprintf("🔁 <b>Publication failed</b>\n<code>%s</code>\n\n%s",
		html.EscapeString(cause.Error()),
		html.EscapeString(truncate(record.ProcessedText, 1000)))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Retry", "retry:"+record.ID),
		),
	)

	n.broadcast(ctx, text, &keyboard)
}

func (n *Notifier) broadcast(ctx context.Context, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	admins := n.adminIDs(ctx)

	for _, adminID := range admins {
		msg := tgbotapi.NewMessage(adminID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		if keyboard != nil {
			msg.ReplyMarkup = *keyboard
		}

		if _, err := n.api.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("admin_id", adminID).Msg("failed to notify admin")
		}
	}
}

func (n *Notifier) adminIDs(ctx context.Context) []int64 {
	ids := make([]int64, len(n.cfg.AdminIDs))
	copy(ids, n.cfg.AdminIDs)

	stored, err := n.database.GetAdmins(ctx)
	if err != nil {
		n.logger.Error().Err(err).Msg("failed to load stored admins")

		return ids
	}

	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}

	for _, admin := range stored {
		if _, ok := seen[admin.TGUserID]; !ok {
			ids = append(ids, admin.TGUserID)
		}
	}

	return ids
}

func moderationKeyboard(recordID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Publish", "publish:"+recordID),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", "edit:"+recordID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Rephrase", "rephrase:"+recordID),
			tgbotapi.NewInlineKeyboardButtonData("🚫 Reject", "reject:"+recordID),
		),
	)
}

func sourceDisplayName(source *domain.Source) string {
	if source.Title != "" {
		return source.Title
	}

	if source.Username != "" {
		return "@" + source.Username
	}

	return source.ID
}
