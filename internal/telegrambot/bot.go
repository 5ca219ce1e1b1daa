// Package telegrambot is the operator-facing moderation bot: admins manage
// destination feeds and donor sources, review pending records through inline
// keyboards, and inspect the moderation log.
package telegrambot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-repost-bot/internal/moderation"
	"github.com/lueurxax/telegram-repost-bot/internal/platform/config"
	"github.com/lueurxax/telegram-repost-bot/internal/storage"
)

type Bot struct {
	cfg      *config.Config
	database *db.DB
	machine  *moderation.Machine
	api      *tgbotapi.BotAPI
	logger   *zerolog.Logger

	mu           sync.Mutex
	pendingEdits map[int64]string // admin user id -> record id awaiting replacement text
}

// NewAPI creates the shared Bot API client. The bot loop and the deliverer
// reuse the same client.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

func New(cfg *config.Config, database *db.DB, machine *moderation.Machine, api *tgbotapi.BotAPI, logger *zerolog.Logger) *Bot {
	return &Bot{
		cfg:          cfg,
		database:     database,
		machine:      machine,
		api:          api,
		logger:       logger,
		pendingEdits: make(map[int64]string),
	}
}

// Run processes updates with long polling until the context is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)

				continue
			}

			if update.Message == nil {
				continue
			}

			if !b.isAdmin(ctx, update.Message.From.ID) {
				b.logger.Warn().
					Int64("user_id", update.Message.From.ID).
					Str("username", update.Message.From.UserName).
					Msg("unauthorized access attempt")

				continue
			}

			b.handleMessage(ctx, update.Message)
		}
	}
}

// isAdmin checks the static config list first, then the admins table, so
// operators added at runtime survive restarts without a config change.
func (b *Bot) isAdmin(ctx context.Context, userID int64) bool {
	for _, id := range b.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}

	ok, err := b.database.IsAdmin(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("admin lookup failed")

		return false
	}

	return ok
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	for _, part := range splitMessage(text, messageLimit) {
		reply := tgbotapi.NewMessage(msg.Chat.ID, part)
		reply.ParseMode = tgbotapi.ModeHTML

		if _, err := b.api.Send(reply); err != nil {
			b.logger.Error().Err(err).Msg("failed to send reply")
		}
	}
}

func (b *Bot) setPendingEdit(userID int64, recordID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingEdits[userID] = recordID
}

func (b *Bot) takePendingEdit(userID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	recordID, ok := b.pendingEdits[userID]
	if ok {
		delete(b.pendingEdits, userID)
	}

	return recordID, ok
}
