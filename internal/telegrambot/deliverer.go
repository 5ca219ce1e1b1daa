package telegrambot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Deliverer posts approved records to destination feeds through the Bot API.
type Deliverer struct {
	api    *tgbotapi.BotAPI
	logger *zerolog.Logger
}

func NewDeliverer(api *tgbotapi.BotAPI, logger *zerolog.Logger) *Deliverer {
	return &Deliverer{api: api, logger: logger}
}

// Send posts text to the destination chat. Media payloads captured by the
// reader are MTProto objects the Bot API cannot resend directly; the source
// link inside the text stands in for them.
func (d *Deliverer) Send(_ context.Context, chatID int64, text string, _ []byte) error {
	for _, part := range splitMessage(text, messageLimit) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.DisableWebPagePreview = true

		if _, err := d.api.Send(msg); err != nil {
			return fmt.Errorf("send to chat %d: %w", chatID, err)
		}
	}

	return nil
}
