package telegrambot

import (
	"fmt"
	"html"
	"strings"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
)

// messageLimit is the Telegram Bot API text length limit, with headroom for
// formatting entities.
const messageLimit = 4000

// splitMessage splits text into parts within limit runes each, preferring
// line breaks as split points.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string

	for len(runes) > limit {
		cut := limit

		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i

				break
			}
		}

		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}

	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}

	return parts
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit]) + "…"
}

// formatRecordPreview renders a pending record for the moderation message.
func formatRecordPreview(record *domain.Record, sourceTitle, destinationTitle string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📬 <b>%s</b> → <b>%s</b>\n", html.EscapeString(sourceTitle), html.EscapeString(destinationTitle)))

	if record.IsAdvertisement {
		sb.WriteString("⚠️ <i>looks like an advertisement</i>\n")
	}

	if record.SourceLink != "" {
		sb.WriteString(fmt.Sprintf("<a href=\"%s\">original</a>\n", html.EscapeString(record.SourceLink)))
	}

	sb.WriteString("\n")
	sb.WriteString(html.EscapeString(truncate(record.ProcessedText, 3000)))

	return sb.String()
}

func statusEmoji(status string) string {
	switch status {
	case domain.StatusPublished:
		return "✅"
	case domain.StatusPending:
		return "⏳"
	case domain.StatusPublishError:
		return "🔁"
	case domain.StatusRejectedDuplicate:
		return "♻️"
	default:
		return "🚫"
	}
}
