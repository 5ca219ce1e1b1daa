package telegrambot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
)

func TestSplitMessage_Short(t *testing.T) {
	parts := splitMessage("короткий текст", 100)
	assert.Equal(t, []string{"короткий текст"}, parts)
}

func TestSplitMessage_PrefersLineBreaks(t *testing.T) {
	text := strings.Repeat("строка\n", 5)
	parts := splitMessage(text, 20)

	assert.Greater(t, len(parts), 1)

	for _, part := range parts {
		assert.LessOrEqual(t, len([]rune(part)), 20)
	}

	// Nothing lost except the line breaks used as split points.
	joined := strings.Join(parts, "\n") + "\n"
	assert.Equal(t, strings.ReplaceAll(text, "\n\n", "\n"), strings.ReplaceAll(joined, "\n\n", "\n"))
}

func TestSplitMessage_HardSplitWithoutBreaks(t *testing.T) {
	text := strings.Repeat("я", 50)
	parts := splitMessage(text, 20)

	assert.Len(t, parts, 3)
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "короткий", truncate("короткий", 10))
	assert.Equal(t, "дли…", truncate("длинный", 3))
}

func TestFormatRecordPreview_MarksAdvertisement(t *testing.T) {
	record := &domain.Record{
		ProcessedText:   "Новость дня",
		IsAdvertisement: true,
		SourceLink:      "https://t.me/donor/1",
	}

	preview := formatRecordPreview(record, "Донор", "Город")
	assert.Contains(t, preview, "advertisement")
	assert.Contains(t, preview, "Новость дня")
	assert.Contains(t, preview, "https://t.me/donor/1")
}
