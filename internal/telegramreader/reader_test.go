package telegramreader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
)

func TestMessageLink(t *testing.T) {
	src := domain.Source{Username: "donor_channel"}
	assert.Equal(t, "https://t.me/donor_channel/42", messageLink(src, 42))

	// Private channels resolved by peer id have no public link.
	assert.Equal(t, "", messageLink(domain.Source{}, 42))
}

func TestSanitizePhone(t *testing.T) {
	assert.Equal(t, "+79991234567", sanitizePhone(" +7 (999) 123-45-67 "))
	assert.Equal(t, "79991234567", sanitizePhone("7 999 123 45 67"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+79****67", maskPhone("+79991234567"))
	assert.Equal(t, "****", maskPhone("12345"))
}
