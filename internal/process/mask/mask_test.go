package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		pattern string
		want    string
		wantErr error
	}{
		{
			name:    "suffix signature",
			raw:     "Breaking news ❤ Subscribe to MyChannel",
			pattern: "❤.*$",
			want:    "Breaking news",
		},
		{
			name:    "multiline signature",
			raw:     "Сегодня открыли новый парк.\n\nПодписывайся:\nt.me/donor",
			pattern: `Подписывайся:.*$`,
			want:    "Сегодня открыли новый парк.",
		},
		{
			name:    "case insensitive",
			raw:     "text SIGNATURE tail",
			pattern: "signature tail",
			want:    "text",
		},
		{
			name:    "no pattern",
			raw:     "text",
			pattern: "",
			wantErr: ErrNoMaskConfigured,
		},
		{
			name:    "whitespace pattern",
			raw:     "text",
			pattern: "   ",
			wantErr: ErrNoMaskConfigured,
		},
		{
			name:    "invalid pattern",
			raw:     "text",
			pattern: "([",
			wantErr: ErrMaskInvalid,
		},
		{
			name:    "no match",
			raw:     "plain message without signature",
			pattern: "❤.*$",
			wantErr: ErrNoMaskMatch,
		},
		{
			name:    "empty after strip",
			raw:     "  ❤ Subscribe  ",
			pattern: "❤.*$",
			wantErr: ErrEmptyAfterClean,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Strip(tt.raw, tt.pattern)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStrip_Idempotent(t *testing.T) {
	stripped, err := Strip("Breaking news ❤ Subscribe to MyChannel", "❤.*$")
	require.NoError(t, err)
	assert.Equal(t, "Breaking news", stripped)

	_, err = Strip(stripped, "❤.*$")
	assert.ErrorIs(t, err, ErrNoMaskMatch)
}

func TestCleanPromo(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "links and mentions",
			in:   "Новость дня https://example.com/a читай @donor и #новости",
			want: "Новость дня читай и",
		},
		{
			name: "telegram link",
			in:   "Открытие парка t.me/donor/123 сегодня",
			want: "Открытие парка сегодня",
		},
		{
			name: "cyrillic hashtag",
			in:   "Праздник #городскиеновости в центре",
			want: "Праздник в центре",
		},
		{
			name: "only promo",
			in:   "@donor t.me/donor #промо",
			want: "",
		},
		{
			name: "collapses blank lines",
			in:   "первая\n\n\n\nвторая",
			want: "первая\n\nвторая",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanPromo(tt.in))
		})
	}
}
