package dedup

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
)

type fakeRepo struct {
	records []domain.Record
}

func (f *fakeRepo) GetRecentAcceptedRecords(_ context.Context, _ string, limit int) ([]domain.Record, error) {
	if len(f.records) > limit {
		return f.records[:limit], nil
	}

	return f.records, nil
}

func newDetector(records []domain.Record) *Detector {
	logger := zerolog.Nop()

	return New(&fakeRepo{records: records}, 0.8, 0.82, 100, &logger)
}

func TestCheck_IdenticalTextIsLexicalDuplicate(t *testing.T) {
	d := newDetector([]domain.Record{
		{ID: "orig-1", ProcessedText: "В центре города открыли новый парк"},
	})

	m, err := d.Check(context.Background(), "В центре города открыли новый парк", "dest")
	require.NoError(t, err)

	assert.True(t, m.IsDuplicate)
	assert.Equal(t, domain.DuplicateReasonLexical, m.Reason)
	assert.Equal(t, "orig-1", m.OriginalID)
	assert.InDelta(t, 1.0, m.Score, 1e-9)
}

func TestCheck_NormalizationBeforeComparison(t *testing.T) {
	d := newDetector([]domain.Record{
		{ID: "orig-1", ProcessedText: "В центре города открыли новый парк."},
	})

	m, err := d.Check(context.Background(), "  В ЦЕНТРЕ города,   открыли новый парк!  ", "dest")
	require.NoError(t, err)

	assert.True(t, m.IsDuplicate)
	assert.Equal(t, domain.DuplicateReasonLexical, m.Reason)
	assert.InDelta(t, 1.0, m.Score, 1e-9)
}

func TestCheck_UnrelatedTextPasses(t *testing.T) {
	d := newDetector([]domain.Record{
		{ID: "orig-1", ProcessedText: "В центре города открыли новый парк"},
	})

	m, err := d.Check(context.Background(), "Завтра ожидается сильный снегопад и метель", "dest")
	require.NoError(t, err)

	assert.False(t, m.IsDuplicate)
	assert.Empty(t, m.Reason)
}

func TestCheck_EmptyCorpus(t *testing.T) {
	d := newDetector(nil)

	m, err := d.Check(context.Background(), "любой текст", "dest")
	require.NoError(t, err)
	assert.False(t, m.IsDuplicate)
}

func TestCheck_FirstMatchWins(t *testing.T) {
	d := newDetector([]domain.Record{
		{ID: "newest", ProcessedText: "сегодня открыли новый мост"},
		{ID: "older", ProcessedText: "сегодня открыли новый мост"},
	})

	m, err := d.Check(context.Background(), "сегодня открыли новый мост", "dest")
	require.NoError(t, err)

	assert.True(t, m.IsDuplicate)
	assert.Equal(t, "newest", m.OriginalID)
}

func TestRatio_ThresholdBoundaryInclusive(t *testing.T) {
	// "abcd" vs "abcde": 2*4/9 ≈ 0.888 — above; construct exact boundary.
	a := "aaaaaaaa"   // 8 runes
	b := "aaaaaaaacc" // 10 runes, 8 matching => 2*8/18 ≈ 0.888

	score := Ratio(a, b)
	logger := zerolog.Nop()
	d := New(&fakeRepo{records: []domain.Record{{ID: "orig", ProcessedText: b}}}, score, 0.99, 100, &logger)

	m, err := d.Check(context.Background(), a, "dest")
	require.NoError(t, err)
	assert.True(t, m.IsDuplicate, "score exactly at threshold must match")

	d = New(&fakeRepo{records: []domain.Record{{ID: "orig", ProcessedText: b}}}, score+1e-9, 0.99, 100, &logger)
	m, err = d.Check(context.Background(), a, "dest")
	require.NoError(t, err)
	assert.False(t, m.IsDuplicate, "score just below threshold must not match")
}

func TestRatio(t *testing.T) {
	assert.InDelta(t, 1.0, Ratio("abc", "abc"), 1e-9)
	assert.InDelta(t, 0.0, Ratio("abc", "xyz"), 1e-9)
	assert.InDelta(t, 1.0, Ratio("", ""), 1e-9)
	// difflib reference: ratio("abcd", "bcde") == 0.75
	assert.InDelta(t, 0.75, Ratio("abcd", "bcde"), 1e-9)
}

func TestCheck_SemanticMatch(t *testing.T) {
	// Same vocabulary, different order: lexically distant, semantically close.
	original := "мэр города сообщил про открытие нового моста через реку"
	reordered := "про открытие нового моста через реку сообщил мэр города"

	logger := zerolog.Nop()
	d := New(&fakeRepo{records: []domain.Record{{ID: "orig", ProcessedText: original}}}, 0.99, 0.9, 100, &logger)

	m, err := d.Check(context.Background(), reordered, "dest")
	require.NoError(t, err)

	assert.True(t, m.IsDuplicate)
	assert.Equal(t, domain.DuplicateReasonSemantic, m.Reason)
	assert.InDelta(t, 1.0, m.Score, 1e-9)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "привет мир 123", Normalize("  Привет,   МИР!!! 123  "))
	assert.Equal(t, "", Normalize("!!! ... ???"))
}
