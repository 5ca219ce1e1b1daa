package rephrase

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeRewriter struct {
	result string
	err    error
	calls  int
}

func (f *fakeRewriter) Rephrase(_ context.Context, _ string) (string, error) {
	f.calls++

	return f.result, f.err
}

func newRephraser(rewriter Rewriter, enabled bool) *Rephraser {
	logger := zerolog.Nop()

	return New(rewriter, nil, enabled, &logger)
}

func TestRephrase_Rewords(t *testing.T) {
	rewriter := &fakeRewriter{result: "переписанный текст"}
	r := newRephraser(rewriter, true)

	got := r.Rephrase(context.Background(), "исходный текст")
	assert.Equal(t, "переписанный текст", got)
	assert.Equal(t, 1, rewriter.calls)
}

func TestRephrase_UrgentBypassBeforeCapability(t *testing.T) {
	rewriter := &fakeRewriter{result: "никогда не должно вернуться"}
	r := newRephraser(rewriter, true)

	text := "Внимание! БПЛА над городом, укройтесь"
	got := r.Rephrase(context.Background(), text)

	assert.Equal(t, text, got)
	// The bypass must short-circuit: no capability call at all.
	assert.Equal(t, 0, rewriter.calls)
}

func TestRephrase_UrgentSubstringMatch(t *testing.T) {
	rewriter := &fakeRewriter{result: "другое"}
	r := newRephraser(rewriter, true)

	text := "Объявлена ракетная опасность в регионе"
	assert.Equal(t, text, r.Rephrase(context.Background(), text))
	assert.Equal(t, 0, rewriter.calls)
}

func TestRephrase_FallbackOnError(t *testing.T) {
	rewriter := &fakeRewriter{err: errors.New("capability down")}
	r := newRephraser(rewriter, true)

	text := "исходный текст"
	assert.Equal(t, text, r.Rephrase(context.Background(), text))
}

func TestRephrase_FallbackOnEmptyResult(t *testing.T) {
	rewriter := &fakeRewriter{result: "   "}
	r := newRephraser(rewriter, true)

	text := "исходный текст"
	assert.Equal(t, text, r.Rephrase(context.Background(), text))
}

func TestRephrase_Disabled(t *testing.T) {
	rewriter := &fakeRewriter{result: "другое"}
	r := newRephraser(rewriter, false)

	text := "исходный текст"
	assert.Equal(t, text, r.Rephrase(context.Background(), text))
	assert.Equal(t, 0, rewriter.calls)
}
