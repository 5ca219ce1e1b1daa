package adfilter

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeClassifier struct {
	isAd  bool
	err   error
	calls int
}

func (f *fakeClassifier) IsAdvertisement(_ context.Context, _ string) (bool, error) {
	f.calls++

	return f.isAd, f.err
}

func newTestFilter(classifier Classifier, useLLM bool) *Filter {
	logger := zerolog.Nop()

	return New(classifier, nil, 0, useLLM, &logger)
}

func TestClassify_LocalPhrase(t *testing.T) {
	classifier := &fakeClassifier{}
	f := newTestFilter(classifier, true)

	assert.True(t, f.Classify(context.Background(), "Скорее ПОДПИШИСЬ на наш канал!"))
	// Local hit must short-circuit the capability call.
	assert.Equal(t, 0, classifier.calls)
}

func TestClassify_PromoTokenDensity(t *testing.T) {
	classifier := &fakeClassifier{}
	f := newTestFilter(classifier, true)

	text := "Лучшие цены https://shop.example @shopchannel #акция"
	assert.True(t, f.Classify(context.Background(), text))
	assert.Equal(t, 0, classifier.calls)
}

func TestClassify_DelegatesToLLM(t *testing.T) {
	classifier := &fakeClassifier{isAd: true}
	f := newTestFilter(classifier, true)

	assert.True(t, f.Classify(context.Background(), "Обычный текст без явных признаков"))
	assert.Equal(t, 1, classifier.calls)
}

func TestClassify_FailsOpen(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("capability down")}
	f := newTestFilter(classifier, true)

	assert.False(t, f.Classify(context.Background(), "Обычный новостной текст"))
}

func TestClassify_LLMDisabled(t *testing.T) {
	classifier := &fakeClassifier{isAd: true}
	f := newTestFilter(classifier, false)

	assert.False(t, f.Classify(context.Background(), "Обычный новостной текст"))
	assert.Equal(t, 0, classifier.calls)
}
