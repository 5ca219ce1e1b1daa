// Package llm provides the language-model capability used by the pipeline:
// rephrasing candidate texts and classifying advertisements.
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-repost-bot/internal/platform/config"
)

type Client interface {
	// Rephrase rewords text while preserving meaning.
	Rephrase(ctx context.Context, text string) (string, error)
	// IsAdvertisement reports whether text is promotional.
	IsAdvertisement(ctx context.Context, text string) (bool, error)
}

// New returns the OpenAI-backed client, or a mock when no API key is
// configured so local development works without network access.
func New(cfg *config.Config, logger *zerolog.Logger) Client {
	if cfg.LLMAPIKey == "" || cfg.LLMAPIKey == "mock" {
		return &mockClient{}
	}

	return NewOpenAI(cfg, logger)
}

type mockClient struct{}

func (c *mockClient) Rephrase(_ context.Context, text string) (string, error) {
	return text, nil
}

func (c *mockClient) IsAdvertisement(_ context.Context, _ string) (bool, error) {
	return false, nil
}
