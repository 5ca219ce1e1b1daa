// Package rephrase rewords candidate texts through the LLM capability.
//
// Urgent-alert messages bypass rephrasing entirely: wording fidelity matters
// more than freshness for time-critical safety notices, so the bypass check
// runs before any capability call.
package rephrase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
)

// Rewriter is the LLM capability the rephraser delegates to.
type Rewriter interface {
	Rephrase(ctx context.Context, text string) (string, error)
}

// Rephraser rewords texts while preserving meaning.
type Rephraser struct {
	rewriter       Rewriter
	urgentKeywords []string
	enabled        bool
	caser          cases.Caser
	logger         *zerolog.Logger
}

// New creates a Rephraser. Empty urgentKeywords falls back to the default
// safety-alert triggers.
func New(rewriter Rewriter, urgentKeywords []string, enabled bool, logger *zerolog.Logger) *Rephraser {
	if len(urgentKeywords) == 0 {
		urgentKeywords = []string{"бпла", "ракетн", "тревог"}
	}

	return &Rephraser{
		rewriter:       rewriter,
		urgentKeywords: urgentKeywords,
		enabled:        enabled,
		caser:          cases.Fold(),
		logger:         logger,
	}
}

// Rephrase returns a reworded variant of text. The original text comes back
// unchanged when rephrasing is disabled, when the text triggers the urgent
// bypass, or when the capability fails or returns nothing; this stage never
// blocks the pipeline.
func (r *Rephraser) Rephrase(ctx context.Context, text string) string {
	if !r.enabled {
		return text
	}

	if r.isUrgent(text) {
		r.logger.Debug().Msg("urgent keyword found, skipping rephrase")

		return text
	}

	reworded, err := r.rewriter.Rephrase(ctx, text)
	if err != nil {
		r.logger.Warn().Err(err).Msg("rephrase failed, keeping original text")

		return text
	}

	if strings.TrimSpace(reworded) == "" {
		r.logger.Warn().Msg("rephrase returned empty text, keeping original")

		return text
	}

	return reworded
}

func (r *Rephraser) isUrgent(text string) bool {
	folded := r.caser.String(text)

	for _, kw := range r.urgentKeywords {
		if strings.Contains(folded, r.caser.String(kw)) {
			return true
		}
	}

	return false
}
