// Package dedup detects near-duplicate messages within a destination feed.
//
// The comparison corpus is a capped recency window of accepted records for
// the destination. Lexical similarity (Ratcliff/Obershelp ratio) runs first;
// semantic similarity (TF-IDF cosine, refit per check on the batch) runs only
// when the lexical pass finds nothing. The per-check TF-IDF refit is O(corpus)
// and acceptable only because the window is capped; a growing corpus would
// need an incrementally updated vector index instead.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-repost-bot/internal/core/domain"
)

// Repository provides the comparison corpus.
type Repository interface {
	GetRecentAcceptedRecords(ctx context.Context, destinationID string, limit int) ([]domain.Record, error)
}

// Match is the outcome of a duplicate check.
type Match struct {
	IsDuplicate bool
	Reason      string // domain.DuplicateReasonLexical or domain.DuplicateReasonSemantic
	OriginalID  string
	Score       float64
}

// Detector checks candidate texts against the recent corpus of a destination.
type Detector struct {
	repo              Repository
	lexicalThreshold  float64
	semanticThreshold float64
	corpusSize        int
	logger            *zerolog.Logger
}

func New(repo Repository, lexicalThreshold, semanticThreshold float64, corpusSize int, logger *zerolog.Logger) *Detector {
	if corpusSize <= 0 {
		corpusSize = 100
	}

	return &Detector{
		repo:              repo,
		lexicalThreshold:  lexicalThreshold,
		semanticThreshold: semanticThreshold,
		corpusSize:        corpusSize,
		logger:            logger,
	}
}

// Check reports whether candidate duplicates a recent record of the
// destination. Thresholds are inclusive; the first lexical match wins and
// stops the scan. The detector performs no writes.
func (d *Detector) Check(ctx context.Context, candidate, destinationID string) (Match, error) {
	corpus, err := d.repo.GetRecentAcceptedRecords(ctx, destinationID, d.corpusSize)
	if err != nil {
		return Match{}, fmt.Errorf("load comparison corpus: %w", err)
	}

	if len(corpus) == 0 {
		return Match{}, nil
	}

	normalized := Normalize(candidate)
	corpusTexts := make([]string, len(corpus))

	for i, r := range corpus {
		corpusTexts[i] = Normalize(corpusText(r))
	}

	// Corpus is newest first, so recent near-duplicates are caught fastest.
	for i, text := range corpusTexts {
		score := Ratio(normalized, text)
		if score >= d.lexicalThreshold {
			d.logger.Debug().
				Str("original_id", corpus[i].ID).
				Float64("score", score).
				Msg("lexical duplicate")

			return Match{
				IsDuplicate: true,
				Reason:      domain.DuplicateReasonLexical,
				OriginalID:  corpus[i].ID,
				Score:       score,
			}, nil
		}
	}

	scores := tfidfSimilarities(normalized, corpusTexts)
	for i, score := range scores {
		if score >= d.semanticThreshold {
			d.logger.Debug().
				Str("original_id", corpus[i].ID).
				Float64("score", score).
				Msg("semantic duplicate")

			return Match{
				IsDuplicate: true,
				Reason:      domain.DuplicateReasonSemantic,
				OriginalID:  corpus[i].ID,
				Score:       score,
			}, nil
		}
	}

	return Match{}, nil
}

func corpusText(r domain.Record) string {
	if r.ProcessedText != "" {
		return r.ProcessedText
	}

	return r.OriginalText
}

// Normalize lower-cases text, strips punctuation and collapses whitespace.
// Candidate and corpus members go through the same normalization before any
// comparison.
func Normalize(text string) string {
	var sb strings.Builder

	sb.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}
