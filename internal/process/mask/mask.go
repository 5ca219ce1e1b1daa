// Package mask removes per-source signature blocks and promo leftovers from
// donor messages.
//
// The signature pattern of a source is a regular expression, compiled
// case-insensitively with "." matching newlines: signatures regularly span
// several lines. When the pattern matches, the first matched span is deleted
// entirely; a message that does not match its configured pattern is not
// republished as-is, the caller rejects it.
package mask

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoMaskConfigured is returned when the source has no signature pattern.
	ErrNoMaskConfigured = errors.New("no mask configured")
	// ErrMaskInvalid is returned when the pattern does not compile.
	ErrMaskInvalid = errors.New("invalid mask pattern")
	// ErrNoMaskMatch is returned when the pattern does not match the text.
	ErrNoMaskMatch = errors.New("mask did not match")
	// ErrEmptyAfterClean is returned when nothing remains after stripping.
	ErrEmptyAfterClean = errors.New("empty after clean")
)

var (
	promoTokenRE = regexp.MustCompile(`https?://\S+|t\.me/\S+|@\w+|#[\wА-Яа-яЁё]+`)
	spaceRunRE   = regexp.MustCompile(`[ \t]+`)
	blankRunRE   = regexp.MustCompile(`\n{3,}`)
)

// Strip deletes the signature span matched by pattern from raw and trims the
// remainder. Stripping is idempotent: running Strip again on a successful
// result yields ErrNoMaskMatch.
func Strip(raw, pattern string) (string, error) {
	if strings.TrimSpace(pattern) == "" {
		return "", ErrNoMaskConfigured
	}

	re, err := regexp.Compile("(?is)" + pattern)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMaskInvalid, err)
	}

	loc := re.FindStringIndex(raw)
	if loc == nil {
		return "", ErrNoMaskMatch
	}

	cleaned := strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:])
	if cleaned == "" {
		return "", ErrEmptyAfterClean
	}

	return cleaned, nil
}

// CleanPromo removes residual promo tokens (links, t.me references,
// @mentions, hashtags) left after signature stripping and collapses the
// resulting whitespace. Returns "" when nothing meaningful remains.
func CleanPromo(text string) string {
	cleaned := promoTokenRE.ReplaceAllString(text, "")
	cleaned = spaceRunRE.ReplaceAllString(cleaned, " ")
	cleaned = blankRunRE.ReplaceAllString(cleaned, "\n\n")

	var lines []string

	for _, line := range strings.Split(cleaned, "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
