// Package adfilter classifies donor messages as advertisements.
//
// Classification is two-staged: a cheap local heuristic (promo phrases and
// link/mention/hashtag density) runs first, the LLM capability is consulted
// only when the heuristic finds nothing. The LLM stage fails open: when the
// capability is unreachable the message is treated as not an advertisement
// rather than blocking the pipeline.
package adfilter

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
)

// Classifier is the LLM capability the filter delegates to.
type Classifier interface {
	IsAdvertisement(ctx context.Context, text string) (bool, error)
}

var promoTokenRE = regexp.MustCompile(`https?://\S+|t\.me/\S+|@\w+|#[\wА-Яа-яЁё]+`)

// Filter decides whether a message is promotional.
type Filter struct {
	classifier      Classifier
	phrases         []string
	promoTokenLimit int
	useLLM          bool
	caser           cases.Caser
	logger          *zerolog.Logger
}

// New creates a Filter. Empty phrases fall back to the default promo phrase
// list; promoTokenLimit <= 0 falls back to 3.
func New(classifier Classifier, phrases []string, promoTokenLimit int, useLLM bool, logger *zerolog.Logger) *Filter {
	if len(phrases) == 0 {
		phrases = []string{
			"подпишись", "подписывайся", "купи", "скидка", "промокод",
			"реклама", "розыгрыш", "зарабатывай", "выигрывай", "переходи по ссылке",
			"#ad", "sponsored", "promo",
		}
	}

	if promoTokenLimit <= 0 {
		promoTokenLimit = 3
	}

	return &Filter{
		classifier:      classifier,
		phrases:         phrases,
		promoTokenLimit: promoTokenLimit,
		useLLM:          useLLM,
		caser:           cases.Fold(),
		logger:          logger,
	}
}

// Classify reports whether text is an advertisement. Pure classification,
// the caller decides routing.
func (f *Filter) Classify(ctx context.Context, text string) bool {
	if f.matchesLocal(text) {
		return true
	}

	if !f.useLLM || f.classifier == nil {
		return false
	}

	isAd, err := f.classifier.IsAdvertisement(ctx, text)
	if err != nil {
		// Fail open: a degraded classifier must not stall the pipeline.
		f.logger.Warn().Err(err).Msg("ad classification unavailable, treating as not advertisement")

		return false
	}

	return isAd
}

func (f *Filter) matchesLocal(text string) bool {
	if len(promoTokenRE.FindAllStringIndex(text, -1)) >= f.promoTokenLimit {
		return true
	}

	folded := f.caser.String(text)

	for _, phrase := range f.phrases {
		if strings.Contains(folded, f.caser.String(phrase)) {
			return true
		}
	}

	return false
}
