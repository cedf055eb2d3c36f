package catalog

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/agrozem/landsync/internal/model"
)

// fuzzyMargin is the minimum similarity lead the best candidate must have
// over the runner-up. Two near-equal scores mean the input does not
// discriminate between entries, which is treated as a miss.
const fuzzyMargin = 0.02

// FuzzyLookup scores the input against every normalized index key sharing
// at least one significant token and returns the single best entry if its
// similarity clears the threshold and no other key is within fuzzyMargin
// of it. Keys mapping to multiple entries are skipped outright: a fuzzy
// hit can never be less strict than an exact normalized lookup.
func (c *Catalog) FuzzyLookup(name string, threshold float64) (*model.CatalogEntry, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, ErrNotFound
	}
	tokens := significantTokens(normalized)
	if len(tokens) == 0 {
		return nil, ErrNotFound
	}

	var (
		best       *model.CatalogEntry
		bestScore  float64
		secondBest float64
	)

	for key, entries := range c.byNormalized {
		if !sharesToken(key, tokens) {
			continue
		}

		score := levenshtein.Similarity(normalized, key, nil)
		switch {
		case score > bestScore:
			secondBest = bestScore
			bestScore = score
			if len(entries) == 1 {
				best = entries[0]
			} else {
				best = nil
			}
		case score > secondBest:
			secondBest = score
		}
	}

	if best == nil || bestScore < threshold {
		return nil, ErrNotFound
	}
	if bestScore-secondBest < fuzzyMargin {
		return nil, ErrAmbiguous
	}
	return best, nil
}

// sharesToken reports whether any significant input token starts like any
// token of the key. Prefix matching keeps typo'd single-token names in
// the candidate set while still pruning most of the register.
func sharesToken(key string, tokens []string) bool {
	fields := strings.Fields(key)
	for _, tok := range tokens {
		p := tokenPrefix(tok)
		for _, field := range fields {
			if tokenPrefix(field) == p {
				return true
			}
		}
	}
	return false
}

func tokenPrefix(s string) string {
	r := []rune(s)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}
