package extract

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agrozem/landsync/internal/catalog"
	"github.com/agrozem/landsync/internal/model"
)

// DefaultFuzzyThreshold is the similarity floor for the fuzzy-name strategy.
const DefaultFuzzyThreshold = 0.80

// Extractor arbitrates a fixed-priority strategy list against the catalog.
// Extraction is pure: no state beyond the read-only catalog, safe to call
// from any number of goroutines.
type Extractor struct {
	cat        *catalog.Catalog
	strategies []Strategy
	threshold  float64
}

// New builds an Extractor with the standard strategy order: code+name,
// then name-only, then fuzzy name.
func New(cat *catalog.Catalog) *Extractor {
	return &Extractor{
		cat: cat,
		strategies: []Strategy{
			codeNameStrategy{},
			nameOnlyStrategy{},
			fuzzyNameStrategy{threshold: DefaultFuzzyThreshold},
		},
		threshold: DefaultFuzzyThreshold,
	}
}

// Extract resolves one offer to exactly one of the three terminal forms.
// Strategies run in priority order and the first validated candidate wins;
// lower-priority strategies are not consulted after a win. This is a
// deliberate arbitration policy, not a confidence-maximizing search.
// Extract never returns an error: lookup ambiguity and misses degrade to
// the fallback forms.
func (x *Extractor) Extract(offer model.Offer) model.ResolvedReference {
	if offer.RawText != "" {
		for _, s := range x.strategies {
			cand := s.Attempt(offer.RawText)
			if cand == nil {
				continue
			}

			entry := x.validate(cand)
			if entry == nil {
				continue
			}

			return model.ResolvedReference{
				Kind:         model.ReferenceValidated,
				Entry:        entry,
				StrategyName: cand.StrategyName,
				Confidence:   cand.Confidence,
			}
		}
	}

	if offer.ContextUnit != "" {
		return model.ResolvedReference{
			Kind:        model.ReferenceContextFallback,
			ContextUnit: offer.ContextUnit,
		}
	}
	return model.ResolvedReference{Kind: model.ReferenceUnresolved}
}

// validate resolves a candidate through exactly one catalog lookup.
// Unvalidated candidates are discarded.
func (x *Extractor) validate(cand *model.ExtractionCandidate) *model.CatalogEntry {
	var (
		entry *model.CatalogEntry
		err   error
	)

	switch {
	case cand.ProposedCode != "":
		entry, err = x.cat.LookupByCode(cand.ProposedCode)
	case cand.StrategyName == "ko_name_fuzzy":
		entry, err = x.cat.FuzzyLookup(cand.ProposedName, x.threshold)
	default:
		entry, err = x.cat.LookupByName(cand.ProposedName)
	}

	if err != nil {
		if eris.Is(err, catalog.ErrAmbiguous) {
			zap.L().Debug("extract: ambiguous candidate discarded",
				zap.String("strategy", cand.StrategyName),
				zap.String("proposed", cand.ProposedName),
			)
		}
		return nil
	}
	return entry
}
