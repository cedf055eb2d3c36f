package dataset

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agrozem/landsync/internal/model"
	"github.com/agrozem/landsync/internal/store"
)

// legacyResult mirrors the flat per-offer records the pre-pipeline tooling
// produced. Only the fields that survive into the cache are read.
type legacyResult struct {
	OfferID      string   `json:"offer_id"`
	TemplateType string   `json:"template_type"`
	Parcels      []string `json:"parcels"`
	TotalPrice   *float64 `json:"total_price_eur"`
	TotalArea    *int     `json:"total_area_m2"`
	BuyerKnown   bool     `json:"buyer_known"`
	Confidence   float64  `json:"confidence"`
	SourceRef    string   `json:"source_ref"`
}

// ImportReport summarizes a legacy migration.
type ImportReport struct {
	Read      int
	Imported  int
	Duplicate int
}

// ImportLegacy converts an old flat extraction-results file into cache rows
// and ledger entries. Each record is cached before it is marked processed,
// the same order the pipeline uses, so an interrupted import is repaired by
// the next enrich run rather than re-converted. Records already cached are
// counted and skipped.
func ImportLegacy(ctx context.Context, path string, st store.Store) (*ImportReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: read %s", path)
	}

	var legacy []legacyResult
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, eris.Wrapf(err, "import: parse %s", path)
	}

	report := &ImportReport{Read: len(legacy)}
	now := time.Now().UTC()

	for _, lr := range legacy {
		if lr.OfferID == "" {
			return nil, eris.Errorf("import: record without offer_id in %s", path)
		}

		res := &model.EnrichmentResult{
			OfferID:           lr.OfferID,
			TemplateType:      lr.TemplateType,
			TotalPriceEUR:     lr.TotalPrice,
			TotalAreaM2:       lr.TotalArea,
			BuyerKnown:        lr.BuyerKnown,
			Confidence:        lr.Confidence,
			SourceDocumentRef: lr.SourceRef,
			DerivedAt:         now,
		}
		for _, p := range lr.Parcels {
			res.Plots = append(res.Plots, model.Plot{ParcelID: p, Confidence: lr.Confidence})
		}

		if err := st.PutEnrichment(ctx, res); err != nil {
			if eris.Is(err, store.ErrDuplicateResult) {
				report.Duplicate++
				// Still repair the ledger in case the earlier import died
				// between cache write and mark.
				if err := st.MarkProcessed(ctx, lr.OfferID, now); err != nil {
					return report, eris.Wrapf(err, "import: mark %s", lr.OfferID)
				}
				continue
			}
			return report, eris.Wrapf(err, "import: cache %s", lr.OfferID)
		}
		if err := st.MarkProcessed(ctx, lr.OfferID, now); err != nil {
			return report, eris.Wrapf(err, "import: mark %s", lr.OfferID)
		}
		report.Imported++
	}

	zap.L().Info("legacy import complete",
		zap.Int("read", report.Read),
		zap.Int("imported", report.Imported),
		zap.Int("duplicate", report.Duplicate),
	)
	return report, nil
}
