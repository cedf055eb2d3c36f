// Package pipeline coordinates the incremental enrichment of offers:
// select unprocessed entities, fetch their source document, derive fields,
// and persist result then ledger mark, tolerating per-item failure.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/agrozem/landsync/internal/model"
	"github.com/agrozem/landsync/internal/store"
)

// DocumentSource fetches the raw source document for an offer. Transient
// errors surface as item-level failures; the source does not retry.
type DocumentSource interface {
	FetchDocument(ctx context.Context, offerID string) (data []byte, ref string, err error)
}

// Deriver turns raw document bytes into an enrichment result.
type Deriver interface {
	Derive(ctx context.Context, offerID string, document []byte) (*model.EnrichmentResult, error)
}

// Options tunes one coordinator run.
type Options struct {
	// Workers bounds the number of in-flight fetch/derive operations.
	Workers int
	// MinInterval spaces external fetches across all workers.
	MinInterval time.Duration
	// Force re-derives offers that already have a cached result. The
	// ledger is left untouched; the cache row is replaced explicitly.
	Force bool
}

// Coordinator runs the enrichment pipeline against a Store.
type Coordinator struct {
	store   store.Store
	source  DocumentSource
	deriver Deriver
	opts    Options
	limiter *rate.Limiter
}

// NewCoordinator wires a Coordinator. Workers defaults to 2, MinInterval
// to zero (no spacing).
func NewCoordinator(st store.Store, src DocumentSource, der Deriver, opts Options) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	return &Coordinator{
		store:   st,
		source:  src,
		deriver: der,
		opts:    opts,
		limiter: limiter,
	}
}

// Run processes every offer not yet in the ledger. A single item's failure
// never aborts the batch; failures are collected into the returned report.
// Run errors only on infrastructure faults (ledger unreadable, context
// cancelled).
func (c *Coordinator) Run(ctx context.Context, offers []model.Offer) (*model.RunReport, error) {
	report := &model.RunReport{
		ID:        uuid.New().String(),
		Kind:      model.RunKindEnrich,
		StartedAt: time.Now().UTC(),
	}

	pending, skipped, err := c.selectPending(ctx, offers)
	if err != nil {
		return nil, err
	}
	report.Selected = len(pending)
	report.Skipped = skipped

	zap.L().Info("enrich: starting run",
		zap.String("run_id", report.ID),
		zap.Int("selected", len(pending)),
		zap.Int("skipped", skipped),
		zap.Int("workers", c.opts.Workers),
		zap.Duration("min_interval", c.opts.MinInterval),
		zap.Bool("force", c.opts.Force),
	)

	var mu sync.Mutex
	succeeded := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for _, offer := range pending {
		g.Go(func() error {
			if fail := c.processOne(gctx, offer); fail != nil {
				mu.Lock()
				report.Failures = append(report.Failures, *fail)
				mu.Unlock()

				zap.L().Warn("enrich: item failed",
					zap.String("offer_id", fail.EntityID),
					zap.String("stage", string(fail.Stage)),
					zap.String("cause", fail.Cause),
				)
				return nil // item failures never abort the batch
			}

			mu.Lock()
			succeeded++
			mu.Unlock()
			return nil
		})
	}

	runErr := g.Wait()
	report.Succeeded = succeeded
	report.Failed = len(report.Failures)
	report.FinishedAt = time.Now().UTC()

	if recErr := c.store.RecordRun(ctx, report); recErr != nil {
		zap.L().Warn("enrich: failed to record run", zap.Error(recErr))
	}

	zap.L().Info("enrich: run complete",
		zap.String("run_id", report.ID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)

	if runErr != nil {
		return report, eris.Wrap(runErr, "enrich: run aborted")
	}
	return report, nil
}

// selectPending filters offers against the ledger. An offer with a cached
// result but no ledger mark (crash between put and mark) is repaired by
// re-marking; it is never re-derived and never trips the duplicate guard.
func (c *Coordinator) selectPending(ctx context.Context, offers []model.Offer) ([]model.Offer, int, error) {
	var pending []model.Offer
	skipped := 0

	for _, offer := range offers {
		if c.opts.Force {
			pending = append(pending, offer)
			continue
		}

		done, err := c.store.Contains(ctx, offer.ID)
		if err != nil {
			return nil, 0, eris.Wrap(err, "enrich: ledger check")
		}
		if done {
			skipped++
			continue
		}

		cached, err := c.store.GetEnrichment(ctx, offer.ID)
		if err != nil {
			return nil, 0, eris.Wrap(err, "enrich: cache check")
		}
		if cached != nil {
			if err := c.store.MarkProcessed(ctx, offer.ID, time.Now().UTC()); err != nil {
				return nil, 0, eris.Wrap(err, "enrich: repair ledger mark")
			}
			zap.L().Info("enrich: repaired unmarked cached result", zap.String("offer_id", offer.ID))
			skipped++
			continue
		}

		pending = append(pending, offer)
	}

	return pending, skipped, nil
}

// processOne runs one offer end-to-end. The returned failure is nil on
// success. Fetch is the only rate-limited step.
func (c *Coordinator) processOne(ctx context.Context, offer model.Offer) *model.ItemFailure {
	if err := c.limiter.Wait(ctx); err != nil {
		return &model.ItemFailure{EntityID: offer.ID, Stage: model.StageFetch, Cause: err.Error()}
	}

	data, ref, err := c.source.FetchDocument(ctx, offer.ID)
	if err != nil {
		return &model.ItemFailure{EntityID: offer.ID, Stage: model.StageFetch, Cause: err.Error()}
	}

	result, err := c.deriver.Derive(ctx, offer.ID, data)
	if err != nil {
		return &model.ItemFailure{EntityID: offer.ID, Stage: model.StageDerive, Cause: err.Error()}
	}
	result.OfferID = offer.ID
	if result.SourceDocumentRef == "" {
		result.SourceDocumentRef = ref
	}
	if result.DerivedAt.IsZero() {
		result.DerivedAt = time.Now().UTC()
	}

	// Result first, ledger mark second. A crash in between leaves the
	// offer eligible for the repair pass on the next run.
	if c.opts.Force {
		err = c.store.ReplaceEnrichment(ctx, result)
	} else {
		err = c.store.PutEnrichment(ctx, result)
	}
	if err != nil {
		return &model.ItemFailure{EntityID: offer.ID, Stage: model.StagePersist, Cause: err.Error()}
	}

	if err := c.store.MarkProcessed(ctx, offer.ID, time.Now().UTC()); err != nil {
		return &model.ItemFailure{EntityID: offer.ID, Stage: model.StagePersist, Cause: err.Error()}
	}

	return nil
}
