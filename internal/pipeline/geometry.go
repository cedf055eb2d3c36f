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

// GeometrySource fetches the official polygon for one parcel.
type GeometrySource interface {
	FetchGeometry(ctx context.Context, koCode, parcelID string) (*model.ParcelGeometry, error)
}

// GeometryCoordinator incrementally fetches parcel geometries for every
// parcel derived so far, skipping parcels already cached. Geometries are
// never re-fetched once cached.
type GeometryCoordinator struct {
	store   store.Store
	source  GeometrySource
	opts    Options
	limiter *rate.Limiter
}

// NewGeometryCoordinator wires a GeometryCoordinator. The Force option has
// no effect here: official geometry does not go stale.
func NewGeometryCoordinator(st store.Store, src GeometrySource, opts Options) *GeometryCoordinator {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	return &GeometryCoordinator{store: st, source: src, opts: opts, limiter: limiter}
}

// CollectParcels derives the set of parcels eligible for geometry lookup:
// every plot of every cached enrichment whose offer carries a validated
// cadastral reference. Offers without a validated reference contribute
// nothing; a parcel number alone does not identify a parcel.
func CollectParcels(offers []model.Offer, enrichments []model.EnrichmentResult) []model.ParcelRef {
	koByOffer := make(map[string]string, len(offers))
	for _, o := range offers {
		if o.Reference.Validated() {
			koByOffer[o.ID] = o.Reference.Entry.Code
		}
	}

	seen := make(map[string]bool)
	var out []model.ParcelRef
	for _, e := range enrichments {
		ko, ok := koByOffer[e.OfferID]
		if !ok {
			continue
		}
		for _, p := range e.Plots {
			ref := model.ParcelRef{KOCode: ko, ParcelID: p.ParcelID}
			if seen[ref.Key()] {
				continue
			}
			seen[ref.Key()] = true
			out = append(out, ref)
		}
	}
	return out
}

// Run fetches geometries for all uncached parcels referenced by offers.
func (c *GeometryCoordinator) Run(ctx context.Context, offers []model.Offer) (*model.RunReport, error) {
	report := &model.RunReport{
		ID:        uuid.New().String(),
		Kind:      model.RunKindGeometry,
		StartedAt: time.Now().UTC(),
	}

	enrichments, err := c.store.ListEnrichments(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: list enrichments")
	}

	parcels := CollectParcels(offers, enrichments)

	var pending []model.ParcelRef
	for _, ref := range parcels {
		cached, err := c.store.GetGeometry(ctx, ref.Key())
		if err != nil {
			return nil, eris.Wrap(err, "geometry: cache check")
		}
		if cached != nil {
			report.Skipped++
			continue
		}
		pending = append(pending, ref)
	}
	report.Selected = len(pending)

	zap.L().Info("geometry: starting run",
		zap.String("run_id", report.ID),
		zap.Int("selected", len(pending)),
		zap.Int("skipped", report.Skipped),
		zap.Int("workers", c.opts.Workers),
	)

	var mu sync.Mutex
	succeeded := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for _, ref := range pending {
		g.Go(func() error {
			if fail := c.fetchOne(gctx, ref); fail != nil {
				mu.Lock()
				report.Failures = append(report.Failures, *fail)
				mu.Unlock()

				zap.L().Warn("geometry: item failed",
					zap.String("parcel", fail.EntityID),
					zap.String("cause", fail.Cause),
				)
				return nil
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
		zap.L().Warn("geometry: failed to record run", zap.Error(recErr))
	}

	zap.L().Info("geometry: run complete",
		zap.String("run_id", report.ID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)

	if runErr != nil {
		return report, eris.Wrap(runErr, "geometry: run aborted")
	}
	return report, nil
}

func (c *GeometryCoordinator) fetchOne(ctx context.Context, ref model.ParcelRef) *model.ItemFailure {
	if err := c.limiter.Wait(ctx); err != nil {
		return &model.ItemFailure{EntityID: ref.Key(), Stage: model.StageFetch, Cause: err.Error()}
	}

	g, err := c.source.FetchGeometry(ctx, ref.KOCode, ref.ParcelID)
	if err != nil {
		return &model.ItemFailure{EntityID: ref.Key(), Stage: model.StageFetch, Cause: err.Error()}
	}
	g.KOCode = ref.KOCode
	g.ParcelID = ref.ParcelID
	if g.FetchedAt.IsZero() {
		g.FetchedAt = time.Now().UTC()
	}

	if err := c.store.PutGeometry(ctx, g); err != nil {
		// Another writer beat us to this parcel; the cached copy wins.
		if eris.Is(err, store.ErrDuplicateResult) {
			return nil
		}
		return &model.ItemFailure{EntityID: ref.Key(), Stage: model.StagePersist, Cause: err.Error()}
	}
	return nil
}
