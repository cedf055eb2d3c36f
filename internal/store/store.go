// Package store persists the processed-set ledger, the enrichment cache,
// the geometry cache and the run log. Two backends implement the same
// interface: SQLite for single-host deployments, Postgres for shared ones.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/agrozem/landsync/internal/config"
	"github.com/agrozem/landsync/internal/model"
)

// ErrDuplicateResult signals a write for a key that already holds a
// result. The cache is append-only; hitting this means the caller's
// ledger/cache double-guard was bypassed, so it is surfaced loudly rather
// than swallowed.
var ErrDuplicateResult = eris.New("store: duplicate result")

// Store is the persistence contract for the incremental pipelines.
//
// Ordering contract: callers persist an enrichment result first and mark
// the ledger second, so a crash in between leaves the item eligible for
// retry instead of silently skipped. Ledger writes are additive only.
type Store interface {
	// Processed-set ledger. Membership is the sole authority for
	// "already enriched"; the ledger is never consulted for content.
	Contains(ctx context.Context, offerID string) (bool, error)
	MarkProcessed(ctx context.Context, offerID string, completedAt time.Time) error
	CountProcessed(ctx context.Context) (int, error)

	// Enrichment cache. Put fails with ErrDuplicateResult when a result
	// exists; Replace exists only for the explicit force-re-derive path.
	GetEnrichment(ctx context.Context, offerID string) (*model.EnrichmentResult, error)
	PutEnrichment(ctx context.Context, result *model.EnrichmentResult) error
	ReplaceEnrichment(ctx context.Context, result *model.EnrichmentResult) error
	ListEnrichments(ctx context.Context) ([]model.EnrichmentResult, error)
	CountEnrichments(ctx context.Context) (int, error)

	// Geometry cache, keyed "koCode/parcelID", never evicted.
	GetGeometry(ctx context.Context, key string) (*model.ParcelGeometry, error)
	PutGeometry(ctx context.Context, g *model.ParcelGeometry) error
	ListGeometries(ctx context.Context) ([]model.ParcelGeometry, error)
	CountGeometries(ctx context.Context) (int, error)

	// Run log.
	RecordRun(ctx context.Context, report *model.RunReport) error

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store from config.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
