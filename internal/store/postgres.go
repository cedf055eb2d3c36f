package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/agrozem/landsync/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS processed_offers (
	offer_id     TEXT PRIMARY KEY,
	completed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS enrichments (
	offer_id            TEXT PRIMARY KEY,
	payload             JSONB NOT NULL,
	source_document_ref TEXT NOT NULL DEFAULT '',
	derived_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS parcel_geometries (
	parcel_key TEXT PRIMARY KEY,
	ko_code    TEXT NOT NULL,
	parcel_id  TEXT NOT NULL,
	geom       BYTEA,
	area_m2    DOUBLE PRECISION,
	fetched_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	selected    INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	failures    JSONB
);

CREATE INDEX IF NOT EXISTS idx_geometries_ko ON parcel_geometries(ko_code);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Contains(ctx context.Context, offerID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM processed_offers WHERE offer_id = $1`, offerID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: contains %s", offerID)
	}
	return true, nil
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, offerID string, completedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO processed_offers (offer_id, completed_at) VALUES ($1, $2)
		 ON CONFLICT (offer_id) DO NOTHING`,
		offerID, completedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: mark processed %s", offerID)
}

func (s *PostgresStore) CountProcessed(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM processed_offers`)
}

func (s *PostgresStore) GetEnrichment(ctx context.Context, offerID string) (*model.EnrichmentResult, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM enrichments WHERE offer_id = $1`, offerID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get enrichment %s", offerID)
	}

	var r model.EnrichmentResult
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal enrichment")
	}
	return &r, nil
}

func (s *PostgresStore) PutEnrichment(ctx context.Context, result *model.EnrichmentResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO enrichments (offer_id, payload, source_document_ref, derived_at) VALUES ($1, $2, $3, $4)`,
		result.OfferID, payload, result.SourceDocumentRef, result.DerivedAt.UTC(),
	)
	if isPGDuplicate(err) {
		return eris.Wrapf(ErrDuplicateResult, "offer %s", result.OfferID)
	}
	return eris.Wrapf(err, "postgres: put enrichment %s", result.OfferID)
}

func (s *PostgresStore) ReplaceEnrichment(ctx context.Context, result *model.EnrichmentResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO enrichments (offer_id, payload, source_document_ref, derived_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (offer_id) DO UPDATE SET
		 payload = EXCLUDED.payload,
		 source_document_ref = EXCLUDED.source_document_ref,
		 derived_at = EXCLUDED.derived_at`,
		result.OfferID, payload, result.SourceDocumentRef, result.DerivedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: replace enrichment %s", result.OfferID)
}

func (s *PostgresStore) ListEnrichments(ctx context.Context) ([]model.EnrichmentResult, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM enrichments ORDER BY offer_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list enrichments")
	}
	defer rows.Close()

	var out []model.EnrichmentResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan enrichment")
		}
		var r model.EnrichmentResult
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal enrichment")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list enrichments iterate")
}

func (s *PostgresStore) CountEnrichments(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM enrichments`)
}

func (s *PostgresStore) GetGeometry(ctx context.Context, key string) (*model.ParcelGeometry, error) {
	var g model.ParcelGeometry
	err := s.pool.QueryRow(ctx,
		`SELECT ko_code, parcel_id, geom, area_m2, fetched_at FROM parcel_geometries WHERE parcel_key = $1`,
		key,
	).Scan(&g.KOCode, &g.ParcelID, &g.WKB, &g.AreaM2, &g.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get geometry %s", key)
	}
	return &g, nil
}

func (s *PostgresStore) PutGeometry(ctx context.Context, g *model.ParcelGeometry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO parcel_geometries (parcel_key, ko_code, parcel_id, geom, area_m2, fetched_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		g.Key(), g.KOCode, g.ParcelID, g.WKB, g.AreaM2, g.FetchedAt.UTC(),
	)
	if isPGDuplicate(err) {
		return eris.Wrapf(ErrDuplicateResult, "parcel %s", g.Key())
	}
	return eris.Wrapf(err, "postgres: put geometry %s", g.Key())
}

func (s *PostgresStore) ListGeometries(ctx context.Context) ([]model.ParcelGeometry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ko_code, parcel_id, geom, area_m2, fetched_at FROM parcel_geometries ORDER BY parcel_key`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list geometries")
	}
	defer rows.Close()

	var out []model.ParcelGeometry
	for rows.Next() {
		var g model.ParcelGeometry
		if err := rows.Scan(&g.KOCode, &g.ParcelID, &g.WKB, &g.AreaM2, &g.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan geometry")
		}
		out = append(out, g)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list geometries iterate")
}

func (s *PostgresStore) CountGeometries(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM parcel_geometries`)
}

func (s *PostgresStore) RecordRun(ctx context.Context, report *model.RunReport) error {
	failures, err := json.Marshal(report.Failures)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal failures")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, started_at, finished_at, selected, skipped, succeeded, failed, failures)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		report.ID, string(report.Kind), report.StartedAt.UTC(), report.FinishedAt.UTC(),
		report.Selected, report.Skipped, report.Succeeded, report.Failed, failures,
	)
	return eris.Wrapf(err, "postgres: record run %s", report.ID)
}

func (s *PostgresStore) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count")
	}
	return n, nil
}

func isPGDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
