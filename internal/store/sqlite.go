package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/agrozem/landsync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. WAL plus the busy timeout keeps concurrent distinct-key writes
// from the worker pool safe.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS processed_offers (
	offer_id     TEXT PRIMARY KEY,
	completed_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS enrichments (
	offer_id            TEXT PRIMARY KEY,
	payload             TEXT NOT NULL,
	source_document_ref TEXT NOT NULL DEFAULT '',
	derived_at          DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS parcel_geometries (
	parcel_key TEXT PRIMARY KEY,
	ko_code    TEXT NOT NULL,
	parcel_id  TEXT NOT NULL,
	geom       BLOB,
	area_m2    REAL,
	fetched_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	selected    INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	failures    TEXT
);

CREATE INDEX IF NOT EXISTS idx_geometries_ko ON parcel_geometries(ko_code);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Contains(ctx context.Context, offerID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_offers WHERE offer_id = ?`, offerID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: contains %s", offerID)
	}
	return true, nil
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, offerID string, completedAt time.Time) error {
	// Idempotent: re-marking after a crash recovery pass is not an error.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed_offers (offer_id, completed_at) VALUES (?, ?)
		 ON CONFLICT (offer_id) DO NOTHING`,
		offerID, completedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: mark processed %s", offerID)
}

func (s *SQLiteStore) CountProcessed(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM processed_offers`)
}

func (s *SQLiteStore) GetEnrichment(ctx context.Context, offerID string) (*model.EnrichmentResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM enrichments WHERE offer_id = ?`, offerID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get enrichment %s", offerID)
	}
	return unmarshalEnrichment(payload)
}

func (s *SQLiteStore) PutEnrichment(ctx context.Context, result *model.EnrichmentResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrichment")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO enrichments (offer_id, payload, source_document_ref, derived_at) VALUES (?, ?, ?, ?)`,
		result.OfferID, string(payload), result.SourceDocumentRef, result.DerivedAt.UTC(),
	)
	if isSQLiteDuplicate(err) {
		return eris.Wrapf(ErrDuplicateResult, "offer %s", result.OfferID)
	}
	return eris.Wrapf(err, "sqlite: put enrichment %s", result.OfferID)
}

func (s *SQLiteStore) ReplaceEnrichment(ctx context.Context, result *model.EnrichmentResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrichment")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO enrichments (offer_id, payload, source_document_ref, derived_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (offer_id) DO UPDATE SET
		 payload = excluded.payload,
		 source_document_ref = excluded.source_document_ref,
		 derived_at = excluded.derived_at`,
		result.OfferID, string(payload), result.SourceDocumentRef, result.DerivedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: replace enrichment %s", result.OfferID)
}

func (s *SQLiteStore) ListEnrichments(ctx context.Context) ([]model.EnrichmentResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM enrichments ORDER BY offer_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list enrichments")
	}
	defer rows.Close()

	var out []model.EnrichmentResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan enrichment")
		}
		r, err := unmarshalEnrichment(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list enrichments iterate")
}

func (s *SQLiteStore) CountEnrichments(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM enrichments`)
}

func (s *SQLiteStore) GetGeometry(ctx context.Context, key string) (*model.ParcelGeometry, error) {
	var g model.ParcelGeometry
	var area sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT ko_code, parcel_id, geom, area_m2, fetched_at FROM parcel_geometries WHERE parcel_key = ?`,
		key,
	).Scan(&g.KOCode, &g.ParcelID, &g.WKB, &area, &g.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get geometry %s", key)
	}
	if area.Valid {
		g.AreaM2 = &area.Float64
	}
	return &g, nil
}

func (s *SQLiteStore) PutGeometry(ctx context.Context, g *model.ParcelGeometry) error {
	var area any
	if g.AreaM2 != nil {
		area = *g.AreaM2
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parcel_geometries (parcel_key, ko_code, parcel_id, geom, area_m2, fetched_at) VALUES (?, ?, ?, ?, ?, ?)`,
		g.Key(), g.KOCode, g.ParcelID, g.WKB, area, g.FetchedAt.UTC(),
	)
	if isSQLiteDuplicate(err) {
		return eris.Wrapf(ErrDuplicateResult, "parcel %s", g.Key())
	}
	return eris.Wrapf(err, "sqlite: put geometry %s", g.Key())
}

func (s *SQLiteStore) ListGeometries(ctx context.Context) ([]model.ParcelGeometry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ko_code, parcel_id, geom, area_m2, fetched_at FROM parcel_geometries ORDER BY parcel_key`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list geometries")
	}
	defer rows.Close()

	var out []model.ParcelGeometry
	for rows.Next() {
		var g model.ParcelGeometry
		var area sql.NullFloat64
		if err := rows.Scan(&g.KOCode, &g.ParcelID, &g.WKB, &area, &g.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan geometry")
		}
		if area.Valid {
			g.AreaM2 = &area.Float64
		}
		out = append(out, g)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list geometries iterate")
}

func (s *SQLiteStore) CountGeometries(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM parcel_geometries`)
}

func (s *SQLiteStore) RecordRun(ctx context.Context, report *model.RunReport) error {
	failures, err := json.Marshal(report.Failures)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal failures")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, started_at, finished_at, selected, skipped, succeeded, failed, failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, string(report.Kind), report.StartedAt.UTC(), report.FinishedAt.UTC(),
		report.Selected, report.Skipped, report.Succeeded, report.Failed, string(failures),
	)
	return eris.Wrapf(err, "sqlite: record run %s", report.ID)
}

// helpers

func (s *SQLiteStore) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count")
	}
	return n, nil
}

func unmarshalEnrichment(payload string) (*model.EnrichmentResult, error) {
	var r model.EnrichmentResult
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal enrichment")
	}
	return &r, nil
}

func isSQLiteDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
