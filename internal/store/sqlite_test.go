package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrozem/landsync/internal/model"
)

func testSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteLedger(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	done, err := s.Contains(ctx, "100")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.MarkProcessed(ctx, "100", time.Now()))

	done, err = s.Contains(ctx, "100")
	require.NoError(t, err)
	assert.True(t, done)

	// Re-marking is idempotent, not an error.
	require.NoError(t, s.MarkProcessed(ctx, "100", time.Now()))

	n, err := s.CountProcessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteEnrichmentRoundTrip(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	got, err := s.GetEnrichment(ctx, "100")
	require.NoError(t, err)
	assert.Nil(t, got, "miss is nil, nil")

	price := 21000.0
	area := 5000
	in := &model.EnrichmentResult{
		OfferID:      "100",
		TemplateType: "electronic_form",
		Plots: []model.Plot{
			{ParcelID: "123/4", AreaM2: &area, PriceEUR: &price, Share: "1/1", Confidence: 0.9},
		},
		TotalPriceEUR:     &price,
		TotalAreaM2:       &area,
		BuyerKnown:        true,
		BuyerKnownConf:    0.95,
		Confidence:        0.85,
		SourceDocumentRef: "doc://100",
		DerivedAt:         time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.PutEnrichment(ctx, in))

	got, err = s.GetEnrichment(ctx, "100")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, in.OfferID, got.OfferID)
	assert.Equal(t, in.TemplateType, got.TemplateType)
	require.Len(t, got.Plots, 1)
	assert.Equal(t, "123/4", got.Plots[0].ParcelID)
	require.NotNil(t, got.TotalPriceEUR)
	assert.Equal(t, price, *got.TotalPriceEUR)
	assert.True(t, got.BuyerKnown)
}

func TestSQLitePutEnrichmentDuplicate(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	in := &model.EnrichmentResult{OfferID: "100", Confidence: 0.5, DerivedAt: time.Now()}
	require.NoError(t, s.PutEnrichment(ctx, in))

	err := s.PutEnrichment(ctx, in)
	require.ErrorIs(t, err, ErrDuplicateResult)
}

func TestSQLiteReplaceEnrichment(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.PutEnrichment(ctx, &model.EnrichmentResult{
		OfferID: "100", Confidence: 0.5, DerivedAt: time.Now(),
	}))
	require.NoError(t, s.ReplaceEnrichment(ctx, &model.EnrichmentResult{
		OfferID: "100", Confidence: 0.8, DerivedAt: time.Now(),
	}))

	got, err := s.GetEnrichment(ctx, "100")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.8, got.Confidence)

	n, err := s.CountEnrichments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteGeometry(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	got, err := s.GetGeometry(ctx, "2331/123/4")
	require.NoError(t, err)
	assert.Nil(t, got)

	areaVal := 4321.5
	g := &model.ParcelGeometry{
		KOCode:    "2331",
		ParcelID:  "123/4",
		WKB:       []byte{0x01, 0x02, 0x03},
		AreaM2:    &areaVal,
		FetchedAt: time.Now().UTC(),
	}
	require.NoError(t, s.PutGeometry(ctx, g))

	err = s.PutGeometry(ctx, g)
	require.ErrorIs(t, err, ErrDuplicateResult)

	got, err = s.GetGeometry(ctx, "2331/123/4")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2331", got.KOCode)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got.WKB)
	require.NotNil(t, got.AreaM2)
	assert.Equal(t, areaVal, *got.AreaM2)

	// Null area round-trips as nil.
	require.NoError(t, s.PutGeometry(ctx, &model.ParcelGeometry{
		KOCode: "904", ParcelID: "1/1", FetchedAt: time.Now(),
	}))
	got, err = s.GetGeometry(ctx, "904/1/1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.AreaM2)

	all, err := s.ListGeometries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err := s.CountGeometries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteListEnrichments(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	for _, id := range []string{"102", "100", "101"} {
		require.NoError(t, s.PutEnrichment(ctx, &model.EnrichmentResult{
			OfferID: id, DerivedAt: time.Now(),
		}))
	}

	all, err := s.ListEnrichments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "100", all[0].OfferID)
	assert.Equal(t, "102", all[2].OfferID)
}

func TestSQLiteRecordRun(t *testing.T) {
	s := testSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, &model.RunReport{
		ID:         "run-1",
		Kind:       model.RunKindEnrich,
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Selected:   3,
		Succeeded:  2,
		Failed:     1,
		Failures: []model.ItemFailure{
			{EntityID: "100", Stage: model.StageFetch, Cause: "timeout"},
		},
	}))

	// Run IDs are unique per run.
	err := s.RecordRun(ctx, &model.RunReport{ID: "run-1", Kind: model.RunKindEnrich})
	require.Error(t, err)
}
