// Package dataset persists the offer collection as a JSON file on disk.
// The dataset is the pipeline's working set; caches and ledgers live in
// the database, not here.
package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agrozem/landsync/internal/model"
)

// Load reads a dataset file. A missing file is not an error; it yields an
// empty dataset so first runs need no setup step.
func Load(path string) (*model.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Info("dataset file not found, starting empty", zap.String("path", path))
			return &model.Dataset{Metadata: model.DatasetMetadata{CreatedAt: time.Now().UTC()}}, nil
		}
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}

	var ds model.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}

	zap.L().Info("dataset loaded",
		zap.String("path", path),
		zap.Int("offers", len(ds.Offers)),
	)
	return &ds, nil
}

// Save writes the dataset atomically: a temp file in the same directory is
// renamed over the target so a crash mid-write never truncates the dataset.
func Save(path string, ds *model.Dataset) error {
	ds.Metadata.UpdatedAt = time.Now().UTC()
	ds.Metadata.TotalOffers = len(ds.Offers)
	if ds.Metadata.CreatedAt.IsZero() {
		ds.Metadata.CreatedAt = ds.Metadata.UpdatedAt
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return eris.Wrap(err, "dataset: marshal")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".landsync-dataset-*.json")
	if err != nil {
		return eris.Wrap(err, "dataset: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "dataset: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "dataset: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "dataset: replace %s", path)
	}

	zap.L().Info("dataset saved",
		zap.String("path", path),
		zap.Int("offers", len(ds.Offers)),
	)
	return nil
}

// Merge folds freshly fetched offers into the dataset. Existing offers keep
// their extraction state; only listing metadata is refreshed. Returns the
// number of offers added.
func Merge(ds *model.Dataset, fresh []model.Offer) int {
	byID := make(map[string]int, len(ds.Offers))
	for i, o := range ds.Offers {
		byID[o.ID] = i
	}

	added := 0
	for _, f := range fresh {
		if i, ok := byID[f.ID]; ok {
			ref := ds.Offers[i].Reference
			f.Reference = ref
			ds.Offers[i] = f
			continue
		}
		ds.Offers = append(ds.Offers, f)
		byID[f.ID] = len(ds.Offers) - 1
		added++
	}
	return added
}
