package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/agrozem/landsync/internal/model"
)

// LoadFile reads the official register from disk and builds the catalog.
// JSON files hold a flat code->name object; XLSX files are the register as
// published by the geodetic administration (code in the first column, name
// in the second). The format is picked by extension.
func LoadFile(path string) (*Catalog, error) {
	var (
		entries []model.CatalogEntry
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		entries, err = loadJSON(path)
	case ".xlsx":
		entries, err = loadXLSX(path)
	default:
		return nil, eris.Errorf("catalog: unsupported register format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	c, err := New(entries)
	if err != nil {
		return nil, err
	}

	zap.L().Info("catalog loaded",
		zap.String("path", path),
		zap.Int("entries", c.Len()),
	)
	return c, nil
}

func loadJSON(path string) ([]model.CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "catalog: parse %s", path)
	}

	entries := make([]model.CatalogEntry, 0, len(raw))
	for code, name := range raw {
		entries = append(entries, model.CatalogEntry{
			Code:          code,
			CanonicalName: strings.TrimSpace(name),
		})
	}
	return entries, nil
}

func loadXLSX(path string) ([]model.CatalogEntry, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("catalog: %s has no sheets", path)
	}

	var entries []model.CatalogEntry
	for i, row := range f.Sheets[0].Rows {
		if i == 0 {
			continue // header
		}
		if len(row.Cells) < 2 {
			continue
		}
		code := strings.TrimSpace(row.Cells[0].String())
		name := strings.TrimSpace(row.Cells[1].String())
		if code == "" || name == "" {
			continue
		}
		entries = append(entries, model.CatalogEntry{Code: code, CanonicalName: name})
	}
	return entries, nil
}
