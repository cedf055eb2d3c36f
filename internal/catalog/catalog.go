// Package catalog holds the authoritative cadastral-municipality register
// and its lookup indices. The catalog is built once at startup and never
// mutates afterwards, so concurrent reads need no synchronization.
package catalog

import (
	"github.com/rotisserie/eris"

	"github.com/agrozem/landsync/internal/model"
)

// ErrAmbiguous is returned when a normalized-name lookup matches more than
// one catalog entry. Ambiguity is never silently broken; callers treat it
// as a miss.
var ErrAmbiguous = eris.New("catalog: ambiguous name")

// ErrNotFound is returned when no entry matches.
var ErrNotFound = eris.New("catalog: no match")

// Catalog indexes cadastral-municipality entries by code, canonical name
// and normalized name.
type Catalog struct {
	byCode       map[string]*model.CatalogEntry
	byName       map[string]*model.CatalogEntry
	byNormalized map[string][]*model.CatalogEntry
}

// New builds a Catalog from raw (code, name) pairs. An empty input is a
// load failure: nothing downstream can run without the register.
func New(entries []model.CatalogEntry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, eris.New("catalog: empty register")
	}

	c := &Catalog{
		byCode:       make(map[string]*model.CatalogEntry, len(entries)),
		byName:       make(map[string]*model.CatalogEntry, len(entries)),
		byNormalized: make(map[string][]*model.CatalogEntry, len(entries)),
	}

	for i := range entries {
		e := entries[i]
		e.Code = NormalizeCode(e.Code)
		if e.Code == "" || e.CanonicalName == "" {
			return nil, eris.Errorf("catalog: malformed entry %q/%q", e.Code, e.CanonicalName)
		}
		if e.NormalizedName == "" {
			e.NormalizedName = NormalizeName(e.CanonicalName)
		}
		if _, dup := c.byCode[e.Code]; dup {
			return nil, eris.Errorf("catalog: duplicate code %s", e.Code)
		}

		entry := &e
		c.byCode[e.Code] = entry
		c.byName[e.CanonicalName] = entry
		c.byNormalized[e.NormalizedName] = append(c.byNormalized[e.NormalizedName], entry)
	}

	return c, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.byCode)
}

// LookupByCode returns the entry for a code, after leading-zero folding.
func (c *Catalog) LookupByCode(code string) (*model.CatalogEntry, error) {
	if e, ok := c.byCode[NormalizeCode(code)]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

// LookupByName resolves a name to exactly one entry. Exact canonical
// matches win; otherwise the normalized index is consulted, and a
// normalized key shared by several entries yields ErrAmbiguous.
func (c *Catalog) LookupByName(name string) (*model.CatalogEntry, error) {
	if e, ok := c.byName[name]; ok {
		return e, nil
	}

	candidates, ok := c.byNormalized[NormalizeName(name)]
	if !ok || len(candidates) == 0 {
		return nil, ErrNotFound
	}
	if len(candidates) > 1 {
		return nil, ErrAmbiguous
	}
	return candidates[0], nil
}

// Entries returns a snapshot copy of all entries, ordering unspecified.
func (c *Catalog) Entries() []model.CatalogEntry {
	out := make([]model.CatalogEntry, 0, len(c.byCode))
	for _, e := range c.byCode {
		out = append(out, *e)
	}
	return out
}
