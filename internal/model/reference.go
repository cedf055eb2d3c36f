package model

// CatalogEntry is one authoritative cadastral-municipality code/name pair.
// Entries are immutable once the catalog is loaded.
type CatalogEntry struct {
	Code           string `json:"code"`
	CanonicalName  string `json:"canonical_name"`
	NormalizedName string `json:"normalized_name"`
}

// ExtractionCandidate is a provisional reference proposed by one strategy
// before catalog validation. Confidence is fixed per strategy, not derived
// from text quality.
type ExtractionCandidate struct {
	StrategyName string
	ProposedCode string
	ProposedName string
	Confidence   float64
}

// ReferenceKind discriminates the three terminal extraction outcomes.
type ReferenceKind string

const (
	// ReferenceValidated means a candidate resolved to exactly one catalog entry.
	ReferenceValidated ReferenceKind = "validated"
	// ReferenceContextFallback means no candidate validated but the record
	// carried an administrative-unit label usable as coarse context.
	ReferenceContextFallback ReferenceKind = "context_fallback"
	// ReferenceUnresolved means no candidate validated and no fallback exists.
	ReferenceUnresolved ReferenceKind = "unresolved"
)

// ResolvedReference is the closed extraction outcome attached to an offer.
// Exactly one form is produced per record: a validated catalog entry with
// provenance, a context fallback, or unresolved.
type ResolvedReference struct {
	Kind ReferenceKind `json:"kind"`

	// Set when Kind == ReferenceValidated.
	Entry        *CatalogEntry `json:"entry,omitempty"`
	StrategyName string        `json:"strategy_name,omitempty"`
	Confidence   float64       `json:"confidence,omitempty"`

	// Set when Kind == ReferenceContextFallback.
	ContextUnit string `json:"context_unit,omitempty"`
}

// Validated reports whether the reference carries a catalog entry.
func (r *ResolvedReference) Validated() bool {
	return r != nil && r.Kind == ReferenceValidated && r.Entry != nil
}
