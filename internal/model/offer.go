// Package model defines the shared domain types for the landsync pipeline.
package model

import "time"

// Offer is a single publicly listed land-offer record from the upstream
// bulletin board. The ID is assigned by the source and is stable across runs.
type Offer struct {
	ID           string `json:"id"`
	Title        string `json:"title,omitempty"`
	RawText      string `json:"raw_text,omitempty"`
	ContextUnit  string `json:"context_unit,omitempty"` // administrative unit label, fallback only
	Institution  string `json:"institution,omitempty"`
	NoticeNumber string `json:"notice_number,omitempty"`
	Published    string `json:"published,omitempty"`
	ValidUntil   string `json:"valid_until,omitempty"`
	DetailURL    string `json:"detail_url,omitempty"`
	DocumentURL  string `json:"document_url,omitempty"`

	// Reference is populated by the extraction flow. It is nil until a
	// record has been through the extractor at least once.
	Reference *ResolvedReference `json:"reference,omitempty"`
}

// Dataset is the persisted collection of offers plus bookkeeping metadata.
type Dataset struct {
	Metadata DatasetMetadata `json:"metadata"`
	Offers   []Offer         `json:"offers"`
}

// DatasetMetadata describes when and from where a dataset was assembled.
type DatasetMetadata struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	Source      string    `json:"source,omitempty"`
	TotalOffers int       `json:"total_offers"`
}
