package model

import "time"

// Plot is a single parcel extracted from an offer document.
type Plot struct {
	ParcelID   string   `json:"parcel_id"`
	AreaM2     *int     `json:"area_m2,omitempty"`
	PriceEUR   *float64 `json:"price_eur,omitempty"`
	Share      string   `json:"share,omitempty"`
	Confidence float64  `json:"confidence"`
}

// FieldValue is one derived named field with its extraction confidence.
type FieldValue struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// EnrichmentResult holds everything derived from an offer's source document.
// Results are keyed by OfferID and immutable once cached; a later run never
// re-derives an offer unless explicitly forced.
type EnrichmentResult struct {
	OfferID           string                `json:"offer_id"`
	TemplateType      string                `json:"template_type"`
	Plots             []Plot                `json:"plots,omitempty"`
	TotalPriceEUR     *float64              `json:"total_price_eur,omitempty"`
	TotalAreaM2       *int                  `json:"total_area_m2,omitempty"`
	BuyerKnown        bool                  `json:"buyer_known"`
	BuyerKnownConf    float64               `json:"buyer_known_conf"`
	Fields            map[string]FieldValue `json:"fields,omitempty"`
	Confidence        float64               `json:"confidence"`
	SourceDocumentRef string                `json:"source_document_ref"`
	DerivedAt         time.Time             `json:"derived_at"`
}

// ParcelGeometry is an official parcel polygon fetched from the geodetic
// service, cached forever once obtained.
type ParcelGeometry struct {
	KOCode    string    `json:"ko_code"`
	ParcelID  string    `json:"parcel_id"`
	WKB       []byte    `json:"-"`
	AreaM2    *float64  `json:"area_m2,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Key returns the cache key for the geometry ("koCode/parcelID").
func (g ParcelGeometry) Key() string {
	return g.KOCode + "/" + g.ParcelID
}

// ParcelRef identifies a parcel pending geometry lookup.
type ParcelRef struct {
	KOCode   string `json:"ko_code"`
	ParcelID string `json:"parcel_id"`
}

// Key returns the cache key for the parcel ("koCode/parcelID").
func (p ParcelRef) Key() string {
	return p.KOCode + "/" + p.ParcelID
}
