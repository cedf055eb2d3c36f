// Package docparse extracts structured fields from the plain text of an
// offer document. Input text comes from the OCR layer and is treated as
// untrusted: every numeric field is range-checked before acceptance.
package docparse

import (
	"regexp"
	"strconv"
	"strings"
)

// Template types, in rough order of extraction reliability.
const (
	TemplateElectronic = "electronic_form"
	TemplateTable      = "table_format"
	TemplateSKZG       = "skzg"
	TemplateGeneric    = "generic"
)

// Extraction is the parsed content of one document.
type Extraction struct {
	TemplateType   string
	Plots          []PlotExtraction
	TotalPriceEUR  *float64
	TotalAreaM2    *int
	BuyerKnown     bool
	BuyerKnownConf float64
	Confidence     float64
}

// PlotExtraction is one parcel row pulled from the document.
type PlotExtraction struct {
	ParcelID   string
	AreaM2     *int
	PriceEUR   *float64
	Share      string
	Confidence float64
}

var (
	electronicSignRe = regexp.MustCompile(`(?i)DOKUMENT JE ELEKTRONSKO PODPISAN`)
	electronicDocRe  = regexp.MustCompile(`(?i)Oznaka dokumenta.*?\d+-\d+`)
	skzgFundRe       = regexp.MustCompile(`(?i)Sklad kmetijskih zemljišč`)
	skzgOfferRe      = regexp.MustCompile(`(?i)PONUDBO št`)

	parcelIDRe = regexp.MustCompile(`\b(\d{1,4}/\d{1,3})\b`)

	eFormParcelRe = regexp.MustCompile(`(?i)Parcelna številka:[\s\n]*(\d+/\d+)`)
	eFormPriceRe  = regexp.MustCompile(`(?i)Cena[/\s]*EUR:[\s\n]*(\d+(?:\.\d{2})?)`)
	eFormAreaRe   = regexp.MustCompile(`(?i)Površina \(m[2²]?\):[\s\n]*(\d+)`)
	eFormShareRe  = regexp.MustCompile(`(?i)kakšen delež.*?prodajate.*?[\s\n]*(\d+/\d+)`)

	totalPriceRe   = regexp.MustCompile(`(?i)Cena skupaj:[\s\n]*(\d{1,6}(?:[.,]\d{3})*(?:[.,]\d{2})?)`)
	looseEURRe     = regexp.MustCompile(`(\d{1,6}[.,]\d{3}[.,]\d{2})\s*EUR`)
	buyerKnownRe   = regexp.MustCompile(`(?i)KUPEC\s+(?:JE\s+)?ZNAN`)
	buyerUnknownRe = regexp.MustCompile(`(?i)KUPEC\s+NI\s+ZNAN`)
	buyerLooseRe   = regexp.MustCompile(`(?i)kupec.*?znan`)

	areaCandidateRe = regexp.MustCompile(`\b(\d{1,6})\b`)
)

// maxGenericPlots caps fallback parcel harvesting to limit regex false
// positives on dense documents.
const maxGenericPlots = 30

// Parse extracts structured data from document text. It never fails; a
// document yielding nothing produces an Extraction with low confidence.
func Parse(text string) Extraction {
	template := detectTemplate(text)

	var ext Extraction
	switch template {
	case TemplateElectronic:
		ext = parseElectronic(text)
	case TemplateTable:
		ext = parseProximity(text, 0.6)
	case TemplateSKZG:
		ext = parseProximity(text, 0.7)
	default:
		ext = parseGeneric(text)
	}

	ext.TemplateType = template
	if ext.TotalPriceEUR == nil {
		ext.TotalPriceEUR = parseTotalPrice(text)
	}
	ext.BuyerKnown, ext.BuyerKnownConf = parseBuyerKnown(text)
	ext.Confidence = scoreConfidence(ext)
	return ext
}

func detectTemplate(text string) string {
	if electronicSignRe.MatchString(text) || electronicDocRe.MatchString(text) {
		return TemplateElectronic
	}
	if skzgFundRe.MatchString(text) || skzgOfferRe.MatchString(text) {
		return TemplateSKZG
	}
	if len(parcelIDRe.FindAllString(text, -1)) >= 5 {
		return TemplateTable
	}
	return TemplateGeneric
}

// parseElectronic handles the electronic form, where fields are grouped by
// type (all parcels, then all areas, then all prices) and are matched up
// positionally.
func parseElectronic(text string) Extraction {
	var ext Extraction

	var parcels []string
	for _, m := range eFormParcelRe.FindAllStringSubmatch(text, -1) {
		parcels = append(parcels, m[1])
	}

	var prices []*float64
	for _, m := range eFormPriceRe.FindAllStringSubmatch(text, -1) {
		prices = append(prices, parseFloat(m[1]))
	}

	var areas []*int
	for _, m := range eFormAreaRe.FindAllStringSubmatch(text, -1) {
		areas = append(areas, parseInt(m[1]))
	}

	var shares []string
	for _, m := range eFormShareRe.FindAllStringSubmatch(text, -1) {
		shares = append(shares, m[1])
	}

	for i, parcelID := range parcels {
		plot := PlotExtraction{
			ParcelID:   parcelID,
			Share:      "1/1",
			Confidence: 0.9, // labeled fields
		}
		if i < len(areas) {
			plot.AreaM2 = areas[i]
		}
		if i < len(prices) {
			plot.PriceEUR = prices[i]
		}
		if i < len(shares) {
			plot.Share = shares[i]
		}
		ext.Plots = append(ext.Plots, plot)
	}

	ext.TotalPriceEUR = parseTotalPrice(text)
	ext.TotalAreaM2 = sumAreas(ext.Plots)
	return ext
}

// parseProximity handles table-like documents: each parcel id is paired
// with the nearest plausible area figure in the 100 characters after it.
func parseProximity(text string, confidence float64) Extraction {
	var ext Extraction

	for _, loc := range parcelIDRe.FindAllStringSubmatchIndex(text, -1) {
		parcelID := text[loc[2]:loc[3]]

		end := loc[1] + 100
		if end > len(text) {
			end = len(text)
		}
		context := text[loc[1]:end]

		plot := PlotExtraction{
			ParcelID:   parcelID,
			Share:      "1/1",
			Confidence: confidence,
		}
		if m := areaCandidateRe.FindStringSubmatch(context); m != nil {
			if area := parseInt(m[1]); area != nil && plausibleArea(*area) {
				plot.AreaM2 = area
			}
		}
		ext.Plots = append(ext.Plots, plot)
	}

	// Too many rows means the parcel regex is matching noise.
	if len(ext.Plots) == 0 || len(ext.Plots) > 50 {
		return parseGeneric(text)
	}
	return ext
}

// parseGeneric is the low-confidence fallback: deduplicated parcel ids
// only, no associated figures.
func parseGeneric(text string) Extraction {
	var ext Extraction
	seen := make(map[string]bool)

	for _, m := range parcelIDRe.FindAllStringSubmatch(text, -1) {
		if seen[m[1]] || len(seen) >= maxGenericPlots {
			continue
		}
		seen[m[1]] = true
		ext.Plots = append(ext.Plots, PlotExtraction{
			ParcelID:   m[1],
			Share:      "1/1",
			Confidence: 0.4,
		})
	}
	return ext
}

func parseTotalPrice(text string) *float64 {
	if m := totalPriceRe.FindStringSubmatch(text); m != nil {
		if v := parseSlovenianAmount(m[1]); v != nil {
			return v
		}
	}
	if m := looseEURRe.FindStringSubmatch(text); m != nil {
		if v := parseSlovenianAmount(m[1]); v != nil && *v >= 100 {
			return v
		}
	}
	return nil
}

func parseBuyerKnown(text string) (bool, float64) {
	if buyerUnknownRe.MatchString(text) {
		return false, 0.9
	}
	if buyerKnownRe.MatchString(text) {
		return true, 0.95
	}
	if buyerLooseRe.MatchString(text) {
		return true, 0.8
	}
	return false, 0.5
}

// scoreConfidence combines average plot confidence with a completeness
// bonus for areas, total price, buyer status and multi-plot documents.
func scoreConfidence(ext Extraction) float64 {
	if len(ext.Plots) == 0 {
		return 0.1
	}

	var sum float64
	hasAreas := false
	for _, p := range ext.Plots {
		sum += p.Confidence
		if p.AreaM2 != nil {
			hasAreas = true
		}
	}
	avg := sum / float64(len(ext.Plots))

	completeness := 0.0
	if hasAreas {
		completeness += 0.4
	}
	if ext.TotalPriceEUR != nil {
		completeness += 0.3
	}
	if ext.BuyerKnown {
		completeness += 0.2
	}
	if len(ext.Plots) >= 2 {
		completeness += 0.1
	}

	score := (avg + completeness) / 2
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// plausibleArea rejects years and out-of-range figures when scanning loose
// context for parcel areas.
func plausibleArea(v int) bool {
	if v >= 1900 && v <= 2100 {
		return false
	}
	return v >= 1 && v <= 999999
}

// parseSlovenianAmount handles "21.000,00" style amounts where the dot is
// a thousands separator and the comma a decimal mark.
func parseSlovenianAmount(s string) *float64 {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return parseFloat(s)
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func sumAreas(plots []PlotExtraction) *int {
	total := 0
	for _, p := range plots {
		if p.AreaM2 != nil {
			total += *p.AreaM2
		}
	}
	if total == 0 {
		return nil
	}
	return &total
}
