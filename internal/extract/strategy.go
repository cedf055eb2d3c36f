// Package extract turns noisy offer descriptions into validated
// cadastral-municipality references.
package extract

import (
	"regexp"
	"strings"

	"github.com/agrozem/landsync/internal/model"
)

// Strategy scans raw text for one pattern and proposes at most one
// candidate reference. Candidates are provisional until validated against
// the catalog by the extractor.
type Strategy interface {
	Name() string
	Attempt(rawText string) *model.ExtractionCandidate
}

// Pattern notes: "k.o." (katastrska občina) markers appear with erratic
// spacing and punctuation in the source text. Name captures stop before
// parcel keywords so "k.o. Šembije parc. št. 123/4" does not swallow the
// parcel clause.
var (
	codeNameRe = regexp.MustCompile(`(?i)k\.?\s*o\.?\s*(\d{3,4})(?:\s*[-–]\s*|\s+)([\p{Lu}ČŠŽĆĐ][^\n,.]{1,40})`)
	nameOnlyRe = regexp.MustCompile(`(?i)k\.?\s*o\.?\s+([\p{Lu}ČŠŽĆĐ][\p{L}\s]{2,40}?)(?:\s+parc|\s+parcela|[,.\n]|$)`)
)

// codeNameStrategy matches the fully structured "marker + code + name"
// form. Highest specificity, highest confidence.
type codeNameStrategy struct{}

func (codeNameStrategy) Name() string { return "ko_code_name" }

func (codeNameStrategy) Attempt(rawText string) *model.ExtractionCandidate {
	m := codeNameRe.FindStringSubmatch(rawText)
	if m == nil {
		return nil
	}
	return &model.ExtractionCandidate{
		StrategyName: "ko_code_name",
		ProposedCode: m[1],
		ProposedName: strings.TrimSpace(m[2]),
		Confidence:   0.9,
	}
}

// nameOnlyStrategy matches "marker + name" with no code.
type nameOnlyStrategy struct{}

func (nameOnlyStrategy) Name() string { return "ko_name_only" }

func (nameOnlyStrategy) Attempt(rawText string) *model.ExtractionCandidate {
	m := nameOnlyRe.FindStringSubmatch(rawText)
	if m == nil {
		return nil
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return nil
	}
	return &model.ExtractionCandidate{
		StrategyName: "ko_name_only",
		ProposedName: name,
		Confidence:   0.85,
	}
}

// fuzzyNameStrategy reuses the name capture but validates through the
// fuzzy catalog lookup, catching OCR mangling and partial names. Short
// captures are rejected: two or three letters match half the register.
type fuzzyNameStrategy struct {
	threshold float64
}

func (fuzzyNameStrategy) Name() string { return "ko_name_fuzzy" }

func (s fuzzyNameStrategy) Attempt(rawText string) *model.ExtractionCandidate {
	m := nameOnlyRe.FindStringSubmatch(rawText)
	if m == nil {
		return nil
	}
	name := strings.TrimSpace(m[1])
	if len([]rune(name)) <= 5 {
		return nil
	}
	return &model.ExtractionCandidate{
		StrategyName: "ko_name_fuzzy",
		ProposedName: name,
		Confidence:   0.7,
	}
}
