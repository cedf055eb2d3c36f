package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/agrozem/landsync/internal/docparse"
	"github.com/agrozem/landsync/internal/model"
	"github.com/agrozem/landsync/internal/ocr"
)

// DocumentDeriver implements Deriver by running OCR text extraction and
// then the structured field parser.
type DocumentDeriver struct {
	extractor ocr.Extractor
}

// NewDocumentDeriver wires the standard OCR + parse deriver.
func NewDocumentDeriver(extractor ocr.Extractor) *DocumentDeriver {
	return &DocumentDeriver{extractor: extractor}
}

// Derive extracts text from the document and parses it into an
// EnrichmentResult.
func (d *DocumentDeriver) Derive(ctx context.Context, offerID string, document []byte) (*model.EnrichmentResult, error) {
	if len(document) == 0 {
		return nil, eris.Errorf("derive: empty document for offer %s", offerID)
	}

	text, err := d.extractor.ExtractText(ctx, document)
	if err != nil {
		return nil, eris.Wrapf(err, "derive: text extraction for offer %s", offerID)
	}

	ext := docparse.Parse(text)

	result := &model.EnrichmentResult{
		OfferID:        offerID,
		TemplateType:   ext.TemplateType,
		TotalPriceEUR:  ext.TotalPriceEUR,
		TotalAreaM2:    ext.TotalAreaM2,
		BuyerKnown:     ext.BuyerKnown,
		BuyerKnownConf: ext.BuyerKnownConf,
		Confidence:     ext.Confidence,
		Fields:         make(map[string]model.FieldValue),
		DerivedAt:      time.Now().UTC(),
	}

	for _, p := range ext.Plots {
		result.Plots = append(result.Plots, model.Plot{
			ParcelID:   p.ParcelID,
			AreaM2:     p.AreaM2,
			PriceEUR:   p.PriceEUR,
			Share:      p.Share,
			Confidence: p.Confidence,
		})
	}

	if ext.TotalPriceEUR != nil {
		result.Fields["total_price_eur"] = model.FieldValue{
			Value:      strconv.FormatFloat(*ext.TotalPriceEUR, 'f', 2, 64),
			Confidence: ext.Confidence,
		}
	}
	if ext.TotalAreaM2 != nil {
		result.Fields["total_area_m2"] = model.FieldValue{
			Value:      strconv.Itoa(*ext.TotalAreaM2),
			Confidence: ext.Confidence,
		}
	}
	result.Fields["buyer_known"] = model.FieldValue{
		Value:      strconv.FormatBool(ext.BuyerKnown),
		Confidence: ext.BuyerKnownConf,
	}

	return result, nil
}
