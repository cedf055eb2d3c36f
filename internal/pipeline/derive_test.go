package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// textExtractor returns fixed text regardless of the document bytes.
type textExtractor struct {
	text string
	err  error
}

func (e textExtractor) ExtractText(context.Context, []byte) (string, error) {
	return e.text, e.err
}

func TestDeriveBuildsResult(t *testing.T) {
	d := NewDocumentDeriver(textExtractor{text: `
DOKUMENT JE ELEKTRONSKO PODPISAN
Parcelna številka: 123/4
Površina (m2): 5000
Cena/EUR: 15000.00
Cena skupaj: 15.000,00
KUPEC NI ZNAN
`})

	res, err := d.Derive(context.Background(), "100", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, "100", res.OfferID)
	assert.Equal(t, "electronic_form", res.TemplateType)
	require.Len(t, res.Plots, 1)
	assert.Equal(t, "123/4", res.Plots[0].ParcelID)
	require.NotNil(t, res.TotalPriceEUR)
	assert.Equal(t, 15000.0, *res.TotalPriceEUR)
	assert.False(t, res.BuyerKnown)
	assert.False(t, res.DerivedAt.IsZero())

	assert.Equal(t, "15000.00", res.Fields["total_price_eur"].Value)
	assert.Equal(t, "5000", res.Fields["total_area_m2"].Value)
	assert.Equal(t, "false", res.Fields["buyer_known"].Value)
	assert.Equal(t, 0.9, res.Fields["buyer_known"].Confidence)
}

func TestDeriveRejectsEmptyDocument(t *testing.T) {
	d := NewDocumentDeriver(textExtractor{text: "irrelevant"})

	_, err := d.Derive(context.Background(), "100", nil)
	require.Error(t, err)
}

func TestDerivePropagatesExtractionFailure(t *testing.T) {
	d := NewDocumentDeriver(textExtractor{err: assert.AnError})

	_, err := d.Derive(context.Background(), "100", []byte("%PDF"))
	require.Error(t, err)
}
