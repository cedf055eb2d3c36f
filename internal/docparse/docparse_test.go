package docparse

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const electronicFormText = `
Vloga za prodajo kmetijskega zemljišča
DOKUMENT JE ELEKTRONSKO PODPISAN

Parcelna številka: 123/4
Parcelna številka: 125/1

Površina (m2): 5000
Površina (m2): 3200

Cena/EUR: 15000.00
Cena/EUR: 9600.00

Cena skupaj: 24.600,00
KUPEC NI ZNAN
`

func TestDetectTemplate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "electronic signature", text: "DOKUMENT JE ELEKTRONSKO PODPISAN", want: TemplateElectronic},
		{name: "skzg fund", text: "Sklad kmetijskih zemljišč in gozdov objavlja", want: TemplateSKZG},
		{name: "skzg offer", text: "objavlja PONUDBO št. 43/2025", want: TemplateSKZG},
		{
			name: "many parcels means table",
			text: "1/1 22/2 333/3 44/4 55/5 parcele",
			want: TemplateTable,
		},
		{name: "plain text", text: "prodaja zemljišča parc. št. 123/4", want: TemplateGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectTemplate(tt.text))
		})
	}
}

func TestParseElectronicForm(t *testing.T) {
	ext := Parse(electronicFormText)

	assert.Equal(t, TemplateElectronic, ext.TemplateType)
	require.Len(t, ext.Plots, 2)

	assert.Equal(t, "123/4", ext.Plots[0].ParcelID)
	require.NotNil(t, ext.Plots[0].AreaM2)
	assert.Equal(t, 5000, *ext.Plots[0].AreaM2)
	require.NotNil(t, ext.Plots[0].PriceEUR)
	assert.Equal(t, 15000.0, *ext.Plots[0].PriceEUR)
	assert.Equal(t, "1/1", ext.Plots[0].Share)

	assert.Equal(t, "125/1", ext.Plots[1].ParcelID)
	require.NotNil(t, ext.Plots[1].AreaM2)
	assert.Equal(t, 3200, *ext.Plots[1].AreaM2)

	require.NotNil(t, ext.TotalPriceEUR)
	assert.Equal(t, 24600.0, *ext.TotalPriceEUR)
	require.NotNil(t, ext.TotalAreaM2)
	assert.Equal(t, 8200, *ext.TotalAreaM2)

	assert.False(t, ext.BuyerKnown)
	assert.Equal(t, 0.9, ext.BuyerKnownConf)
	assert.Greater(t, ext.Confidence, 0.5)
}

func TestParseSKZGPairsNearbyAreas(t *testing.T) {
	text := `Sklad kmetijskih zemljišč in gozdov Republike Slovenije
parcela 123/4 njiva 4500 m2
`
	ext := Parse(text)

	assert.Equal(t, TemplateSKZG, ext.TemplateType)
	require.Len(t, ext.Plots, 1)
	assert.Equal(t, "123/4", ext.Plots[0].ParcelID)
	require.NotNil(t, ext.Plots[0].AreaM2)
	assert.Equal(t, 4500, *ext.Plots[0].AreaM2)
	assert.Equal(t, 0.7, ext.Plots[0].Confidence)
}

func TestParseProximityRejectsYearAsArea(t *testing.T) {
	text := `Sklad kmetijskih zemljišč
parcela 123/4 z dne 2025
`
	ext := Parse(text)

	require.Len(t, ext.Plots, 1)
	assert.Nil(t, ext.Plots[0].AreaM2, "a year must not be read as an area")
}

func TestParseGenericDeduplicates(t *testing.T) {
	text := "zemljišči parc. št. 123/4 in 125/1, pri čemer se 123/4 prodaja v celoti"
	ext := Parse(text)

	assert.Equal(t, TemplateGeneric, ext.TemplateType)
	require.Len(t, ext.Plots, 2)
	assert.Equal(t, "123/4", ext.Plots[0].ParcelID)
	assert.Equal(t, "125/1", ext.Plots[1].ParcelID)
	assert.Equal(t, 0.4, ext.Plots[0].Confidence)
}

func TestParseGenericCapsPlotCount(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 60; i++ {
		fmt.Fprintf(&sb, "%d/1 ", i)
	}
	ext := parseGeneric(sb.String())
	assert.Len(t, ext.Plots, maxGenericPlots)
}

func TestParseTotalPrice(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *float64
	}{
		{name: "labeled slovenian format", text: "Cena skupaj: 21.000,00", want: ptr(21000.0)},
		{name: "loose eur suffix", text: "za skupno vrednost 12.500,00 EUR", want: ptr(12500.0)},
		{name: "absent", text: "brez cene", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTotalPrice(tt.text)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestParseBuyerKnown(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     bool
		wantConf float64
	}{
		{name: "explicitly unknown", text: "KUPEC NI ZNAN", want: false, wantConf: 0.9},
		{name: "explicitly known", text: "KUPEC JE ZNAN", want: true, wantConf: 0.95},
		{name: "known without je", text: "KUPEC ZNAN", want: true, wantConf: 0.95},
		{name: "loose mention", text: "kupec je že znan prodajalcu", want: true, wantConf: 0.8},
		{name: "no mention", text: "prodaja zemljišča", want: false, wantConf: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conf := parseBuyerKnown(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantConf, conf)
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	ext := Parse("")
	assert.Empty(t, ext.Plots)
	assert.Equal(t, 0.1, ext.Confidence)
	assert.Nil(t, ext.TotalPriceEUR)
}

func TestPlausibleArea(t *testing.T) {
	assert.True(t, plausibleArea(4500))
	assert.True(t, plausibleArea(1))
	assert.False(t, plausibleArea(2025), "years are rejected")
	assert.False(t, plausibleArea(0))
	assert.False(t, plausibleArea(1000000))
}

func ptr(v float64) *float64 { return &v }
