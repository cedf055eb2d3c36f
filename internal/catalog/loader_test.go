package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestLoadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "register.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"2331": "Šembije",
		"0904": "Ravne",
		"1748": "Ljubljana mesto"
	}`), 0o644))

	cat, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cat.Len())

	e, err := cat.LookupByCode("904")
	require.NoError(t, err)
	assert.Equal(t, "Ravne", e.CanonicalName)
}

func TestLoadFileXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("KO")
	require.NoError(t, err)

	header := sheet.AddRow()
	header.AddCell().SetString("SIFKO")
	header.AddCell().SetString("IMEKO")
	for _, row := range [][2]string{
		{"2331", "Šembije"},
		{"0904", "Ravne"},
	} {
		r := sheet.AddRow()
		r.AddCell().SetString(row[0])
		r.AddCell().SetString(row[1])
	}

	path := filepath.Join(t.TempDir(), "register.xlsx")
	require.NoError(t, f.Save(path))

	cat, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())

	e, err := cat.LookupByName("Šembije")
	require.NoError(t, err)
	assert.Equal(t, "2331", e.Code)
}

func TestLoadFileRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "register.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
