// Package ocr is the boundary to the document-text-extraction engine. The
// engine is an opaque external capability; this package only hands bytes
// in and plain text out.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/agrozem/landsync/internal/config"
)

// Extractor produces the plain-text content of a source document.
type Extractor interface {
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath, cfg.TempDir), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
