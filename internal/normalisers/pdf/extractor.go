// Package pdf extracts per-page text from PDF files.
package pdf

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor reads PDF pages with github.com/ledongthuc/pdf.
type Extractor struct{}

// New creates a new PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{"pdf"}
}

// Extract returns one Page per PDF page, numbered from 1.
// Pages without a content stream yield empty text rather than an error.
func (e *Extractor) Extract(ctx context.Context, path string) (pages []domain.Page, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, domain.NewExtractionError(path, err)
	}
	defer f.Close()

	// The reader panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = domain.NewExtractionError(path, fmt.Errorf("malformed pdf: %v", rec))
		}
	}()

	total := r.NumPage()
	pages = make([]domain.Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, domain.Page{Number: i})
			continue
		}

		fonts := make(map[string]*pdf.Font)
		for _, name := range p.Fonts() {
			font := p.Font(name)
			fonts[name] = &font
		}

		text, err := p.GetPlainText(fonts)
		if err != nil {
			return nil, domain.NewExtractionError(path, fmt.Errorf("page %d: %w", i, err))
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}

	return pages, nil
}
