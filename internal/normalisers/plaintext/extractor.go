// Package plaintext extracts text files, splitting pages on form feeds.
package plaintext

import (
	"context"
	"os"
	"strings"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// formFeed separates pages in text exports of paged documents.
const formFeed = "\f"

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{"txt", "text"}
}

// Extract reads the file and splits it into pages on form-feed characters.
// A file without form feeds is a single page.
func (e *Extractor) Extract(_ context.Context, path string) ([]domain.Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewExtractionError(path, err)
	}
	return SplitPages(string(content)), nil
}

// SplitPages numbers each form-feed separated section from 1.
func SplitPages(content string) []domain.Page {
	parts := strings.Split(content, formFeed)
	pages := make([]domain.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, domain.Page{Number: i + 1, Text: part})
	}
	return pages
}
