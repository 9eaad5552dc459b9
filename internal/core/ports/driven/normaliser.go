package driven

import (
	"context"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// TextExtractor reads per-page plain text out of a source file.
// Extraction has no side effects and is safe to repeat.
type TextExtractor interface {
	// SupportedExtensions returns lower-case extensions without the dot.
	SupportedExtensions() []string

	// Extract returns pages numbered from 1.
	// Failures are reported as *domain.ExtractionError.
	Extract(ctx context.Context, path string) ([]domain.Page, error)
}

// ExtractorRegistry dispatches a file to the extractor for its extension.
type ExtractorRegistry interface {
	TextExtractor

	// Register adds an extractor, replacing any previous owner of its extensions.
	Register(extractor TextExtractor)

	// Supports reports whether path has a registered extension.
	Supports(path string) bool
}
