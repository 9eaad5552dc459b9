package normalisers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry selects an extractor by file extension.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.TextExtractor
}

// NewRegistry creates a registry holding the given extractors.
func NewRegistry(extractors ...driven.TextExtractor) *Registry {
	r := &Registry{extractors: make(map[string]driven.TextExtractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds an extractor for each of its extensions.
func (r *Registry) Register(extractor driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range extractor.SupportedExtensions() {
		r.extractors[normaliseExt(ext)] = extractor
	}
}

// SupportedExtensions returns every registered extension, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// Extract dispatches to the extractor for path's extension.
func (r *Registry) Extract(ctx context.Context, path string) ([]domain.Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.NewExtractionError(path, err)
	}
	if info.IsDir() {
		return nil, domain.NewExtractionError(path, fmt.Errorf("is a directory: %w", domain.ErrInvalidInput))
	}

	extractor, ok := r.lookup(path)
	if !ok {
		return nil, domain.NewExtractionError(path,
			fmt.Errorf("extension %q: %w", filepath.Ext(path), domain.ErrUnsupportedType))
	}
	return extractor.Extract(ctx, path)
}

func (r *Registry) lookup(path string) (driven.TextExtractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[normaliseExt(filepath.Ext(path))]
	return e, ok
}

// Ext returns the lower-cased extension of path without the dot.
func Ext(path string) string {
	return normaliseExt(filepath.Ext(path))
}

func normaliseExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
