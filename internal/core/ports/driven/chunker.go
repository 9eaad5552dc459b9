package driven

import "github.com/custodia-labs/brokerdesk/internal/core/domain"

// Chunker splits text into overlapping windows.
type Chunker interface {
	// Split normalises whitespace and returns ordered windows.
	// Empty or whitespace-only text yields no chunks.
	Split(text string, policy domain.ChunkPolicy) []string

	// ChunkPages splits every page and returns chunks for one generation,
	// positioned in page order and tagged with their page range.
	ChunkPages(documentID, generation string, pages []domain.Page, policy domain.ChunkPolicy) []domain.Chunk
}
