package driving

import (
	"context"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// DocumentService exposes read-only views of the library.
type DocumentService interface {
	// List returns recent documents, newest first. Non-positive limit uses 100.
	List(ctx context.Context, limit int) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// Chunks returns the document's active chunks in page order.
	Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// Operations returns recent operation log entries. Non-positive limit uses 100.
	Operations(ctx context.Context, limit int) ([]domain.Operation, error)

	// VectorCount reports the vector index size.
	VectorCount(ctx context.Context) (int, error)
}
