package driven

import (
	"context"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
// Backends: a local SQLite collection, Qdrant, pgvector, or memory.
type VectorIndex interface {
	// Upsert inserts or replaces vectors keyed by record ID.
	Upsert(ctx context.Context, records []domain.VectorRecord) error

	// Query returns up to k hits ordered by descending similarity.
	Query(ctx context.Context, vector []float32, k int) ([]domain.VectorHit, error)

	// DeleteWhere removes every vector matched by filter.
	// An empty filter is rejected with domain.ErrInvalidInput.
	DeleteWhere(ctx context.Context, filter domain.VectorFilter) error

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
