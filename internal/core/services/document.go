package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DefaultListLimit caps document and operation listings.
const DefaultListLimit = 100

// DocumentService exposes read-only views of the library.
type DocumentService struct {
	docs  driven.DocumentStore
	ops   driven.OperationLog
	index driven.VectorIndex
}

// NewDocumentService creates a document service. index may be nil.
func NewDocumentService(docs driven.DocumentStore, ops driven.OperationLog, index driven.VectorIndex) *DocumentService {
	return &DocumentService{docs: docs, ops: ops, index: index}
}

// List returns recent documents, newest first.
func (s *DocumentService) List(ctx context.Context, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	docs, err := s.docs.ListDocuments(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document id required: %w", domain.ErrInvalidInput)
	}
	return s.docs.GetDocument(ctx, documentID)
}

// Chunks returns the document's active chunks in page order.
func (s *DocumentService) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return s.docs.GetChunks(ctx, documentID)
}

// Operations returns recent operation log entries, newest first.
func (s *DocumentService) Operations(ctx context.Context, limit int) ([]domain.Operation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	ops, err := s.ops.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent operations: %w", err)
	}
	return ops, nil
}

// VectorCount reports the vector index size.
func (s *DocumentService) VectorCount(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, domain.ErrVectorIndexUnavailable
	}
	return s.index.Count(ctx)
}
