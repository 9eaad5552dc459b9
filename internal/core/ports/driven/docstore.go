package driven

import (
	"context"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// UpsertDocument stores a document, resolving identity by content hash first,
	// then by a non-deleted row with the same path, otherwise inserting.
	// The resolved row (with its stable ID) is returned. A matched row keeps its
	// status and generation; a tombstoned row matched by hash is revived.
	UpsertDocument(ctx context.Context, doc *domain.Document) (*domain.Document, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentByHash retrieves a document by content hash, deleted or not.
	GetDocumentByHash(ctx context.Context, hash string) (*domain.Document, error)

	// ListDocuments returns the most recently updated documents, newest first.
	// A non-positive limit returns every document.
	ListDocuments(ctx context.Context, limit int) ([]domain.Document, error)

	// ListByPath returns non-deleted documents stored at path.
	ListByPath(ctx context.Context, path string) ([]domain.Document, error)

	// SetStatus updates a document's lifecycle status.
	SetStatus(ctx context.Context, id string, status domain.DocumentStatus) error

	// InsertChunks stages chunks. Readers do not see them until their
	// generation is activated.
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error

	// ActivateGeneration makes generation the visible one for the document and
	// records the ingestion metadata, atomically.
	ActivateGeneration(ctx context.Context, activation GenerationActivation) error

	// DeleteChunks removes chunk rows matched by filter.
	DeleteChunks(ctx context.Context, filter domain.ChunkFilter) (int, error)

	// GetChunksByIDs hydrates chunks of active generations of non-deleted
	// documents. Unknown or stale ids are omitted; order is unspecified.
	GetChunksByIDs(ctx context.Context, ids []string) ([]domain.RetrievedChunk, error)

	// GetChunks retrieves the active chunks for a document in page order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
}

// GenerationActivation carries the fields written when a generation goes live.
type GenerationActivation struct {
	DocumentID      string
	Generation      string
	Pages           int
	ChunkingVersion int
	EmbeddingModel  string
}

// OperationLog is the append-only audit trail.
type OperationLog interface {
	// Append records an operation. ID and CreatedAt are assigned when unset.
	Append(ctx context.Context, op domain.Operation) error

	// Recent returns the latest operations, newest first.
	Recent(ctx context.Context, limit int) ([]domain.Operation, error)
}
