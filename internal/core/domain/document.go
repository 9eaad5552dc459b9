package domain

import "time"

// DocumentStatus is the lifecycle state of a Document.
type DocumentStatus string

// Document lifecycle states.
const (
	// DocumentStatusOK means the active generation reflects a complete ingestion.
	DocumentStatusOK DocumentStatus = "ok"

	// DocumentStatusFailed means the last ingestion attempt did not complete.
	DocumentStatusFailed DocumentStatus = "failed"

	// DocumentStatusDeleted marks a tombstoned document whose backing file is gone.
	// Rows are never physically removed.
	DocumentStatusDeleted DocumentStatus = "deleted"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusOK, DocumentStatusFailed, DocumentStatusDeleted:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document represents one ingested source file.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title (the file name).
	Title string

	// Path is the location of the file in durable storage.
	Path string

	// Ext is the lower-cased file extension without the dot.
	Ext string

	// Pages is the number of extracted pages.
	Pages int

	// SizeBytes is the file size at ingestion time.
	SizeBytes int64

	// ContentHash is the hex sha256 digest of the file bytes.
	// Unique across the documents table.
	ContentHash string

	// Uploader tags who or what ingested the file ("local", "library", ...).
	Uploader string

	// ChunkingVersion is the chunking policy version used for the active generation.
	ChunkingVersion int

	// EmbeddingModel is the model that produced the active generation's vectors.
	EmbeddingModel string

	// Status is the lifecycle state.
	Status DocumentStatus

	// Generation identifies the active chunk generation.
	// Empty until the first successful ingestion.
	Generation string

	// CreatedAt is when the document was first recorded.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// IsDeleted reports whether the document has been tombstoned.
func (d *Document) IsDeleted() bool {
	return d.Status == DocumentStatusDeleted
}

// Page is one page of extracted text.
type Page struct {
	// Number starts at 1.
	Number int

	// Text is the raw extracted text.
	Text string
}

// Chunk is one contiguous, possibly overlapping slice of a document's text.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	// Only valid while its generation is active.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Generation is the ingestion generation this chunk belongs to.
	Generation string

	// Position is the ordinal position within the generation.
	Position int

	// PageFrom is the first page covered by the chunk.
	PageFrom int

	// PageTo is the last page covered by the chunk.
	PageTo int

	// Text is the chunk content.
	Text string

	// CreatedAt is when the chunk was staged.
	CreatedAt time.Time
}

// ChunkFilter selects chunk rows for deletion.
type ChunkFilter struct {
	// DocumentID is required.
	DocumentID string

	// Generation restricts the match to one generation.
	Generation string

	// ExcludeGeneration keeps chunks of this generation.
	ExcludeGeneration string
}
