package domain

import "time"

// OperationType classifies an operation log entry.
type OperationType string

// Operation types written by the pipeline.
const (
	OperationIngest            OperationType = "ingest"
	OperationIngestViaSync     OperationType = "ingest_via_sync"
	OperationIngestFailed      OperationType = "ingest_failed"
	OperationDeleteDocument    OperationType = "delete_document"
	OperationSupersedeDocument OperationType = "supersede_document"
	OperationSync              OperationType = "sync"
)

// String returns the string representation.
func (t OperationType) String() string {
	return string(t)
}

// Operation is an append-only audit record.
// Entries are never mutated or deleted.
type Operation struct {
	// ID is assigned by the store.
	ID int64

	// Type is the operation class.
	Type OperationType

	// Actor names who or what triggered the operation ("cli", "sync", "api", ...).
	Actor string

	// Detail is free text, usually the affected path or document id.
	Detail string

	CreatedAt time.Time
}
