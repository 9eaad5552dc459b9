package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, backend or file format.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncLocked indicates another sync pass holds the library lock.
	// Library sync reports it as a status, never as a failure.
	ErrSyncLocked = errors.New("sync locked")

	// ErrNameConflict indicates durable storage already holds a different file
	// under the same name.
	ErrNameConflict = errors.New("name conflict")

	// ErrExtraction indicates a source file is missing, unreadable or not supported.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbeddingProvider indicates the embedding or LLM service call failed.
	ErrEmbeddingProvider = errors.New("provider request failed")

	// ErrStore indicates a relational store or vector index operation failed.
	ErrStore = errors.New("store operation failed")

	// ErrUnrecognisedResponse indicates a provider payload did not match its schema.
	ErrUnrecognisedResponse = errors.New("unrecognised provider response")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer composition is disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Ingestion and retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)

// ExtractionError reports a failure to read text out of a source file.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

// Unwrap lets errors.Is match both ErrExtraction and the cause.
func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtraction, e.Err}
}

// NewExtractionError wraps err as an ExtractionError for path.
func NewExtractionError(path string, err error) error {
	return &ExtractionError{Path: path, Err: err}
}

// ProviderError reports an embedding or LLM HTTP failure.
type ProviderError struct {
	// Provider is the adapter name ("openai", "ollama", ...).
	Provider string

	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int

	// Retryable is true for transient failure classes (network, 408, 429, 5xx).
	Retryable bool

	Err error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Unwrap lets errors.Is match both ErrEmbeddingProvider and the cause.
func (e *ProviderError) Unwrap() []error {
	return []error{ErrEmbeddingProvider, e.Err}
}

// StoreError reports a failed relational or vector operation.
type StoreError struct {
	// Op names the failed operation ("upsert document", "query vectors", ...).
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap lets errors.Is match both ErrStore and the cause.
func (e *StoreError) Unwrap() []error {
	return []error{ErrStore, e.Err}
}

// NewStoreError wraps err as a StoreError for op. A nil err stays nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
