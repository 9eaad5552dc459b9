// Package domain defines the core business entities for brokerdesk.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested lender policy file with its lifecycle status
//   - Chunk: A retrievable slice of a document, tied to one generation
//   - VectorRecord: An embedding keyed by chunk id
//   - Operation: An append-only audit entry
//   - RetrievedChunk, Citation, Answer: Retrieval and answer results
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
