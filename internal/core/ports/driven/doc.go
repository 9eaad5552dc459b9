// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - TextExtractor: Reads per-page text out of a source file
//   - Chunker: Splits page text into overlapping windows
//   - DocumentStore: Document and chunk persistence (SQLite)
//   - OperationLog: Append-only audit trail
//   - FileStore: Durable copy of ingested files
//   - SyncLock: Cross-process lock around a library sync pass
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, ingestion and search are disabled.
//   - VectorIndex: Vector storage/search. Without it, ingestion and search are disabled.
//   - LLMService: Language model operations. Without it, answers are disabled.
//   - PromptStore: User-editable prompt templates. Defaults are used when nil.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
