// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DocumentStore: Document and chunk persistence, with generation-staged chunks
//   - OperationLog: Append-only operations_log table
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Generations
//
// Chunks carry the generation they were staged under. A document's generation
// column names the visible one; readers join on it, so staging a new generation
// never exposes partial results.
//
// # Data Location
//
// By default, the database is stored at ~/.brokerdesk/data/library.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
