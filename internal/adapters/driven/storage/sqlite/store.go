package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// DatabaseFile is the metadata database name inside the data directory.
const DatabaseFile = "library.db"

// Store is a unified SQLite-based storage that provides access to
// the metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.brokerdesk/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".brokerdesk", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  func() time.Time { return time.Now().UTC() },
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Open opens a SQLite database in WAL mode with a busy timeout and foreign keys on.
func Open(dbPath string) (*sql.DB, error) {
	// WAL lets readers proceed while a sync pass writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// OperationLog returns an OperationLog interface backed by this store.
func (s *Store) OperationLog() driven.OperationLog {
	return &operationLog{store: s}
}

// migrate runs all pending migrations.
// Each migration file records its own version in schema_migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, title, path, ext, pages, size_bytes, content_hash, uploader,
	chunking_version, embedding_model, status, generation, created_at, updated_at`

// UpsertDocument resolves identity by content hash, then by live path, then inserts.
func (s *documentStore) UpsertDocument(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	if doc == nil || doc.ContentHash == "" || doc.Path == "" {
		return nil, fmt.Errorf("upsert document: hash and path required: %w", domain.ErrInvalidInput)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewStoreError("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := s.store.now()
	uploader := doc.Uploader
	if uploader == "" {
		uploader = "local"
	}

	id, err := matchDocument(ctx, tx, doc.ContentHash, doc.Path)
	if err != nil {
		return nil, err
	}

	if id == "" {
		id = doc.ID
		if id == "" {
			id = uuid.New().String()
		}
		// Status stays failed until a generation is activated.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (id, title, path, ext, pages, size_bytes, content_hash, uploader,
				chunking_version, embedding_model, status, generation, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?)
		`, id, doc.Title, doc.Path, doc.Ext, doc.Pages, doc.SizeBytes, doc.ContentHash, uploader,
			doc.ChunkingVersion, doc.EmbeddingModel, string(domain.DocumentStatusFailed), now, now)
		if err != nil {
			return nil, domain.NewStoreError("inserting document", err)
		}
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET
				title = ?, path = ?, ext = ?, size_bytes = ?, content_hash = ?, uploader = ?, updated_at = ?
			WHERE id = ?
		`, doc.Title, doc.Path, doc.Ext, doc.SizeBytes, doc.ContentHash, uploader, now, id)
		if err != nil {
			return nil, domain.NewStoreError("updating document", err)
		}
	}

	stored, err := scanDocument(tx.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.NewStoreError("committing transaction", err)
	}
	return stored, nil
}

// matchDocument returns the id of the row to update, or "" to insert.
func matchDocument(ctx context.Context, tx *sql.Tx, hash, path string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, "SELECT id FROM documents WHERE content_hash = ?", hash).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", domain.NewStoreError("matching document by hash", err)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT id FROM documents WHERE path = ? AND status != ?
		ORDER BY updated_at DESC LIMIT 1
	`, path, string(domain.DocumentStatusDeleted)).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	default:
		return "", domain.NewStoreError("matching document by path", err)
	}
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	return scanDocument(row)
}

// GetDocumentByHash retrieves a document by content hash.
func (s *documentStore) GetDocumentByHash(ctx context.Context, hash string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE content_hash = ?", hash)
	return scanDocument(row)
}

// ListDocuments returns the most recently updated documents.
func (s *documentStore) ListDocuments(ctx context.Context, limit int) ([]domain.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents ORDER BY updated_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStoreError("querying documents", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ListByPath returns non-deleted documents at path.
func (s *documentStore) ListByPath(ctx context.Context, path string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE path = ? AND status != ? ORDER BY updated_at DESC",
		path, string(domain.DocumentStatusDeleted))
	if err != nil {
		return nil, domain.NewStoreError("querying documents by path", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// SetStatus updates a document's lifecycle status.
func (s *documentStore) SetStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("status %q: %w", status, domain.ErrInvalidInput)
	}

	res, err := s.store.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, updated_at = ? WHERE id = ?",
		string(status), s.store.now(), id)
	if err != nil {
		return domain.NewStoreError("updating document status", err)
	}
	return requireAffected(res)
}

// InsertChunks stages chunks in one transaction.
func (s *documentStore) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStoreError("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, generation, position, page_from, page_to, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return domain.NewStoreError("preparing statement", err)
	}
	defer stmt.Close()

	now := s.store.now()
	for _, chunk := range chunks {
		createdAt := chunk.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Generation,
			chunk.Position, chunk.PageFrom, chunk.PageTo, chunk.Text, createdAt); err != nil {
			return domain.NewStoreError("inserting chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStoreError("committing transaction", err)
	}
	return nil
}

// ActivateGeneration switches the visible generation and records ingestion metadata.
func (s *documentStore) ActivateGeneration(ctx context.Context, a driven.GenerationActivation) error {
	if a.DocumentID == "" || a.Generation == "" {
		return fmt.Errorf("activate generation: %w", domain.ErrInvalidInput)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET
			generation = ?, status = ?, pages = ?, chunking_version = ?, embedding_model = ?, updated_at = ?
		WHERE id = ?
	`, a.Generation, string(domain.DocumentStatusOK), a.Pages, a.ChunkingVersion, a.EmbeddingModel,
		s.store.now(), a.DocumentID)
	if err != nil {
		return domain.NewStoreError("activating generation", err)
	}
	return requireAffected(res)
}

// DeleteChunks removes chunk rows matched by filter.
func (s *documentStore) DeleteChunks(ctx context.Context, filter domain.ChunkFilter) (int, error) {
	if filter.DocumentID == "" {
		return 0, fmt.Errorf("delete chunks: document id required: %w", domain.ErrInvalidInput)
	}

	query := "DELETE FROM chunks WHERE document_id = ?"
	args := []any{filter.DocumentID}
	if filter.Generation != "" {
		query += " AND generation = ?"
		args = append(args, filter.Generation)
	}
	if filter.ExcludeGeneration != "" {
		query += " AND generation != ?"
		args = append(args, filter.ExcludeGeneration)
	}

	res, err := s.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, domain.NewStoreError("deleting chunks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.NewStoreError("deleting chunks", err)
	}
	return int(n), nil
}

// GetChunksByIDs hydrates live chunks with their document title in one query.
func (s *documentStore) GetChunksByIDs(ctx context.Context, ids []string) ([]domain.RetrievedChunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(domain.DocumentStatusDeleted))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, d.title, c.page_from, c.page_to, c.text
		FROM chunks c
		JOIN documents d ON d.id = c.document_id AND d.generation = c.generation
		WHERE d.status != ? AND c.id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, domain.NewStoreError("querying chunks by ids", err)
	}
	defer rows.Close()

	var out []domain.RetrievedChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rc domain.RetrievedChunk
		if err := rows.Scan(&rc.ChunkID, &rc.DocumentID, &rc.Title, &rc.PageFrom, &rc.PageTo, &rc.Text); err != nil {
			return nil, domain.NewStoreError("scanning chunk", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterating chunks", err)
	}
	return out, nil
}

// GetChunks retrieves the active chunks for a document.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.generation, c.position, c.page_from, c.page_to, c.text, c.created_at
		FROM chunks c
		JOIN documents d ON d.id = c.document_id AND d.generation = c.generation
		WHERE c.document_id = ?
		ORDER BY c.page_from, c.position
	`, documentID)
	if err != nil {
		return nil, domain.NewStoreError("querying chunks", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Generation, &c.Position,
			&c.PageFrom, &c.PageTo, &c.Text, &c.CreatedAt); err != nil {
			return nil, domain.NewStoreError("scanning chunk", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterating chunks", err)
	}
	return chunks, nil
}

// ==================== Operation Log ====================

// operationLog implements driven.OperationLog.
type operationLog struct {
	store *Store
}

var _ driven.OperationLog = (*operationLog)(nil)

// Append records an operation.
func (s *operationLog) Append(ctx context.Context, op domain.Operation) error {
	createdAt := op.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.store.now()
	}
	actor := op.Actor
	if actor == "" {
		actor = "system"
	}

	_, err := s.store.db.ExecContext(ctx,
		"INSERT INTO operations_log (op_type, actor, detail, created_at) VALUES (?, ?, ?, ?)",
		string(op.Type), actor, op.Detail, createdAt)
	if err != nil {
		return domain.NewStoreError("appending operation", err)
	}
	return nil
}

// Recent returns the latest operations, newest first.
func (s *operationLog) Recent(ctx context.Context, limit int) ([]domain.Operation, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, op_type, actor, detail, created_at
		FROM operations_log ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, domain.NewStoreError("querying operations", err)
	}
	defer rows.Close()

	var ops []domain.Operation //nolint:prealloc // size unknown from query
	for rows.Next() {
		var op domain.Operation
		var opType string
		if err := rows.Scan(&op.ID, &opType, &op.Actor, &op.Detail, &op.CreatedAt); err != nil {
			return nil, domain.NewStoreError("scanning operation", err)
		}
		op.Type = domain.OperationType(opType)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterating operations", err)
	}
	return ops, nil
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status string

	if err := row.Scan(&doc.ID, &doc.Title, &doc.Path, &doc.Ext, &doc.Pages, &doc.SizeBytes,
		&doc.ContentHash, &doc.Uploader, &doc.ChunkingVersion, &doc.EmbeddingModel,
		&status, &doc.Generation, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStoreError("scanning document", err)
	}
	doc.Status = domain.DocumentStatus(status)

	return &doc, nil
}

// scanDocuments drains rows into documents.
func scanDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterating documents", err)
	}
	return docs, nil
}

// requireAffected maps a zero-row update to domain.ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStoreError("reading affected rows", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
