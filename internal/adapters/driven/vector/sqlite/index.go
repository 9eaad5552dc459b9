// Package sqlite provides a persistent vector index stored in a local SQLite file.
//
// Vectors are kept as little-endian float32 blobs and scored with exact cosine
// similarity at query time. Every Query reads the whole collection, so cost grows
// linearly with the number of chunks. That suits a single broker's library of a
// few thousand pages; larger libraries should set vector_index.backend to
// pgvector or qdrant.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	sqlitestore "github.com/custodia-labs/brokerdesk/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/vector"
	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DatabaseFile is the vector database name inside the data directory.
const DatabaseFile = "vectors.db"

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "doc_chunks"

var collectionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// largeCollection is the scan size above which Query warns once.
var largeCollection = 50000

// Index is a vector collection in its own SQLite table.
type Index struct {
	db    *sql.DB
	table string

	warnLarge sync.Once
}

// ValidateCollection reports whether name can be used as a collection table.
// An empty name means DefaultCollection.
func ValidateCollection(name string) error {
	if name != "" && !collectionName.MatchString(name) {
		return fmt.Errorf("collection name %q: %w", name, domain.ErrInvalidInput)
	}
	return nil
}

// New opens or creates the collection in <dataDir>/vectors.db.
func New(dataDir, collection string) (*Index, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sqlitestore.Open(filepath.Join(dataDir, DatabaseFile))
	if err != nil {
		return nil, err
	}

	idx := &Index{db: db, table: collection}
	if err := idx.init(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) init() error {
	_, err := idx.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			generation TEXT NOT NULL,
			dim INTEGER NOT NULL,
			embedding BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_document ON %[1]s(document_id, generation);
	`, idx.table))
	if err != nil {
		return domain.NewStoreError("creating vector collection", err)
	}
	return nil
}

// Upsert inserts or replaces vectors in one transaction.
func (idx *Index) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if _, err := vector.Validate(records); err != nil {
		return err
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStoreError("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, document_id, generation, dim, embedding) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			generation = excluded.generation,
			dim = excluded.dim,
			embedding = excluded.embedding
	`, idx.table))
	if err != nil {
		return domain.NewStoreError("preparing statement", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ChunkID, r.DocumentID, r.Generation,
			len(r.Vector), float32SliceToBytes(r.Vector)); err != nil {
			return domain.NewStoreError("upserting vector", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStoreError("committing transaction", err)
	}
	return nil
}

// Query scans vectors of the query's dimension and returns the k most similar.
func (idx *Index) Query(ctx context.Context, query []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}

	rows, err := idx.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, document_id, generation, embedding FROM %s WHERE dim = ? ORDER BY rowid", idx.table),
		len(query))
	if err != nil {
		return nil, domain.NewStoreError("querying vectors", err)
	}
	defer rows.Close()

	var records []domain.VectorRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.VectorRecord
		var blob []byte
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Generation, &blob); err != nil {
			return nil, domain.NewStoreError("scanning vector", err)
		}
		r.ChunkID = r.ID
		r.Vector = bytesToFloat32Slice(blob)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterating vectors", err)
	}

	if len(records) > largeCollection {
		idx.warnLarge.Do(func() {
			logger.Warn("vector index: scanning %d vectors per query; consider vector_index.backend = pgvector or qdrant",
				len(records))
		})
	}

	return vector.Rank(query, records, k), nil
}

// DeleteWhere removes vectors matching filter.
func (idx *Index) DeleteWhere(ctx context.Context, filter domain.VectorFilter) error {
	if err := vector.RequireFilter(filter); err != nil {
		return err
	}

	where, args := whereClause(filter)
	if _, err := idx.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", idx.table, where), args...); err != nil {
		return domain.NewStoreError("deleting vectors", err)
	}
	return nil
}

// whereClause renders filter as SQL conditions joined by AND.
func whereClause(filter domain.VectorFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.DocumentID != "" {
		conds = append(conds, "document_id = ?")
		args = append(args, filter.DocumentID)
	}
	if filter.Generation != "" {
		conds = append(conds, "generation = ?")
		args = append(args, filter.Generation)
	}
	if filter.ExcludeGeneration != "" {
		conds = append(conds, "generation != ?")
		args = append(args, filter.ExcludeGeneration)
	}
	if len(filter.ChunkIDs) > 0 {
		conds = append(conds, "id IN ("+strings.TrimSuffix(strings.Repeat("?,", len(filter.ChunkIDs)), ",")+")")
		for _, id := range filter.ChunkIDs {
			args = append(args, id)
		}
	}
	return strings.Join(conds, " AND "), args
}

// Count returns the number of stored vectors.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+idx.table).Scan(&n); err != nil {
		return 0, domain.NewStoreError("counting vectors", err)
	}
	return n, nil
}

// Close closes the database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
