// Package pgvector provides a vector index in PostgreSQL using the pgvector extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/vector"
	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultTable is used when no collection name is configured.
const DefaultTable = "doc_chunks"

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Config holds pgvector connection settings.
type Config struct {
	// URL is a PostgreSQL connection string.
	URL string

	// Table is the collection table name.
	Table string

	// Dimensions creates the table eagerly when non-zero.
	Dimensions int
}

// Validate checks the connection string and table name without connecting.
// An empty table name means DefaultTable.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.URL) == "" {
		return fmt.Errorf("pgvector requires vector_index.url: %w", domain.ErrInvalidInput)
	}
	if _, err := pgxpool.ParseConfig(cfg.URL); err != nil {
		return fmt.Errorf("pgvector url: %w: %w", domain.ErrInvalidInput, err)
	}
	if cfg.Table != "" && !tableName.MatchString(cfg.Table) {
		return fmt.Errorf("table name %q: %w", cfg.Table, domain.ErrInvalidInput)
	}
	return nil
}

// Index stores vectors in one PostgreSQL table.
type Index struct {
	pool  *pgxpool.Pool
	table string

	mu    sync.Mutex
	ready bool
}

// New opens a connection pool. The table is created on first upsert unless
// Dimensions is set.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing pgvector url: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		// The extension may not exist yet on first connect.
		if err := pgxvec.RegisterTypes(ctx, conn); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				return nil
			}
			return err
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, domain.NewStoreError("opening pgvector pool", err)
	}

	idx := &Index{pool: pool, table: cfg.Table}
	if cfg.Dimensions > 0 {
		if err := idx.ensureTable(ctx, cfg.Dimensions); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return idx, nil
}

func (idx *Index) ensureTable(ctx context.Context, dim int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.ready {
		return nil
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			generation TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, idx.table, dim),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %[1]s_document_idx ON %[1]s (document_id, generation)", idx.table),
	}
	for _, stmt := range stmts {
		if _, err := idx.pool.Exec(ctx, stmt); err != nil {
			return domain.NewStoreError("creating vector table", err)
		}
	}
	// Connections opened before the extension existed need the type registered.
	idx.pool.Reset()
	idx.ready = true
	return nil
}

// Upsert inserts or replaces vectors in one batch.
func (idx *Index) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	dim, err := vector.Validate(records)
	if err != nil {
		return err
	}
	if err := idx.ensureTable(ctx, dim); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, generation, embedding) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			generation = EXCLUDED.generation,
			embedding = EXCLUDED.embedding
	`, idx.table)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query, r.ChunkID, r.DocumentID, r.Generation, pgv.NewVector(r.Vector))
	}
	if err := idx.pool.SendBatch(ctx, batch).Close(); err != nil {
		return domain.NewStoreError("upserting vectors", err)
	}
	return nil
}

// Query orders by cosine distance and reports 1 - distance as similarity.
func (idx *Index) Query(ctx context.Context, query []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}

	rows, err := idx.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, document_id, generation, 1 - (embedding <=> $1) AS similarity
		FROM %s ORDER BY embedding <=> $1 LIMIT $2
	`, idx.table), pgv.NewVector(query), k)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, domain.NewStoreError("querying vectors", err)
	}
	defer rows.Close()

	var hits []domain.VectorHit
	for rows.Next() {
		var h domain.VectorHit
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.Generation, &h.Similarity); err != nil {
			return nil, domain.NewStoreError("scanning vector hit", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, domain.NewStoreError("iterating vector hits", err)
	}
	return hits, nil
}

// DeleteWhere removes vectors matching filter.
func (idx *Index) DeleteWhere(ctx context.Context, filter domain.VectorFilter) error {
	if err := vector.RequireFilter(filter); err != nil {
		return err
	}
	where, args := WhereClause(filter)
	if _, err := idx.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", idx.table, where), args...); err != nil {
		if isUndefinedTable(err) {
			return nil
		}
		return domain.NewStoreError("deleting vectors", err)
	}
	return nil
}

// WhereClause renders filter with numbered placeholders.
func WhereClause(filter domain.VectorFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.DocumentID != "" {
		add("document_id = $%d", filter.DocumentID)
	}
	if filter.Generation != "" {
		add("generation = $%d", filter.Generation)
	}
	if filter.ExcludeGeneration != "" {
		add("generation <> $%d", filter.ExcludeGeneration)
	}
	if len(filter.ChunkIDs) > 0 {
		add("id = ANY($%d)", filter.ChunkIDs)
	}
	return strings.Join(conds, " AND "), args
}

// Count returns the number of stored vectors.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := idx.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+idx.table).Scan(&n); err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, domain.NewStoreError("counting vectors", err)
	}
	return n, nil
}

// Close closes the pool.
func (idx *Index) Close() error {
	idx.pool.Close()
	return nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
