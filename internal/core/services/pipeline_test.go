package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/embedding/mock"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/filestore"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/lock"
	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/storage/memory"
	vectormemory "github.com/custodia-labs/brokerdesk/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
	"github.com/custodia-labs/brokerdesk/internal/normalisers"
	"github.com/custodia-labs/brokerdesk/internal/normalisers/plaintext"
	"github.com/custodia-labs/brokerdesk/internal/postprocessors/chunker"
)

// --- Shared fixtures for pipeline tests ---

// pipeline wires the ingest and sync services over in-memory stores.
type pipeline struct {
	library  string
	dataDir  string
	files    *filestore.Store
	lock     *lock.FileLock
	docs     *memory.DocumentStore
	ops      *memory.OperationLog
	index    *vectormemory.Index
	embedder driven.EmbeddingService
	cfg      IngestConfig
	ingest   *IngestService
	sync     *SyncService
}

func testIngestConfig() IngestConfig {
	return IngestConfig{
		Chunking: domain.ChunkingSettings{
			Long:                 domain.ChunkPolicy{Size: 200, Overlap: 20},
			Short:                domain.ChunkPolicy{Size: 50, Overlap: 10},
			LongDocPageThreshold: 3,
			Version:              1,
		},
		BatchSize: 2,
	}
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	return newPipelineWith(t, mock.NewEmbeddingService(32))
}

func newPipelineWith(t *testing.T, embedder driven.EmbeddingService) *pipeline {
	t.Helper()

	library := t.TempDir()
	dataDir := t.TempDir()
	files, err := filestore.New(library)
	require.NoError(t, err)

	p := &pipeline{
		library:  library,
		dataDir:  dataDir,
		files:    files,
		lock:     lock.New(dataDir),
		docs:     memory.NewDocumentStore(),
		ops:      memory.NewOperationLog(),
		index:    vectormemory.New(),
		embedder: embedder,
		cfg:      testIngestConfig(),
	}
	p.rewire(embedder)
	return p
}

// rewire rebuilds the services around a different embedder, keeping the stores.
func (p *pipeline) rewire(embedder driven.EmbeddingService) {
	p.embedder = embedder
	extractors := normalisers.NewRegistry(plaintext.New())
	p.ingest = NewIngestService(extractors, chunker.New(), p.docs, p.ops, p.files, embedder, p.index, p.cfg)
	p.sync = NewSyncService(p.files, p.lock, p.docs, p.ops, p.index, embedder, p.ingest, p.cfg)
}

// write creates a file under dir and returns its path.
func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (p *pipeline) vectorCount(t *testing.T) int {
	t.Helper()
	n, err := p.index.Count(context.Background())
	require.NoError(t, err)
	return n
}

func (p *pipeline) vectorsOf(documentID string) int {
	n := 0
	for _, r := range p.index.Records() {
		if r.DocumentID == documentID {
			n++
		}
	}
	return n
}

func (p *pipeline) document(t *testing.T, id string) *domain.Document {
	t.Helper()
	doc, err := p.docs.GetDocument(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func (p *pipeline) opTypes() []domain.OperationType {
	return p.ops.Types()
}

// failingEmbedder embeds queries but fails every batch.
type failingEmbedder struct {
	*mock.EmbeddingService
	err error
}

func (e *failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, e.err
}

// shortEmbedder returns one vector fewer than requested.
type shortEmbedder struct {
	*mock.EmbeddingService
}

func (e *shortEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.EmbeddingService.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) == 0 {
		return vectors, err
	}
	return vectors[:len(vectors)-1], nil
}

var errEmbedDown = errors.New("embedding backend down")
