package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driving"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DefaultEmbeddingBatchSize is used when IngestConfig.BatchSize is not positive.
const DefaultEmbeddingBatchSize = 128

// IngestConfig holds the tunables read from settings.
type IngestConfig struct {
	Chunking  domain.ChunkingSettings
	BatchSize int
}

// IngestService turns one file into an active chunk generation.
//
// A new generation is staged next to the current one and only becomes
// visible once its chunks and vectors are fully written, so a failed
// ingestion never disturbs what retrieval already sees.
type IngestService struct {
	extractor driven.TextExtractor
	chunker   driven.Chunker
	docs      driven.DocumentStore
	ops       driven.OperationLog
	files     driven.FileStore
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	cfg       IngestConfig
}

// NewIngestService creates an ingest service.
// embedder and index may be nil; Ingest then fails with the matching unavailable error.
func NewIngestService(
	extractor driven.TextExtractor,
	chunker driven.Chunker,
	docs driven.DocumentStore,
	ops driven.OperationLog,
	files driven.FileStore,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	cfg IngestConfig,
) *IngestService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbeddingBatchSize
	}
	return &IngestService{
		extractor: extractor,
		chunker:   chunker,
		docs:      docs,
		ops:       ops,
		files:     files,
		embedder:  embedder,
		index:     index,
		cfg:       cfg,
	}
}

// Ingest extracts, chunks, embeds and indexes one file.
func (s *IngestService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, fmt.Errorf("ingest: path required: %w", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	uploader := req.Uploader
	if uploader == "" {
		uploader = "local"
	}
	actor := req.Actor
	if actor == "" {
		actor = "cli"
	}

	info, err := s.files.Stat(req.Path)
	if err != nil {
		return nil, domain.NewExtractionError(req.Path, err)
	}

	hash := req.ContentHash
	if hash == "" {
		hash, err = s.files.Hash(ctx, req.Path)
		if err != nil {
			return nil, domain.NewExtractionError(req.Path, err)
		}
	}

	stored, err := s.files.Store(ctx, req.Path)
	if err != nil {
		return nil, fmt.Errorf("storing file: %w", err)
	}
	if err := s.verifyStored(ctx, req.Path, stored, hash); err != nil {
		return nil, err
	}

	pages, err := s.extractor.Extract(ctx, stored)
	if err != nil {
		return nil, err
	}
	policy := s.cfg.Chunking.Select(len(pages))

	title := filepath.Base(req.Path)
	doc, err := s.docs.UpsertDocument(ctx, &domain.Document{
		Title:           title,
		Path:            stored,
		Ext:             strings.TrimPrefix(strings.ToLower(filepath.Ext(title)), "."),
		Pages:           len(pages),
		SizeBytes:       info.Size,
		ContentHash:     hash,
		Uploader:        uploader,
		ChunkingVersion: s.cfg.Chunking.Version,
		EmbeddingModel:  s.embedder.ModelName(),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert document: %w", err)
	}

	generation := uuid.New().String()
	chunks := s.chunker.ChunkPages(doc.ID, generation, pages, policy)
	logger.Debug("ingest %s: %d pages, %d chunks (size %d, overlap %d), generation %s",
		title, len(pages), len(chunks), policy.Size, policy.Overlap, generation)

	if err := s.stage(ctx, doc.ID, generation, chunks, len(pages)); err != nil {
		s.discard(ctx, doc.ID, generation)
		return nil, err
	}

	s.collect(ctx, doc.ID, generation)
	s.supersede(ctx, doc, actor)

	s.log(ctx, domain.OperationIngest, actor,
		fmt.Sprintf("ingested %s -> doc_id=%s chunks=%d", title, doc.ID, len(chunks)))

	return &domain.IngestResult{
		DocumentID: doc.ID,
		Generation: generation,
		Chunks:     len(chunks),
		Pages:      len(pages),
	}, nil
}

// verifyStored checks that the stored copy holds the bytes that were hashed.
// Storage keeps an existing file of the same name, so a different source
// with a colliding name is rejected rather than indexed under the old file.
func (s *IngestService) verifyStored(ctx context.Context, src, stored, hash string) error {
	abs, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", src, err)
	}
	if abs == stored {
		return nil
	}
	storedHash, err := s.files.Hash(ctx, stored)
	if err != nil {
		return domain.NewExtractionError(stored, err)
	}
	if storedHash != hash {
		return fmt.Errorf("ingest %s: %s already holds a different file; replace it in the library and run sync: %w",
			src, stored, domain.ErrNameConflict)
	}
	return nil
}

// stage writes the new generation and activates it.
func (s *IngestService) stage(
	ctx context.Context,
	documentID, generation string,
	chunks []domain.Chunk,
	pages int,
) error {
	if len(chunks) > 0 {
		if err := s.docs.InsertChunks(ctx, chunks); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}

		records, err := s.embed(ctx, chunks)
		if err != nil {
			return err
		}
		if err := s.index.Upsert(ctx, records); err != nil {
			return fmt.Errorf("upsert vectors: %w", err)
		}
	}

	err := s.docs.ActivateGeneration(ctx, driven.GenerationActivation{
		DocumentID:      documentID,
		Generation:      generation,
		Pages:           pages,
		ChunkingVersion: s.cfg.Chunking.Version,
		EmbeddingModel:  s.embedder.ModelName(),
	})
	if err != nil {
		return fmt.Errorf("activate generation: %w", err)
	}
	return nil
}

// embed vectorises chunk texts in batches, preserving order.
func (s *IngestService) embed(ctx context.Context, chunks []domain.Chunk) ([]domain.VectorRecord, error) {
	records := make([]domain.VectorRecord, 0, len(chunks))

	for start := 0; start < len(chunks); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return nil, &domain.ProviderError{
				Provider: s.embedder.ModelName(),
				Err: fmt.Errorf("%w: %d vectors for %d texts",
					domain.ErrUnrecognisedResponse, len(vectors), len(batch)),
			}
		}

		for i, c := range batch {
			records = append(records, domain.VectorRecord{
				ID:         c.ID,
				DocumentID: c.DocumentID,
				ChunkID:    c.ID,
				Generation: c.Generation,
				Vector:     vectors[i],
			})
		}
	}

	return records, nil
}

// discard removes a failed generation. Failures are logged, not returned,
// so the caller sees the error that caused the rollback.
func (s *IngestService) discard(ctx context.Context, documentID, generation string) {
	// The caller's context may already be cancelled.
	ctx = context.WithoutCancel(ctx)

	if _, err := s.docs.DeleteChunks(ctx, domain.ChunkFilter{
		DocumentID: documentID,
		Generation: generation,
	}); err != nil {
		logger.Warn("discarding chunks of generation %s: %v", generation, err)
	}
	if err := s.index.DeleteWhere(ctx, domain.VectorFilter{
		DocumentID: documentID,
		Generation: generation,
	}); err != nil {
		logger.Warn("discarding vectors of generation %s: %v", generation, err)
	}
}

// collect drops every generation of the document except the active one.
// Leftovers are harmless because retrieval only hydrates active chunks.
func (s *IngestService) collect(ctx context.Context, documentID, generation string) {
	n, err := s.docs.DeleteChunks(ctx, domain.ChunkFilter{
		DocumentID:        documentID,
		ExcludeGeneration: generation,
	})
	if err != nil {
		logger.Warn("collecting old chunks of %s: %v", documentID, err)
	} else if n > 0 {
		logger.Debug("collected %d old chunks of %s", n, documentID)
	}

	if err := s.index.DeleteWhere(ctx, domain.VectorFilter{
		DocumentID:        documentID,
		ExcludeGeneration: generation,
	}); err != nil {
		logger.Warn("collecting old vectors of %s: %v", documentID, err)
	}
}

// supersede tombstones other live documents stored at the same path.
// This happens when a file is replaced by bytes already known under another row.
func (s *IngestService) supersede(ctx context.Context, doc *domain.Document, actor string) {
	others, err := s.docs.ListByPath(ctx, doc.Path)
	if err != nil {
		logger.Warn("listing documents at %s: %v", doc.Path, err)
		return
	}

	for _, other := range others {
		if other.ID == doc.ID {
			continue
		}
		if err := s.docs.SetStatus(ctx, other.ID, domain.DocumentStatusDeleted); err != nil {
			logger.Warn("superseding %s: %v", other.ID, err)
			continue
		}
		if err := s.index.DeleteWhere(ctx, domain.VectorFilter{DocumentID: other.ID}); err != nil {
			logger.Warn("purging vectors of superseded %s: %v", other.ID, err)
		}
		s.log(ctx, domain.OperationSupersedeDocument, actor,
			fmt.Sprintf("doc_id=%s;superseded_by=%s;path=%s", other.ID, doc.ID, doc.Path))
	}
}

// log appends to the operation log. The log is an audit trail; a failed
// append never fails the operation it describes.
func (s *IngestService) log(ctx context.Context, typ domain.OperationType, actor, detail string) {
	if s.ops == nil {
		return
	}
	err := s.ops.Append(ctx, domain.Operation{Type: typ, Actor: actor, Detail: detail})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("operation log: %v", err)
	}
}
