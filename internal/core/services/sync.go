package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driving"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// Ensure SyncService implements the interface.
var _ driving.LibrarySync = (*SyncService)(nil)

// syncActor tags operation log entries written by a sync pass.
const syncActor = "sync"

// listAll asks the store for every document.
const listAll = 0

// SyncProgress reports the outcome of one file during a pass.
type SyncProgress struct {
	Path string
	Err  error
}

// SyncService reconciles the library directory with the stores.
type SyncService struct {
	files    driven.FileStore
	lock     driven.SyncLock
	docs     driven.DocumentStore
	ops      driven.OperationLog
	index    driven.VectorIndex
	ingester driving.IngestService
	cfg      IngestConfig
	embedder driven.EmbeddingService

	progress func(SyncProgress)
	now      func() time.Time
}

// NewSyncService creates a library sync service.
// index may be nil; vectors are then left alone and re-ingestion fails per file.
func NewSyncService(
	files driven.FileStore,
	lock driven.SyncLock,
	docs driven.DocumentStore,
	ops driven.OperationLog,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	ingester driving.IngestService,
	cfg IngestConfig,
) *SyncService {
	return &SyncService{
		files:    files,
		lock:     lock,
		docs:     docs,
		ops:      ops,
		index:    index,
		embedder: embedder,
		ingester: ingester,
		cfg:      cfg,
		now:      time.Now,
	}
}

// OnProgress registers a callback invoked after each file is processed.
func (s *SyncService) OnProgress(fn func(SyncProgress)) {
	s.progress = fn
}

// BreakLock removes a stale lock file.
func (s *SyncService) BreakLock() error {
	return s.lock.Break()
}

// SyncOnce runs one pass. Per-file failures are counted, not returned.
func (s *SyncService) SyncOnce(ctx context.Context) (*domain.SyncReport, error) {
	report := &domain.SyncReport{StartedAt: s.now()}

	if err := s.lock.TryAcquire(); err != nil {
		if errors.Is(err, domain.ErrSyncLocked) {
			logger.Info("Library sync skipped: another pass holds the lock")
			report.Status = domain.SyncStatusLocked
			report.FinishedAt = s.now()
			return report, nil
		}
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			logger.Warn("releasing sync lock: %v", err)
		}
	}()

	logger.Section("Library sync")

	disk, err := s.files.Walk(ctx)
	if err != nil {
		return nil, err
	}
	report.Scanned = len(disk)

	docs, err := s.docs.ListDocuments(ctx, listAll)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	onDisk := make(map[string]domain.LibraryFile, len(disk))
	for _, f := range disk {
		onDisk[f.Path] = f
	}

	// Newest row wins when several live rows share a path.
	known := make(map[string]domain.Document, len(docs))
	for _, d := range docs {
		if d.IsDeleted() {
			continue
		}
		if _, seen := known[d.Path]; !seen {
			known[d.Path] = d
		}
	}

	for _, d := range docs {
		if d.IsDeleted() {
			continue
		}
		if _, ok := onDisk[d.Path]; ok {
			continue
		}
		if err := s.tombstone(ctx, d); err != nil {
			return nil, err
		}
		report.Deleted++
	}

	for _, f := range disk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		existing, isKnown := known[f.Path]
		err := s.syncFile(ctx, f, existing, isKnown, report)
		if err != nil {
			report.Failed++
			logger.Warn("sync %s: %v", f.Path, err)
		} else {
			report.Ingested++
		}
		if s.progress != nil {
			s.progress(SyncProgress{Path: f.Path, Err: err})
		}
	}

	report.Status = domain.SyncStatusOK
	report.FinishedAt = s.now()

	s.log(ctx, domain.OperationSync, fmt.Sprintf(
		"scanned=%d;ingested=%d;failed=%d;deleted=%d",
		report.Scanned, report.Ingested, report.Failed, report.Deleted))
	logger.Info("Library sync finished: %d scanned, %d ingested, %d failed, %d deleted in %s",
		report.Scanned, report.Ingested, report.Failed, report.Deleted, report.Duration().Round(time.Millisecond))

	return report, nil
}

// tombstone marks a document whose file is gone and purges its vectors.
func (s *SyncService) tombstone(ctx context.Context, d domain.Document) error {
	if err := s.docs.SetStatus(ctx, d.ID, domain.DocumentStatusDeleted); err != nil {
		return fmt.Errorf("tombstone %s: %w", d.ID, err)
	}
	if s.index != nil {
		if err := s.index.DeleteWhere(ctx, domain.VectorFilter{DocumentID: d.ID}); err != nil {
			logger.Warn("purging vectors of %s: %v", d.ID, err)
		}
	}
	s.log(ctx, domain.OperationDeleteDocument, fmt.Sprintf("doc_id=%s;path=%s", d.ID, d.Path))
	logger.Debug("tombstoned %s (%s)", d.ID, d.Path)
	return nil
}

// syncFile refreshes metadata for one file and re-ingests it.
func (s *SyncService) syncFile(
	ctx context.Context,
	f domain.LibraryFile,
	existing domain.Document,
	isKnown bool,
	report *domain.SyncReport,
) error {
	hash := ""
	if isKnown && trustCachedHash(existing, f) {
		hash = existing.ContentHash
	} else {
		report.Rehashed++
		h, err := s.files.Hash(ctx, f.Path)
		if err != nil {
			s.log(ctx, domain.OperationIngestFailed, fmt.Sprintf("path=%s;error=%v", f.Path, err))
			return domain.NewExtractionError(f.Path, err)
		}
		hash = h
	}

	title := filepath.Base(f.Path)
	doc, err := s.docs.UpsertDocument(ctx, &domain.Document{
		Title:           title,
		Path:            f.Path,
		Ext:             strings.TrimPrefix(strings.ToLower(filepath.Ext(title)), "."),
		SizeBytes:       f.Size,
		ContentHash:     hash,
		Uploader:        "library",
		ChunkingVersion: s.cfg.Chunking.Version,
		EmbeddingModel:  s.modelName(),
	})
	if err != nil {
		s.log(ctx, domain.OperationIngestFailed, fmt.Sprintf("path=%s;error=%v", f.Path, err))
		return fmt.Errorf("upsert document: %w", err)
	}

	_, err = s.ingester.Ingest(ctx, domain.IngestRequest{
		Path:        f.Path,
		Uploader:    "library",
		Actor:       syncActor,
		ContentHash: hash,
	})
	if err != nil {
		if serr := s.docs.SetStatus(ctx, doc.ID, domain.DocumentStatusFailed); serr != nil {
			logger.Warn("marking %s failed: %v", doc.ID, serr)
		}
		s.log(ctx, domain.OperationIngestFailed, fmt.Sprintf("doc_id=%s;path=%s;error=%v", doc.ID, f.Path, err))
		return err
	}

	s.log(ctx, domain.OperationIngestViaSync, fmt.Sprintf("doc_id=%s;path=%s", doc.ID, f.Path))
	return nil
}

// trustCachedHash reports whether the stored hash still describes the file:
// same size, and the row was updated no earlier than the file's mtime.
func trustCachedHash(d domain.Document, f domain.LibraryFile) bool {
	if d.ContentHash == "" || d.SizeBytes != f.Size {
		return false
	}
	return !d.UpdatedAt.Before(f.ModTime)
}

func (s *SyncService) modelName() string {
	if s.embedder == nil {
		return ""
	}
	return s.embedder.ModelName()
}

func (s *SyncService) log(ctx context.Context, typ domain.OperationType, detail string) {
	if s.ops == nil {
		return
	}
	if err := s.ops.Append(ctx, domain.Operation{Type: typ, Actor: syncActor, Detail: detail}); err != nil {
		logger.Warn("operation log: %v", err)
	}
}
