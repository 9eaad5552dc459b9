package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/lock"
	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

func docByPath(t *testing.T, p *pipeline, path string) domain.Document {
	t.Helper()
	docs, err := p.docs.ListByPath(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0]
}

func TestSyncOnce_IngestsLibraryAndSkipsHidden(t *testing.T) {
	p := newPipeline(t)
	a := write(t, p.library, "a.txt", page120)
	b := write(t, p.library, filepath.Join("westpac", "b.txt"), "owner occupied rates")
	write(t, p.library, ".notes.txt", "hidden")
	write(t, p.library, filepath.Join(".git", "HEAD"), "ref")

	var seen []string
	p.sync.OnProgress(func(pr SyncProgress) {
		assert.NoError(t, pr.Err)
		seen = append(seen, pr.Path)
	})

	report, err := p.sync.SyncOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.SyncStatusOK, report.Status)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Ingested)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 0, report.Deleted)
	assert.Equal(t, 2, report.Rehashed)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
	assert.Equal(t, []string{a, b}, seen)

	doc := docByPath(t, p, a)
	assert.Equal(t, domain.DocumentStatusOK, doc.Status)
	assert.Equal(t, "library", doc.Uploader)
	assert.Equal(t, 3, p.vectorsOf(doc.ID))

	types := p.opTypes()
	assert.Contains(t, types, domain.OperationIngestViaSync)
	assert.Equal(t, domain.OperationSync, types[len(types)-1])

	ops, err := p.ops.Recent(context.Background(), 0)
	require.NoError(t, err)
	for _, op := range ops {
		assert.Equal(t, "sync", op.Actor)
	}
}

func TestSyncOnce_TrustsCachedHashForUnchangedFiles(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	a := write(t, p.library, "a.txt", page120)

	_, err := p.sync.SyncOnce(ctx)
	require.NoError(t, err)
	before := docByPath(t, p, a)

	report, err := p.sync.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Rehashed)
	assert.Equal(t, 1, report.Ingested)

	after := docByPath(t, p, a)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.ContentHash, after.ContentHash)
	assert.NotEqual(t, before.Generation, after.Generation)
	assert.Equal(t, 3, p.vectorCount(t))
}

func TestSyncOnce_RehashesChangedFile(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	a := write(t, p.library, "a.txt", page120)

	_, err := p.sync.SyncOnce(ctx)
	require.NoError(t, err)
	before := docByPath(t, p, a)

	write(t, p.library, "a.txt", "a much shorter policy")
	report, err := p.sync.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rehashed)

	after := docByPath(t, p, a)
	assert.Equal(t, before.ID, after.ID)
	assert.NotEqual(t, before.ContentHash, after.ContentHash)
	assert.Equal(t, 1, p.vectorCount(t))
}

func TestSyncOnce_TombstonesMissingFiles(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	a := write(t, p.library, "a.txt", page120)
	write(t, p.library, "b.txt", "interest only terms")

	_, err := p.sync.SyncOnce(ctx)
	require.NoError(t, err)
	gone := docByPath(t, p, a)

	require.NoError(t, os.Remove(a))
	report, err := p.sync.SyncOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Deleted)

	// The row survives as a tombstone; its vectors do not.
	doc := p.document(t, gone.ID)
	assert.Equal(t, domain.DocumentStatusDeleted, doc.Status)
	assert.Equal(t, 0, p.vectorsOf(gone.ID))
	assert.Equal(t, 1, p.vectorCount(t))
	assert.Contains(t, p.opTypes(), domain.OperationDeleteDocument)

	// A second pass does not tombstone it again.
	report, err = p.sync.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Deleted)
}

func TestSyncOnce_HeldLockTouchesNothing(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	write(t, p.library, "a.txt", page120)

	other := lock.New(p.dataDir)
	require.NoError(t, other.TryAcquire())

	report, err := p.sync.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusLocked, report.Status)
	assert.Equal(t, 0, report.Scanned)
	assert.Empty(t, p.opTypes())

	docs, err := p.docs.ListDocuments(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 0, p.vectorCount(t))

	require.NoError(t, other.Release())
	report, err = p.sync.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusOK, report.Status)
}

func TestSyncOnce_ReleasesLock(t *testing.T) {
	p := newPipeline(t)

	_, err := p.sync.SyncOnce(context.Background())
	require.NoError(t, err)

	other := lock.New(p.dataDir)
	require.NoError(t, other.TryAcquire())
	require.NoError(t, other.Release())
}

func TestSyncOnce_BreakLockRecoversStaleLock(t *testing.T) {
	p := newPipeline(t)
	require.NoError(t, lock.New(p.dataDir).TryAcquire())

	require.NoError(t, p.sync.BreakLock())

	report, err := p.sync.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusOK, report.Status)
}

func TestSyncOnce_IsolatesFileFailures(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	write(t, p.library, "a.txt", page120)
	bad := write(t, p.library, "scan.bin", "not text")

	failures := map[string]error{}
	p.sync.OnProgress(func(pr SyncProgress) {
		if pr.Err != nil {
			failures[pr.Path] = pr.Err
		}
	})

	report, err := p.sync.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusOK, report.Status)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 1, report.Failed)

	require.Contains(t, failures, bad)
	assert.ErrorIs(t, failures[bad], domain.ErrExtraction)

	doc := docByPath(t, p, bad)
	assert.Equal(t, domain.DocumentStatusFailed, doc.Status)
	assert.Contains(t, p.opTypes(), domain.OperationIngestFailed)
}

func TestSyncOnce_CancelledContext(t *testing.T) {
	p := newPipeline(t)
	write(t, p.library, "a.txt", page120)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.sync.SyncOnce(ctx)
	require.Error(t, err)

	// The lock is released even when the pass aborts.
	other := lock.New(p.dataDir)
	require.NoError(t, other.TryAcquire())
	require.NoError(t, other.Release())
}

func TestTrustCachedHash(t *testing.T) {
	f := domain.LibraryFile{Path: "a.txt", Size: 10}
	f.ModTime = f.ModTime.AddDate(2026, 0, 0)

	tests := []struct {
		name string
		doc  domain.Document
		want bool
	}{
		{name: "fresh row", doc: domain.Document{ContentHash: "h", SizeBytes: 10, UpdatedAt: f.ModTime}, want: true},
		{name: "size changed", doc: domain.Document{ContentHash: "h", SizeBytes: 11, UpdatedAt: f.ModTime}},
		{name: "file newer", doc: domain.Document{ContentHash: "h", SizeBytes: 10, UpdatedAt: f.ModTime.Add(-1)}},
		{name: "no hash", doc: domain.Document{SizeBytes: 10, UpdatedAt: f.ModTime}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trustCachedHash(tt.doc, f))
		})
	}
}
