package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

func activate(t *testing.T, s *DocumentStore, docID, gen string, texts ...string) {
	t.Helper()
	ctx := context.Background()
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID: gen + "-" + text, DocumentID: docID, Generation: gen,
			Position: i, PageFrom: 1, PageTo: 1, Text: text,
		}
	}
	require.NoError(t, s.InsertChunks(ctx, chunks))
	require.NoError(t, s.ActivateGeneration(ctx, driven.GenerationActivation{
		DocumentID: docID, Generation: gen, Pages: 1, ChunkingVersion: 1, EmbeddingModel: "mock-embed",
	}))
}

func TestDocumentStore_UpsertInsertsAsFailed(t *testing.T) {
	s := NewDocumentStore()
	doc, err := s.UpsertDocument(context.Background(), &domain.Document{
		Title: "Rates", Path: "/lib/rates.pdf", ContentHash: "h1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, domain.DocumentStatusFailed, doc.Status)
	assert.Equal(t, "local", doc.Uploader)
	assert.Empty(t, doc.Generation)
}

func TestDocumentStore_UpsertMatchesHashThenPath(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()

	first, err := s.UpsertDocument(ctx, &domain.Document{Path: "/lib/a.pdf", ContentHash: "h1"})
	require.NoError(t, err)
	activate(t, s, first.ID, "g1", "alpha")

	moved, err := s.UpsertDocument(ctx, &domain.Document{Path: "/lib/b.pdf", ContentHash: "h1"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, moved.ID)
	assert.Equal(t, "/lib/b.pdf", moved.Path)
	assert.Equal(t, domain.DocumentStatusOK, moved.Status)
	assert.Equal(t, "g1", moved.Generation)

	edited, err := s.UpsertDocument(ctx, &domain.Document{Path: "/lib/b.pdf", ContentHash: "h2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, edited.ID)
	assert.Equal(t, "h2", edited.ContentHash)
}

func TestDocumentStore_UpsertRevivesByHashButNotByPath(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()

	doc, err := s.UpsertDocument(ctx, &domain.Document{Path: "/lib/a.pdf", ContentHash: "h1"})
	require.NoError(t, err)
	require.NoError(t, s.SetStatus(ctx, doc.ID, domain.DocumentStatusDeleted))

	other, err := s.UpsertDocument(ctx, &domain.Document{Path: "/lib/a.pdf", ContentHash: "h9"})
	require.NoError(t, err)
	assert.NotEqual(t, doc.ID, other.ID)

	revived, err := s.UpsertDocument(ctx, &domain.Document{Path: "/lib/a.pdf", ContentHash: "h1"})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, revived.ID)
	assert.Equal(t, domain.DocumentStatusDeleted, revived.Status)
}

func TestDocumentStore_UpsertInvalid(t *testing.T) {
	s := NewDocumentStore()
	_, err := s.UpsertDocument(context.Background(), &domain.Document{Path: "/x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentStore_StagedChunksInvisibleUntilActivated(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	doc, err := s.UpsertDocument(ctx, &domain.Document{Title: "Guide", Path: "/lib/g.pdf", ContentHash: "h1"})
	require.NoError(t, err)
	activate(t, s, doc.ID, "g1", "old")

	require.NoError(t, s.InsertChunks(ctx, []domain.Chunk{
		{ID: "g2-new", DocumentID: doc.ID, Generation: "g2", PageFrom: 1, PageTo: 1, Text: "new"},
	}))

	hits, err := s.GetChunksByIDs(ctx, []string{"g1-old", "g2-new"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "old", hits[0].Text)
	assert.Equal(t, "Guide", hits[0].Title)

	require.NoError(t, s.ActivateGeneration(ctx, driven.GenerationActivation{DocumentID: doc.ID, Generation: "g2"}))
	chunks, err := s.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "new", chunks[0].Text)

	n, err := s.DeleteChunks(ctx, domain.ChunkFilter{DocumentID: doc.ID, ExcludeGeneration: "g2"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.ChunkCount())
}

func TestDocumentStore_DeletedDocumentHidden(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	doc, err := s.UpsertDocument(ctx, &domain.Document{Path: "/lib/g.pdf", ContentHash: "h1"})
	require.NoError(t, err)
	activate(t, s, doc.ID, "g1", "text")

	require.NoError(t, s.SetStatus(ctx, doc.ID, domain.DocumentStatusDeleted))
	hits, err := s.GetChunksByIDs(ctx, []string{"g1-text"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	live, err := s.ListByPath(ctx, "/lib/g.pdf")
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestDocumentStore_InsertChunksRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	doc, err := s.UpsertDocument(ctx, &domain.Document{Path: "/lib/g.pdf", ContentHash: "h1"})
	require.NoError(t, err)

	err = s.InsertChunks(ctx, []domain.Chunk{
		{ID: "c1", DocumentID: doc.ID, Generation: "g1"},
		{ID: "c1", DocumentID: doc.ID, Generation: "g1"},
	})
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Zero(t, s.ChunkCount())
}

func TestDocumentStore_ListOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	for _, h := range []string{"h1", "h2", "h3"} {
		_, err := s.UpsertDocument(ctx, &domain.Document{Path: "/lib/" + h, ContentHash: h})
		require.NoError(t, err)
	}

	docs, err := s.ListDocuments(ctx, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "h3", docs[0].ContentHash)
	assert.Equal(t, "h2", docs[1].ContentHash)
}

func TestDocumentStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()

	_, err := s.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetDocumentByHash(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.SetStatus(ctx, "missing", domain.DocumentStatusOK), domain.ErrNotFound)
	assert.ErrorIs(t, s.ActivateGeneration(ctx, driven.GenerationActivation{DocumentID: "missing", Generation: "g"}), domain.ErrNotFound)
}

func TestOperationLog_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	log := NewOperationLog()
	require.NoError(t, log.Append(ctx, domain.Operation{Type: domain.OperationIngest, Detail: "a"}))
	require.NoError(t, log.Append(ctx, domain.Operation{Type: domain.OperationSync, Actor: "sync"}))

	ops, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, domain.OperationSync, ops[0].Type)
	assert.Equal(t, "system", ops[1].Actor)
	assert.Equal(t, int64(1), ops[1].ID)
	assert.Equal(t, []domain.OperationType{domain.OperationIngest, domain.OperationSync}, log.Types())

	ops, err = log.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}
