package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// It follows the same identity and generation rules as the SQLite store.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string]domain.Chunk
	now       func() time.Time
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string]domain.Chunk),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// UpsertDocument resolves identity by content hash, then by live path, then inserts.
func (s *DocumentStore) UpsertDocument(_ context.Context, doc *domain.Document) (*domain.Document, error) {
	if doc == nil || doc.ContentHash == "" || doc.Path == "" {
		return nil, fmt.Errorf("upsert document: hash and path required: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	uploader := doc.Uploader
	if uploader == "" {
		uploader = "local"
	}

	existing, ok := s.match(doc.ContentHash, doc.Path)
	if !ok {
		id := doc.ID
		if id == "" {
			id = uuid.New().String()
		}
		stored := *doc
		stored.ID = id
		stored.Uploader = uploader
		stored.Status = domain.DocumentStatusFailed
		stored.Generation = ""
		stored.CreatedAt = now
		stored.UpdatedAt = now
		s.documents[id] = stored
		return &stored, nil
	}

	existing.Title = doc.Title
	existing.Path = doc.Path
	existing.Ext = doc.Ext
	existing.SizeBytes = doc.SizeBytes
	existing.ContentHash = doc.ContentHash
	existing.Uploader = uploader
	existing.UpdatedAt = now
	s.documents[existing.ID] = existing
	return &existing, nil
}

// match must be called with the lock held.
func (s *DocumentStore) match(hash, path string) (domain.Document, bool) {
	for _, d := range s.documents {
		if d.ContentHash == hash {
			return d, true
		}
	}

	var best domain.Document
	found := false
	for _, d := range s.documents {
		if d.Path != path || d.IsDeleted() {
			continue
		}
		if !found || d.UpdatedAt.After(best.UpdatedAt) {
			best = d
			found = true
		}
	}
	return best, found
}

// tick returns a strictly increasing timestamp so ordering by UpdatedAt is stable.
// Must be called with the lock held.
func (s *DocumentStore) tick() time.Time {
	now := s.now()
	for _, d := range s.documents {
		if !now.After(d.UpdatedAt) {
			now = d.UpdatedAt.Add(time.Microsecond)
		}
	}
	return now
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetDocumentByHash retrieves a document by content hash.
func (s *DocumentStore) GetDocumentByHash(_ context.Context, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.documents {
		if d.ContentHash == hash {
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListDocuments returns the most recently updated documents.
func (s *DocumentStore) ListDocuments(_ context.Context, limit int) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.documents))
	for _, d := range s.documents {
		docs = append(docs, d)
	}
	sortNewestFirst(docs)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// ListByPath returns non-deleted documents at path.
func (s *DocumentStore) ListByPath(_ context.Context, path string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []domain.Document
	for _, d := range s.documents {
		if d.Path == path && !d.IsDeleted() {
			docs = append(docs, d)
		}
	}
	sortNewestFirst(docs)
	return docs, nil
}

// SetStatus updates a document's lifecycle status.
func (s *DocumentStore) SetStatus(_ context.Context, id string, status domain.DocumentStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("status %q: %w", status, domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	doc.UpdatedAt = s.tick()
	s.documents[id] = doc
	return nil
}

// InsertChunks stages chunks. Duplicate ids are rejected without partial writes.
func (s *DocumentStore) InsertChunks(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if _, ok := s.documents[c.DocumentID]; !ok {
			return domain.NewStoreError("inserting chunk", fmt.Errorf("unknown document %s", c.DocumentID))
		}
		if _, dup := s.chunks[c.ID]; dup {
			return domain.NewStoreError("inserting chunk", fmt.Errorf("duplicate chunk id %s", c.ID))
		}
		if _, dup := seen[c.ID]; dup {
			return domain.NewStoreError("inserting chunk", fmt.Errorf("duplicate chunk id %s", c.ID))
		}
		seen[c.ID] = struct{}{}
	}

	now := s.now()
	for _, c := range chunks {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		s.chunks[c.ID] = c
	}
	return nil
}

// ActivateGeneration switches the visible generation and records ingestion metadata.
func (s *DocumentStore) ActivateGeneration(_ context.Context, a driven.GenerationActivation) error {
	if a.DocumentID == "" || a.Generation == "" {
		return fmt.Errorf("activate generation: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[a.DocumentID]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Generation = a.Generation
	doc.Status = domain.DocumentStatusOK
	doc.Pages = a.Pages
	doc.ChunkingVersion = a.ChunkingVersion
	doc.EmbeddingModel = a.EmbeddingModel
	doc.UpdatedAt = s.tick()
	s.documents[a.DocumentID] = doc
	return nil
}

// DeleteChunks removes chunks matched by filter.
func (s *DocumentStore) DeleteChunks(_ context.Context, filter domain.ChunkFilter) (int, error) {
	if filter.DocumentID == "" {
		return 0, fmt.Errorf("delete chunks: document id required: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, c := range s.chunks {
		if c.DocumentID != filter.DocumentID {
			continue
		}
		if filter.Generation != "" && c.Generation != filter.Generation {
			continue
		}
		if filter.ExcludeGeneration != "" && c.Generation == filter.ExcludeGeneration {
			continue
		}
		delete(s.chunks, id)
		n++
	}
	return n, nil
}

// GetChunksByIDs hydrates live chunks with their document title.
func (s *DocumentStore) GetChunksByIDs(_ context.Context, ids []string) ([]domain.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.RetrievedChunk
	for _, id := range ids {
		c, ok := s.chunks[id]
		if !ok {
			continue
		}
		doc, ok := s.documents[c.DocumentID]
		if !ok || doc.IsDeleted() || doc.Generation != c.Generation {
			continue
		}
		out = append(out, domain.RetrievedChunk{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Title:      doc.Title,
			PageFrom:   c.PageFrom,
			PageTo:     c.PageTo,
			Text:       c.Text,
		})
	}
	return out, nil
}

// GetChunks retrieves the active chunks for a document in page order.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[documentID]
	if !ok {
		return nil, nil
	}

	var chunks []domain.Chunk
	for _, c := range s.chunks {
		if c.DocumentID == documentID && c.Generation == doc.Generation {
			chunks = append(chunks, c)
		}
	}
	slices.SortFunc(chunks, func(a, b domain.Chunk) int {
		if a.PageFrom != b.PageFrom {
			return a.PageFrom - b.PageFrom
		}
		return a.Position - b.Position
	})
	return chunks, nil
}

// ChunkCount returns every stored chunk, staged or active.
func (s *DocumentStore) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func sortNewestFirst(docs []domain.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
}
