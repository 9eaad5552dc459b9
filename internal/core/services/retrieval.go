package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driving"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// DefaultTopK is used when neither the caller nor settings give a positive k.
const DefaultTopK = 6

// RetrievalService answers semantic queries against the active generations.
type RetrievalService struct {
	docs     driven.DocumentStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	topK     int
}

// NewRetrievalService creates a retrieval service.
// embedder and index are optional; Search fails with the matching unavailable error without them.
func NewRetrievalService(
	docs driven.DocumentStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	topK int,
) *RetrievalService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrievalService{
		docs:     docs,
		index:    index,
		embedder: embedder,
		topK:     topK,
	}
}

// Search embeds query, ranks vectors and hydrates the hits in rank order.
// Hits whose chunk is stale (inactive generation, deleted document, missing row) are dropped.
func (s *RetrievalService) Search(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.RetrievedChunk{}, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if topK <= 0 {
		topK = s.topK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Query(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	if len(hits) == 0 {
		return []domain.RetrievedChunk{}, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}

	rows, err := s.docs.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate chunks: %w", err)
	}
	byID := make(map[string]domain.RetrievedChunk, len(rows))
	for _, r := range rows {
		byID[r.ChunkID] = r
	}

	results := make([]domain.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		row, ok := byID[h.ChunkID]
		if !ok {
			continue
		}
		row.Score = h.Similarity
		results = append(results, row)
	}

	if dropped := len(hits) - len(results); dropped > 0 {
		logger.Debug("search: dropped %d stale hits", dropped)
	}
	return results, nil
}
