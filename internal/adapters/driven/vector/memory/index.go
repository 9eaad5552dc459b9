// Package memory provides an in-process vector index for tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/vector"
	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a brute-force cosine index held in a map.
type Index struct {
	mu      sync.RWMutex
	records map[string]domain.VectorRecord
	order   []string
}

// New creates an empty index.
func New() *Index {
	return &Index{records: make(map[string]domain.VectorRecord)}
}

// Upsert inserts or replaces records by chunk id.
func (idx *Index) Upsert(_ context.Context, records []domain.VectorRecord) error {
	if _, err := vector.Validate(records); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, r := range records {
		r.ID = r.ChunkID
		r.Vector = append([]float32(nil), r.Vector...)
		if _, ok := idx.records[r.ID]; !ok {
			idx.order = append(idx.order, r.ID)
		}
		idx.records[r.ID] = r
	}
	return nil
}

// Query returns the k most similar records.
func (idx *Index) Query(_ context.Context, query []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	records := make([]domain.VectorRecord, 0, len(idx.records))
	for _, id := range idx.order {
		records = append(records, idx.records[id])
	}
	return vector.Rank(query, records, k), nil
}

// DeleteWhere removes records matching filter.
func (idx *Index) DeleteWhere(_ context.Context, filter domain.VectorFilter) error {
	if err := vector.RequireFilter(filter); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	kept := idx.order[:0]
	for _, id := range idx.order {
		if vector.Matches(filter, idx.records[id]) {
			delete(idx.records, id)
			continue
		}
		kept = append(kept, id)
	}
	idx.order = kept
	return nil
}

// Count returns the number of stored records.
func (idx *Index) Count(_ context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records), nil
}

// Records returns a copy of every stored record, in insertion order.
func (idx *Index) Records() []domain.VectorRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]domain.VectorRecord, 0, len(idx.order))
	for _, id := range idx.order {
		out = append(out, idx.records[id])
	}
	return out
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}
