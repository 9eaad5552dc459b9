// Package vector holds scoring and filtering helpers shared by the vector index backends.
package vector

import (
	"fmt"
	"math"
	"slices"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b.
// Mismatched lengths and zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Matches reports whether record satisfies every set field of filter.
func Matches(filter domain.VectorFilter, record domain.VectorRecord) bool {
	if filter.DocumentID != "" && record.DocumentID != filter.DocumentID {
		return false
	}
	if filter.Generation != "" && record.Generation != filter.Generation {
		return false
	}
	if filter.ExcludeGeneration != "" && record.Generation == filter.ExcludeGeneration {
		return false
	}
	if len(filter.ChunkIDs) > 0 && !slices.Contains(filter.ChunkIDs, record.ChunkID) {
		return false
	}
	return true
}

// Rank scores records against query and returns the best k, highest first.
// Ties keep the order records were given in.
func Rank(query []float32, records []domain.VectorRecord, k int) []domain.VectorHit {
	hits := make([]domain.VectorHit, 0, len(records))
	for _, r := range records {
		hits = append(hits, domain.VectorHit{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Generation: r.Generation,
			Similarity: Cosine(query, r.Vector),
		})
	}
	slices.SortStableFunc(hits, func(a, b domain.VectorHit) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		default:
			return 0
		}
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Validate checks records before an upsert: ids present, ID equal to ChunkID,
// and one shared non-zero dimension.
func Validate(records []domain.VectorRecord) (int, error) {
	dim := 0
	for _, r := range records {
		if r.ChunkID == "" || r.DocumentID == "" {
			return 0, fmt.Errorf("vector record missing ids: %w", domain.ErrInvalidInput)
		}
		if r.ID != "" && r.ID != r.ChunkID {
			return 0, fmt.Errorf("vector record id %q differs from chunk id %q: %w", r.ID, r.ChunkID, domain.ErrInvalidInput)
		}
		if len(r.Vector) == 0 {
			return 0, fmt.Errorf("vector record %s is empty: %w", r.ChunkID, domain.ErrInvalidInput)
		}
		if dim == 0 {
			dim = len(r.Vector)
		} else if len(r.Vector) != dim {
			return 0, fmt.Errorf("vector dimension %d, want %d: %w", len(r.Vector), dim, domain.ErrInvalidInput)
		}
	}
	return dim, nil
}

// RequireFilter rejects filters that would match every vector.
func RequireFilter(filter domain.VectorFilter) error {
	if filter.IsEmpty() {
		return fmt.Errorf("delete vectors: empty filter: %w", domain.ErrInvalidInput)
	}
	return nil
}
