package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
)

func rec(chunk, doc, gen string, v ...float32) domain.VectorRecord {
	return domain.VectorRecord{ID: chunk, ChunkID: chunk, DocumentID: doc, Generation: gen, Vector: v}
}

func TestIndex_UpsertQueryDelete(t *testing.T) {
	ctx := context.Background()
	idx := New()

	require.NoError(t, idx.Upsert(ctx, []domain.VectorRecord{
		rec("a", "d1", "g1", 1, 0),
		rec("b", "d1", "g2", 0.9, 0.1),
		rec("c", "d2", "g1", 0, 1),
	}))
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := idx.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ChunkID)
	assert.Equal(t, "b", hits[1].ChunkID)

	require.NoError(t, idx.DeleteWhere(ctx, domain.VectorFilter{DocumentID: "d1", ExcludeGeneration: "g2"}))
	n, _ = idx.Count(ctx)
	assert.Equal(t, 2, n)

	assert.ErrorIs(t, idx.DeleteWhere(ctx, domain.VectorFilter{}), domain.ErrInvalidInput)
}

func TestIndex_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx := New()
	require.NoError(t, idx.Upsert(ctx, []domain.VectorRecord{rec("a", "d1", "g1", 1, 0)}))
	require.NoError(t, idx.Upsert(ctx, []domain.VectorRecord{rec("a", "d1", "g2", 0, 1)}))

	records := idx.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "g2", records[0].Generation)
}

func TestIndex_QueryZeroK(t *testing.T) {
	hits, err := New().Query(context.Background(), []float32{1}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
