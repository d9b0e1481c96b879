package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBleve(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("", DefaultSparseConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_IndexAndSearch(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	err := idx.Index(ctx, []*Chunk{
		{ID: "a", DocumentID: "doc-1", Content: "transformer attention mechanisms"},
		{ID: "b", DocumentID: "doc-2", Content: "graph neural networks"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Stats().ChunkCount)

	results, err := idx.Search(ctx, "attention", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestBleveIndex_Search_DocumentFilter(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Chunk{
		{ID: "a", DocumentID: "doc-1", Content: "attention models"},
		{ID: "b", DocumentID: "doc-2", Content: "attention spans"},
	}))

	results, err := idx.Search(ctx, "attention", 10, "doc-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestBleveIndex_DeleteAndAllIDs(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Chunk{
		{ID: "a", DocumentID: "doc-1", Content: "alpha"},
		{ID: "b", DocumentID: "doc-1", Content: "beta"},
	}))
	require.NoError(t, idx.Delete(ctx, []string{"a"}))

	ids, err := idx.AllIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}
