package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papervault/papervault/internal/embed"
	"github.com/papervault/papervault/internal/store"
)

type fakeDense struct {
	results []*store.SearchResult
	err     error
	closed  bool
}

func (f *fakeDense) Add(ctx context.Context, ids []string, vectors [][]float32) error { return nil }
func (f *fakeDense) Search(ctx context.Context, query []float32, k int, documentID string) ([]*store.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}
func (f *fakeDense) Delete(ctx context.Context, ids []string) error { return nil }
func (f *fakeDense) Count() int                                     { return len(f.results) }
func (f *fakeDense) Close() error                                   { f.closed = true; return nil }

type fakeSparse struct {
	results []*store.SparseResult
	err     error
	closed  bool
}

func (f *fakeSparse) Index(ctx context.Context, chunks []*store.Chunk) error { return nil }
func (f *fakeSparse) Search(ctx context.Context, query string, k int, documentID string) ([]*store.SparseResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}
func (f *fakeSparse) Delete(ctx context.Context, chunkIDs []string) error { return nil }
func (f *fakeSparse) AllIDs() ([]string, error)                           { return nil, nil }
func (f *fakeSparse) Stats() *store.SparseStats {
	return &store.SparseStats{ChunkCount: len(f.results)}
}
func (f *fakeSparse) Close() error { f.closed = true; return nil }

type fakeChunkStore struct {
	chunks map[string]*store.Chunk
	err    error
}

func (f *fakeChunkStore) GetChunks(ctx context.Context, ids []string) ([]*store.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*store.Chunk, 0, len(ids))
	for _, id := range ids {
		if ch, ok := f.chunks[id]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

func chunkStoreWith(contents map[string]string) *fakeChunkStore {
	chunks := make(map[string]*store.Chunk, len(contents))
	for id, content := range contents {
		chunks[id] = &store.Chunk{ID: id, DocumentID: "doc-1", Content: content}
	}
	return &fakeChunkStore{chunks: chunks}
}

func newTestEngine(t *testing.T, dense *fakeDense, sparse store.SparseIndex, chunks ChunkStore) *Engine {
	t.Helper()
	engine, err := NewEngine(dense, sparse, chunks, embed.NewCache(100), embed.NewStaticEmbedder(), EngineConfig{})
	require.NoError(t, err)
	return engine
}

func TestNewEngine_NilDependencies(t *testing.T) {
	cache := embed.NewCache(10)
	embedder := embed.NewStaticEmbedder()
	chunks := chunkStoreWith(nil)
	dense := &fakeDense{}

	_, err := NewEngine(nil, nil, chunks, cache, embedder, EngineConfig{})
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(dense, nil, nil, cache, embedder, EngineConfig{})
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(dense, nil, chunks, nil, embedder, EngineConfig{})
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(dense, nil, chunks, cache, nil, EngineConfig{})
	assert.ErrorIs(t, err, ErrNilDependency)

	// A nil sparse index is allowed.
	engine, err := NewEngine(dense, nil, chunks, cache, embedder, EngineConfig{})
	assert.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestEngine_Search_Hybrid(t *testing.T) {
	dense := &fakeDense{results: []*store.SearchResult{
		{ChunkID: "only-dense", Similarity: 0.95},
		{ChunkID: "in-both", Similarity: 0.90},
	}}
	sparse := &fakeSparse{results: []*store.SparseResult{
		{ChunkID: "in-both", Score: 9.1, MatchedTerms: []string{"fox"}},
	}}
	chunks := chunkStoreWith(map[string]string{
		"only-dense": "dense side text",
		"in-both":    "both sides text",
	})
	engine := newTestEngine(t, dense, sparse, chunks)

	// Short query tokens keep the keyword boost out of the picture.
	results, err := engine.Search(context.Background(), "fox", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "in-both", results[0].Chunk.ID)
	assert.True(t, results[0].InBothLists)
	assert.Equal(t, []string{"fox"}, results[0].MatchedTerms)
	assert.InDelta(t, 0.6/62.0+0.4/61.0, results[0].Score, 1e-9)

	assert.Equal(t, "only-dense", results[1].Chunk.ID)
	assert.False(t, results[1].InBothLists)
	assert.InDelta(t, 0.90, results[0].DenseScore, 1e-9)
}

func TestEngine_Search_KeywordBoost(t *testing.T) {
	dense := &fakeDense{results: []*store.SearchResult{
		{ChunkID: "top", Similarity: 0.95},
		{ChunkID: "boosted", Similarity: 0.90},
	}}
	sparse := &fakeSparse{}
	chunks := chunkStoreWith(map[string]string{
		"top":     "no matching words here",
		"boosted": "the Transformer architecture relies on attention",
	})
	engine := newTestEngine(t, dense, sparse, chunks)

	results, err := engine.Search(context.Background(), "transformer", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The literal keyword match doubles the fused score and wins.
	assert.Equal(t, "boosted", results[0].Chunk.ID)
	assert.InDelta(t, 2.0*0.6/62.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.6/61.0, results[1].Score, 1e-9)
}

func TestEngine_Search_SparseFailureFallsBackToDense(t *testing.T) {
	dense := &fakeDense{results: []*store.SearchResult{
		{ChunkID: "a", Similarity: 0.92},
		{ChunkID: "b", Similarity: 0.81},
	}}
	sparse := &fakeSparse{err: errors.New("index corrupted")}
	chunks := chunkStoreWith(map[string]string{"a": "first", "b": "second"})
	engine := newTestEngine(t, dense, sparse, chunks)

	results, err := engine.Search(context.Background(), "query", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Dense results pass through unmodified: raw cosine as the score, no
	// fusion, no boost.
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.InDelta(t, 0.92, results[0].Score, 1e-9)
	assert.Equal(t, 1, results[0].DenseRank)
	assert.Zero(t, results[0].SparseRank)
	assert.False(t, results[0].InBothLists)
}

func TestEngine_Search_DenseFailureIsFatal(t *testing.T) {
	dense := &fakeDense{err: errors.New("graph unavailable")}
	sparse := &fakeSparse{}
	engine := newTestEngine(t, dense, sparse, chunkStoreWith(nil))

	_, err := engine.Search(context.Background(), "query", SearchOptions{})
	assert.Error(t, err)
}

func TestEngine_Search_DenseOnly(t *testing.T) {
	dense := &fakeDense{results: []*store.SearchResult{
		{ChunkID: "a", Similarity: 0.9},
	}}
	sparse := &fakeSparse{results: []*store.SparseResult{
		{ChunkID: "b", Score: 5},
	}}
	chunks := chunkStoreWith(map[string]string{"a": "first", "b": "second"})
	engine := newTestEngine(t, dense, sparse, chunks)

	results, err := engine.Search(context.Background(), "query", SearchOptions{DenseOnly: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
}

func TestEngine_Search_NilSparseDegrades(t *testing.T) {
	dense := &fakeDense{results: []*store.SearchResult{
		{ChunkID: "a", Similarity: 0.7},
	}}
	chunks := chunkStoreWith(map[string]string{"a": "content"})
	engine := newTestEngine(t, dense, nil, chunks)

	results, err := engine.Search(context.Background(), "query", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.7, results[0].Score, 1e-9)
}

func TestEngine_Search_OrphanedIDsDropped(t *testing.T) {
	dense := &fakeDense{results: []*store.SearchResult{
		{ChunkID: "live", Similarity: 0.9},
		{ChunkID: "orphan", Similarity: 0.8},
	}}
	sparse := &fakeSparse{}
	chunks := chunkStoreWith(map[string]string{"live": "content"})
	engine := newTestEngine(t, dense, sparse, chunks)

	results, err := engine.Search(context.Background(), "query", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "live", results[0].Chunk.ID)
}

func TestEngine_Search_EmptyQuery(t *testing.T) {
	engine := newTestEngine(t, &fakeDense{}, &fakeSparse{}, chunkStoreWith(nil))

	results, err := engine.Search(context.Background(), "   ", SearchOptions{})
	assert.NoError(t, err)
	assert.Nil(t, results)
}

func TestEngine_Search_LimitApplied(t *testing.T) {
	var denseResults []*store.SearchResult
	contents := make(map[string]string)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		denseResults = append(denseResults, &store.SearchResult{
			ChunkID:    id,
			Similarity: 0.9 - float64(len(denseResults))*0.1,
		})
		contents[id] = "content " + id
	}
	engine := newTestEngine(t, &fakeDense{results: denseResults}, &fakeSparse{}, chunkStoreWith(contents))

	results, err := engine.Search(context.Background(), "query", SearchOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestEngine_Stats(t *testing.T) {
	dense := &fakeDense{results: []*store.SearchResult{{ChunkID: "a"}}}
	sparse := &fakeSparse{results: []*store.SparseResult{{ChunkID: "a"}, {ChunkID: "b"}}}
	engine := newTestEngine(t, dense, sparse, chunkStoreWith(nil))

	stats := engine.Stats()
	assert.Equal(t, 1, stats.DenseCount)
	require.NotNil(t, stats.SparseStats)
	assert.Equal(t, 2, stats.SparseStats.ChunkCount)
}

func TestEngine_Close(t *testing.T) {
	dense := &fakeDense{}
	sparse := &fakeSparse{}
	engine := newTestEngine(t, dense, sparse, chunkStoreWith(nil))

	require.NoError(t, engine.Close())
	assert.True(t, dense.closed)
	assert.True(t, sparse.closed)
}
