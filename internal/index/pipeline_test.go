package index

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papervault/papervault/internal/chunk"
	"github.com/papervault/papervault/internal/embed"
	"github.com/papervault/papervault/internal/store"
)

// testEnv wires a pipeline against real stores in a temp directory.
type testEnv struct {
	store    *store.SQLiteStore
	sparse   store.SparseIndex
	pipeline *Pipeline
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	s, err := store.NewSQLiteStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	sparse, err := store.NewFTSIndex("", store.DefaultSparseConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sparse.Close() })

	embedder := embed.NewStaticEmbedder()
	cache := embed.NewCache(1000)

	pipeline, err := NewPipeline(PipelineConfig{
		Store:    s,
		Dense:    store.NewExactIndex(s),
		Sparse:   sparse,
		Cache:    cache,
		Embedder: embedder,
		Chunker: chunk.NewFixedWindowChunker(chunk.FixedWindowConfig{
			MaxChunkWords: 60,
			MinChunkWords: 10,
			OverlapWords:  5,
		}),
		Scorer: chunk.NewQualityScorer(chunk.QualityConfig{}),
		Dedup:  chunk.NewDeduplicator(chunk.DedupConfig{}),
	})
	require.NoError(t, err)

	return &testEnv{store: s, sparse: sparse, pipeline: pipeline}
}

// prosePages builds pages of varied sentences that pass quality scoring.
func prosePages(pageCount, sentencesPerPage int, topic string) []chunk.PageText {
	pages := make([]chunk.PageText, pageCount)
	n := 0
	for p := range pages {
		var b strings.Builder
		for s := 0; s < sentencesPerPage; s++ {
			n++
			fmt.Fprintf(&b, "The %s experiment number %d measured throughput under varied workload conditions. ", topic, n)
		}
		pages[p] = chunk.PageText{PageNumber: p + 1, Text: b.String()}
	}
	return pages
}

func TestPipeline_IndexDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report, err := env.pipeline.IndexDocument(ctx, DocumentInput{
		ID:    "doc-1",
		Title: "Throughput Study",
		Pages: prosePages(2, 12, "caching"),
	})
	require.NoError(t, err)

	assert.Equal(t, "doc-1", report.DocumentID)
	assert.Greater(t, report.ChunksCreated, 0)
	assert.Greater(t, report.Duration.Nanoseconds(), int64(0))

	doc, err := env.store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Throughput Study", doc.Title)
	assert.Equal(t, 2, doc.PageCount)

	chunks, err := env.store.GetChunksForDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, report.ChunksCreated)

	// Every persisted chunk has an embedding and a sparse entry.
	for _, ch := range chunks {
		_, err := env.store.GetEmbedding(ctx, ch.ID)
		assert.NoError(t, err)
	}
	assert.Equal(t, report.ChunksCreated, env.sparse.Stats().ChunkCount)

	integrity, err := env.store.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, integrity.OK())
}

func TestPipeline_IndexDocument_GeneratesID(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.pipeline.IndexDocument(context.Background(), DocumentInput{
		Title: "Untitled",
		Pages: prosePages(1, 12, "storage"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, report.DocumentID)
}

func TestPipeline_IndexDocument_StableChunkIDs(t *testing.T) {
	assert.Equal(t, chunkID("doc-1", 0), chunkID("doc-1", 0))
	assert.NotEqual(t, chunkID("doc-1", 0), chunkID("doc-1", 1))
	assert.NotEqual(t, chunkID("doc-1", 0), chunkID("doc-2", 0))
	assert.Len(t, chunkID("doc-1", 0), chunkIDLength)
}

func TestPipeline_Reindex_ReplacesPreviousVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.pipeline.IndexDocument(ctx, DocumentInput{
		ID:    "doc-1",
		Title: "Version One",
		Pages: prosePages(3, 12, "networking"),
	})
	require.NoError(t, err)

	second, err := env.pipeline.IndexDocument(ctx, DocumentInput{
		ID:    "doc-1",
		Title: "Version Two",
		Pages: prosePages(1, 12, "networking"),
	})
	require.NoError(t, err)
	assert.Less(t, second.ChunksCreated, first.ChunksCreated)

	doc, err := env.store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Version Two", doc.Title)

	chunks, err := env.store.GetChunksForDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, second.ChunksCreated)
	assert.Equal(t, second.ChunksCreated, env.sparse.Stats().ChunkCount)
}

func TestPipeline_RejectsLowQualityChunks(t *testing.T) {
	env := newTestEnv(t)

	// One page of prose, one page of a repeated word.
	pages := prosePages(1, 12, "genomics")
	pages = append(pages, chunk.PageText{
		PageNumber: 2,
		Text:       strings.Repeat("header ", 40),
	})

	report, err := env.pipeline.IndexDocument(context.Background(), DocumentInput{
		ID:    "doc-1",
		Pages: pages,
	})
	require.NoError(t, err)
	assert.Greater(t, report.ChunksRejected, 0)
	assert.Greater(t, report.RejectionCounts[chunk.RejectLowEntropy], 0)
}

func TestPipeline_SimilarityEdges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.pipeline.IndexDocument(ctx, DocumentInput{
		ID:    "doc-1",
		Pages: prosePages(1, 12, "compression"),
	})
	require.NoError(t, err)

	// Same topic, near-identical text: similarity should clear the default
	// threshold.
	report, err := env.pipeline.IndexDocument(ctx, DocumentInput{
		ID:    "doc-2",
		Pages: prosePages(1, 12, "compression"),
	})
	require.NoError(t, err)
	assert.Greater(t, report.SimilarDocs, 0)

	edges, err := env.store.GetSimilarDocuments(ctx, "doc-2")
	require.NoError(t, err)
	require.NotEmpty(t, edges)
	assert.GreaterOrEqual(t, edges[0].Score, DefaultSimilarityThreshold)
}

func TestPipeline_DeleteDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.pipeline.IndexDocument(ctx, DocumentInput{
		ID:    "doc-1",
		Pages: prosePages(2, 12, "scheduling"),
	})
	require.NoError(t, err)
	_, err = env.pipeline.IndexDocument(ctx, DocumentInput{
		ID:    "doc-2",
		Pages: prosePages(1, 12, "databases"),
	})
	require.NoError(t, err)

	require.NoError(t, env.pipeline.DeleteDocument(ctx, "doc-1"))

	_, err = env.store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	chunks, err := env.store.GetChunksForDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// The other document and its sparse entries remain.
	kept, err := env.store.GetChunksForDocument(ctx, "doc-2")
	require.NoError(t, err)
	assert.NotEmpty(t, kept)
	assert.Equal(t, len(kept), env.sparse.Stats().ChunkCount)
}

func TestPipeline_DeleteDocument_NotFound(t *testing.T) {
	env := newTestEnv(t)

	err := env.pipeline.DeleteDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPipeline_CancelledContext(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.pipeline.IndexDocument(ctx, DocumentInput{
		ID:    "doc-1",
		Pages: prosePages(1, 12, "cancelled"),
	})
	assert.Error(t, err)

	// Nothing was persisted.
	_, err = env.store.GetDocument(context.Background(), "doc-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNewPipeline_MissingDependencies(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	base := PipelineConfig{
		Store:    s,
		Dense:    store.NewExactIndex(s),
		Cache:    embed.NewCache(10),
		Embedder: embed.NewStaticEmbedder(),
		Chunker:  chunk.NewFixedWindowChunker(chunk.FixedWindowConfig{}),
	}

	_, err = NewPipeline(base)
	assert.NoError(t, err)

	for name, strip := range map[string]func(*PipelineConfig){
		"store":    func(c *PipelineConfig) { c.Store = nil },
		"dense":    func(c *PipelineConfig) { c.Dense = nil },
		"cache":    func(c *PipelineConfig) { c.Cache = nil },
		"embedder": func(c *PipelineConfig) { c.Embedder = nil },
		"chunker":  func(c *PipelineConfig) { c.Chunker = nil },
	} {
		cfg := base
		strip(&cfg)
		_, err := NewPipeline(cfg)
		assert.Error(t, err, "missing %s must fail", name)
	}
}

func TestDataLock(t *testing.T) {
	dir := t.TempDir()

	a := NewDataLock(dir)
	acquired, err := a.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	assert.True(t, a.IsLocked())
	assert.Equal(t, filepath.Join(dir, ".papervault.lock"), a.Path())

	require.NoError(t, a.Unlock())
	assert.False(t, a.IsLocked())

	// Unlock on an unlocked lock is a no-op.
	assert.NoError(t, a.Unlock())

	b := NewDataLock(dir)
	acquired, err = b.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired)
	require.NoError(t, b.Unlock())
}
