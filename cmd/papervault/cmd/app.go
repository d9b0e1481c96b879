package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papervault/papervault/internal/chunk"
	"github.com/papervault/papervault/internal/config"
	"github.com/papervault/papervault/internal/embed"
	"github.com/papervault/papervault/internal/index"
	"github.com/papervault/papervault/internal/search"
	"github.com/papervault/papervault/internal/store"
)

// app bundles the wired components a command needs. Close releases them in
// reverse dependency order.
type app struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	dense    store.DenseIndex
	sparse   store.SparseIndex
	cache    *embed.Cache
	embedder embed.Embedder
	pipeline *index.Pipeline
	engine   *search.Engine
	lock     *index.DataLock

	hnsw *store.HNSWIndex // non-nil when the dense backend is hnsw
}

// openApp wires the full stack from configuration. When exclusive is true
// the data directory lock is acquired, failing fast if another process
// holds it.
func openApp(cfg *config.Config, exclusive bool) (*app, error) {
	a := &app{cfg: cfg}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	if exclusive {
		a.lock = index.NewDataLock(cfg.Storage.DataDir)
		acquired, err := a.lock.TryLock()
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, fmt.Errorf("data directory %s is locked by another papervault process", cfg.Storage.DataDir)
		}
	}

	s, err := store.NewSQLiteStore(cfg.DatabasePath())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a.store = s

	a.embedder = embed.NewStaticEmbedder()
	a.cache = embed.NewCache(cfg.Embeddings.CacheSize)

	if err := a.openDense(); err != nil {
		a.close()
		return nil, err
	}
	if err := a.openSparse(); err != nil {
		a.close()
		return nil, err
	}

	chunker, err := a.buildChunker()
	if err != nil {
		a.close()
		return nil, err
	}

	a.pipeline, err = index.NewPipeline(index.PipelineConfig{
		Store:               a.store,
		Dense:               a.dense,
		Sparse:              a.sparse,
		Cache:               a.cache,
		Embedder:            a.embedder,
		Chunker:             chunker,
		Scorer:              a.buildScorer(),
		Dedup:               a.buildDedup(),
		SimilarityThreshold: cfg.Similarity.Threshold,
		EmbedBatchSize:      cfg.Embeddings.BatchSize,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	engineCfg := search.DefaultEngineConfig()
	engineCfg.DefaultLimit = cfg.Search.MaxResults
	engineCfg.RRFConstant = cfg.Search.RRFConstant
	engineCfg.DefaultWeights = search.Weights{
		Dense:  cfg.Search.DenseWeight,
		Sparse: cfg.Search.SparseWeight,
	}
	sparseForEngine := a.sparse
	if !cfg.Search.Hybrid {
		sparseForEngine = nil
	}
	a.engine, err = search.NewEngine(a.dense, sparseForEngine, a.store, a.cache, a.embedder, engineCfg)
	if err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

// openDense builds the configured dense index and replays persisted state.
func (a *app) openDense() error {
	switch strings.ToLower(a.cfg.Storage.DenseBackend) {
	case "exact":
		a.dense = store.NewExactIndex(a.store)
	case "hnsw":
		h, err := store.NewHNSWIndex(store.DenseConfig{Dimensions: a.embedder.Dimensions()})
		if err != nil {
			return fmt.Errorf("creating dense index: %w", err)
		}
		if err := h.Load(a.cfg.HNSWPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading dense index: %w", err)
		}
		a.hnsw = h
		a.dense = h
	default:
		return fmt.Errorf("unknown dense backend %q", a.cfg.Storage.DenseBackend)
	}
	return nil
}

func (a *app) openSparse() error {
	backend := strings.ToLower(a.cfg.Storage.SparseBackend)
	sparse, err := store.NewSparseIndexWithBackend(
		filepath.Join(a.cfg.Storage.DataDir, "sparse"),
		store.DefaultSparseConfig(),
		backend,
	)
	if err != nil {
		return fmt.Errorf("opening sparse index: %w", err)
	}
	a.sparse = sparse
	return nil
}

func (a *app) buildChunker() (chunk.Chunker, error) {
	switch strings.ToLower(a.cfg.Chunking.Strategy) {
	case "fixed":
		return chunk.NewFixedWindowChunker(chunk.FixedWindowConfig{
			MaxChunkWords: a.cfg.Chunking.MaxChunkWords,
			MinChunkWords: a.cfg.Chunking.MinChunkWords,
			OverlapWords:  a.cfg.Chunking.OverlapWords,
		}), nil
	case "semantic":
		semCfg := chunk.DefaultSemanticConfig()
		semCfg.WindowSize = a.cfg.Chunking.WindowSize
		semCfg.SimilarityThreshold = a.cfg.Chunking.SimilarityThreshold
		semCfg.Margin = a.cfg.Chunking.Margin
		semCfg.MinChunkWords = a.cfg.Chunking.MinChunkWords
		semCfg.MaxChunkWords = a.cfg.Chunking.MaxChunkWords
		return chunk.NewSemanticBoundaryChunker(semCfg, a.cache, a.embedder.EmbedBatch), nil
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q", a.cfg.Chunking.Strategy)
	}
}

func (a *app) buildScorer() *chunk.QualityScorer {
	if !a.cfg.Quality.Enabled {
		return nil
	}
	qCfg := chunk.DefaultQualityConfig()
	qCfg.MinScore = a.cfg.Quality.MinScore
	qCfg.MinWordCount = a.cfg.Quality.MinWordCount
	qCfg.MinSentenceCount = a.cfg.Quality.MinSentenceCount
	return chunk.NewQualityScorer(qCfg)
}

func (a *app) buildDedup() *chunk.Deduplicator {
	if !a.cfg.Dedup.Enabled {
		return nil
	}
	return chunk.NewDeduplicator(chunk.DedupConfig{
		NearThreshold: a.cfg.Dedup.NearThreshold,
		NearWindow:    a.cfg.Dedup.NearWindow,
	})
}

// save persists mutable index state (the HNSW snapshot).
func (a *app) save() error {
	if a.hnsw == nil {
		return nil
	}
	return a.hnsw.Save(a.cfg.HNSWPath())
}

// close releases resources. Safe on a partially constructed app.
func (a *app) close() {
	if a.sparse != nil {
		_ = a.sparse.Close()
	}
	if a.dense != nil {
		_ = a.dense.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.lock != nil {
		_ = a.lock.Unlock()
	}
}
