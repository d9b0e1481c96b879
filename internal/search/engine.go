package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/papervault/papervault/internal/embed"
	"github.com/papervault/papervault/internal/store"
)

// ErrNilDependency is returned when a required engine dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// ChunkStore is the metadata access the engine needs to enrich results.
type ChunkStore interface {
	GetChunks(ctx context.Context, ids []string) ([]*store.Chunk, error)
}

// Engine implements hybrid search over a dense embedding index and a sparse
// keyword index. Dense and sparse searches run in parallel; results are
// fused with RRF and matched keywords boost the fused score.
type Engine struct {
	dense    store.DenseIndex
	sparse   store.SparseIndex // nil when sparse search is unavailable
	chunks   ChunkStore
	cache    *embed.Cache
	embedder embed.Embedder
	config   EngineConfig
	fusion   *RRFFusion
	mu       sync.RWMutex
}

// NewEngine creates a hybrid search engine. sparse may be nil, in which case
// every query degrades to dense-only search. Returns an error if any other
// dependency is nil.
func NewEngine(
	dense store.DenseIndex,
	sparse store.SparseIndex,
	chunks ChunkStore,
	cache *embed.Cache,
	embedder embed.Embedder,
	config EngineConfig,
) (*Engine, error) {
	if dense == nil {
		return nil, fmt.Errorf("%w: dense index is required", ErrNilDependency)
	}
	if chunks == nil {
		return nil, fmt.Errorf("%w: chunk store is required", ErrNilDependency)
	}
	if cache == nil {
		return nil, fmt.Errorf("%w: embedding cache is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	config = config.withDefaults()
	return &Engine{
		dense:    dense,
		sparse:   sparse,
		chunks:   chunks,
		cache:    cache,
		embedder: embedder,
		config:   config,
		fusion:   NewRRFFusionWithK(config.RRFConstant),
	}, nil
}

// Search executes a hybrid search. The query is embedded through the cache,
// dense and sparse searches run in parallel, and results are RRF-fused with
// a keyword boost for chunks containing literal query terms. When sparse
// search is unavailable or fails, dense results are returned unmodified.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	opts = e.applyDefaults(opts)

	ctx, cancel := context.WithTimeout(ctx, e.config.SearchTimeout)
	defer cancel()

	queryVector, err := e.cache.GetOrCompute(ctx, query, e.embedder.Embed)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates := opts.Limit * e.config.CandidateFactor

	if opts.DenseOnly || e.sparse == nil {
		denseResults, denseErr := e.dense.Search(ctx, queryVector, opts.Limit, opts.DocumentID)
		if denseErr != nil {
			return nil, fmt.Errorf("dense search: %w", denseErr)
		}
		return e.denseOnlyResults(ctx, denseResults)
	}

	denseResults, sparseResults, searchErr := e.parallelSearch(ctx, query, queryVector, candidates, opts.DocumentID)
	if searchErr != nil {
		if denseResults == nil {
			return nil, searchErr
		}
		// Sparse failed; fall back to dense-only unmodified.
		slog.Warn("sparse_search_failed",
			slog.String("error", searchErr.Error()))
		if len(denseResults) > opts.Limit {
			denseResults = denseResults[:opts.Limit]
		}
		return e.denseOnlyResults(ctx, denseResults)
	}

	fused := e.fusion.Fuse(denseResults, sparseResults, *opts.Weights)
	e.applyKeywordBoost(ctx, query, fused)
	sortFused(fused)

	if len(fused) > opts.Limit {
		fused = fused[:opts.Limit]
	}
	return e.enrichResults(ctx, fused)
}

// parallelSearch runs dense and sparse searches concurrently. A sparse
// failure is reported through err with the dense results intact, so the
// caller can degrade gracefully. A dense failure is fatal.
func (e *Engine) parallelSearch(ctx context.Context, query string, queryVector []float32, limit int, documentID string) (
	denseResults []*store.SearchResult,
	sparseResults []*store.SparseResult,
	err error,
) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var searchErr error
		denseResults, searchErr = e.dense.Search(gctx, queryVector, limit, documentID)
		if searchErr != nil {
			return fmt.Errorf("dense search: %w", searchErr)
		}
		return nil
	})

	var sparseErr error
	g.Go(func() error {
		var searchErr error
		sparseResults, searchErr = e.sparse.Search(gctx, query, limit, documentID)
		if searchErr != nil {
			// Degrade to dense-only rather than failing the query.
			sparseErr = searchErr
			sparseResults = nil
		}
		return nil
	})

	if groupErr := g.Wait(); groupErr != nil {
		return nil, nil, groupErr
	}
	if sparseErr != nil {
		return denseResults, nil, fmt.Errorf("sparse search: %w", sparseErr)
	}
	return denseResults, sparseResults, nil
}

// applyKeywordBoost multiplies the fused score for chunks whose content
// contains any sufficiently long query token, case-insensitive. Enrichment
// has not happened yet, so content is fetched for the fused candidates only.
func (e *Engine) applyKeywordBoost(ctx context.Context, query string, fused []*FusedResult) {
	keywords := e.boostKeywords(query)
	if len(keywords) == 0 || len(fused) == 0 {
		return
	}

	ids := make([]string, len(fused))
	for i, r := range fused {
		ids[i] = r.ChunkID
	}
	chunks, err := e.chunks.GetChunks(ctx, ids)
	if err != nil {
		slog.Warn("keyword_boost_lookup_failed",
			slog.String("error", err.Error()))
		return
	}
	contentByID := make(map[string]string, len(chunks))
	for _, ch := range chunks {
		contentByID[ch.ID] = strings.ToLower(ch.Content)
	}

	for _, r := range fused {
		content, ok := contentByID[r.ChunkID]
		if !ok {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(content, kw) {
				r.RRFScore *= e.config.KeywordBoost
				break
			}
		}
	}
}

// boostKeywords returns the lowercased query tokens long enough to count as
// distinctive keywords.
func (e *Engine) boostKeywords(query string) []string {
	var keywords []string
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(token)) >= e.config.MinKeywordLength {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// denseOnlyResults wraps raw dense results without fusion or boosting.
func (e *Engine) denseOnlyResults(ctx context.Context, denseResults []*store.SearchResult) ([]*SearchResult, error) {
	if len(denseResults) == 0 {
		return []*SearchResult{}, nil
	}
	ids := make([]string, len(denseResults))
	for i, r := range denseResults {
		ids[i] = r.ChunkID
	}
	chunkByID, err := e.chunkMap(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(denseResults))
	for rank, r := range denseResults {
		chunk, ok := chunkByID[r.ChunkID]
		if !ok {
			// Index orphan; skip rather than fail the query.
			continue
		}
		results = append(results, &SearchResult{
			Chunk:      chunk,
			Score:      r.Similarity,
			DenseScore: r.Similarity,
			DenseRank:  rank + 1,
		})
	}
	return results, nil
}

// enrichResults attaches full chunk metadata to fused results. Orphaned IDs
// with no chunk row are dropped.
func (e *Engine) enrichResults(ctx context.Context, fused []*FusedResult) ([]*SearchResult, error) {
	if len(fused) == 0 {
		return []*SearchResult{}, nil
	}
	ids := make([]string, len(fused))
	for i, r := range fused {
		ids[i] = r.ChunkID
	}
	chunkByID, err := e.chunkMap(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(fused))
	for _, r := range fused {
		chunk, ok := chunkByID[r.ChunkID]
		if !ok {
			continue
		}
		results = append(results, &SearchResult{
			Chunk:        chunk,
			Score:        r.RRFScore,
			DenseScore:   r.DenseScore,
			SparseScore:  r.SparseScore,
			DenseRank:    r.DenseRank,
			SparseRank:   r.SparseRank,
			InBothLists:  r.InBothLists,
			MatchedTerms: r.MatchedTerms,
		})
	}
	return results, nil
}

func (e *Engine) chunkMap(ctx context.Context, ids []string) (map[string]*store.Chunk, error) {
	chunks, err := e.chunks.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading chunk metadata: %w", err)
	}
	m := make(map[string]*store.Chunk, len(chunks))
	for _, ch := range chunks {
		m[ch.ID] = ch
	}
	return m, nil
}

// Stats returns engine statistics.
func (e *Engine) Stats() *EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := &EngineStats{
		DenseCount:  e.dense.Count(),
		CacheHits:   e.cache.Hits(),
		CacheMisses: e.cache.Misses(),
	}
	if e.sparse != nil {
		stats.SparseStats = e.sparse.Stats()
	}
	return stats
}

// Close releases the engine's indices. The chunk store is owned by the
// caller and is not closed here.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if err := e.dense.Close(); err != nil {
		errs = append(errs, err)
	}
	if e.sparse != nil {
		if err := e.sparse.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// applyDefaults fills in default values for search options.
func (e *Engine) applyDefaults(opts SearchOptions) SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = e.config.DefaultLimit
	}
	if opts.Limit > e.config.MaxLimit {
		opts.Limit = e.config.MaxLimit
	}
	if opts.Weights == nil {
		w := e.config.DefaultWeights
		opts.Weights = &w
	}
	return opts
}
