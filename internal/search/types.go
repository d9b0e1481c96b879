// Package search provides hybrid retrieval combining sparse keyword search
// and dense embedding search. Results are fused using Reciprocal Rank
// Fusion (RRF).
package search

import (
	"time"

	"github.com/papervault/papervault/internal/store"
)

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results to return (default: 10, max: 100).
	Limit int

	// DocumentID restricts results to a single document. Empty means all
	// documents.
	DocumentID string

	// Weights overrides the default dense/sparse weights.
	Weights *Weights

	// DenseOnly skips sparse search entirely and returns pure embedding
	// similarity results, with no fusion and no keyword boost.
	DenseOnly bool
}

// Weights configures the relative importance of dense vs sparse search.
// Values are renormalized to sum to 1 before fusion.
type Weights struct {
	// Dense is the weight for embedding similarity search.
	Dense float64

	// Sparse is the weight for keyword search.
	Sparse float64
}

// DefaultWeights returns the default search weights.
func DefaultWeights() Weights {
	return Weights{
		Dense:  0.6,
		Sparse: 0.4,
	}
}

// normalized returns the weights scaled to sum to 1. Non-positive weights
// fall back to the defaults.
func (w Weights) normalized() Weights {
	total := w.Dense + w.Sparse
	if total <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Dense:  w.Dense / total,
		Sparse: w.Sparse / total,
	}
}

// SearchResult is a single search result with scores and chunk metadata.
type SearchResult struct {
	// Chunk contains the full chunk data from the store.
	Chunk *store.Chunk

	// Score is the fused RRF score, including any keyword boost. In
	// dense-only mode it is the raw cosine similarity.
	Score float64

	// DenseScore is the cosine similarity from the dense index (0 if absent).
	DenseScore float64

	// SparseScore is the relevance score from the sparse index (0 if absent).
	SparseScore float64

	// DenseRank is the position in dense results (1-indexed, 0 if absent).
	DenseRank int

	// SparseRank is the position in sparse results (1-indexed, 0 if absent).
	SparseRank int

	// InBothLists indicates the chunk appeared in both result lists.
	InBothLists bool

	// MatchedTerms contains the sparse query terms that matched this chunk.
	MatchedTerms []string
}

// EngineStats provides statistics about the search engine.
type EngineStats struct {
	SparseStats *store.SparseStats
	DenseCount  int
	CacheHits   int
	CacheMisses int
}

// EngineConfig configures the search engine.
type EngineConfig struct {
	// DefaultLimit is the default number of results (default: 10).
	DefaultLimit int

	// MaxLimit is the maximum allowed results (default: 100).
	MaxLimit int

	// DefaultWeights are the default dense/sparse weights.
	DefaultWeights Weights

	// RRFConstant is the RRF smoothing constant k (default: 60).
	RRFConstant int

	// CandidateFactor multiplies the limit when querying each index, so
	// fusion sees more candidates than the caller asked for (default: 3).
	CandidateFactor int

	// KeywordBoost multiplies the fused score of chunks containing a
	// literal query keyword (default: 2.0).
	KeywordBoost float64

	// MinKeywordLength is the minimum token length for the keyword boost
	// (default: 5, i.e. tokens longer than 4 characters).
	MinKeywordLength int

	// SearchTimeout is the maximum search duration (default: 5s).
	SearchTimeout time.Duration
}

// DefaultEngineConfig returns sensible engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:     10,
		MaxLimit:         100,
		DefaultWeights:   DefaultWeights(),
		RRFConstant:      DefaultRRFConstant,
		CandidateFactor:  3,
		KeywordBoost:     2.0,
		MinKeywordLength: 5,
		SearchTimeout:    5 * time.Second,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	def := DefaultEngineConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = def.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = def.MaxLimit
	}
	if c.DefaultWeights.Dense <= 0 && c.DefaultWeights.Sparse <= 0 {
		c.DefaultWeights = def.DefaultWeights
	}
	if c.RRFConstant <= 0 {
		c.RRFConstant = def.RRFConstant
	}
	if c.CandidateFactor <= 0 {
		c.CandidateFactor = def.CandidateFactor
	}
	if c.KeywordBoost <= 0 {
		c.KeywordBoost = def.KeywordBoost
	}
	if c.MinKeywordLength <= 0 {
		c.MinKeywordLength = def.MinKeywordLength
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = def.SearchTimeout
	}
	return c
}
