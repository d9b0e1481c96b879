package search

import (
	"sort"

	"github.com/papervault/papervault/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter. k=60 is
// empirically validated across retrieval domains.
const DefaultRRFConstant = 60

// FusedResult is a single result after RRF fusion.
type FusedResult struct {
	ChunkID      string
	RRFScore     float64  // Combined RRF score, plus any keyword boost
	DenseScore   float64  // Original cosine similarity (preserved)
	DenseRank    int      // Position in dense list (1-indexed, 0 if absent)
	SparseScore  float64  // Original sparse relevance score (preserved)
	SparseRank   int      // Position in sparse list (1-indexed, 0 if absent)
	InBothLists  bool     // Chunk appeared in both result lists
	MatchedTerms []string // Sparse matched terms (for highlighting)
}

// RRFFusion combines dense and sparse search results using Reciprocal Rank
// Fusion.
//
// Algorithm: RRF_score(c) = Σ weight_i / (k + rank_i)
//
// The sum runs only over the lists that actually contain the chunk; a chunk
// absent from one list simply receives no contribution from it.
type RRFFusion struct {
	K int // RRF smoothing constant
}

// NewRRFFusion creates an RRF fusion instance with the default k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates an RRF fusion with a custom k value.
// If k <= 0, defaults to 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse combines dense and sparse results. Weights are renormalized to sum
// to 1 before scoring.
//
// Results are sorted by: RRFScore (desc) → InBothLists (true first) →
// DenseScore (desc) → ChunkID (asc).
func (f *RRFFusion) Fuse(
	dense []*store.SearchResult,
	sparse []*store.SparseResult,
	weights Weights,
) []*FusedResult {
	if len(dense) == 0 && len(sparse) == 0 {
		return []*FusedResult{}
	}
	weights = weights.normalized()

	scores := make(map[string]*FusedResult, len(dense)+len(sparse))

	for rank, r := range dense {
		result := f.getOrCreate(scores, r.ChunkID)
		result.DenseScore = r.Similarity
		result.DenseRank = rank + 1
		result.RRFScore += weights.Dense / float64(f.K+rank+1)
	}

	for rank, r := range sparse {
		result := f.getOrCreate(scores, r.ChunkID)
		result.SparseScore = r.Score
		result.SparseRank = rank + 1
		result.MatchedTerms = r.MatchedTerms
		result.RRFScore += weights.Sparse / float64(f.K+rank+1)

		if result.DenseRank > 0 {
			result.InBothLists = true
		}
	}

	return f.toSortedSlice(scores)
}

func (f *RRFFusion) getOrCreate(m map[string]*FusedResult, id string) *FusedResult {
	if r, ok := m[id]; ok {
		return r
	}
	r := &FusedResult{ChunkID: id}
	m[id] = r
	return r
}

// toSortedSlice converts the score map to a deterministically ordered slice.
func (f *RRFFusion) toSortedSlice(m map[string]*FusedResult) []*FusedResult {
	results := make([]*FusedResult, 0, len(m))
	for _, r := range m {
		results = append(results, r)
	}
	sortFused(results)
	return results
}

// sortFused orders fused results by score with deterministic tie-breaking.
func sortFused(results []*FusedResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.RRFScore != b.RRFScore {
			return a.RRFScore > b.RRFScore
		}
		if a.InBothLists != b.InBothLists {
			return a.InBothLists
		}
		if a.DenseScore != b.DenseScore {
			return a.DenseScore > b.DenseScore
		}
		return a.ChunkID < b.ChunkID
	})
}
