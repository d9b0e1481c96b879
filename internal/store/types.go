// Package store provides persistence for documents, chunks, and embeddings
// (SQLite), the dense vector indexes (exact scan and HNSW), and the sparse
// keyword indexes (SQLite FTS5 and Bleve).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Document is an indexed source document. It owns zero or more chunks.
type Document struct {
	ID           string            // UUID assigned at creation
	Title        string
	Author       string            // Optional
	Year         int               // Optional, 0 when unknown
	PageCount    int
	Metadata     map[string]string // Free-form metadata
	CreatedAt    time.Time
	IndexedAt    time.Time
	LastAccessed time.Time
}

// Chunk is a retrievable unit of document text.
type Chunk struct {
	ID         string // SHA256(documentID + chunkIndex)[:16]
	DocumentID string // Parent document ID
	Content    string
	PageNumber int // 1-indexed source page
	ChunkIndex int // Monotonic within a document
	StartPos   int // Offset into the source page text
	EndPos     int
}

// SimilarityEdge records cross-document similarity above a threshold.
// Computed after indexing by comparing a new document's chunk embeddings
// against all previously stored chunks.
type SimilarityEdge struct {
	SourceDocumentID string
	TargetDocumentID string
	Score            float64
}

// SearchResult is a single dense similarity result.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Similarity float64
}

// Statistics reports store-wide counts.
type Statistics struct {
	DocumentCount int
	ChunkCount    int
	EdgeCount     int
}

// IntegrityReport lists referential problems found by VerifyIntegrity.
type IntegrityReport struct {
	OrphanedChunks   []string // Chunk IDs whose parent document is missing
	MissingEmbedding []string // Chunk IDs with no stored embedding
	DimensionDrift   []string // Chunk IDs whose embedding dimension disagrees with the store
}

// OK reports whether the store passed all integrity checks.
func (r *IntegrityReport) OK() bool {
	return len(r.OrphanedChunks) == 0 &&
		len(r.MissingEmbedding) == 0 &&
		len(r.DimensionDrift) == 0
}

// ErrNotFound is returned when a document or chunk does not exist.
var ErrNotFound = errors.New("not found")

// DimensionMismatchError indicates a vector whose dimension disagrees with
// the dimension established for the store or index.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// DenseIndex is the capability interface for vector similarity search.
// Both the exact brute-force scan and the approximate HNSW index implement
// it; callers select the strategy via configuration.
type DenseIndex interface {
	// Add inserts vectors keyed by chunk ID. Existing IDs are replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds the k nearest chunks to the query vector. A non-empty
	// documentID restricts results to that document's chunks.
	Search(ctx context.Context, query []float32, k int, documentID string) ([]*SearchResult, error)

	// Delete removes vectors by chunk ID.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of indexed vectors.
	Count() int

	Close() error
}

// SparseResult is a single keyword search result.
type SparseResult struct {
	ChunkID      string
	Score        float64
	MatchedTerms []string
}

// SparseIndex provides keyword search over chunk content.
type SparseIndex interface {
	// Index adds chunks to the index. Existing IDs are replaced.
	Index(ctx context.Context, chunks []*Chunk) error

	// Search returns chunks matching the query text, best first.
	// A non-empty documentID restricts results to that document.
	Search(ctx context.Context, query string, k int, documentID string) ([]*SparseResult, error)

	// Delete removes chunks from the index.
	Delete(ctx context.Context, chunkIDs []string) error

	// AllIDs returns every indexed chunk ID, for consistency checks.
	AllIDs() ([]string, error)

	// Stats returns index statistics.
	Stats() *SparseStats

	Close() error
}

// SparseStats provides statistics about a sparse index.
type SparseStats struct {
	ChunkCount int
}

// SparseConfig configures the sparse keyword index.
type SparseConfig struct {
	// StopWords are filtered out during tokenization.
	StopWords []string

	// MinTokenLength is the minimum token length to index (default: 2).
	MinTokenLength int
}

// DefaultSparseConfig returns defaults tuned for research prose.
func DefaultSparseConfig() SparseConfig {
	return SparseConfig{
		StopWords:      DefaultProseStopWords,
		MinTokenLength: 2,
	}
}

// DefaultProseStopWords contains high-frequency English words that carry no
// retrieval signal in academic text.
var DefaultProseStopWords = []string{
	"the", "a", "an", "and", "or", "but", "of", "in", "on", "at", "to",
	"for", "with", "by", "from", "as", "is", "are", "was", "were", "be",
	"been", "this", "that", "these", "those", "it", "its", "we", "our",
	"which", "can", "has", "have", "had", "not", "also",
}

// DenseConfig configures a dense vector index.
type DenseConfig struct {
	// Dimensions is the fixed embedding dimension for this index.
	Dimensions int

	// M is the HNSW max connections per layer (default: 16).
	M int

	// EfSearch is the HNSW query-time search width (default: 20).
	EfSearch int
}

// DefaultDenseConfig returns sensible defaults for the given dimension.
func DefaultDenseConfig(dimensions int) DenseConfig {
	return DenseConfig{
		Dimensions: dimensions,
		M:          16,
		EfSearch:   20,
	}
}
