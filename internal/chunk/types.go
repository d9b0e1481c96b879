// Package chunk turns extracted page text into retrievable chunks: a fixed
// word-window chunker, an embedding-driven semantic boundary chunker, a
// quality scorer that filters low-information chunks, and a deduplicator.
package chunk

import "context"

// Word-count defaults shared by both chunkers.
const (
	DefaultMaxChunkWords = 300 // Upper bound per chunk
	DefaultMinChunkWords = 50  // Chunks below this are merged
	DefaultOverlapWords  = 30  // Overlap between fixed windows

	// WordCountTolerance is the fixed slack allowed above the configured
	// maximum when a trailing fragment is folded into the previous chunk.
	WordCountTolerance = 10
)

// PageText is one page of extracted document text, as produced by the
// external extractor.
type PageText struct {
	PageNumber int // 1-indexed
	Text       string
}

// Chunk is a chunk candidate emitted by a chunker. IDs and document
// ownership are assigned by the indexing pipeline before persistence.
type Chunk struct {
	ID         string // Assigned by the pipeline
	DocumentID string // Assigned by the pipeline
	Content    string
	PageNumber int // Source page (first page for assembled chunks)
	ChunkIndex int // Monotonic per document
	StartPos   int // Offset into the source page text
	EndPos     int

	// sentences carries the source sentences for chunks assembled by the
	// semantic chunker, so merges and re-splits keep page attribution.
	sentences []Sentence
}

// WordCount returns the number of whitespace-separated words in the chunk.
func (c *Chunk) WordCount() int {
	return len(splitWords(c.Content))
}

// Chunker splits page text into chunk candidates. Implementations never fail
// on malformed input; pages without extractable text yield zero chunks. The
// error return is reserved for external embedding failures.
type Chunker interface {
	Chunk(ctx context.Context, pages []PageText) ([]*Chunk, error)
}

// FixedWindowConfig configures the fixed word-window chunker.
type FixedWindowConfig struct {
	MaxChunkWords int // Window size in words
	MinChunkWords int // Trailing fragments below this are merged back
	OverlapWords  int // Words shared by consecutive windows
}

// DefaultFixedWindowConfig returns the default fixed-window settings.
func DefaultFixedWindowConfig() FixedWindowConfig {
	return FixedWindowConfig{
		MaxChunkWords: DefaultMaxChunkWords,
		MinChunkWords: DefaultMinChunkWords,
		OverlapWords:  DefaultOverlapWords,
	}
}

// withDefaults overlays zero-valued fields with defaults.
func (c FixedWindowConfig) withDefaults() FixedWindowConfig {
	def := DefaultFixedWindowConfig()
	if c.MaxChunkWords == 0 {
		c.MaxChunkWords = def.MaxChunkWords
	}
	if c.MinChunkWords == 0 {
		c.MinChunkWords = def.MinChunkWords
	}
	if c.OverlapWords == 0 {
		c.OverlapWords = def.OverlapWords
	}
	return c
}

// SemanticConfig configures the semantic boundary chunker.
type SemanticConfig struct {
	// WindowSize is the number of consecutive sentences per sliding window.
	WindowSize int

	// SimilarityThreshold flags a boundary when consecutive-window
	// similarity drops below min(threshold, runningAverage - Margin).
	SimilarityThreshold float64

	// Margin is subtracted from the running average similarity.
	Margin float64

	// MinBoundaryDistance is the minimum sentence distance between
	// boundaries; of two closer boundaries the higher-confidence one wins.
	MinBoundaryDistance int

	// MinChunkWords merges undersized chunks forward.
	MinChunkWords int

	// MaxChunkWords re-splits oversized chunks at sentence granularity.
	MaxChunkWords int

	// SentenceOverlap is carried between sub-chunks during re-splitting.
	SentenceOverlap int

	// Abbreviations are sentence-terminator exceptions ("dr", "etc", ...),
	// matched case-insensitively without the trailing period.
	Abbreviations []string
}

// DefaultAbbreviations are common non-terminating period words in academic
// prose.
var DefaultAbbreviations = []string{
	"dr", "mr", "mrs", "ms", "prof", "sr", "jr", "st",
	"etc", "vs", "al", "eq", "fig", "figs", "sec", "ref", "refs",
	"e.g", "i.e", "cf", "no", "vol", "pp", "ca",
}

// DefaultSemanticConfig returns the default semantic chunker settings.
func DefaultSemanticConfig() SemanticConfig {
	return SemanticConfig{
		WindowSize:          3,
		SimilarityThreshold: 0.75,
		Margin:              0.1,
		MinBoundaryDistance: 2,
		MinChunkWords:       DefaultMinChunkWords,
		MaxChunkWords:       DefaultMaxChunkWords,
		SentenceOverlap:     1,
		Abbreviations:       DefaultAbbreviations,
	}
}

// withDefaults overlays zero-valued fields with defaults.
func (c SemanticConfig) withDefaults() SemanticConfig {
	def := DefaultSemanticConfig()
	if c.WindowSize == 0 {
		c.WindowSize = def.WindowSize
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = def.SimilarityThreshold
	}
	if c.Margin == 0 {
		c.Margin = def.Margin
	}
	if c.MinBoundaryDistance == 0 {
		c.MinBoundaryDistance = def.MinBoundaryDistance
	}
	if c.MinChunkWords == 0 {
		c.MinChunkWords = def.MinChunkWords
	}
	if c.MaxChunkWords == 0 {
		c.MaxChunkWords = def.MaxChunkWords
	}
	if c.SentenceOverlap == 0 {
		c.SentenceOverlap = def.SentenceOverlap
	}
	if c.Abbreviations == nil {
		c.Abbreviations = def.Abbreviations
	}
	return c
}
