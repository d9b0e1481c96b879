// Package embed provides the embedding contract, a deterministic local
// embedder, and an LRU cache that memoizes text-to-vector computations.
package embed

import "context"

// Embedding constants.
const (
	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// MaxBatchSize caps batch size to prevent memory exhaustion.
	MaxBatchSize = 256

	// StaticDimensions is the embedding dimension for the static embedder.
	StaticDimensions = 256
)

// Embedder generates fixed-dimension vector embeddings for text.
// Implementations may call out to an external model backend; the dimension
// is constant per deployment.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// ComputeFunc computes the embedding for one text. Used by the cache on miss.
type ComputeFunc func(ctx context.Context, text string) ([]float32, error)

// BatchComputeFunc computes embeddings for several texts in one call,
// preserving input order.
type BatchComputeFunc func(ctx context.Context, texts []string) ([][]float32, error)
