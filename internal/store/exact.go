package store

import (
	"context"
	"fmt"
)

// ExactIndex adapts SQLiteStore's brute-force cosine scan to the DenseIndex
// interface. The store already owns the embeddings (SaveChunks persists them
// and DeleteDocument cascades), so Add and Delete only validate input; the
// scan always reflects the persisted state.
type ExactIndex struct {
	store *SQLiteStore
}

// NewExactIndex creates the exact search strategy over the given store.
func NewExactIndex(store *SQLiteStore) *ExactIndex {
	return &ExactIndex{store: store}
}

// Add validates dimensions against the store. The vectors themselves are
// persisted by SQLiteStore.SaveChunks, not here.
func (e *ExactIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	dim := e.store.Dimension()
	if dim == 0 {
		return nil
	}
	for _, v := range vectors {
		if v != nil && len(v) != dim {
			return DimensionMismatchError{Expected: dim, Got: len(v)}
		}
	}
	return nil
}

// Search delegates to the store's exact scan.
func (e *ExactIndex) Search(ctx context.Context, query []float32, k int, documentID string) ([]*SearchResult, error) {
	return e.store.Search(ctx, query, k, documentID)
}

// Delete is a no-op: embeddings are removed by the store's cascade delete.
func (e *ExactIndex) Delete(ctx context.Context, ids []string) error {
	return nil
}

// Count returns the number of chunks with stored embeddings.
func (e *ExactIndex) Count() int {
	stats, err := e.store.GetStatistics(context.Background())
	if err != nil {
		return 0
	}
	report, err := e.store.VerifyIntegrity(context.Background())
	if err != nil {
		return stats.ChunkCount
	}
	return stats.ChunkCount - len(report.MissingEmbedding)
}

// Close is a no-op; the underlying store has its own lifecycle.
func (e *ExactIndex) Close() error {
	return nil
}

var _ DenseIndex = (*ExactIndex)(nil)
