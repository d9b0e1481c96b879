// Package index orchestrates the document indexing pipeline: chunking,
// quality filtering, deduplication, embedding, and persistence across the
// metadata store and the dense and sparse indices.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papervault/papervault/internal/chunk"
	"github.com/papervault/papervault/internal/embed"
	"github.com/papervault/papervault/internal/store"
)

// DefaultSimilarityThreshold is the minimum cosine similarity for recording
// a document similarity edge.
const DefaultSimilarityThreshold = 0.7

// chunkIDLength is the hex length of derived chunk IDs.
const chunkIDLength = 16

// PipelineConfig contains the pipeline's dependencies and settings.
type PipelineConfig struct {
	// Store is the metadata store, the source of truth for documents,
	// chunks, and embeddings.
	Store *store.SQLiteStore

	// Dense is the dense embedding index.
	Dense store.DenseIndex

	// Sparse is the sparse keyword index. Nil disables sparse indexing.
	Sparse store.SparseIndex

	// Cache deduplicates embedding computation.
	Cache *embed.Cache

	// Embedder generates chunk embeddings.
	Embedder embed.Embedder

	// Chunker splits page text into chunk candidates.
	Chunker chunk.Chunker

	// Scorer filters low-quality chunks. Nil disables quality filtering.
	Scorer *chunk.QualityScorer

	// Dedup removes duplicate chunks. Nil disables deduplication.
	Dedup *chunk.Deduplicator

	// SimilarityThreshold is the minimum cosine similarity for document
	// similarity edges. Defaults to DefaultSimilarityThreshold.
	SimilarityThreshold float64

	// EmbedBatchSize caps one embedding batch. Defaults to
	// embed.DefaultBatchSize.
	EmbedBatchSize int
}

// DocumentInput describes a document to index.
type DocumentInput struct {
	// ID is the document identifier. Empty generates a new UUID.
	ID string

	Title    string
	Author   string
	Year     int
	Metadata map[string]string

	// Pages is the extracted page text, in page order.
	Pages []chunk.PageText
}

// IndexReport summarizes one indexing run.
type IndexReport struct {
	DocumentID      string
	ChunksCreated   int
	ChunksRejected  int
	ChunksDeduped   int
	SimilarDocs     int
	Duration        time.Duration
	RejectionCounts map[chunk.RejectionReason]int
}

// Pipeline indexes documents end to end. A mutex serializes indexing runs;
// context cancellation is honored between pipeline stages, so a cancelled
// run never leaves a partially indexed document visible.
type Pipeline struct {
	cfg PipelineConfig
	mu  sync.Mutex
}

// NewPipeline creates an indexing pipeline. Store, Dense, Cache, Embedder,
// and Chunker are required.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("pipeline: store is required")
	}
	if cfg.Dense == nil {
		return nil, fmt.Errorf("pipeline: dense index is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("pipeline: embedding cache is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("pipeline: embedder is required")
	}
	if cfg.Chunker == nil {
		return nil, fmt.Errorf("pipeline: chunker is required")
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = embed.DefaultBatchSize
	}
	if cfg.EmbedBatchSize > embed.MaxBatchSize {
		cfg.EmbedBatchSize = embed.MaxBatchSize
	}
	return &Pipeline{cfg: cfg}, nil
}

// IndexDocument runs the full pipeline for one document: chunk, filter,
// dedup, embed, persist, and compute similarity edges. If a document with
// the same ID already exists it is deleted and re-indexed from scratch.
func (p *Pipeline) IndexDocument(ctx context.Context, input DocumentInput) (*IndexReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	docID := input.ID
	if docID == "" {
		docID = uuid.NewString()
	}

	// Re-index: remove any previous version before writing the new one.
	if _, err := p.cfg.Store.GetDocument(ctx, docID); err == nil {
		if err := p.deleteLocked(ctx, docID); err != nil {
			return nil, fmt.Errorf("removing previous version: %w", err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking for previous version: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chunks, err := p.cfg.Chunker.Chunk(ctx, input.Pages)
	if err != nil {
		return nil, fmt.Errorf("chunking document %s: %w", docID, err)
	}

	report := &IndexReport{
		DocumentID:      docID,
		RejectionCounts: make(map[chunk.RejectionReason]int),
	}

	if p.cfg.Scorer != nil {
		var rejected []*chunk.QualityError
		chunks, rejected = p.cfg.Scorer.Filter(chunks)
		report.ChunksRejected = len(rejected)
		for _, r := range rejected {
			report.RejectionCounts[r.Reason]++
		}
	}

	// Assign identity before dedup so duplicate groups reference final IDs.
	for i, ch := range chunks {
		ch.DocumentID = docID
		ch.ChunkIndex = i
		ch.ID = chunkID(docID, i)
	}

	if p.cfg.Dedup != nil {
		var dedupResult chunk.DedupResult
		chunks, dedupResult = p.cfg.Dedup.Deduplicate(chunks)
		report.ChunksDeduped = dedupResult.Removed
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding document %s: %w", docID, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := &store.Document{
		ID:        docID,
		Title:     input.Title,
		Author:    input.Author,
		Year:      input.Year,
		PageCount: len(input.Pages),
		Metadata:  input.Metadata,
		CreatedAt: time.Now(),
		IndexedAt: time.Now(),
	}
	if err := p.persist(ctx, doc, chunks, vectors); err != nil {
		return nil, err
	}

	if err := p.cfg.Store.ComputeAndSaveSimilarities(ctx, docID, p.cfg.SimilarityThreshold); err != nil {
		slog.Warn("similarity_computation_failed",
			slog.String("document_id", docID),
			slog.String("error", err.Error()))
	} else if edges, edgeErr := p.cfg.Store.GetSimilarDocuments(ctx, docID); edgeErr == nil {
		report.SimilarDocs = len(edges)
	}

	report.ChunksCreated = len(chunks)
	report.Duration = time.Since(start)

	slog.Info("document_indexed",
		slog.String("document_id", docID),
		slog.Int("chunks", report.ChunksCreated),
		slog.Int("rejected", report.ChunksRejected),
		slog.Int("deduped", report.ChunksDeduped),
		slog.Duration("duration", report.Duration))

	return report, nil
}

// embedChunks embeds chunk contents through the cache in bounded batches.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []*chunk.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.cfg.EmbedBatchSize {
		end := start + p.cfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i, ch := range chunks[start:end] {
			texts[i] = ch.Content
		}
		batch, err := p.cfg.Cache.BatchGetOrCompute(ctx, texts, p.cfg.Embedder.EmbedBatch)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// persist writes the document, chunks, and embeddings to the store and both
// indices. The store write comes first; index writes follow so a failure
// there leaves the source of truth intact.
func (p *Pipeline) persist(ctx context.Context, doc *store.Document, chunks []*chunk.Chunk, vectors [][]float32) error {
	if err := p.cfg.Store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	storeChunks := make([]*store.Chunk, len(chunks))
	for i, ch := range chunks {
		storeChunks[i] = &store.Chunk{
			ID:         ch.ID,
			DocumentID: ch.DocumentID,
			Content:    ch.Content,
			PageNumber: ch.PageNumber,
			ChunkIndex: ch.ChunkIndex,
			StartPos:   ch.StartPos,
			EndPos:     ch.EndPos,
		}
	}
	if err := p.cfg.Store.SaveChunks(ctx, storeChunks, vectors); err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}

	ids := make([]string, len(storeChunks))
	for i, ch := range storeChunks {
		ids[i] = ch.ID
		if setter, ok := p.cfg.Dense.(interface{ SetDocument(chunkID, documentID string) }); ok {
			setter.SetDocument(ch.ID, ch.DocumentID)
		}
	}
	if err := p.cfg.Dense.Add(ctx, ids, vectors); err != nil {
		return fmt.Errorf("adding chunks to dense index: %w", err)
	}

	if p.cfg.Sparse != nil {
		if err := p.cfg.Sparse.Index(ctx, storeChunks); err != nil {
			return fmt.Errorf("indexing chunks in sparse index: %w", err)
		}
	}

	return nil
}

// DeleteDocument removes a document and everything derived from it: chunks,
// embeddings, similarity edges, and index entries. Returns store.ErrNotFound
// if the document does not exist.
func (p *Pipeline) DeleteDocument(ctx context.Context, documentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deleteLocked(ctx, documentID)
}

func (p *Pipeline) deleteLocked(ctx context.Context, documentID string) error {
	chunks, err := p.cfg.Store.GetChunksForDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("loading chunks for %s: %w", documentID, err)
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}

	// Store delete cascades chunks, embeddings, and similarity edges.
	if err := p.cfg.Store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}

	// Index deletes are best effort: the store is the source of truth and
	// search drops orphaned IDs during enrichment.
	if err := p.cfg.Dense.Delete(ctx, ids); err != nil {
		slog.Warn("dense_delete_failed",
			slog.String("document_id", documentID),
			slog.Int("chunks", len(ids)),
			slog.String("error", err.Error()))
	}
	if p.cfg.Sparse != nil {
		if err := p.cfg.Sparse.Delete(ctx, ids); err != nil {
			slog.Warn("sparse_delete_failed",
				slog.String("document_id", documentID),
				slog.Int("chunks", len(ids)),
				slog.String("error", err.Error()))
		}
	}

	slog.Info("document_deleted",
		slog.String("document_id", documentID),
		slog.Int("chunks", len(ids)))
	return nil
}

// chunkID derives a stable chunk identifier from the document ID and chunk
// position.
func chunkID(documentID string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", documentID, index)))
	return hex.EncodeToString(sum[:])[:chunkIDLength]
}
