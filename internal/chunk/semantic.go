package chunk

import (
	"context"
	"fmt"
	"strings"

	"github.com/papervault/papervault/internal/embed"
	"github.com/papervault/papervault/internal/store"
)

// SemanticBoundaryChunker splits documents at topic shifts instead of fixed
// word counts. It slides a window of consecutive sentences across the
// document, embeds each window, and places a boundary wherever the cosine
// similarity between neighboring windows drops below an adaptive threshold.
type SemanticBoundaryChunker struct {
	cfg     SemanticConfig
	cache   *embed.Cache
	batchFn embed.BatchComputeFunc
}

// NewSemanticBoundaryChunker builds a chunker that embeds sentence windows
// through the given cache. batchFn is invoked once per document for all
// windows the cache misses.
func NewSemanticBoundaryChunker(cfg SemanticConfig, cache *embed.Cache, batchFn embed.BatchComputeFunc) *SemanticBoundaryChunker {
	return &SemanticBoundaryChunker{
		cfg:     cfg.withDefaults(),
		cache:   cache,
		batchFn: batchFn,
	}
}

// boundary is a candidate split point before sentence index Index.
type boundary struct {
	Index      int
	Confidence float64
}

// Chunk splits the pages into semantically coherent chunks. Documents shorter
// than one window fall through as a single chunk.
func (c *SemanticBoundaryChunker) Chunk(ctx context.Context, pages []PageText) ([]*Chunk, error) {
	splitter := newSentenceSplitter(c.cfg.Abbreviations)

	var sentences []Sentence
	for _, page := range pages {
		sentences = append(sentences, splitter.Split(page)...)
	}
	if len(sentences) == 0 {
		return nil, nil
	}

	if len(sentences) <= c.cfg.WindowSize {
		chunk := c.assemble(sentences, 0)
		return []*Chunk{chunk}, nil
	}

	sims, err := c.windowSimilarities(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("computing window similarities: %w", err)
	}

	boundaries := c.detectBoundaries(sims)
	boundaries = c.filterBoundaries(boundaries)

	chunks := c.assembleRanges(sentences, boundaries)
	chunks = c.mergeSmall(chunks, sentences)
	chunks = c.splitLarge(chunks)

	for i, ch := range chunks {
		ch.ChunkIndex = i
	}
	return chunks, nil
}

// windowSimilarities embeds every sliding window of WindowSize sentences and
// returns the cosine similarity between each consecutive pair of windows.
// sims[i] compares the window starting at sentence i with the one at i+1.
func (c *SemanticBoundaryChunker) windowSimilarities(ctx context.Context, sentences []Sentence) ([]float64, error) {
	numWindows := len(sentences) - c.cfg.WindowSize + 1
	texts := make([]string, numWindows)
	for i := 0; i < numWindows; i++ {
		parts := make([]string, c.cfg.WindowSize)
		for j := 0; j < c.cfg.WindowSize; j++ {
			parts[j] = sentences[i+j].Text
		}
		texts[i] = strings.Join(parts, " ")
	}

	vectors, err := c.cache.BatchGetOrCompute(ctx, texts, c.batchFn)
	if err != nil {
		return nil, err
	}

	sims := make([]float64, numWindows-1)
	for i := 0; i < numWindows-1; i++ {
		sims[i] = store.CosineSimilarity(vectors[i], vectors[i+1])
	}
	return sims, nil
}

// detectBoundaries scans consecutive-window similarities and emits a boundary
// wherever similarity falls below both the configured threshold and the
// running average minus the margin. The boundary lands before the first
// sentence of the second window.
func (c *SemanticBoundaryChunker) detectBoundaries(sims []float64) []boundary {
	var boundaries []boundary
	var sum float64
	for i, sim := range sims {
		cutoff := c.cfg.SimilarityThreshold
		if i > 0 {
			avg := sum / float64(i)
			if adaptive := avg - c.cfg.Margin; adaptive < cutoff {
				cutoff = adaptive
			}
		}
		if sim < cutoff {
			confidence := cutoff - sim
			if cutoff > 0 {
				confidence = confidence / cutoff
			}
			if confidence > 1 {
				confidence = 1
			}
			boundaries = append(boundaries, boundary{
				Index:      i + c.cfg.WindowSize,
				Confidence: confidence,
			})
		}
		sum += sim
	}
	return boundaries
}

// filterBoundaries drops boundaries closer than MinBoundaryDistance sentences
// to a stronger neighbor, keeping the higher-confidence one of each pair.
func (c *SemanticBoundaryChunker) filterBoundaries(boundaries []boundary) []boundary {
	if len(boundaries) <= 1 {
		return boundaries
	}
	kept := []boundary{boundaries[0]}
	for _, b := range boundaries[1:] {
		last := &kept[len(kept)-1]
		if b.Index-last.Index < c.cfg.MinBoundaryDistance {
			if b.Confidence > last.Confidence {
				*last = b
			}
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

// assembleRanges turns boundary positions into chunks over sentence ranges.
func (c *SemanticBoundaryChunker) assembleRanges(sentences []Sentence, boundaries []boundary) []*Chunk {
	var chunks []*Chunk
	start := 0
	for _, b := range boundaries {
		if b.Index <= start || b.Index >= len(sentences) {
			continue
		}
		chunks = append(chunks, c.assemble(sentences[start:b.Index], start))
		start = b.Index
	}
	chunks = append(chunks, c.assemble(sentences[start:], start))
	return chunks
}

// assemble joins a sentence range into one chunk. Page number and offsets come
// from the first sentence of the range; EndPos extends to the last sentence
// only when it sits on the same page as the anchor.
func (c *SemanticBoundaryChunker) assemble(sentences []Sentence, _ int) *Chunk {
	parts := make([]string, len(sentences))
	for i, s := range sentences {
		parts[i] = s.Text
	}
	anchor := sentences[0]
	end := anchor.End
	for _, s := range sentences[1:] {
		if s.PageNumber != anchor.PageNumber {
			break
		}
		end = s.End
	}
	return &Chunk{
		Content:    strings.Join(parts, " "),
		PageNumber: anchor.PageNumber,
		StartPos:   anchor.Start,
		EndPos:     end,
		sentences:  append([]Sentence(nil), sentences...),
	}
}

// mergeSmall folds chunks below MinChunkWords into their successor. The final
// chunk has no successor and is kept as is.
func (c *SemanticBoundaryChunker) mergeSmall(chunks []*Chunk, _ []Sentence) []*Chunk {
	var merged []*Chunk
	var pending *Chunk
	for _, ch := range chunks {
		if pending != nil {
			ch = c.assemble(append(append([]Sentence(nil), pending.sentences...), ch.sentences...), 0)
			pending = nil
		}
		if ch.WordCount() < c.cfg.MinChunkWords {
			pending = ch
			continue
		}
		merged = append(merged, ch)
	}
	if pending != nil {
		merged = append(merged, pending)
	}
	return merged
}

// splitLarge recursively re-splits chunks above MaxChunkWords at sentence
// granularity, carrying SentenceOverlap sentences across each split.
func (c *SemanticBoundaryChunker) splitLarge(chunks []*Chunk) []*Chunk {
	var out []*Chunk
	for _, ch := range chunks {
		if ch.WordCount() <= c.cfg.MaxChunkWords || len(ch.sentences) <= 1 {
			out = append(out, ch)
			continue
		}
		out = append(out, c.splitChunk(ch.sentences)...)
	}
	return out
}

func (c *SemanticBoundaryChunker) splitChunk(sentences []Sentence) []*Chunk {
	// Accumulate sentences up to the word budget, then start the next piece
	// with the trailing overlap.
	var pieces []*Chunk
	start := 0
	words := 0
	for i, s := range sentences {
		sw := s.WordCount()
		if words > 0 && words+sw > c.cfg.MaxChunkWords {
			pieces = append(pieces, c.assemble(sentences[start:i], 0))
			start = i - c.cfg.SentenceOverlap
			if start < 0 {
				start = 0
			}
			if start > i {
				start = i
			}
			words = 0
			for _, o := range sentences[start:i] {
				words += o.WordCount()
			}
		}
		words += sw
	}
	if start < len(sentences) {
		pieces = append(pieces, c.assemble(sentences[start:], 0))
	}
	return pieces
}
