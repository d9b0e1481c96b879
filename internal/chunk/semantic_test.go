package chunk

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papervault/papervault/internal/embed"
)

// topicEmbedder embeds a window as its per-topic keyword counts, so windows
// within one topic are identical and cross-topic windows diverge.
func topicEmbedder(topics ...string) embed.BatchComputeFunc {
	return func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			lower := strings.ToLower(text)
			vec := make([]float32, len(topics))
			for j, topic := range topics {
				vec[j] = float32(strings.Count(lower, topic))
			}
			out[i] = vec
		}
		return out, nil
	}
}

func newTopicChunker(cfg SemanticConfig, topics ...string) *SemanticBoundaryChunker {
	return NewSemanticBoundaryChunker(cfg, embed.NewCache(100), topicEmbedder(topics...))
}

func TestSemanticChunker_SingleWindowDocument(t *testing.T) {
	chunker := newTopicChunker(SemanticConfig{WindowSize: 3}, "alpha")

	chunks, err := chunker.Chunk(context.Background(), []PageText{
		{PageNumber: 1, Text: "One sentence. Two sentences here."},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "One sentence. Two sentences here.", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
}

func TestSemanticChunker_DetectsTopicShift(t *testing.T) {
	chunker := newTopicChunker(SemanticConfig{
		WindowSize:          2,
		SimilarityThreshold: 0.75,
		MinBoundaryDistance: 2,
		MinChunkWords:       1,
	}, "alpha", "beta")

	page1 := PageText{PageNumber: 1, Text: strings.Repeat("The alpha topic continues here. ", 4)}
	page2 := PageText{PageNumber: 2, Text: strings.Repeat("The beta subject differs now. ", 4)}

	chunks, err := chunker.Chunk(context.Background(), []PageText{page1, page2})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Contains(t, chunks[0].Content, "alpha")
	assert.NotContains(t, chunks[0].Content, "beta")
	assert.Contains(t, chunks[1].Content, "beta")
	assert.NotContains(t, chunks[1].Content, "alpha")

	// Each chunk is attributed to the page its first sentence came from.
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 2, chunks[1].PageNumber)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
}

func TestSemanticChunker_OffsetsAnchorFirstSentence(t *testing.T) {
	chunker := newTopicChunker(SemanticConfig{WindowSize: 2, MinChunkWords: 1}, "alpha")

	text := "  Alpha one here. Alpha two here. Alpha three here."
	chunks, err := chunker.Chunk(context.Background(), []PageText{
		{PageNumber: 1, Text: text},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	// StartPos points at the first sentence, EndPos at the last one on the
	// anchor page.
	assert.Equal(t, 2, chunks[0].StartPos)
	assert.Equal(t, len(text), chunks[0].EndPos)
}

func TestSemanticChunker_MergesSmallChunks(t *testing.T) {
	// A uniform topic yields no boundaries, so everything lands in one chunk
	// regardless of the minimum.
	chunker := newTopicChunker(SemanticConfig{
		WindowSize:    2,
		MinChunkWords: 40,
	}, "alpha")

	chunks, err := chunker.Chunk(context.Background(), []PageText{
		{PageNumber: 1, Text: strings.Repeat("Alpha topic sentence here. ", 6)},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
}

func TestSemanticChunker_ResplitsOversizedChunks(t *testing.T) {
	chunker := newTopicChunker(SemanticConfig{
		WindowSize:      2,
		MinChunkWords:   1,
		MaxChunkWords:   25,
		SentenceOverlap: 1,
	}, "alpha")

	// Six 10-word sentences on one topic: no boundaries, one 60-word chunk,
	// re-split at the word budget.
	sentence := "Alpha content word word word word word word word here."
	chunks, err := chunker.Chunk(context.Background(), []PageText{
		{PageNumber: 1, Text: strings.Repeat(sentence+" ", 6)},
	})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, c.WordCount(), 25)
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, 1, c.PageNumber)
	}
}

func TestSemanticChunker_CoversAllSourceWords(t *testing.T) {
	chunker := newTopicChunker(SemanticConfig{
		WindowSize:          2,
		SimilarityThreshold: 0.75,
		MinBoundaryDistance: 2,
		MinChunkWords:       1,
		MaxChunkWords:       30,
		SentenceOverlap:     1,
	}, "alpha", "beta")

	// Distinct numbered words per sentence so both the boundary split and the
	// word-budget resplit are checked for lost text.
	var pages []PageText
	for p, topic := range []string{"alpha", "beta"} {
		var sentences []string
		for s := 0; s < 6; s++ {
			sentences = append(sentences, fmt.Sprintf(
				"The %s topic sentence s%dp%d adds tokens x%dp%d and y%dp%d here.",
				topic, s, p+1, s, p+1, s, p+1))
		}
		pages = append(pages, PageText{PageNumber: p + 1, Text: strings.Join(sentences, " ")})
	}

	chunks, err := chunker.Chunk(context.Background(), pages)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	assertWordCoverage(t, pages, chunks)
}

func TestSemanticChunker_EmptyInput(t *testing.T) {
	chunker := newTopicChunker(SemanticConfig{}, "alpha")

	chunks, err := chunker.Chunk(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = chunker.Chunk(context.Background(), []PageText{
		{PageNumber: 1, Text: "   "},
	})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSemanticChunker_EmbeddingsAreCached(t *testing.T) {
	cache := embed.NewCache(100)
	calls := 0
	countingBatch := func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0}
		}
		return out, nil
	}
	chunker := NewSemanticBoundaryChunker(SemanticConfig{WindowSize: 2, MinChunkWords: 1}, cache, countingBatch)

	pages := []PageText{
		{PageNumber: 1, Text: "Alpha one stated. Alpha two stated. Alpha three stated. Alpha four stated."},
	}
	_, err := chunker.Chunk(context.Background(), pages)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "all windows go out in one batch")

	_, err = chunker.Chunk(context.Background(), pages)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second pass is served from cache")
}
