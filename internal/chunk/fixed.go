package chunk

import (
	"context"
	"strings"
	"unicode"
)

// FixedWindowChunker splits each page into word-count windows with a
// configured overlap between consecutive chunks. It is total over its input:
// empty or whitespace-only pages yield zero chunks.
type FixedWindowChunker struct {
	config FixedWindowConfig
}

// NewFixedWindowChunker creates a fixed-window chunker. Zero-valued config
// fields fall back to defaults.
func NewFixedWindowChunker(cfg FixedWindowConfig) *FixedWindowChunker {
	return &FixedWindowChunker{config: cfg.withDefaults()}
}

// word is a token with its offsets into the source page text.
type word struct {
	text  string
	start int
	end   int
}

// splitWords tokenizes on whitespace.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, unicode.IsSpace)
}

// splitWordsWithOffsets tokenizes on whitespace, keeping byte offsets.
func splitWordsWithOffsets(text string) []word {
	var words []word
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, word{text: text[start:i], start: start, end: i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, word{text: text[start:], start: start, end: len(text)})
	}
	return words
}

// Chunk splits pages into overlapping word windows. The chunk index is
// monotonic across pages.
func (c *FixedWindowChunker) Chunk(ctx context.Context, pages []PageText) ([]*Chunk, error) {
	var chunks []*Chunk
	index := 0

	for _, page := range pages {
		for _, pc := range c.chunkPage(page) {
			pc.ChunkIndex = index
			index++
			chunks = append(chunks, pc)
		}
	}
	return chunks, nil
}

// chunkPage produces the windows for a single page.
func (c *FixedWindowChunker) chunkPage(page PageText) []*Chunk {
	words := splitWordsWithOffsets(page.Text)
	if len(words) == 0 {
		return nil
	}

	max := c.config.MaxChunkWords
	step := max - c.config.OverlapWords
	if step <= 0 {
		step = max
	}

	// Window spans over word indexes, half-open.
	type span struct{ start, end int }
	var spans []span
	for start := 0; start < len(words); start += step {
		end := start + max
		if end > len(words) {
			end = len(words)
		}
		spans = append(spans, span{start, end})
		if end == len(words) {
			break
		}
	}

	// Fold a trailing fragment below the minimum into the previous window
	// when the combined size stays within tolerance; otherwise the fragment
	// stands on its own so no source words are lost.
	if len(spans) > 1 {
		last := spans[len(spans)-1]
		if last.end-last.start < c.config.MinChunkWords {
			prev := &spans[len(spans)-2]
			if last.end-prev.start <= max+WordCountTolerance {
				prev.end = last.end
				spans = spans[:len(spans)-1]
			}
		}
	}

	chunks := make([]*Chunk, 0, len(spans))
	for _, sp := range spans {
		chunks = append(chunks, &Chunk{
			Content:    page.Text[words[sp.start].start:words[sp.end-1].end],
			PageNumber: page.PageNumber,
			StartPos:   words[sp.start].start,
			EndPos:     words[sp.end-1].end,
		})
	}
	return chunks
}
