package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Dedup defaults.
const (
	DefaultNearThreshold = 0.85 // Jaccard similarity above which chunks collapse
	DefaultNearWindow    = 3    // Max chunk-index distance for near comparison
	dedupMinTokenLength  = 3    // Tokens shorter than this are ignored for Jaccard
)

// DedupConfig configures duplicate detection.
type DedupConfig struct {
	NearThreshold float64 // Jaccard cutoff for near duplicates
	NearWindow    int     // Positional window for near comparison
}

// DefaultDedupConfig returns the default dedup settings.
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		NearThreshold: DefaultNearThreshold,
		NearWindow:    DefaultNearWindow,
	}
}

func (c DedupConfig) withDefaults() DedupConfig {
	def := DefaultDedupConfig()
	if c.NearThreshold == 0 {
		c.NearThreshold = def.NearThreshold
	}
	if c.NearWindow == 0 {
		c.NearWindow = def.NearWindow
	}
	return c
}

// DedupResult reports what deduplication removed. Groups maps each surviving
// representative's ID to the IDs it absorbed.
type DedupResult struct {
	Groups  map[string][]string
	Removed int
}

// Deduplicator removes exact and near duplicate chunks. Exact duplicates are
// detected across the whole batch by normalized content hash; near duplicates
// only within the same document and a positional window, since running
// headers and footers repeat at regular chunk intervals.
type Deduplicator struct {
	cfg DedupConfig
}

// NewDeduplicator builds a deduplicator. Zero-valued config fields fall back
// to defaults.
func NewDeduplicator(cfg DedupConfig) *Deduplicator {
	return &Deduplicator{cfg: cfg.withDefaults()}
}

// Deduplicate returns the surviving chunks in their original order plus a
// report of removals. The first occurrence of each duplicate group survives.
// Running Deduplicate on its own output removes nothing.
func (d *Deduplicator) Deduplicate(chunks []*Chunk) ([]*Chunk, DedupResult) {
	result := DedupResult{Groups: make(map[string][]string)}

	// Exact phase: normalized content hash across the batch.
	byHash := make(map[string]*Chunk, len(chunks))
	var survivors []*Chunk
	for _, ch := range chunks {
		h := exactHash(ch.Content)
		if rep, ok := byHash[h]; ok {
			result.Groups[rep.ID] = append(result.Groups[rep.ID], ch.ID)
			result.Removed++
			continue
		}
		byHash[h] = ch
		survivors = append(survivors, ch)
	}

	// Near phase: Jaccard over token sets, same document, nearby positions.
	removed := make(map[int]bool)
	tokenSets := make([]map[string]struct{}, len(survivors))
	for i, ch := range survivors {
		tokenSets[i] = dedupTokens(ch.Content)
	}
	for i := 0; i < len(survivors); i++ {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(survivors); j++ {
			if removed[j] {
				continue
			}
			a, b := survivors[i], survivors[j]
			if a.DocumentID != b.DocumentID {
				continue
			}
			if dist := b.ChunkIndex - a.ChunkIndex; dist < 0 || dist > d.cfg.NearWindow {
				continue
			}
			if jaccard(tokenSets[i], tokenSets[j]) >= d.cfg.NearThreshold {
				result.Groups[a.ID] = append(result.Groups[a.ID], b.ID)
				result.Removed++
				removed[j] = true
			}
		}
	}

	if len(removed) == 0 {
		return survivors, result
	}
	kept := make([]*Chunk, 0, len(survivors)-len(removed))
	for i, ch := range survivors {
		if !removed[i] {
			kept = append(kept, ch)
		}
	}
	return kept, result
}

// exactHash normalizes content for exact comparison: lowercase, punctuation
// stripped, whitespace collapsed, then SHA-256.
func exactHash(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	lastSpace := true
	for _, r := range strings.ToLower(content) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(b.String())))
	return hex.EncodeToString(sum[:])
}

// dedupTokens returns the set of lowercased tokens of at least
// dedupMinTokenLength characters.
func dedupTokens(content string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range splitWords(strings.ToLower(content)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(w)) >= dedupMinTokenLength {
			set[w] = struct{}{}
		}
	}
	return set
}

// jaccard computes |A∩B| / |A∪B|. Two empty sets score 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	var inter int
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
