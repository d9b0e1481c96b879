package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache configuration constants.
const (
	// DefaultCacheSize is the default number of embeddings to cache.
	// At 768 dimensions * 4 bytes * 2000 entries ~= 6MB memory.
	DefaultCacheSize = 2000

	// shortKeyLimit is the text length at or below which the normalized
	// text itself is the cache key. Longer texts use a content hash plus
	// length to bound key memory.
	shortKeyLimit = 100
)

// Cache memoizes text-to-vector computations with LRU eviction.
//
// The recency list and map are maintained together by the underlying LRU;
// hit/miss bookkeeping assumes a single owning goroutine. Callers sharing a
// Cache across goroutines must synchronize externally.
type Cache struct {
	entries *lru.Cache[string, []float32]
	hits    int
	misses  int
}

// NewCache creates a cache holding at most capacity embeddings.
// A non-positive capacity falls back to DefaultCacheSize.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	entries, _ := lru.New[string, []float32](capacity)
	return &Cache{entries: entries}
}

// Key derives the cache key for a text: the normalized text itself when
// short, otherwise sha256(normalized) plus the length.
func (c *Cache) Key(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	if len(normalized) <= shortKeyLimit {
		return normalized
	}
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%s:%d", hex.EncodeToString(hash[:]), len(normalized))
}

// GetOrCompute returns the cached vector for text, or invokes computeFn and
// caches the result. Compute failures propagate unchanged and nothing is
// cached; retry policy is a caller concern.
func (c *Cache) GetOrCompute(ctx context.Context, text string, computeFn ComputeFunc) ([]float32, error) {
	key := c.Key(text)

	if vec, ok := c.entries.Get(key); ok {
		c.hits++
		return vec, nil
	}
	c.misses++

	vec, err := computeFn(ctx, text)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, vec)
	return vec, nil
}

// BatchGetOrCompute returns embeddings for all texts in input order. Cached
// texts are served from memory; the misses are forwarded to batchFn as one
// call. A batchFn failure propagates unchanged and no results are cached.
func (c *Cache) BatchGetOrCompute(ctx context.Context, texts []string, batchFn BatchComputeFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	missIndices := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if vec, ok := c.entries.Get(c.Key(text)); ok {
			c.hits++
			results[i] = vec
		} else {
			c.misses++
			missIndices = append(missIndices, i)
			missTexts = append(missTexts, text)
		}
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	computed, err := batchFn(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missTexts) {
		return nil, fmt.Errorf("batch compute returned %d vectors for %d texts", len(computed), len(missTexts))
	}

	for j, idx := range missIndices {
		results[idx] = computed[j]
		c.entries.Add(c.Key(texts[idx]), computed[j])
	}
	return results, nil
}

// Contains reports whether text is cached, without updating recency or stats.
func (c *Cache) Contains(text string) bool {
	return c.entries.Contains(c.Key(text))
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Hits returns the number of cache hits.
func (c *Cache) Hits() int { return c.hits }

// Misses returns the number of cache misses.
func (c *Cache) Misses() int { return c.misses }

// HitRate returns hits / (hits + misses), or 0 before any lookups.
func (c *Cache) HitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// Clear evicts all entries and resets statistics.
func (c *Cache) Clear() {
	c.entries.Purge()
	c.hits = 0
	c.misses = 0
}
