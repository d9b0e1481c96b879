package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingCompute(calls *int) ComputeFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		*calls++
		return []float32{float32(len(text)), 1, 0}, nil
	}
}

func TestCache_GetOrCompute_HitAndMiss(t *testing.T) {
	cache := NewCache(10)
	ctx := context.Background()

	calls := 0
	fn := countingCompute(&calls)

	first, err := cache.GetOrCompute(ctx, "hello world", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, cache.Hits())
	assert.Equal(t, 1, cache.Misses())

	second, err := cache.GetOrCompute(ctx, "hello world", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.Hits())
	assert.Equal(t, 1, cache.Misses())
	assert.InDelta(t, 0.5, cache.HitRate(), 1e-9)
}

func TestCache_GetOrCompute_NormalizedKey(t *testing.T) {
	cache := NewCache(10)
	ctx := context.Background()

	calls := 0
	fn := countingCompute(&calls)

	_, err := cache.GetOrCompute(ctx, "Hello   World", fn)
	require.NoError(t, err)
	_, err = cache.GetOrCompute(ctx, "hello world", fn)
	require.NoError(t, err)

	// Case and whitespace differences share one cache entry.
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_GetOrCompute_ErrorNotCached(t *testing.T) {
	cache := NewCache(10)
	ctx := context.Background()

	wantErr := errors.New("provider unavailable")
	fails := func(ctx context.Context, text string) ([]float32, error) {
		return nil, wantErr
	}

	_, err := cache.GetOrCompute(ctx, "text", fails)
	assert.ErrorIs(t, err, wantErr)
	assert.False(t, cache.Contains("text"))
	assert.Equal(t, 1, cache.Misses())
}

func TestCache_LRUEviction(t *testing.T) {
	cache := NewCache(3)
	ctx := context.Background()

	calls := 0
	fn := countingCompute(&calls)

	for i := 0; i < 4; i++ {
		_, err := cache.GetOrCompute(ctx, fmt.Sprintf("text-%d", i), fn)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, cache.Len())
	assert.False(t, cache.Contains("text-0"))
	assert.True(t, cache.Contains("text-3"))
}

func TestCache_BatchGetOrCompute(t *testing.T) {
	cache := NewCache(10)
	ctx := context.Background()

	batchCalls := 0
	var lastBatch []string
	batchFn := func(ctx context.Context, texts []string) ([][]float32, error) {
		batchCalls++
		lastBatch = texts
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = []float32{float32(len(text))}
		}
		return out, nil
	}

	// Pre-cache one of the three.
	_, err := cache.GetOrCompute(ctx, "beta", func(ctx context.Context, text string) ([]float32, error) {
		return []float32{4}, nil
	})
	require.NoError(t, err)

	results, err := cache.BatchGetOrCompute(ctx, []string{"alpha", "beta", "gamma"}, batchFn)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Only the misses go out, in one call, and order is preserved.
	assert.Equal(t, 1, batchCalls)
	assert.Equal(t, []string{"alpha", "gamma"}, lastBatch)
	assert.Equal(t, []float32{5}, results[0])
	assert.Equal(t, []float32{4}, results[1])
	assert.Equal(t, []float32{5}, results[2])
	assert.Equal(t, 1, cache.Hits())
	assert.Equal(t, 3, cache.Misses())
}

func TestCache_BatchGetOrCompute_AllCached(t *testing.T) {
	cache := NewCache(10)
	ctx := context.Background()

	batchFn := func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1}
		}
		return out, nil
	}

	_, err := cache.BatchGetOrCompute(ctx, []string{"a1", "b2"}, batchFn)
	require.NoError(t, err)

	results, err := cache.BatchGetOrCompute(ctx, []string{"a1", "b2"}, func(ctx context.Context, texts []string) ([][]float32, error) {
		t.Fatal("batch function called with everything cached")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestCache_BatchGetOrCompute_CountMismatch(t *testing.T) {
	cache := NewCache(10)

	_, err := cache.BatchGetOrCompute(context.Background(), []string{"a1", "b2"},
		func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1}}, nil
		})
	assert.Error(t, err)
}

func TestCache_BatchGetOrCompute_Empty(t *testing.T) {
	cache := NewCache(10)

	results, err := cache.BatchGetOrCompute(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCache_Key(t *testing.T) {
	cache := NewCache(10)

	// Short texts key on the normalized text itself.
	assert.Equal(t, "hello world", cache.Key("  Hello   World  "))

	// Long texts key on a hash with the length appended.
	long := strings.Repeat("x", 200)
	key := cache.Key(long)
	assert.NotEqual(t, long, key)
	assert.Contains(t, key, ":200")
	assert.Equal(t, key, cache.Key(long))
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache(10)
	ctx := context.Background()

	calls := 0
	_, err := cache.GetOrCompute(ctx, "text", countingCompute(&calls))
	require.NoError(t, err)

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, cache.Hits())
	assert.Equal(t, 0, cache.Misses())
	assert.Equal(t, 0.0, cache.HitRate())
}
