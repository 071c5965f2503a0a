package cache

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(capacity int, ttl time.Duration) (*Cache[string], *time.Time) {
	c := New[string](capacity, ttl)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestGetPut(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", "one")
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "one", got)

	hits, misses, size := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, size)
}

func TestLRUEviction(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Put("a", "1")
	c.Put("b", "2")

	// Touch a so b becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", "3")

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c, now := newTestCache(4, time.Minute)
	c.Put("a", "1")

	*now = now.Add(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	*now = now.Add(2 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)

	_, _, size := c.Stats()
	assert.Equal(t, 0, size)
}

func TestInvalidateDropsEverything(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)
	c.Put("a", "1")
	c.Put("b", "2")

	c.Invalidate()

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)

	// A fresh write after invalidation is served normally.
	c.Put("a", "3")
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "3", got)
}

func TestGetOrCompute(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)

	calls := 0
	compute := func() (string, error) {
		calls++
		return "value", nil
	}

	got, cached, err := c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "value", got)

	got, cached, err = c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "value", got)
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeDoesNotBlockOtherKeys(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _, err := c.GetOrCompute("slow", func() (string, error) {
			close(started)
			<-release
			return "slow-value", nil
		})
		assert.NoError(t, err)
	}()

	<-started

	// The slow compute must not hold the cache lock.
	got, cached, err := c.GetOrCompute("fast", func() (string, error) { return "fast-value", nil })
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "fast-value", got)

	close(release)
	<-done

	got, ok := c.Get("slow")
	require.True(t, ok)
	assert.Equal(t, "slow-value", got)
}

func TestGetOrComputeCollapsesSameKey(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)

	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	compute := func() (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		return "shared", nil
	}

	results := make(chan string, 2)
	go func() {
		got, _, err := c.GetOrCompute("k", compute)
		assert.NoError(t, err)
		results <- got
	}()

	// Start the second caller only once the first is inside compute, so it
	// joins the in-flight computation instead of finding a cached value.
	<-started
	go func() {
		got, _, err := c.GetOrCompute("k", compute)
		assert.NoError(t, err)
		results <- got
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)

	assert.Equal(t, "shared", <-results)
	assert.Equal(t, "shared", <-results)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrComputeSkipsCacheAfterInvalidate(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		got, cached, err := c.GetOrCompute("k", func() (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
		assert.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, "stale", got)
	}()

	<-started
	c.Invalidate()
	close(release)
	<-done

	// The result crossed an invalidation, so it was not cached.
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)

	boom := errors.New("boom")
	_, cached, err := c.GetOrCompute("k", func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, cached)

	_, _, size := c.Stats()
	assert.Equal(t, 0, size)
}
