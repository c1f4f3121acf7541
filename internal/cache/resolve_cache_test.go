package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolveCache(t *testing.T, size int) *ResolveCache {
	t.Helper()
	if Disabled {
		t.Skip("caching disabled via VMOUNT_CACHE=0")
	}
	c, err := NewResolveCache(size)
	require.NoError(t, err)
	return c
}

func TestNewResolveCache(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-positive size", func(t *testing.T) {
		t.Parallel()
		_, err := NewResolveCache(0)
		assert.Error(t, err)
	})

	t.Run("starts empty", func(t *testing.T) {
		t.Parallel()
		c := testResolveCache(t, 8)
		assert.Equal(t, 0, c.Size())
		assert.Equal(t, ResolveCacheStats{MaxSize: 8}, c.Stats())
	})
}

func TestResolveCacheGetSet(t *testing.T) {
	t.Parallel()
	c := testResolveCache(t, 8)

	_, ok := c.Get("/work/a")
	assert.False(t, ok)

	c.Set("/work/a", "/virtual/work/a")
	got, ok := c.Get("/work/a")
	require.True(t, ok)
	assert.Equal(t, "/virtual/work/a", got)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestResolveCacheEviction(t *testing.T) {
	t.Parallel()
	c := testResolveCache(t, 2)

	c.Set("/a", "/t/a")
	c.Set("/b", "/t/b")
	c.Set("/c", "/t/c")

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("/a")
	assert.False(t, ok, "least recently used entry should be evicted")
}

func TestResolveCacheInvalidateSubtree(t *testing.T) {
	t.Parallel()

	t.Run("removes path and descendants only", func(t *testing.T) {
		t.Parallel()
		c := testResolveCache(t, 16)
		c.Set("/work", "/v/work")
		c.Set("/work/a", "/v/work/a")
		c.Set("/work/a/b", "/v/work/a/b")
		c.Set("/workspace", "/root/workspace")
		c.Set("/other", "/root/other")

		c.InvalidateSubtree("/work")

		for _, p := range []string{"/work", "/work/a", "/work/a/b"} {
			_, ok := c.Get(p)
			assert.False(t, ok, "%s should be invalidated", p)
		}
		for _, p := range []string{"/workspace", "/other"} {
			_, ok := c.Get(p)
			assert.True(t, ok, "%s should survive", p)
		}
	})

	t.Run("root invalidates everything", func(t *testing.T) {
		t.Parallel()
		c := testResolveCache(t, 16)
		c.Set("", "/root")
		c.Set("/a", "/root/a")
		c.Set("/b/c", "/root/b/c")

		c.InvalidateSubtree("")
		assert.Equal(t, 0, c.Size())
	})
}

func TestResolveCacheInvalidate(t *testing.T) {
	t.Parallel()
	c := testResolveCache(t, 16)
	c.Set("/a", "/t/a")
	c.Set("/b", "/t/b")

	c.Invalidate()
	assert.Equal(t, 0, c.Size())
}
