package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"vmount/internal/common"
)

// ResolveCache caches resolved targets keyed by virtual path.
// Supports fine-grained invalidation by virtual subtree.
//
// Thread-safe: the underlying LRU is internally locked. Callers that need a
// cached value to be consistent with the table must serialize Set against
// table mutations (SyncTable does this with its read lock).
type ResolveCache struct {
	entries *lru.Cache[string, string]
	maxSize int
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewResolveCache creates a cache holding at most maxSize resolutions.
func NewResolveCache(maxSize int) (*ResolveCache, error) {
	entries, err := lru.New[string, string](maxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolve cache: %w", err)
	}
	return &ResolveCache{entries: entries, maxSize: maxSize}, nil
}

// Get returns the cached target for virtualPath.
// Always a miss when caching is disabled (VMOUNT_CACHE=0).
func (c *ResolveCache) Get(virtualPath string) (string, bool) {
	if Disabled {
		return "", false
	}
	target, ok := c.entries.Get(virtualPath)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return target, ok
}

// Set stores the resolved target for virtualPath.
// No-op if caching is disabled (VMOUNT_CACHE=0).
func (c *ResolveCache) Set(virtualPath, target string) {
	if Disabled {
		return
	}
	c.entries.Add(virtualPath, target)
}

// Invalidate clears all entries from the cache.
func (c *ResolveCache) Invalidate() {
	c.entries.Purge()
}

// InvalidateSubtree removes virtualPath and every cached path below it.
// A mount or unmount at virtualPath can only change resolutions in there.
func (c *ResolveCache) InvalidateSubtree(virtualPath string) {
	for _, key := range c.entries.Keys() {
		if common.IsPathEqualOrContained(key, virtualPath) {
			c.entries.Remove(key)
		}
	}
}

// Size returns the current number of entries in the cache.
func (c *ResolveCache) Size() int {
	return c.entries.Len()
}

// ResolveCacheStats holds cache statistics.
type ResolveCacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
}

// Stats returns current cache statistics.
func (c *ResolveCache) Stats() ResolveCacheStats {
	return ResolveCacheStats{
		Size:    c.entries.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
