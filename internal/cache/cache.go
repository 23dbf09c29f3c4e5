// Package cache provides an in-memory cache of completed conversions
// using a Bloom filter and LRU eviction.
package cache

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ResolvedCache caches conversion results keyed by source URL. The Bloom
// filter answers most negative lookups without touching the LRU; the
// durable store behind it stays authoritative.
type ResolvedCache[V any] struct {
	mutex      sync.RWMutex
	bloom      *bloom.BloomFilter
	lru        *lru.Cache[string, V]
	maxEntries int
	fpRate     float64
}

// NewResolvedCache creates a cache with the given capacity and Bloom
// filter false positive rate.
func NewResolvedCache[V any](maxEntries int, fpRate float64) *ResolvedCache[V] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	lruCache, _ := lru.New[string, V](maxEntries)

	return &ResolvedCache[V]{
		bloom:      bloom.NewWithEstimates(uint(maxEntries), fpRate),
		lru:        lruCache,
		maxEntries: maxEntries,
		fpRate:     fpRate,
	}
}

// Get returns the cached result for a source URL, if present.
func (c *ResolvedCache[V]) Get(url string) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if !c.bloom.TestString(url) {
		var zero V
		return zero, false
	}
	return c.lru.Get(url)
}

// Add stores a result for a source URL, evicting the oldest entry when
// over capacity.
func (c *ResolvedCache[V]) Add(url string, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.bloom.AddString(url)
	c.lru.Add(url, value)
}

// Len returns the number of cached conversions.
func (c *ResolvedCache[V]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.lru.Len()
}

// Purge drops every entry and resets the Bloom filter. Entries evicted
// from the LRU leave stale bits in the filter; a periodic purge keeps the
// false positive rate honest on long-running processes.
func (c *ResolvedCache[V]) Purge() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.lru.Purge()
	c.bloom = bloom.NewWithEstimates(uint(c.maxEntries), c.fpRate)
}
