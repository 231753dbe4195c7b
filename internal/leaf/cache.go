package leaf

import (
	"container/list"
	"fmt"
	"sync"
)

// DefaultCacheSize is the default number of compiled programs kept per
// cache.
const DefaultCacheSize = 1000

// Cache is a thread-safe LRU of compiled programs keyed by source.
type Cache[P any] struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	maxSize int
	hits    int64
	misses  int64
}

type cacheEntry[P any] struct {
	source  string
	program P
}

// NewCache returns a cache holding at most maxSize programs.
func NewCache[P any](maxSize int) *Cache[P] {
	if maxSize < 1 {
		maxSize = DefaultCacheSize
	}
	return &Cache[P]{
		entries: make(map[string]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get returns the program compiled from source, marking it most recently
// used.
func (c *Cache[P]) Get(source string) (P, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[source]
	if !ok {
		c.misses++
		var zero P
		return zero, false
	}
	c.hits++
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry[P]).program, true
}

// Put stores program under source, evicting the least recently used entry
// when full.
func (c *Cache[P]) Put(source string, program P) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[source]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry[P]).program = program
		return
	}
	c.entries[source] = c.lru.PushFront(&cacheEntry[P]{source: source, program: program})
	c.evict()
}

func (c *Cache[P]) evict() {
	for c.lru.Len() > c.maxSize {
		elem := c.lru.Back()
		delete(c.entries, elem.Value.(*cacheEntry[P]).source)
		c.lru.Remove(elem)
	}
}

// Resize changes the capacity, evicting immediately when shrinking.
func (c *Cache[P]) Resize(maxSize int) {
	if maxSize < 1 {
		maxSize = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	c.evict()
}

// Clear drops every entry. Statistics are kept.
func (c *Cache[P]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}

// Len returns the number of cached programs.
func (c *Cache[P]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CacheStats is a snapshot of cache activity.
type CacheStats struct {
	Size   int
	Hits   int64
	Misses int64
}

// Ratio returns the hit ratio, 0 when the cache was never queried.
func (s CacheStats) Ratio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of cache activity.
func (c *Cache[P]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Size: c.lru.Len(), Hits: c.hits, Misses: c.misses}
}

func (c *Cache[P]) String() string {
	s := c.Stats()
	return fmt.Sprintf("Cache{size=%d, hits=%d, misses=%d, hit_ratio=%.2f%%}",
		s.Size, s.Hits, s.Misses, s.Ratio()*100)
}
