package pricedata

import (
	"sync"

	"rankback/internal/types"
)

// MemoryCache is an in-process price series cache. Entries are write-once;
// Get hands out copies so cached series stay immutable.
type MemoryCache struct {
	entries map[string][]types.PriceBar
	mu      sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string][]types.PriceBar),
	}
}

// Get returns the cached series for the key
func (c *MemoryCache) Get(key string) ([]types.PriceBar, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bars, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	out := make([]types.PriceBar, len(bars))
	copy(out, bars)
	return out, true
}

// Put stores the series under the key. An existing entry is never
// overwritten.
func (c *MemoryCache) Put(key string, bars []types.PriceBar) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		return
	}
	stored := make([]types.PriceBar, len(bars))
	copy(stored, bars)
	c.entries[key] = stored
}

// Len returns the number of cached entries
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
