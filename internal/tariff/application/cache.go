package application

import (
	"sync"

	tariff "utility-billing/internal/tariff/domain"
)

// MemoryCache is a process-local tariff cache keyed by provider and date.
type MemoryCache struct {
	mu      sync.RWMutex
	tariffs map[string]*tariff.Tariff
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{tariffs: make(map[string]*tariff.Tariff)}
}

// Get returns the cached tariff for the key.
func (c *MemoryCache) Get(key string) (*tariff.Tariff, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.tariffs[key]
	if !ok {
		return nil, false
	}
	clone := *cached
	return &clone, true
}

// Put stores the tariff under the key.
func (c *MemoryCache) Put(key string, t *tariff.Tariff) {
	if t == nil {
		return
	}
	clone := *t
	c.mu.Lock()
	c.tariffs[key] = &clone
	c.mu.Unlock()
}
