package cache

import (
	"context"
	"sync"
	"time"
)

// PriceCache holds short-lived positive price lookups keyed by asset id.
type PriceCache interface {
	Get(ctx context.Context, key string) (float64, bool)
	Set(ctx context.Context, key string, price float64)
}

type memoryEntry struct {
	price     float64
	fetchedAt time.Time
}

// MemoryPriceCache is a TTL cache for a single process.
type MemoryPriceCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryPriceCache(ttl time.Duration, now func() time.Time) *MemoryPriceCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryPriceCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     now,
	}
}

func (c *MemoryPriceCache) Get(_ context.Context, key string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.fetchedAt) > c.ttl {
		return 0, false
	}
	return entry.price, true
}

func (c *MemoryPriceCache) Set(_ context.Context, key string, price float64) {
	if price <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{price: price, fetchedAt: c.now()}
}

// Purge drops expired entries.
func (c *MemoryPriceCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.fetchedAt) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}
