package rates

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Cache stores fetched rates per (from, to) pair. Implementations must be
// safe for concurrent use; a miss and a backend failure look the same.
type Cache interface {
	Get(ctx context.Context, from, to string) (decimal.Decimal, bool)
	Set(ctx context.Context, from, to string, rate decimal.Decimal, ttl time.Duration)
}

type memoryEntry struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when Redis is not reachable.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func pairKey(from, to string) string {
	return from + ":" + to
}

func (c *MemoryCache) Get(_ context.Context, from, to string) (decimal.Decimal, bool) {
	c.mu.RLock()
	entry, ok := c.entries[pairKey(from, to)]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		return decimal.Zero, false
	}
	return entry.rate, true
}

func (c *MemoryCache) Set(_ context.Context, from, to string, rate decimal.Decimal, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	// Заодно вычищаем протухшие записи, пар валют немного.
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[pairKey(from, to)] = memoryEntry{rate: rate, expiresAt: now.Add(ttl)}
}
