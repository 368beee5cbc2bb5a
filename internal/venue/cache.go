package venue

import (
	"sync"
	"time"

	"trading-core/internal/domain"
)

// quoteCache is a TTL response cache keyed by symbol, each entry expiring ttl
// after it was stored,
// adapted from the sharded price cache pattern in the donor's
// pkg/cache/sharded_cache.go, specialized to store full Quote values instead
// of bare floats since venue clients must retain bid/ask/liquidity too.
type quoteCache struct {
	mu    sync.RWMutex
	items map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	quote     domain.Quote
	expiresAt time.Time
}

func newQuoteCache(ttl time.Duration) *quoteCache {
	return &quoteCache{items: make(map[string]cacheEntry), ttl: ttl}
}

func (c *quoteCache) get(symbol string) (domain.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[symbol]
	if !ok || time.Now().After(e.expiresAt) {
		return domain.Quote{}, false
	}
	return e.quote, true
}

func (c *quoteCache) set(symbol string, q domain.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[symbol] = cacheEntry{quote: q, expiresAt: time.Now().Add(c.ttl)}
}

func (c *quoteCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
}
