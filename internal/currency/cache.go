package currency

import (
	"sync"
	"time"

	"github.com/gammapace/backend/internal/clock"
)

// Rates maps ISO 4217 currency codes to their conversion rate from the
// base currency.
type Rates map[string]float64

// RateCache holds a rates snapshot for a bounded lifetime. It is safe
// for concurrent use.
type RateCache struct {
	mu       sync.RWMutex
	clock    clock.Clock
	ttl      time.Duration
	rates    Rates
	fetched  time.Time
	hasValue bool
}

func NewRateCache(clk clock.Clock, ttl time.Duration) *RateCache {
	return &RateCache{clock: clk, ttl: ttl}
}

// Get returns the cached rates if they are still fresh.
func (c *RateCache) Get() (Rates, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hasValue {
		return nil, false
	}
	if c.clock.Now().Sub(c.fetched) >= c.ttl {
		return nil, false
	}
	return c.rates, true
}

// Set replaces the cached snapshot and resets its lifetime.
func (c *RateCache) Set(rates Rates) {
	copied := make(Rates, len(rates))
	for code, rate := range rates {
		copied[code] = rate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = copied
	c.fetched = c.clock.Now()
	c.hasValue = true
}

// Invalidate drops the cached snapshot.
func (c *RateCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = nil
	c.hasValue = false
}
