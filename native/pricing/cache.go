package pricing

import (
	"fmt"
	"math/big"
	"time"

	"zendvo/core/events"
)

// CachedRate is the ephemeral price record persisted between calls. The host
// may evict it at any time; absence is equivalent to staleness.
type CachedRate struct {
	Rate      *big.Int
	Timestamp uint64
}

// CacheStore is the subset of state functionality the price cache needs. The
// record is short-lived by design and must never be trusted past the
// configured maximum oracle age.
type CacheStore interface {
	PriceCacheGet() (CachedRate, bool, error)
	PriceCachePut(CachedRate) error
}

// CachePolicy carries the oracle settings that govern a single rate lookup.
// The owning engine reads them from its configuration store per call, so an
// admin change takes effect on the next query.
type CachePolicy struct {
	MaxOracleAge uint64
	Paused       bool
}

// Cache wraps a time-bounded cache around a price oracle query, enforcing
// staleness and sane-bounds checks. A fresh hit returns the stored rate with
// no event; a re-query overwrites the record and emits OracleRateQueried.
type Cache struct {
	store   CacheStore
	oracle  PriceOracle
	emitter events.Emitter
	nowFn   func() uint64
}

// NewCache constructs a price cache with a no-op emitter. Callers can override
// the emitter via SetEmitter.
func NewCache(store CacheStore, oracle PriceOracle) *Cache {
	return &Cache{
		store:   store,
		oracle:  oracle,
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetEmitter configures the event emitter used by the cache. Passing nil
// resets the emitter to a no-op implementation.
func (c *Cache) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		c.emitter = events.NoopEmitter{}
		return
	}
	c.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests to
// provide deterministic timestamps.
func (c *Cache) SetNowFunc(now func() uint64) {
	if now == nil {
		c.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	c.nowFn = now
}

// Rate resolves the current exchange rate for the pair under the supplied
// policy. Cached entries younger than MaxOracleAge are returned unchanged;
// anything else forces an upstream query.
func (c *Cache) Rate(pair string, policy CachePolicy) (*big.Int, error) {
	if c == nil || c.store == nil {
		return nil, fmt.Errorf("pricing: cache store not configured")
	}
	if policy.Paused {
		return nil, ErrOraclePaused
	}
	normalized, err := NormalizePair(pair)
	if err != nil {
		return nil, err
	}
	now := c.nowFn()
	cached, ok, err := c.store.PriceCacheGet()
	if err != nil {
		return nil, err
	}
	if ok && cached.Rate != nil && now >= cached.Timestamp && now-cached.Timestamp < policy.MaxOracleAge {
		return new(big.Int).Set(cached.Rate), nil
	}
	if c.oracle == nil {
		return nil, fmt.Errorf("pricing: upstream oracle not configured")
	}
	quote, err := c.oracle.GetRate(normalized)
	if err != nil {
		return nil, err
	}
	if err := ValidateRateBounds(quote.Rate); err != nil {
		return nil, err
	}
	fresh := CachedRate{Rate: new(big.Int).Set(quote.Rate), Timestamp: now}
	if err := c.store.PriceCachePut(fresh); err != nil {
		return nil, err
	}
	c.emitter.Emit(events.OracleRateQueried{
		Timestamp: now,
		Rate:      new(big.Int).Set(quote.Rate),
		Source:    quote.Source,
	})
	return new(big.Int).Set(quote.Rate), nil
}
