package gift

import (
	"math/big"

	"zendvo/crypto"
	"zendvo/native/pricing"
)

// CacheRail satisfies the SettlementRail dependency by quoting the same oracle
// rate the price cache serves, under the policy the engine supplies with the
// call. It never touches the engine, so it is safe to invoke while the engine
// holds its lock. A production deployment replaces it with the real
// payment-path client.
type CacheRail struct {
	cache *pricing.Cache
}

// NewCacheRail constructs a settlement rail backed by the price cache.
func NewCacheRail(cache *pricing.Cache) *CacheRail {
	return &CacheRail{cache: cache}
}

// QuotePath implements the SettlementRail interface.
func (r *CacheRail) QuotePath(pair string, amount *big.Int, destination crypto.Address, policy pricing.CachePolicy) (PathQuote, error) {
	rate, err := r.cache.Rate(pair, policy)
	if err != nil {
		return PathQuote{}, err
	}
	return PathQuote{Rate: rate, Path: []crypto.Address{destination}}, nil
}
