package pricing

import (
	"math/big"

	"zendvo/core/events"
)

const (
	// BpsDenominator is the basis-point scale: 10_000 bps = 100%.
	BpsDenominator = 10_000
	// MaxSlippageBound is the absolute sanity cap on the admin-configured
	// tolerance. 1000 bps (10%) is already far beyond any rate deviation a
	// healthy settlement path should realize.
	MaxSlippageBound = 1_000
)

// ValidateSlippageBounds rejects tolerances outside the accepted range before
// they reach the configuration store.
func ValidateSlippageBounds(bps uint32) error {
	if bps > MaxSlippageBound {
		return ErrInvalidSlippageConfig
	}
	return nil
}

// DeviationBps computes the relative deviation between the oracle-observed
// rate and the realized rate, in basis points, rounded to the nearest integer.
func DeviationBps(oracleRate, actualRate *big.Int) (*big.Int, error) {
	if oracleRate == nil || oracleRate.Sign() <= 0 {
		return nil, ErrInvalidExchangeRate
	}
	if actualRate == nil || actualRate.Sign() <= 0 {
		return nil, ErrInvalidExchangeRate
	}
	diff := new(big.Int).Sub(actualRate, oracleRate)
	diff.Abs(diff)
	diff.Mul(diff, big.NewInt(BpsDenominator))
	// Round half up: (2*diff + oracle) / (2*oracle).
	diff.Mul(diff, big.NewInt(2))
	diff.Add(diff, oracleRate)
	return diff.Quo(diff, new(big.Int).Mul(oracleRate, big.NewInt(2))), nil
}

// Guard compares rate pairs against a basis-point tolerance. Validation is
// pure aside from the failure-path audit event.
type Guard struct {
	emitter events.Emitter
}

// NewGuard constructs a slippage guard. Passing nil installs a no-op emitter.
func NewGuard(emitter events.Emitter) *Guard {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Guard{emitter: emitter}
}

// Validate succeeds when the deviation between the rates is within maxBps.
// On failure it emits SlippageCheckFailed and returns ErrSlippageExceeded; no
// state is mutated either way.
func (g *Guard) Validate(oracleRate, actualRate *big.Int, maxBps uint32) error {
	deviation, err := DeviationBps(oracleRate, actualRate)
	if err != nil {
		return err
	}
	if deviation.Cmp(new(big.Int).SetUint64(uint64(maxBps))) <= 0 {
		return nil
	}
	emitter := events.Emitter(events.NoopEmitter{})
	if g != nil && g.emitter != nil {
		emitter = g.emitter
	}
	emitter.Emit(events.SlippageCheckFailed{
		ExpectedRate: new(big.Int).Set(oracleRate),
		ActualRate:   new(big.Int).Set(actualRate),
		Threshold:    maxBps,
	})
	return ErrSlippageExceeded
}
