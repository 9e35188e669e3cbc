package pricing

import "errors"

var (
	// ErrOraclePaused indicates rate queries are administratively suspended.
	ErrOraclePaused = errors.New("pricing: oracle checks paused")
	// ErrInvalidExchangeRate indicates the upstream oracle returned a rate
	// outside the sane positive bound.
	ErrInvalidExchangeRate = errors.New("pricing: invalid exchange rate")
	// ErrSlippageExceeded indicates the realized rate deviated from the oracle
	// rate beyond the configured tolerance.
	ErrSlippageExceeded = errors.New("pricing: slippage exceeded")
	// ErrInvalidSlippageConfig indicates an out-of-range tolerance was supplied.
	ErrInvalidSlippageConfig = errors.New("pricing: invalid slippage config")
)
