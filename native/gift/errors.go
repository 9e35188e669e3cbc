package gift

import "errors"

var (
	// ErrUnauthorized indicates the caller lacks required authorization or the
	// engine has not been initialized with an admin yet.
	ErrUnauthorized = errors.New("gift: unauthorized")
	// ErrAlreadyInitialized indicates a second initialization attempt.
	ErrAlreadyInitialized = errors.New("gift: already initialized")
	// ErrNotFound indicates an unknown gift id.
	ErrNotFound = errors.New("gift: not found")
	// ErrInvalidStatus indicates an operation against a gift in the wrong
	// lifecycle state.
	ErrInvalidStatus = errors.New("gift: invalid status")
	// ErrTimeLockActive indicates a claim attempted before the unlock time.
	ErrTimeLockActive = errors.New("gift: time lock active")
	// ErrInvalidProof indicates the detached claim signature failed to verify.
	ErrInvalidProof = errors.New("gift: invalid claim proof")
	// ErrInsufficientLiquidity indicates the gift amount exceeds the available
	// settlement-asset balance.
	ErrInsufficientLiquidity = errors.New("gift: insufficient settlement liquidity")
)
