package gift

import (
	"fmt"
	"math/big"
	"strings"

	"zendvo/crypto"
)

// GiftStatus represents the lifecycle states of a time-locked gift. Transitions
// only ever move forward: Pending -> Claimed -> Withdrawn.
type GiftStatus uint8

const (
	GiftPending GiftStatus = iota
	GiftClaimed
	GiftWithdrawn
)

// Valid reports whether the status value is within the supported range.
func (s GiftStatus) Valid() bool {
	switch s {
	case GiftPending, GiftClaimed, GiftWithdrawn:
		return true
	default:
		return false
	}
}

// String renders the canonical status label used by the RPC surface.
func (s GiftStatus) String() string {
	switch s {
	case GiftPending:
		return "pending"
	case GiftClaimed:
		return "claimed"
	case GiftWithdrawn:
		return "withdrawn"
	default:
		return "unknown"
	}
}

// Gift captures a time-locked conditional payment addressed to a recipient
// known only by the hash of an out-of-band identifier. Amount and unlock time
// are fixed at creation; the claimant is set exactly once, at the
// Pending -> Claimed transition.
type Gift struct {
	ID                 uint64
	Sender             crypto.Address
	Amount             *big.Int
	UnlockTime         uint64
	RecipientProofHash string
	Status             GiftStatus
	Claimant           *crypto.Address
}

// Clone returns a deep copy of the gift so callers can safely mutate the copy
// without affecting the stored instance.
func (g *Gift) Clone() *Gift {
	if g == nil {
		return nil
	}
	clone := *g
	if g.Amount != nil {
		clone.Amount = new(big.Int).Set(g.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	if g.Claimant != nil {
		claimant := *g.Claimant
		clone.Claimant = &claimant
	}
	return &clone
}

// SanitizeGift validates and normalises the supplied gift record, returning a
// cloned instance. The function does not mutate the original value.
func SanitizeGift(g *Gift) (*Gift, error) {
	if g == nil {
		return nil, fmt.Errorf("nil gift")
	}
	clone := g.Clone()
	if clone.ID == 0 {
		return nil, fmt.Errorf("gift id must be allocated")
	}
	if clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("gift amount must be positive")
	}
	if strings.TrimSpace(clone.RecipientProofHash) == "" {
		return nil, fmt.Errorf("gift recipient proof hash required")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("invalid gift status: %d", clone.Status)
	}
	if clone.Status == GiftPending && clone.Claimant != nil {
		return nil, fmt.Errorf("pending gift cannot carry a claimant")
	}
	if clone.Status != GiftPending && clone.Claimant == nil {
		return nil, fmt.Errorf("claimed gift must carry a claimant")
	}
	return clone, nil
}

// OracleConfig is the engine-owned oracle settings record. OracleAuthKey is
// the ed25519 public key whose detached signatures authorize gift claims; it
// is provisioned alongside, but distinct from, the oracle identity used for
// price queries.
type OracleConfig struct {
	OracleAddress crypto.Address
	OracleAuthKey [crypto.OracleAuthKeySize]byte
	MaxOracleAge  uint64
	Paused        bool
}

// SlippageConfig bounds how far the realized settlement rate may deviate from
// the oracle-observed rate.
type SlippageConfig struct {
	MaxSlippageBps uint32
	Admin          crypto.Address
}
