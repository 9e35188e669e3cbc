package events

import (
	"math/big"
	"strconv"
	"strings"

	"zendvo/core/types"
	"zendvo/crypto"
)

const (
	TypeOracleRateQueried       = "oracle.rate_queried"
	TypeOracleAddressUpdated    = "oracle.address_updated"
	TypeSlippageConfigUpdated   = "slippage.config_updated"
	TypeSlippageCheckFailed     = "slippage.check_failed"
	TypeBankWithdrawalInitiated = "gift.bank_withdrawal_initiated"
	TypePathPaymentExecuted     = "gift.path_payment_executed"
	TypeAnchorDepositSent       = "gift.anchor_deposit_sent"
	TypeFeesCollected           = "gift.fees_collected"
)

// OracleRateQueried records a fresh upstream oracle lookup. Cache hits do not
// emit this event.
type OracleRateQueried struct {
	Timestamp uint64
	Rate      *big.Int
	Source    string
}

func (OracleRateQueried) EventType() string { return TypeOracleRateQueried }

func (e OracleRateQueried) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleRateQueried,
		Attributes: map[string]string{
			"timestamp": strconv.FormatUint(e.Timestamp, 10),
			"rate":      formatAmount(e.Rate),
			"source":    strings.TrimSpace(e.Source),
		},
	}
}

// OracleAddressUpdated records an admin rotation of the oracle identity.
type OracleAddressUpdated struct {
	OldAddress crypto.Address
	NewAddress crypto.Address
}

func (OracleAddressUpdated) EventType() string { return TypeOracleAddressUpdated }

func (e OracleAddressUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleAddressUpdated,
		Attributes: map[string]string{
			"oldAddress": e.OldAddress.String(),
			"newAddress": e.NewAddress.String(),
		},
	}
}

// SlippageConfigUpdated records an admin change of the slippage tolerance.
type SlippageConfigUpdated struct {
	OldSlippage uint32
	NewSlippage uint32
	Admin       crypto.Address
}

func (SlippageConfigUpdated) EventType() string { return TypeSlippageConfigUpdated }

func (e SlippageConfigUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeSlippageConfigUpdated,
		Attributes: map[string]string{
			"oldSlippage": strconv.FormatUint(uint64(e.OldSlippage), 10),
			"newSlippage": strconv.FormatUint(uint64(e.NewSlippage), 10),
			"admin":       e.Admin.String(),
		},
	}
}

// SlippageCheckFailed records a settlement attempt rejected because the
// realized rate deviated from the oracle rate beyond the tolerance. It is
// emitted on the failure path so the audit trail covers rejected attempts.
type SlippageCheckFailed struct {
	ExpectedRate *big.Int
	ActualRate   *big.Int
	Threshold    uint32
}

func (SlippageCheckFailed) EventType() string { return TypeSlippageCheckFailed }

func (e SlippageCheckFailed) Event() *types.Event {
	return &types.Event{
		Type: TypeSlippageCheckFailed,
		Attributes: map[string]string{
			"expectedRate": formatAmount(e.ExpectedRate),
			"actualRate":   formatAmount(e.ActualRate),
			"threshold":    strconv.FormatUint(uint64(e.Threshold), 10),
		},
	}
}

// BankWithdrawalInitiated records the start of a validated settlement into the
// fiat rail.
type BankWithdrawalInitiated struct {
	GiftID                   uint64
	Amount                   *big.Int
	ExpectedSettlementAmount *big.Int
}

func (BankWithdrawalInitiated) EventType() string { return TypeBankWithdrawalInitiated }

func (e BankWithdrawalInitiated) Event() *types.Event {
	return &types.Event{
		Type: TypeBankWithdrawalInitiated,
		Attributes: map[string]string{
			"giftId":                   strconv.FormatUint(e.GiftID, 10),
			"amount":                   formatAmount(e.Amount),
			"expectedSettlementAmount": formatAmount(e.ExpectedSettlementAmount),
		},
	}
}

// PathPaymentExecuted records the realized conversion the settlement rail
// reported for a withdrawal.
type PathPaymentExecuted struct {
	Sent         *big.Int
	Received     *big.Int
	ExchangeRate *big.Int
	Path         []crypto.Address
}

func (PathPaymentExecuted) EventType() string { return TypePathPaymentExecuted }

func (e PathPaymentExecuted) Event() *types.Event {
	hops := make([]string, 0, len(e.Path))
	for _, hop := range e.Path {
		hops = append(hops, hop.String())
	}
	return &types.Event{
		Type: TypePathPaymentExecuted,
		Attributes: map[string]string{
			"sent":         formatAmount(e.Sent),
			"received":     formatAmount(e.Received),
			"exchangeRate": formatAmount(e.ExchangeRate),
			"path":         strings.Join(hops, ","),
		},
	}
}

// AnchorDepositSent records the hand-off of settled funds to the off-ramp
// anchor.
type AnchorDepositSent struct {
	AnchorAddress crypto.Address
	Amount        *big.Int
	Memo          string
}

func (AnchorDepositSent) EventType() string { return TypeAnchorDepositSent }

func (e AnchorDepositSent) Event() *types.Event {
	return &types.Event{
		Type: TypeAnchorDepositSent,
		Attributes: map[string]string{
			"anchorAddress": e.AnchorAddress.String(),
			"amount":        formatAmount(e.Amount),
			"memo":          e.Memo,
		},
	}
}

// FeesCollected records the fee retained from a settled gift.
type FeesCollected struct {
	GiftID    uint64
	FeeAmount *big.Int
}

func (FeesCollected) EventType() string { return TypeFeesCollected }

func (e FeesCollected) Event() *types.Event {
	return &types.Event{
		Type: TypeFeesCollected,
		Attributes: map[string]string{
			"giftId":    strconv.FormatUint(e.GiftID, 10),
			"feeAmount": formatAmount(e.FeeAmount),
		},
	}
}
