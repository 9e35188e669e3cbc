package state

import (
	"fmt"
	"math/big"

	"zendvo/crypto"
	"zendvo/native/gift"
	"zendvo/native/pricing"
	"zendvo/storage"
)

// Stored record mirrors. Addresses are persisted in bech32 form so records
// stay readable in raw database dumps; amounts use RLP's native big.Int
// encoding.

type storedOracleConfig struct {
	OracleAddress string
	OracleAuthKey []byte
	MaxOracleAge  uint64
	Paused        bool
}

type storedSlippageConfig struct {
	MaxSlippageBps uint32
	Admin          string
}

type storedGift struct {
	ID                 uint64
	Sender             string
	Amount             *big.Int
	UnlockTime         uint64
	RecipientProofHash string
	Status             uint8
	Claimant           string
}

type storedPriceCache struct {
	Rate      *big.Int
	Timestamp uint64
}

func decodeStoredAddress(raw string) (crypto.Address, error) {
	if raw == "" {
		return crypto.Address{}, nil
	}
	return crypto.DecodeAddress(raw)
}

// HasAdmin reports whether the engine has been initialized.
func (m *Manager) HasAdmin() (bool, error) {
	return m.KVHas(giftAdminKey)
}

// Admin returns the stored admin identity.
func (m *Manager) Admin() (crypto.Address, bool, error) {
	var raw string
	ok, err := m.KVGet(giftAdminKey, &raw)
	if err != nil || !ok {
		return crypto.Address{}, false, err
	}
	addr, err := decodeStoredAddress(raw)
	if err != nil {
		return crypto.Address{}, false, err
	}
	return addr, true, nil
}

// SetAdmin stores the admin identity.
func (m *Manager) SetAdmin(admin crypto.Address) error {
	return m.KVPut(giftAdminKey, admin.String())
}

// OracleConfig returns the stored oracle configuration.
func (m *Manager) OracleConfig() (gift.OracleConfig, bool, error) {
	var stored storedOracleConfig
	ok, err := m.KVGet(giftOracleConfigKey, &stored)
	if err != nil || !ok {
		return gift.OracleConfig{}, false, err
	}
	addr, err := decodeStoredAddress(stored.OracleAddress)
	if err != nil {
		return gift.OracleConfig{}, false, err
	}
	cfg := gift.OracleConfig{
		OracleAddress: addr,
		MaxOracleAge:  stored.MaxOracleAge,
		Paused:        stored.Paused,
	}
	if len(stored.OracleAuthKey) != crypto.OracleAuthKeySize {
		return gift.OracleConfig{}, false, fmt.Errorf("state: oracle auth key must be %d bytes, got %d", crypto.OracleAuthKeySize, len(stored.OracleAuthKey))
	}
	copy(cfg.OracleAuthKey[:], stored.OracleAuthKey)
	return cfg, true, nil
}

// SetOracleConfig stores the oracle configuration.
func (m *Manager) SetOracleConfig(cfg gift.OracleConfig) error {
	return m.KVPut(giftOracleConfigKey, storedOracleConfig{
		OracleAddress: cfg.OracleAddress.String(),
		OracleAuthKey: append([]byte(nil), cfg.OracleAuthKey[:]...),
		MaxOracleAge:  cfg.MaxOracleAge,
		Paused:        cfg.Paused,
	})
}

// SlippageConfig returns the stored slippage configuration.
func (m *Manager) SlippageConfig() (gift.SlippageConfig, bool, error) {
	var stored storedSlippageConfig
	ok, err := m.KVGet(giftSlippageConfigKey, &stored)
	if err != nil || !ok {
		return gift.SlippageConfig{}, false, err
	}
	admin, err := decodeStoredAddress(stored.Admin)
	if err != nil {
		return gift.SlippageConfig{}, false, err
	}
	return gift.SlippageConfig{MaxSlippageBps: stored.MaxSlippageBps, Admin: admin}, true, nil
}

// SetSlippageConfig stores the slippage configuration.
func (m *Manager) SetSlippageConfig(cfg gift.SlippageConfig) error {
	return m.KVPut(giftSlippageConfigKey, storedSlippageConfig{
		MaxSlippageBps: cfg.MaxSlippageBps,
		Admin:          cfg.Admin.String(),
	})
}

// AllocateGiftID returns the next gift id and advances the counter. IDs start
// at 1 and are never reused.
func (m *Manager) AllocateGiftID() (uint64, error) {
	next := uint64(1)
	if _, err := m.KVGet(giftNextIDKey, &next); err != nil {
		return 0, err
	}
	if err := m.KVPut(giftNextIDKey, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

// GiftGet returns a copy of the stored gift record.
func (m *Manager) GiftGet(id uint64) (*gift.Gift, bool, error) {
	var stored storedGift
	ok, err := m.KVGet(giftRecordKey(id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	sender, err := decodeStoredAddress(stored.Sender)
	if err != nil {
		return nil, false, err
	}
	g := &gift.Gift{
		ID:                 stored.ID,
		Sender:             sender,
		Amount:             stored.Amount,
		UnlockTime:         stored.UnlockTime,
		RecipientProofHash: stored.RecipientProofHash,
		Status:             gift.GiftStatus(stored.Status),
	}
	if stored.Claimant != "" {
		claimant, err := decodeStoredAddress(stored.Claimant)
		if err != nil {
			return nil, false, err
		}
		g.Claimant = &claimant
	}
	return g, true, nil
}

// GiftPut validates and stores the gift record.
func (m *Manager) GiftPut(g *gift.Gift) error {
	sanitized, err := gift.SanitizeGift(g)
	if err != nil {
		return err
	}
	stored := storedGift{
		ID:                 sanitized.ID,
		Sender:             sanitized.Sender.String(),
		Amount:             sanitized.Amount,
		UnlockTime:         sanitized.UnlockTime,
		RecipientProofHash: sanitized.RecipientProofHash,
		Status:             uint8(sanitized.Status),
	}
	if sanitized.Claimant != nil {
		stored.Claimant = sanitized.Claimant.String()
	}
	return m.KVPut(giftRecordKey(sanitized.ID), stored)
}

// SettleGift stores the settled gift record and the remaining settlement
// liquidity in a single atomic database write, so a storage failure can never
// leave the status transition and the inventory debit half-applied.
func (m *Manager) SettleGift(g *gift.Gift, liquidity *big.Int) error {
	sanitized, err := gift.SanitizeGift(g)
	if err != nil {
		return err
	}
	if liquidity == nil || liquidity.Sign() < 0 {
		return fmt.Errorf("state: liquidity must be non-negative")
	}
	stored := storedGift{
		ID:                 sanitized.ID,
		Sender:             sanitized.Sender.String(),
		Amount:             sanitized.Amount,
		UnlockTime:         sanitized.UnlockTime,
		RecipientProofHash: sanitized.RecipientProofHash,
		Status:             uint8(sanitized.Status),
	}
	if sanitized.Claimant != nil {
		stored.Claimant = sanitized.Claimant.String()
	}
	batch := new(storage.Batch)
	if err := m.KVBatchPut(batch, giftRecordKey(sanitized.ID), stored); err != nil {
		return err
	}
	if err := m.KVBatchPut(batch, giftLiquidityKey, liquidity); err != nil {
		return err
	}
	return m.KVWrite(batch)
}

// FeeBps returns the stored settlement fee.
func (m *Manager) FeeBps() (uint32, bool, error) {
	var bps uint32
	ok, err := m.KVGet(giftFeeBpsKey, &bps)
	return bps, ok, err
}

// SetFeeBps stores the settlement fee.
func (m *Manager) SetFeeBps(bps uint32) error {
	return m.KVPut(giftFeeBpsKey, bps)
}

// SettlementLiquidity returns the soft settlement inventory.
func (m *Manager) SettlementLiquidity() (*big.Int, bool, error) {
	liquidity := new(big.Int)
	ok, err := m.KVGet(giftLiquidityKey, liquidity)
	if err != nil || !ok {
		return nil, false, err
	}
	return liquidity, true, nil
}

// SetSettlementLiquidity stores the soft settlement inventory.
func (m *Manager) SetSettlementLiquidity(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: liquidity must be non-negative")
	}
	return m.KVPut(giftLiquidityKey, amount)
}

// PriceCacheGet returns the ephemeral cached rate, if present.
func (m *Manager) PriceCacheGet() (pricing.CachedRate, bool, error) {
	var stored storedPriceCache
	ok, err := m.KVGet(priceCacheKey, &stored)
	if err != nil || !ok {
		return pricing.CachedRate{}, false, err
	}
	return pricing.CachedRate{Rate: stored.Rate, Timestamp: stored.Timestamp}, true, nil
}

// PriceCachePut overwrites the cached rate.
func (m *Manager) PriceCachePut(cache pricing.CachedRate) error {
	rate := new(big.Int)
	if cache.Rate != nil {
		rate.Set(cache.Rate)
	}
	return m.KVPut(priceCacheKey, storedPriceCache{Rate: rate, Timestamp: cache.Timestamp})
}
