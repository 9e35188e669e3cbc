package state

import (
	"bytes"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"zendvo/crypto"
	"zendvo/native/gift"
	"zendvo/native/pricing"
	"zendvo/storage"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func testAddr(fill byte) crypto.Address {
	return crypto.NewAddress(crypto.ZVPrefix, bytes.Repeat([]byte{fill}, 20))
}

func TestAdminRoundTrip(t *testing.T) {
	m := newManager(t)
	has, err := m.HasAdmin()
	require.NoError(t, err)
	require.False(t, has)
	_, ok, err := m.Admin()
	require.NoError(t, err)
	require.False(t, ok)

	admin := testAddr(0x01)
	require.NoError(t, m.SetAdmin(admin))

	has, err = m.HasAdmin()
	require.NoError(t, err)
	require.True(t, has)
	got, ok, err := m.Admin()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Equal(admin))
}

func TestOracleConfigRoundTrip(t *testing.T) {
	m := newManager(t)
	_, ok, err := m.OracleConfig()
	require.NoError(t, err)
	require.False(t, ok)

	key, err := crypto.GenerateOracleKey()
	require.NoError(t, err)
	cfg := gift.OracleConfig{
		OracleAddress: testAddr(0x02),
		OracleAuthKey: key.AuthKey(),
		MaxOracleAge:  300,
		Paused:        true,
	}
	require.NoError(t, m.SetOracleConfig(cfg))

	got, ok, err := m.OracleConfig()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.OracleAddress.Equal(cfg.OracleAddress))
	require.Equal(t, cfg.OracleAuthKey, got.OracleAuthKey)
	require.Equal(t, uint64(300), got.MaxOracleAge)
	require.True(t, got.Paused)
}

func TestSlippageConfigRoundTrip(t *testing.T) {
	m := newManager(t)
	cfg := gift.SlippageConfig{MaxSlippageBps: 75, Admin: testAddr(0x01)}
	require.NoError(t, m.SetSlippageConfig(cfg))

	got, ok, err := m.SlippageConfig()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(75), got.MaxSlippageBps)
	require.True(t, got.Admin.Equal(cfg.Admin))
}

func TestAllocateGiftIDMonotonic(t *testing.T) {
	m := newManager(t)
	for want := uint64(1); want <= 4; want++ {
		id, err := m.AllocateGiftID()
		require.NoError(t, err)
		require.Equal(t, want, id)
	}
}

func TestGiftRoundTrip(t *testing.T) {
	m := newManager(t)
	_, ok, err := m.GiftGet(1)
	require.NoError(t, err)
	require.False(t, ok)

	pending := &gift.Gift{
		ID:                 1,
		Sender:             testAddr(0x03),
		Amount:             big.NewInt(10_000_000),
		UnlockTime:         1_700_000_000,
		RecipientProofHash: "phone_hash",
		Status:             gift.GiftPending,
	}
	require.NoError(t, m.GiftPut(pending))

	got, ok, err := m.GiftGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pending.ID, got.ID)
	require.True(t, got.Sender.Equal(pending.Sender))
	require.Zero(t, got.Amount.Cmp(pending.Amount))
	require.Equal(t, pending.UnlockTime, got.UnlockTime)
	require.Equal(t, pending.RecipientProofHash, got.RecipientProofHash)
	require.Equal(t, gift.GiftPending, got.Status)
	require.Nil(t, got.Claimant)

	claimant := testAddr(0x04)
	got.Status = gift.GiftClaimed
	got.Claimant = &claimant
	require.NoError(t, m.GiftPut(got))

	reloaded, ok, err := m.GiftGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, gift.GiftClaimed, reloaded.Status)
	require.NotNil(t, reloaded.Claimant)
	require.True(t, reloaded.Claimant.Equal(claimant))
}

func TestGiftPutRejectsInvalidRecords(t *testing.T) {
	m := newManager(t)
	claimant := testAddr(0x04)
	cases := []*gift.Gift{
		nil,
		{ID: 0, Sender: testAddr(0x03), Amount: big.NewInt(1), RecipientProofHash: "h", Status: gift.GiftPending},
		{ID: 1, Sender: testAddr(0x03), Amount: big.NewInt(0), RecipientProofHash: "h", Status: gift.GiftPending},
		{ID: 1, Sender: testAddr(0x03), Amount: big.NewInt(1), RecipientProofHash: "", Status: gift.GiftPending},
		{ID: 1, Sender: testAddr(0x03), Amount: big.NewInt(1), RecipientProofHash: "h", Status: gift.GiftPending, Claimant: &claimant},
		{ID: 1, Sender: testAddr(0x03), Amount: big.NewInt(1), RecipientProofHash: "h", Status: gift.GiftClaimed},
	}
	for _, g := range cases {
		require.Error(t, m.GiftPut(g))
	}
}

type failingWriteDB struct {
	*storage.MemDB
}

func (f failingWriteDB) Write(*storage.Batch) error {
	return fmt.Errorf("simulated write failure")
}

func TestSettleGiftAtomic(t *testing.T) {
	m := newManager(t)
	claimant := testAddr(0x04)
	claimed := &gift.Gift{
		ID:                 1,
		Sender:             testAddr(0x03),
		Amount:             big.NewInt(10_000_000),
		RecipientProofHash: "phone_hash",
		Status:             gift.GiftClaimed,
		Claimant:           &claimant,
	}
	require.NoError(t, m.GiftPut(claimed))
	require.NoError(t, m.SetSettlementLiquidity(big.NewInt(100_000_000)))

	settled := claimed.Clone()
	settled.Status = gift.GiftWithdrawn
	require.NoError(t, m.SettleGift(settled, big.NewInt(90_000_000)))

	got, ok, err := m.GiftGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, gift.GiftWithdrawn, got.Status)
	liquidity, ok, err := m.SettlementLiquidity()
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, liquidity.Cmp(big.NewInt(90_000_000)))

	require.Error(t, m.SettleGift(settled, nil))
	require.Error(t, m.SettleGift(settled, big.NewInt(-1)))
}

func TestSettleGiftWriteFailureLeavesStateUnchanged(t *testing.T) {
	m := NewManager(failingWriteDB{MemDB: storage.NewMemDB()})
	claimant := testAddr(0x04)
	claimed := &gift.Gift{
		ID:                 1,
		Sender:             testAddr(0x03),
		Amount:             big.NewInt(10_000_000),
		RecipientProofHash: "phone_hash",
		Status:             gift.GiftClaimed,
		Claimant:           &claimant,
	}
	require.NoError(t, m.GiftPut(claimed))
	require.NoError(t, m.SetSettlementLiquidity(big.NewInt(100_000_000)))

	settled := claimed.Clone()
	settled.Status = gift.GiftWithdrawn
	require.Error(t, m.SettleGift(settled, big.NewInt(90_000_000)))

	// Neither the status transition nor the inventory debit may land alone.
	got, ok, err := m.GiftGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, gift.GiftClaimed, got.Status)
	liquidity, ok, err := m.SettlementLiquidity()
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, liquidity.Cmp(big.NewInt(100_000_000)))
}

func TestFeeAndLiquidityRoundTrip(t *testing.T) {
	m := newManager(t)
	_, ok, err := m.FeeBps()
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, m.SetFeeBps(150))
	bps, ok, err := m.FeeBps()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(150), bps)

	_, ok, err = m.SettlementLiquidity()
	require.NoError(t, err)
	require.False(t, ok)
	require.Error(t, m.SetSettlementLiquidity(nil))
	require.Error(t, m.SetSettlementLiquidity(big.NewInt(-1)))
	require.NoError(t, m.SetSettlementLiquidity(big.NewInt(100_000_000)))
	liquidity, ok, err := m.SettlementLiquidity()
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, liquidity.Cmp(big.NewInt(100_000_000)))
}

func TestPriceCacheEphemeral(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)

	_, ok, err := m.PriceCacheGet()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.PriceCachePut(pricing.CachedRate{Rate: big.NewInt(1_650_000_000), Timestamp: 1_700_000_000}))
	got, ok, err := m.PriceCacheGet()
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, got.Rate.Cmp(big.NewInt(1_650_000_000)))
	require.Equal(t, uint64(1_700_000_000), got.Timestamp)

	// Host-side eviction is equivalent to staleness: the entry just vanishes.
	db.Delete([]byte("pricing/cache"))
	_, ok, err = m.PriceCacheGet()
	require.NoError(t, err)
	require.False(t, ok)
}
