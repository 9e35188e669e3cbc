package gift

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"zendvo/core/events"
	"zendvo/crypto"
	"zendvo/native/pricing"
)

var (
	errNilState = errors.New("gift engine: state not configured")
	errNilRates = errors.New("gift engine: rate source not configured")
	errNilRail  = errors.New("gift engine: settlement rail not configured")
)

// Default configuration installed by Initialize.
const (
	DefaultMaxOracleAge   uint64 = 300
	DefaultMaxSlippageBps uint32 = 100
	DefaultFeeBps         uint32 = 100
	DefaultPair                  = "USDC/NGN"
)

// DefaultSettlementLiquidity is the soft settlement inventory installed at
// initialization, in smallest settlement-asset units.
var DefaultSettlementLiquidity = big.NewInt(100_000_000)

// engineState is the subset of configuration-store functionality the engine
// depends on. Every entry is read-modify-written within a single atomic call.
type engineState interface {
	HasAdmin() (bool, error)
	Admin() (crypto.Address, bool, error)
	SetAdmin(crypto.Address) error
	OracleConfig() (OracleConfig, bool, error)
	SetOracleConfig(OracleConfig) error
	SlippageConfig() (SlippageConfig, bool, error)
	SetSlippageConfig(SlippageConfig) error
	AllocateGiftID() (uint64, error)
	GiftGet(id uint64) (*Gift, bool, error)
	GiftPut(*Gift) error
	SettleGift(g *Gift, liquidity *big.Int) error
	FeeBps() (uint32, bool, error)
	SetFeeBps(uint32) error
	SettlementLiquidity() (*big.Int, bool, error)
	SetSettlementLiquidity(*big.Int) error
}

// Authorizer evaluates whether the given identity has approved the current
// call. Implementations bridge whatever caller-authentication mechanism the
// host provides; the engine only cares about the verdict.
type Authorizer interface {
	Authorize(identity crypto.Address) error
}

// AuthorizerFunc adapts a plain function to the Authorizer interface.
type AuthorizerFunc func(crypto.Address) error

// Authorize implements the Authorizer interface.
func (f AuthorizerFunc) Authorize(identity crypto.Address) error { return f(identity) }

// RateSource resolves the current oracle exchange rate under a cache policy.
// Implemented by pricing.Cache.
type RateSource interface {
	Rate(pair string, policy pricing.CachePolicy) (*big.Int, error)
}

// PathQuote is the settlement path's view of what a conversion would realize
// right now. Execution of the actual transfer is the rail's job, downstream of
// the engine.
type PathQuote struct {
	Rate *big.Int
	Path []crypto.Address
}

// SettlementRail quotes the external payment path used to move settled funds
// into the fiat off-ramp. The engine supplies the cache policy it already
// loaded for the call; implementations must not call back into the engine,
// which holds its lock while quoting.
type SettlementRail interface {
	QuotePath(pair string, amount *big.Int, destination crypto.Address, policy pricing.CachePolicy) (PathQuote, error)
}

// Engine orchestrates gift creation, cryptographic claim verification and
// slippage-bounded settlement against an injected configuration store, rate
// source and settlement rail. Each exported operation runs under a single
// lock and either commits all of its writes or none of them.
type Engine struct {
	mu      sync.Mutex
	state   engineState
	emitter events.Emitter
	guard   *pricing.Guard
	auth    Authorizer
	rates   RateSource
	rail    SettlementRail
	nowFn   func() uint64
	pair    string
}

// NewEngine creates a gift engine with a no-op emitter and the default
// settlement pair. Callers wire state, authorizer, rate source and rail via
// the Set* methods before serving traffic.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		guard:   pricing.NewGuard(nil),
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
		pair:    DefaultPair,
	}
}

// SetState configures the configuration-store backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetAuthorizer configures the caller-authorization primitive. A nil
// authorizer fails closed: every authorization-gated call is rejected.
func (e *Engine) SetAuthorizer(auth Authorizer) { e.auth = auth }

// SetRateSource configures the oracle price cache used for settlement.
func (e *Engine) SetRateSource(rates RateSource) { e.rates = rates }

// SetSettlementRail configures the external payment-path collaborator.
func (e *Engine) SetSettlementRail(rail SettlementRail) { e.rail = rail }

// SetPair overrides the settlement currency pair. A malformed pair is
// rejected and leaves the current pair in place.
func (e *Engine) SetPair(pair string) error {
	normalized, err := pricing.NormalizePair(pair)
	if err != nil {
		return err
	}
	e.pair = normalized
	return nil
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		e.guard = pricing.NewGuard(nil)
		return
	}
	e.emitter = emitter
	e.guard = pricing.NewGuard(emitter)
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) authorize(identity crypto.Address) error {
	if e == nil || e.auth == nil {
		return ErrUnauthorized
	}
	if err := e.auth.Authorize(identity); err != nil {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) requireAdmin() (crypto.Address, error) {
	admin, ok, err := e.state.Admin()
	if err != nil {
		return crypto.Address{}, err
	}
	if !ok {
		return crypto.Address{}, ErrUnauthorized
	}
	if err := e.authorize(admin); err != nil {
		return crypto.Address{}, err
	}
	return admin, nil
}

func (e *Engine) loadGift(id uint64) (*Gift, error) {
	g, ok, err := e.state.GiftGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

// Initialize establishes the admin identity, the oracle claim key and the
// default oracle and slippage configurations. It may be called exactly once.
func (e *Engine) Initialize(admin crypto.Address, oracleAuthKey [crypto.OracleAuthKeySize]byte, oracleAddress crypto.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	has, err := e.state.HasAdmin()
	if err != nil {
		return err
	}
	if has {
		return ErrAlreadyInitialized
	}
	if err := e.state.SetAdmin(admin); err != nil {
		return err
	}
	if err := e.state.SetOracleConfig(OracleConfig{
		OracleAddress: oracleAddress,
		OracleAuthKey: oracleAuthKey,
		MaxOracleAge:  DefaultMaxOracleAge,
	}); err != nil {
		return err
	}
	if err := e.state.SetSlippageConfig(SlippageConfig{
		MaxSlippageBps: DefaultMaxSlippageBps,
		Admin:          admin,
	}); err != nil {
		return err
	}
	if err := e.state.SetFeeBps(DefaultFeeBps); err != nil {
		return err
	}
	return e.state.SetSettlementLiquidity(new(big.Int).Set(DefaultSettlementLiquidity))
}

// CreateGift locks a new gift for the hashed recipient and returns its id.
// The sender's funds are escrowed by the asset-custody collaborator as part of
// the authorized call; the engine records the obligation only.
func (e *Engine) CreateGift(sender crypto.Address, amount *big.Int, unlockTime uint64, recipientProofHash string) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.authorize(sender); err != nil {
		return 0, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, fmt.Errorf("gift: amount must be positive")
	}
	id, err := e.state.AllocateGiftID()
	if err != nil {
		return 0, err
	}
	g := &Gift{
		ID:                 id,
		Sender:             sender,
		Amount:             new(big.Int).Set(amount),
		UnlockTime:         unlockTime,
		RecipientProofHash: recipientProofHash,
		Status:             GiftPending,
	}
	if err := e.state.GiftPut(g); err != nil {
		return 0, err
	}
	return id, nil
}

// ClaimGift transitions a pending gift to Claimed once the time lock has
// expired and the oracle's detached signature binds the claimant to the
// gift's recipient hash. Status and time-lock are checked first to fail
// cheaply; the signature check is the authoritative authorization and runs on
// every path that can reach Claimed.
func (e *Engine) ClaimGift(claimant crypto.Address, id uint64, proof [crypto.ClaimProofSize]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	g, err := e.loadGift(id)
	if err != nil {
		return err
	}
	if g.Status != GiftPending {
		return ErrInvalidStatus
	}
	if e.nowFn() < g.UnlockTime {
		return ErrTimeLockActive
	}
	cfg, ok, err := e.state.OracleConfig()
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	if !crypto.VerifyClaim(cfg.OracleAuthKey, claimant, g.RecipientProofHash, proof) {
		return ErrInvalidProof
	}
	g.Status = GiftClaimed
	g.Claimant = &claimant
	return e.state.GiftPut(g)
}

// WithdrawToBank settles a claimed gift into the fiat rail. The realized path
// rate must stay within the configured slippage tolerance of the oracle rate;
// any failure leaves the gift untouched and is reported synchronously.
func (e *Engine) WithdrawToBank(id uint64, memo string, destination crypto.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.rates == nil {
		return errNilRates
	}
	if e.rail == nil {
		return errNilRail
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	g, err := e.loadGift(id)
	if err != nil {
		return err
	}
	if g.Status != GiftClaimed {
		return ErrInvalidStatus
	}
	liquidity, ok, err := e.state.SettlementLiquidity()
	if err != nil {
		return err
	}
	if !ok || liquidity == nil || g.Amount.Cmp(liquidity) > 0 {
		return ErrInsufficientLiquidity
	}
	oracleCfg, ok, err := e.state.OracleConfig()
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	policy := pricing.CachePolicy{
		MaxOracleAge: oracleCfg.MaxOracleAge,
		Paused:       oracleCfg.Paused,
	}
	oracleRate, err := e.rates.Rate(e.pair, policy)
	if err != nil {
		return err
	}
	quote, err := e.rail.QuotePath(e.pair, g.Amount, destination, policy)
	if err != nil {
		return err
	}
	slippageCfg, ok, err := e.state.SlippageConfig()
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	if err := e.guard.Validate(oracleRate, quote.Rate, slippageCfg.MaxSlippageBps); err != nil {
		return err
	}

	feeBps, ok, err := e.state.FeeBps()
	if err != nil {
		return err
	}
	if !ok {
		feeBps = DefaultFeeBps
	}
	fee := new(big.Int).Mul(g.Amount, new(big.Int).SetUint64(uint64(feeBps)))
	fee.Quo(fee, big.NewInt(pricing.BpsDenominator))
	sent := new(big.Int).Sub(g.Amount, fee)
	received := scaleByRate(sent, quote.Rate)
	expected := scaleByRate(g.Amount, oracleRate)

	g.Status = GiftWithdrawn
	if err := e.state.SettleGift(g, new(big.Int).Sub(liquidity, g.Amount)); err != nil {
		return err
	}
	e.emit(events.BankWithdrawalInitiated{
		GiftID:                   g.ID,
		Amount:                   new(big.Int).Set(g.Amount),
		ExpectedSettlementAmount: expected,
	})
	e.emit(events.PathPaymentExecuted{
		Sent:         sent,
		Received:     received,
		ExchangeRate: new(big.Int).Set(quote.Rate),
		Path:         quote.Path,
	})
	e.emit(events.AnchorDepositSent{
		AnchorAddress: destination,
		Amount:        new(big.Int).Set(received),
		Memo:          memo,
	})
	e.emit(events.FeesCollected{GiftID: g.ID, FeeAmount: fee})
	return nil
}

func scaleByRate(amount, rate *big.Int) *big.Int {
	out := new(big.Int).Mul(amount, rate)
	return out.Quo(out, big.NewInt(pricing.RateScale))
}

// CheckExchangeRate resolves the current oracle rate for the pair through the
// price cache, honoring the pause switch and staleness window.
func (e *Engine) CheckExchangeRate(pair string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.rates == nil {
		return nil, errNilRates
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg, ok, err := e.state.OracleConfig()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorized
	}
	return e.rates.Rate(pair, pricing.CachePolicy{
		MaxOracleAge: cfg.MaxOracleAge,
		Paused:       cfg.Paused,
	})
}

// ValidateSlippage compares two rates against the configured tolerance.
func (e *Engine) ValidateSlippage(oracleRate, actualRate *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg, ok, err := e.state.SlippageConfig()
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return e.guard.Validate(oracleRate, actualRate, cfg.MaxSlippageBps)
}

// SetOracleAddress rotates the identity used for upstream price queries.
func (e *Engine) SetOracleAddress(newAddress crypto.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.requireAdmin(); err != nil {
		return err
	}
	cfg, ok, err := e.state.OracleConfig()
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	old := cfg.OracleAddress
	cfg.OracleAddress = newAddress
	if err := e.state.SetOracleConfig(cfg); err != nil {
		return err
	}
	e.emit(events.OracleAddressUpdated{OldAddress: old, NewAddress: newAddress})
	return nil
}

// SetMaxOracleAge adjusts the staleness window for cached prices.
func (e *Engine) SetMaxOracleAge(maxAge uint64) error {
	return e.updateOracleConfig(func(cfg *OracleConfig) { cfg.MaxOracleAge = maxAge })
}

// PauseOracleChecks suspends rate queries. Emergency admin switch.
func (e *Engine) PauseOracleChecks() error {
	return e.updateOracleConfig(func(cfg *OracleConfig) { cfg.Paused = true })
}

// ResumeOracleChecks re-enables rate queries.
func (e *Engine) ResumeOracleChecks() error {
	return e.updateOracleConfig(func(cfg *OracleConfig) { cfg.Paused = false })
}

func (e *Engine) updateOracleConfig(mutate func(*OracleConfig)) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.requireAdmin(); err != nil {
		return err
	}
	cfg, ok, err := e.state.OracleConfig()
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	mutate(&cfg)
	return e.state.SetOracleConfig(cfg)
}

// SetMaxSlippage replaces the slippage tolerance. The new value is
// bounds-checked before the admin gate so a bad value never reaches storage.
func (e *Engine) SetMaxSlippage(bps uint32) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := pricing.ValidateSlippageBounds(bps); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	admin, err := e.requireAdmin()
	if err != nil {
		return err
	}
	cfg, ok, err := e.state.SlippageConfig()
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	old := cfg.MaxSlippageBps
	cfg.MaxSlippageBps = bps
	if err := e.state.SetSlippageConfig(cfg); err != nil {
		return err
	}
	e.emit(events.SlippageConfigUpdated{OldSlippage: old, NewSlippage: bps, Admin: admin})
	return nil
}

// SetFeeBps replaces the settlement fee taken from each withdrawal.
func (e *Engine) SetFeeBps(bps uint32) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if bps > pricing.BpsDenominator {
		return fmt.Errorf("gift: fee bps out of range")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.requireAdmin(); err != nil {
		return err
	}
	return e.state.SetFeeBps(bps)
}

// SetSettlementLiquidity replaces the soft settlement inventory available for
// withdrawals.
func (e *Engine) SetSettlementLiquidity(amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("gift: liquidity must be non-negative")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.requireAdmin(); err != nil {
		return err
	}
	return e.state.SetSettlementLiquidity(new(big.Int).Set(amount))
}

// GetOracleStatus returns the current oracle configuration.
func (e *Engine) GetOracleStatus() (OracleConfig, error) {
	if e == nil || e.state == nil {
		return OracleConfig{}, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg, ok, err := e.state.OracleConfig()
	if err != nil {
		return OracleConfig{}, err
	}
	if !ok {
		return OracleConfig{}, ErrUnauthorized
	}
	return cfg, nil
}

// GetSlippageConfig returns the current slippage configuration.
func (e *Engine) GetSlippageConfig() (SlippageConfig, error) {
	if e == nil || e.state == nil {
		return SlippageConfig{}, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg, ok, err := e.state.SlippageConfig()
	if err != nil {
		return SlippageConfig{}, err
	}
	if !ok {
		return SlippageConfig{}, ErrUnauthorized
	}
	return cfg, nil
}

// GetGift returns a copy of the stored gift record.
func (e *Engine) GetGift(id uint64) (*Gift, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	g, err := e.loadGift(id)
	if err != nil {
		return nil, err
	}
	return g.Clone(), nil
}
