package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"math/big"
	"strings"

	"zendvo/crypto"
	"zendvo/native/gift"
	"zendvo/native/pricing"
)

const (
	codeGiftNotFound       = -32022
	codeGiftForbidden      = -32023
	codeGiftConflict       = -32024
	codeGiftTimeLock       = -32025
	codeGiftInvalidProof   = -32026
	codeOraclePaused       = -32027
	codeInvalidRate        = -32028
	codeSlippageExceeded   = -32029
	codeInvalidSlippageCfg = -32030
	codeNoLiquidity        = -32031
)

func (s *Server) handlers() map[string]rpcHandler {
	return map[string]rpcHandler{
		"engine_initialize":       {mutating: true, fn: s.handleInitialize},
		"gift_create":             {mutating: true, fn: s.handleGiftCreate},
		"gift_claim":              {mutating: true, fn: s.handleGiftClaim},
		"gift_withdrawToBank":     {mutating: true, fn: s.handleGiftWithdraw},
		"gift_get":                {mutating: false, fn: s.handleGiftGet},
		"oracle_checkRate":        {mutating: false, fn: s.handleOracleCheckRate},
		"oracle_status":           {mutating: false, fn: s.handleOracleStatus},
		"oracle_setAddress":       {mutating: true, fn: s.handleOracleSetAddress},
		"oracle_setMaxAge":        {mutating: true, fn: s.handleOracleSetMaxAge},
		"oracle_pause":            {mutating: true, fn: s.handleOraclePause},
		"oracle_resume":           {mutating: true, fn: s.handleOracleResume},
		"slippage_validate":       {mutating: false, fn: s.handleSlippageValidate},
		"slippage_setMax":         {mutating: true, fn: s.handleSlippageSetMax},
		"slippage_config":         {mutating: false, fn: s.handleSlippageConfig},
		"settlement_setFee":       {mutating: true, fn: s.handleSetFee},
		"settlement_setLiquidity": {mutating: true, fn: s.handleSetLiquidity},
	}
}

type initializeParams struct {
	Admin         string `json:"admin"`
	OracleAuthKey string `json:"oracleAuthKey"`
	OracleAddress string `json:"oracleAddress"`
}

type giftCreateParams struct {
	Sender             string `json:"sender"`
	Amount             string `json:"amount"`
	UnlockTime         uint64 `json:"unlockTime"`
	RecipientProofHash string `json:"recipientProofHash"`
}

type giftClaimParams struct {
	Claimant string `json:"claimant"`
	ID       uint64 `json:"id"`
	Proof    string `json:"proof"`
}

type giftWithdrawParams struct {
	ID          uint64 `json:"id"`
	Memo        string `json:"memo"`
	Destination string `json:"destination"`
}

type giftIDParams struct {
	ID uint64 `json:"id"`
}

type pairParams struct {
	Pair string `json:"pair"`
}

type addressParams struct {
	Address string `json:"address"`
}

type maxAgeParams struct {
	MaxAge uint64 `json:"maxAge"`
}

type slippageValidateParams struct {
	OracleRate string `json:"oracleRate"`
	ActualRate string `json:"actualRate"`
}

type bpsParams struct {
	Bps uint32 `json:"bps"`
}

type amountParams struct {
	Amount string `json:"amount"`
}

type giftJSON struct {
	ID                 uint64  `json:"id"`
	Sender             string  `json:"sender"`
	Amount             string  `json:"amount"`
	UnlockTime         uint64  `json:"unlockTime"`
	RecipientProofHash string  `json:"recipientProofHash"`
	Status             string  `json:"status"`
	Claimant           *string `json:"claimant,omitempty"`
}

type oracleConfigJSON struct {
	OracleAddress string `json:"oracleAddress"`
	OracleAuthKey string `json:"oracleAuthKey"`
	MaxOracleAge  uint64 `json:"maxOracleAge"`
	Paused        bool   `json:"paused"`
}

type slippageConfigJSON struct {
	MaxSlippageBps uint32 `json:"maxSlippageBps"`
	Admin          string `json:"admin"`
}

func (s *Server) handleInitialize(params []json.RawMessage) (interface{}, *rpcError) {
	var p initializeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	admin, rpcErr := parseAddress(p.Admin, "admin")
	if rpcErr != nil {
		return nil, rpcErr
	}
	oracleAddr, rpcErr := parseAddress(p.OracleAddress, "oracleAddress")
	if rpcErr != nil {
		return nil, rpcErr
	}
	rawKey, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(p.OracleAuthKey), "0x"))
	if err != nil || len(rawKey) != crypto.OracleAuthKeySize {
		return nil, &rpcError{Code: codeInvalidParams, Message: "oracleAuthKey must be 32 hex-encoded bytes"}
	}
	var authKey [crypto.OracleAuthKeySize]byte
	copy(authKey[:], rawKey)
	if err := s.engine.Initialize(admin, authKey, oracleAddr); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"initialized": true}, nil
}

func (s *Server) handleGiftCreate(params []json.RawMessage) (interface{}, *rpcError) {
	var p giftCreateParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	sender, rpcErr := parseAddress(p.Sender, "sender")
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(p.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, err := s.engine.CreateGift(sender, amount, p.UnlockTime, p.RecipientProofHash)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]uint64{"id": id}, nil
}

func (s *Server) handleGiftClaim(params []json.RawMessage) (interface{}, *rpcError) {
	var p giftClaimParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	claimant, rpcErr := parseAddress(p.Claimant, "claimant")
	if rpcErr != nil {
		return nil, rpcErr
	}
	rawProof, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(p.Proof), "0x"))
	if err != nil || len(rawProof) != crypto.ClaimProofSize {
		return nil, &rpcError{Code: codeInvalidParams, Message: "proof must be 64 hex-encoded bytes"}
	}
	var proof [crypto.ClaimProofSize]byte
	copy(proof[:], rawProof)
	if err := s.engine.ClaimGift(claimant, p.ID, proof); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"claimed": true}, nil
}

func (s *Server) handleGiftWithdraw(params []json.RawMessage) (interface{}, *rpcError) {
	var p giftWithdrawParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	destination, rpcErr := parseAddress(p.Destination, "destination")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.WithdrawToBank(p.ID, p.Memo, destination); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"withdrawn": true}, nil
}

func (s *Server) handleGiftGet(params []json.RawMessage) (interface{}, *rpcError) {
	var p giftIDParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	g, err := s.engine.GetGift(p.ID)
	if err != nil {
		return nil, mapEngineError(err)
	}
	out := giftJSON{
		ID:                 g.ID,
		Sender:             g.Sender.String(),
		Amount:             g.Amount.String(),
		UnlockTime:         g.UnlockTime,
		RecipientProofHash: g.RecipientProofHash,
		Status:             g.Status.String(),
	}
	if g.Claimant != nil {
		claimant := g.Claimant.String()
		out.Claimant = &claimant
	}
	return out, nil
}

func (s *Server) handleOracleCheckRate(params []json.RawMessage) (interface{}, *rpcError) {
	var p pairParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	rate, err := s.engine.CheckExchangeRate(p.Pair)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]string{"rate": rate.String()}, nil
}

func (s *Server) handleOracleStatus(params []json.RawMessage) (interface{}, *rpcError) {
	cfg, err := s.engine.GetOracleStatus()
	if err != nil {
		return nil, mapEngineError(err)
	}
	return oracleConfigJSON{
		OracleAddress: cfg.OracleAddress.String(),
		OracleAuthKey: hex.EncodeToString(cfg.OracleAuthKey[:]),
		MaxOracleAge:  cfg.MaxOracleAge,
		Paused:        cfg.Paused,
	}, nil
}

func (s *Server) handleOracleSetAddress(params []json.RawMessage) (interface{}, *rpcError) {
	var p addressParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress(p.Address, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SetOracleAddress(addr); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"updated": true}, nil
}

func (s *Server) handleOracleSetMaxAge(params []json.RawMessage) (interface{}, *rpcError) {
	var p maxAgeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SetMaxOracleAge(p.MaxAge); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"updated": true}, nil
}

func (s *Server) handleOraclePause(params []json.RawMessage) (interface{}, *rpcError) {
	if err := s.engine.PauseOracleChecks(); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"paused": true}, nil
}

func (s *Server) handleOracleResume(params []json.RawMessage) (interface{}, *rpcError) {
	if err := s.engine.ResumeOracleChecks(); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"paused": false}, nil
}

func (s *Server) handleSlippageValidate(params []json.RawMessage) (interface{}, *rpcError) {
	var p slippageValidateParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	oracleRate, rpcErr := parseAmount(p.OracleRate, "oracleRate")
	if rpcErr != nil {
		return nil, rpcErr
	}
	actualRate, rpcErr := parseAmount(p.ActualRate, "actualRate")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.ValidateSlippage(oracleRate, actualRate); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleSlippageSetMax(params []json.RawMessage) (interface{}, *rpcError) {
	var p bpsParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SetMaxSlippage(p.Bps); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"updated": true}, nil
}

func (s *Server) handleSlippageConfig(params []json.RawMessage) (interface{}, *rpcError) {
	cfg, err := s.engine.GetSlippageConfig()
	if err != nil {
		return nil, mapEngineError(err)
	}
	return slippageConfigJSON{MaxSlippageBps: cfg.MaxSlippageBps, Admin: cfg.Admin.String()}, nil
}

func (s *Server) handleSetFee(params []json.RawMessage) (interface{}, *rpcError) {
	var p bpsParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SetFeeBps(p.Bps); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"updated": true}, nil
}

func (s *Server) handleSetLiquidity(params []json.RawMessage) (interface{}, *rpcError) {
	var p amountParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount(p.Amount, "amount")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SetSettlementLiquidity(amount); err != nil {
		return nil, mapEngineError(err)
	}
	return map[string]bool{"updated": true}, nil
}

func parseAddress(raw, field string) (crypto.Address, *rpcError) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return crypto.Address{}, &rpcError{Code: codeInvalidParams, Message: field + ": " + err.Error()}
	}
	return addr, nil
}

func parseAmount(raw, field string) (*big.Int, *rpcError) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: field + " must be a base-10 integer"}
	}
	return value, nil
}

func mapEngineError(err error) *rpcError {
	switch {
	case errors.Is(err, gift.ErrNotFound):
		return &rpcError{Code: codeGiftNotFound, Message: err.Error()}
	case errors.Is(err, gift.ErrUnauthorized):
		return &rpcError{Code: codeGiftForbidden, Message: err.Error()}
	case errors.Is(err, gift.ErrAlreadyInitialized), errors.Is(err, gift.ErrInvalidStatus):
		return &rpcError{Code: codeGiftConflict, Message: err.Error()}
	case errors.Is(err, gift.ErrTimeLockActive):
		return &rpcError{Code: codeGiftTimeLock, Message: err.Error()}
	case errors.Is(err, gift.ErrInvalidProof):
		return &rpcError{Code: codeGiftInvalidProof, Message: err.Error()}
	case errors.Is(err, gift.ErrInsufficientLiquidity):
		return &rpcError{Code: codeNoLiquidity, Message: err.Error()}
	case errors.Is(err, pricing.ErrOraclePaused):
		return &rpcError{Code: codeOraclePaused, Message: err.Error()}
	case errors.Is(err, pricing.ErrInvalidExchangeRate):
		return &rpcError{Code: codeInvalidRate, Message: err.Error()}
	case errors.Is(err, pricing.ErrSlippageExceeded):
		return &rpcError{Code: codeSlippageExceeded, Message: err.Error()}
	case errors.Is(err, pricing.ErrInvalidSlippageConfig):
		return &rpcError{Code: codeInvalidSlippageCfg, Message: err.Error()}
	default:
		return &rpcError{Code: codeServerError, Message: err.Error()}
	}
}
