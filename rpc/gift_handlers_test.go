package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"zendvo/crypto"
	"zendvo/native/gift"
	"zendvo/native/pricing"
	"zendvo/state"
	"zendvo/storage"
)

const testToken = "test-token"

type stubRates struct{ rate *big.Int }

func (s stubRates) Rate(pair string, policy pricing.CachePolicy) (*big.Int, error) {
	if policy.Paused {
		return nil, pricing.ErrOraclePaused
	}
	return new(big.Int).Set(s.rate), nil
}

type stubRail struct{ rate *big.Int }

func (s stubRail) QuotePath(pair string, amount *big.Int, destination crypto.Address, policy pricing.CachePolicy) (gift.PathQuote, error) {
	return gift.PathQuote{Rate: new(big.Int).Set(s.rate), Path: []crypto.Address{destination}}, nil
}

type rpcTestEnv struct {
	server *httptest.Server
	oracle *crypto.OracleKey
	now    uint64
}

func newRPCTestEnv(t *testing.T) *rpcTestEnv {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	engine := gift.NewEngine()
	engine.SetState(manager)
	engine.SetAuthorizer(gift.AuthorizerFunc(func(crypto.Address) error { return nil }))
	engine.SetRateSource(stubRates{rate: big.NewInt(pricing.RateScale)})
	engine.SetSettlementRail(stubRail{rate: big.NewInt(pricing.RateScale)})
	env := &rpcTestEnv{now: 1_700_000_000}
	engine.SetNowFunc(func() uint64 { return env.now })

	key, err := crypto.GenerateOracleKey()
	if err != nil {
		t.Fatalf("generate oracle key: %v", err)
	}
	env.oracle = key

	env.server = httptest.NewServer(NewServer(engine, testToken, nil))
	t.Cleanup(env.server.Close)
	return env
}

func (env *rpcTestEnv) call(t *testing.T, token, method string, params interface{}) (json.RawMessage, *rpcError) {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, env.server.URL, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("call %s: %v", method, err)
	}
	defer resp.Body.Close()
	var decoded struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode %s response: %v", method, err)
	}
	return decoded.Result, decoded.Error
}

func (env *rpcTestEnv) mustCall(t *testing.T, method string, params interface{}) json.RawMessage {
	t.Helper()
	result, rpcErr := env.call(t, testToken, method, params)
	if rpcErr != nil {
		t.Fatalf("%s failed: %d %s", method, rpcErr.Code, rpcErr.Message)
	}
	return result
}

func bech(fill byte) string {
	return crypto.NewAddress(crypto.ZVPrefix, bytes.Repeat([]byte{fill}, 20)).String()
}

func (env *rpcTestEnv) initialize(t *testing.T) {
	t.Helper()
	authKey := env.oracle.AuthKey()
	env.mustCall(t, "engine_initialize", initializeParams{
		Admin:         bech(0x01),
		OracleAuthKey: hex.EncodeToString(authKey[:]),
		OracleAddress: bech(0x02),
	})
}

func TestRPCGiftLifecycle(t *testing.T) {
	env := newRPCTestEnv(t)
	env.initialize(t)

	result := env.mustCall(t, "gift_create", giftCreateParams{
		Sender:             bech(0x03),
		Amount:             "10000000",
		UnlockTime:         env.now,
		RecipientProofHash: "phone_hash",
	})
	var created struct {
		ID uint64 `json:"id"`
	}
	if err := json.Unmarshal(result, &created); err != nil {
		t.Fatalf("decode create result: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("expected first gift id 1, got %d", created.ID)
	}

	claimant := crypto.NewAddress(crypto.ZVPrefix, bytes.Repeat([]byte{0x04}, 20))
	proof := env.oracle.SignClaim(claimant, "phone_hash")
	env.mustCall(t, "gift_claim", giftClaimParams{
		Claimant: claimant.String(),
		ID:       created.ID,
		Proof:    hex.EncodeToString(proof[:]),
	})

	env.mustCall(t, "gift_withdrawToBank", giftWithdrawParams{
		ID:          created.ID,
		Memo:        "invoice-7",
		Destination: bech(0x06),
	})

	result = env.mustCall(t, "gift_get", giftIDParams{ID: created.ID})
	var g giftJSON
	if err := json.Unmarshal(result, &g); err != nil {
		t.Fatalf("decode gift: %v", err)
	}
	if g.Status != "withdrawn" {
		t.Fatalf("expected withdrawn status, got %q", g.Status)
	}
	if g.Claimant == nil || *g.Claimant != claimant.String() {
		t.Fatalf("claimant missing from gift view")
	}
}

func TestRPCDomainErrorCodes(t *testing.T) {
	env := newRPCTestEnv(t)
	env.initialize(t)

	_, rpcErr := env.call(t, testToken, "gift_get", giftIDParams{ID: 99})
	if rpcErr == nil || rpcErr.Code != codeGiftNotFound {
		t.Fatalf("expected gift-not-found code, got %+v", rpcErr)
	}

	env.mustCall(t, "gift_create", giftCreateParams{
		Sender:             bech(0x03),
		Amount:             "10000000",
		UnlockTime:         env.now + 500,
		RecipientProofHash: "phone_hash",
	})
	claimant := crypto.NewAddress(crypto.ZVPrefix, bytes.Repeat([]byte{0x04}, 20))
	proof := env.oracle.SignClaim(claimant, "phone_hash")
	_, rpcErr = env.call(t, testToken, "gift_claim", giftClaimParams{
		Claimant: claimant.String(),
		ID:       1,
		Proof:    hex.EncodeToString(proof[:]),
	})
	if rpcErr == nil || rpcErr.Code != codeGiftTimeLock {
		t.Fatalf("expected time-lock code, got %+v", rpcErr)
	}

	_, rpcErr = env.call(t, testToken, "engine_initialize", initializeParams{
		Admin:         bech(0x09),
		OracleAuthKey: hex.EncodeToString(bytes.Repeat([]byte{0x01}, 32)),
		OracleAddress: bech(0x02),
	})
	if rpcErr == nil || rpcErr.Code != codeGiftConflict {
		t.Fatalf("expected conflict code for re-initialize, got %+v", rpcErr)
	}

	_, rpcErr = env.call(t, testToken, "slippage_setMax", bpsParams{Bps: 5000})
	if rpcErr == nil || rpcErr.Code != codeInvalidSlippageCfg {
		t.Fatalf("expected slippage-config code, got %+v", rpcErr)
	}

	_, rpcErr = env.call(t, testToken, "slippage_validate", slippageValidateParams{
		OracleRate: "1000000",
		ActualRate: "900000",
	})
	if rpcErr == nil || rpcErr.Code != codeSlippageExceeded {
		t.Fatalf("expected slippage-exceeded code, got %+v", rpcErr)
	}
}

func TestRPCMutatingMethodsRequireToken(t *testing.T) {
	env := newRPCTestEnv(t)

	params := initializeParams{
		Admin:         bech(0x01),
		OracleAuthKey: hex.EncodeToString(bytes.Repeat([]byte{0x01}, 32)),
		OracleAddress: bech(0x02),
	}
	_, rpcErr := env.call(t, "", "engine_initialize", params)
	if rpcErr == nil || rpcErr.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized without token, got %+v", rpcErr)
	}
	_, rpcErr = env.call(t, "wrong-token", "engine_initialize", params)
	if rpcErr == nil || rpcErr.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized with bad token, got %+v", rpcErr)
	}

	// View methods stay open.
	env.initialize(t)
	if _, rpcErr := env.call(t, "", "oracle_status", struct{}{}); rpcErr != nil {
		t.Fatalf("view method must not require token: %+v", rpcErr)
	}
}

func TestRPCRejectsMalformedRequests(t *testing.T) {
	env := newRPCTestEnv(t)

	resp, err := http.Post(env.server.URL, "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var decoded struct {
		Error *rpcError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Error == nil || decoded.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", decoded.Error)
	}

	_, rpcErr := env.call(t, "", "no_such_method", struct{}{})
	if rpcErr == nil || rpcErr.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found, got %+v", rpcErr)
	}

	getResp, err := http.Get(env.server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", getResp.StatusCode)
	}
}

func TestRPCInvalidParams(t *testing.T) {
	env := newRPCTestEnv(t)
	env.initialize(t)

	_, rpcErr := env.call(t, testToken, "gift_create", giftCreateParams{
		Sender:             "not-an-address",
		Amount:             "10",
		RecipientProofHash: "h",
	})
	if rpcErr == nil || rpcErr.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params for bad address, got %+v", rpcErr)
	}

	_, rpcErr = env.call(t, testToken, "gift_create", giftCreateParams{
		Sender:             bech(0x03),
		Amount:             "ten",
		RecipientProofHash: "h",
	})
	if rpcErr == nil || rpcErr.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params for bad amount, got %+v", rpcErr)
	}

	_, rpcErr = env.call(t, testToken, "gift_claim", giftClaimParams{
		Claimant: bech(0x04),
		ID:       1,
		Proof:    "abcd",
	})
	if rpcErr == nil || rpcErr.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params for short proof, got %+v", rpcErr)
	}
}
