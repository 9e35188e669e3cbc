package pricing

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// RateScale is the fixed-point denominator of every rate handled by the
// engine: a stored value of 1_000_000 represents a rate of 1.0.
const RateScale = 1_000_000

// maxReasonableRate caps accepted oracle rates at one million in real terms.
// Anything above it is treated as a corrupted or manipulated feed.
var maxReasonableRate = new(big.Int).Mul(big.NewInt(RateScale), big.NewInt(1_000_000))

// PriceQuote captures an exchange rate for a currency pair along with the
// timestamp reported by the upstream oracle and the oracle identifier.
type PriceQuote struct {
	Rate      *big.Int
	Timestamp uint64
	Source    string
}

// Clone returns a deep copy of the quote to prevent accidental mutations.
func (q PriceQuote) Clone() PriceQuote {
	clone := PriceQuote{Timestamp: q.Timestamp, Source: q.Source}
	if q.Rate != nil {
		clone.Rate = new(big.Int).Set(q.Rate)
	}
	return clone
}

// PriceOracle resolves the current exchange rate for a currency pair such as
// "USDC/NGN". Implementations are external collaborators; the engine only
// sees the returned quote.
type PriceOracle interface {
	GetRate(pair string) (PriceQuote, error)
}

// ValidateRateBounds rejects zero, negative and absurdly large rates.
func ValidateRateBounds(rate *big.Int) error {
	if rate == nil || rate.Sign() <= 0 {
		return ErrInvalidExchangeRate
	}
	if rate.Cmp(maxReasonableRate) > 0 {
		return ErrInvalidExchangeRate
	}
	return nil
}

// NormalizePair canonicalises a currency pair string to upper case.
func NormalizePair(pair string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(pair))
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("pricing: invalid pair %q", pair)
	}
	return trimmed, nil
}

// ManualOracle provides an in-memory oracle implementation used for tests and
// manual overrides during incident response.
type ManualOracle struct {
	mu     sync.RWMutex
	quotes map[string]PriceQuote
}

// NewManualOracle constructs an empty manual oracle instance.
func NewManualOracle() *ManualOracle {
	return &ManualOracle{quotes: make(map[string]PriceQuote)}
}

// Set stores the provided scaled rate for the currency pair.
func (m *ManualOracle) Set(pair string, rate *big.Int, ts uint64) error {
	if m == nil {
		return fmt.Errorf("manual oracle not configured")
	}
	normalized, err := NormalizePair(pair)
	if err != nil {
		return err
	}
	if err := ValidateRateBounds(rate); err != nil {
		return err
	}
	m.mu.Lock()
	m.quotes[normalized] = PriceQuote{Rate: new(big.Int).Set(rate), Timestamp: ts, Source: "manual"}
	m.mu.Unlock()
	return nil
}

// GetRate retrieves the stored rate for the currency pair.
func (m *ManualOracle) GetRate(pair string) (PriceQuote, error) {
	if m == nil {
		return PriceQuote{}, fmt.Errorf("manual oracle not configured")
	}
	normalized, err := NormalizePair(pair)
	if err != nil {
		return PriceQuote{}, err
	}
	m.mu.RLock()
	stored, ok := m.quotes[normalized]
	m.mu.RUnlock()
	if !ok {
		return PriceQuote{}, fmt.Errorf("manual oracle: quote for %s not found", normalized)
	}
	return stored.Clone(), nil
}

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPOracle fetches price data from a JSON quote endpoint. The endpoint is
// expected to answer `GET ?pair=BASE/QUOTE` with `{"rate": "1234.56",
// "timestamp": 1700000000}` where rate is a decimal string.
type HTTPOracle struct {
	client   HTTPDoer
	endpoint string
	apiKey   string
	source   string
}

// NewHTTPOracle constructs an HTTP oracle adapter. When the client is nil
// http.DefaultClient is used. The API key is optional and only added to the
// request headers when supplied.
func NewHTTPOracle(client HTTPDoer, endpoint, apiKey, source string) *HTTPOracle {
	if client == nil {
		client = http.DefaultClient
	}
	name := strings.ToLower(strings.TrimSpace(source))
	if name == "" {
		name = "oracle"
	}
	return &HTTPOracle{
		client:   client,
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		source:   name,
	}
}

func (o *HTTPOracle) GetRate(pair string) (PriceQuote, error) {
	if o == nil || o.endpoint == "" {
		return PriceQuote{}, fmt.Errorf("http oracle not configured")
	}
	normalized, err := NormalizePair(pair)
	if err != nil {
		return PriceQuote{}, err
	}
	req, err := http.NewRequest(http.MethodGet, o.endpoint, nil)
	if err != nil {
		return PriceQuote{}, err
	}
	values := url.Values{}
	values.Set("pair", normalized)
	req.URL.RawQuery = values.Encode()
	if o.apiKey != "" {
		req.Header.Set("x-api-key", o.apiKey)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return PriceQuote{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return PriceQuote{}, fmt.Errorf("http oracle: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload struct {
		Rate      string `json:"rate"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return PriceQuote{}, fmt.Errorf("http oracle: decode: %w", err)
	}
	rate, err := ParseDecimalRate(payload.Rate)
	if err != nil {
		return PriceQuote{}, fmt.Errorf("http oracle: %w", err)
	}
	ts := payload.Timestamp
	if ts <= 0 {
		ts = time.Now().Unix()
	}
	return PriceQuote{Rate: rate, Timestamp: uint64(ts), Source: o.source}, nil
}

// ParseDecimalRate converts a decimal string such as "1.05" into the scaled
// fixed-point representation, truncating excess precision.
func ParseDecimalRate(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty rate")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok || rat.Sign() <= 0 {
		return nil, fmt.Errorf("invalid rate %q", raw)
	}
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt64(RateScale))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom()), nil
}
