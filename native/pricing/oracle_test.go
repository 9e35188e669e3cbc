package pricing

import (
	"bytes"
	"io"
	"math/big"
	"net/http"
	"testing"
)

func TestNormalizePair(t *testing.T) {
	got, err := NormalizePair(" usdc/ngn ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "USDC/NGN" {
		t.Fatalf("unexpected pair %q", got)
	}
	for _, bad := range []string{"", "USDC", "USDC/", "/NGN", "USDC/NGN/EUR"} {
		if _, err := NormalizePair(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseDecimalRate(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
	}{
		{"1", 1_000_000},
		{"1.05", 1_050_000},
		{"1650.25", 1_650_250_000},
		{"0.000001", 1},
		// Excess precision truncates.
		{"1.0000019", 1_000_001},
	}
	for _, tc := range cases {
		got, err := ParseDecimalRate(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("parse %q: expected %d, got %s", tc.raw, tc.want, got)
		}
	}
	for _, bad := range []string{"", "abc", "-1", "0"} {
		if _, err := ParseDecimalRate(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestManualOracleRoundTrip(t *testing.T) {
	oracle := NewManualOracle()
	if err := oracle.Set("usdc/ngn", big.NewInt(1_650_000_000), 1_700_000_000); err != nil {
		t.Fatalf("set: %v", err)
	}
	quote, err := oracle.GetRate("USDC/NGN")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if quote.Rate.Cmp(big.NewInt(1_650_000_000)) != 0 || quote.Timestamp != 1_700_000_000 || quote.Source != "manual" {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	if _, err := oracle.GetRate("EUR/NGN"); err == nil {
		t.Fatalf("expected miss for unknown pair")
	}
	if err := oracle.Set("USDC/NGN", big.NewInt(0), 1); err == nil {
		t.Fatalf("expected bounds rejection for zero rate")
	}
}

type stubDoer struct {
	lastReq *http.Request
	status  int
	body    string
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.lastReq = req
	return &http.Response{
		StatusCode: s.status,
		Body:       io.NopCloser(bytes.NewBufferString(s.body)),
	}, nil
}

func TestHTTPOracleGetRate(t *testing.T) {
	doer := &stubDoer{status: http.StatusOK, body: `{"rate":"1650.25","timestamp":1700000000}`}
	oracle := NewHTTPOracle(doer, "https://quotes.example.com/rate", "secret", "FXQuotes")

	quote, err := oracle.GetRate("usdc/ngn")
	if err != nil {
		t.Fatalf("get rate: %v", err)
	}
	if quote.Rate.Cmp(big.NewInt(1_650_250_000)) != 0 {
		t.Fatalf("unexpected rate %s", quote.Rate)
	}
	if quote.Timestamp != 1_700_000_000 || quote.Source != "fxquotes" {
		t.Fatalf("unexpected quote metadata: %+v", quote)
	}
	if got := doer.lastReq.URL.Query().Get("pair"); got != "USDC/NGN" {
		t.Fatalf("unexpected pair query %q", got)
	}
	if got := doer.lastReq.Header.Get("x-api-key"); got != "secret" {
		t.Fatalf("api key header not set, got %q", got)
	}
}

func TestHTTPOracleUpstreamFailure(t *testing.T) {
	doer := &stubDoer{status: http.StatusBadGateway, body: "upstream down"}
	oracle := NewHTTPOracle(doer, "https://quotes.example.com/rate", "", "oracle")
	if _, err := oracle.GetRate("USDC/NGN"); err == nil {
		t.Fatalf("expected error on non-200 response")
	}

	doer = &stubDoer{status: http.StatusOK, body: `{"rate":"not a number"}`}
	oracle = NewHTTPOracle(doer, "https://quotes.example.com/rate", "", "oracle")
	if _, err := oracle.GetRate("USDC/NGN"); err == nil {
		t.Fatalf("expected error on malformed rate")
	}
}
