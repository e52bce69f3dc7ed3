package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestBinanceFetchMissingSymbol(t *testing.T) {
	b := NewBinance(BinanceOptions{}, noopLogger())
	if _, err := b.FetchQuote(context.Background()); err == nil {
		t.Fatal("missing symbol should error")
	}
}

func TestBinanceFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tickerPricePath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "SOLUSDT" {
			t.Fatalf("symbol = %q, want SOLUSDT", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"symbol": "SOLUSDT", "price": "142.37000000"})
	}))
	defer srv.Close()

	b := NewBinance(BinanceOptions{
		BaseURL: srv.URL,
		Symbol:  "SOLUSDT",
		Timeout: time.Second,
	}, noopLogger())

	price, err := b.FetchQuote(context.Background())
	if err != nil {
		t.Fatalf("successful response should not error: %v", err)
	}
	if price.String() != "142.37" {
		t.Fatalf("price = %s, want 142.37", price)
	}
}

func TestBinanceFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": -1121, "msg": "Invalid symbol."})
	}))
	defer srv.Close()

	b := NewBinance(BinanceOptions{BaseURL: srv.URL, Symbol: "NOPEUSDT", Timeout: time.Second}, noopLogger())
	if _, err := b.FetchQuote(context.Background()); err == nil {
		t.Fatal("HTTP 400 should error")
	}
}

func TestBinanceFetchMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"SOLUSDT","price":"not-a-number"}`))
	}))
	defer srv.Close()

	b := NewBinance(BinanceOptions{BaseURL: srv.URL, Symbol: "SOLUSDT", Timeout: time.Second}, noopLogger())
	if _, err := b.FetchQuote(context.Background()); err == nil {
		t.Fatal("unparseable price should error")
	}
}
