package pricing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"crypto-deposit-reconcile-go/internal/models"

	"github.com/shopspring/decimal"
)

func newTestOracle(server *httptest.Server) *KrakenOracle {
	return NewKrakenOracle(models.OracleConfig{
		RequestTimeout: 5 * time.Second,
		KrakenBaseURL:  server.URL,
	})
}

func tickerResponse(pair, price string) string {
	return fmt.Sprintf(`{"error": [], "result": {"%s": {"c": ["%s", "1.0"]}}}`, pair, price)
}

func TestGetPrices_CompleteBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pair := r.URL.Query().Get("pair")
		switch pair {
		case "BTCUSDT":
			fmt.Fprint(w, tickerResponse(pair, "43000.5"))
		case "TRXUSD":
			fmt.Fprint(w, tickerResponse(pair, "0.11"))
		default:
			t.Errorf("Unexpected pair: %s", pair)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	oracle := newTestOracle(server)
	prices, err := oracle.GetPrices(context.Background(), []string{"btc", "trx", "usdd"})
	if err != nil {
		t.Fatalf("GetPrices failed: %v", err)
	}

	if len(prices) != 3 {
		t.Fatalf("Expected 3 prices, got %d", len(prices))
	}
	if !prices["btc"].Equal(decimal.RequireFromString("43000.5")) {
		t.Errorf("Expected btc 43000.5, got %s", prices["btc"].String())
	}
	if !prices["usdd"].Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected usdd pinned at 1, got %s", prices["usdd"].String())
	}
}

func TestGetPrices_PinnedAlongsideFetched(t *testing.T) {
	// A pinned symbol in the same batch as fetched ones must not touch the
	// result map while fetch goroutines are writing it.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tickerResponse(r.URL.Query().Get("pair"), "100"))
	}))
	defer server.Close()

	oracle := newTestOracle(server)
	for i := 0; i < 20; i++ {
		prices, err := oracle.GetPrices(context.Background(),
			[]string{"btc", "usdd", "trx", "usdt"})
		if err != nil {
			t.Fatalf("GetPrices failed: %v", err)
		}
		if len(prices) != 4 {
			t.Fatalf("Expected 4 prices, got %d", len(prices))
		}
		if !prices["usdd"].Equal(decimal.NewFromInt(1)) {
			t.Fatalf("Expected usdd pinned at 1, got %s", prices["usdd"].String())
		}
	}
}

func TestGetPrices_OneFailurePoisonsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pair := r.URL.Query().Get("pair")
		if pair == "LTCUSD" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, tickerResponse(pair, "100"))
	}))
	defer server.Close()

	oracle := newTestOracle(server)
	prices, err := oracle.GetPrices(context.Background(), []string{"btc", "ltc", "eth"})
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("Expected ErrPriceUnavailable, got %v", err)
	}
	if prices != nil {
		t.Errorf("Expected no partial price map, got %v", prices)
	}
}

func TestGetPrices_UnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("No request expected for unknown symbol")
	}))
	defer server.Close()

	oracle := newTestOracle(server)
	_, err := oracle.GetPrices(context.Background(), []string{"doge"})
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("Expected ErrPriceUnavailable, got %v", err)
	}
}

func TestGetPrices_KrakenErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": ["EQuery:Unknown asset pair"], "result": {}}`)
	}))
	defer server.Close()

	oracle := newTestOracle(server)
	_, err := oracle.GetPrices(context.Background(), []string{"btc"})
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("Expected ErrPriceUnavailable, got %v", err)
	}
}

func TestGetPrices_DeduplicatesSymbols(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, tickerResponse(r.URL.Query().Get("pair"), "1.0"))
	}))
	defer server.Close()

	oracle := newTestOracle(server)
	// usdt appears for both the TRC-20 and ERC-20 variants but is one market.
	prices, err := oracle.GetPrices(context.Background(), []string{"usdt", "usdt"})
	if err != nil {
		t.Fatalf("GetPrices failed: %v", err)
	}
	if len(prices) != 1 {
		t.Errorf("Expected 1 price, got %d", len(prices))
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("Expected 1 upstream request, got %d", got)
	}
}
