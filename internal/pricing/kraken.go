package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"crypto-deposit-reconcile-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrPriceUnavailable fails a whole pricing cycle. Crediting must never
// proceed with a partially priced batch, so one missing symbol poisons the
// entire result; recorded deposits stay uncredited until a later cycle.
var ErrPriceUnavailable = errors.New("price unavailable")

// Oracle returns fiat unit prices for a set of asset symbols, fetched
// within one logical cycle so multi-asset batches are priced consistently.
type Oracle interface {
	GetPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

const defaultKrakenBaseURL = "https://api.kraken.com"

// krakenPairs maps registry price symbols to Kraken ticker pairs.
var krakenPairs = map[string]string{
	"btc":  "BTCUSDT",
	"ltc":  "LTCUSD",
	"eth":  "ETHUSD",
	"trx":  "TRXUSD",
	"usdt": "USDTUSD",
	"usdc": "USDCUSD",
}

// pinnedPrices covers assets with no Kraken market. USDD is treated as its
// one-dollar peg.
var pinnedPrices = map[string]decimal.Decimal{
	"usdd": decimal.NewFromInt(1),
}

type KrakenOracle struct {
	client  *http.Client
	baseURL string
}

func NewKrakenOracle(cfg models.OracleConfig) *KrakenOracle {
	baseURL := cfg.KrakenBaseURL
	if baseURL == "" {
		baseURL = defaultKrakenBaseURL
	}
	return &KrakenOracle{
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		baseURL: baseURL,
	}
}

type krakenTicker struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		LastTrade []string `json:"c"`
	} `json:"result"`
}

// GetPrices fetches every requested symbol concurrently and returns either
// the complete price map or ErrPriceUnavailable.
func (o *KrakenOracle) GetPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(symbols))
	var mutex sync.Mutex

	// Resolve pinned symbols and ticker pairs up front; once the fetch
	// goroutines are running, the map is only touched under the mutex.
	pairBySymbol := make(map[string]string)
	seen := make(map[string]bool)
	for _, symbol := range symbols {
		if seen[symbol] {
			continue
		}
		seen[symbol] = true

		if pinned, ok := pinnedPrices[symbol]; ok {
			prices[symbol] = pinned
			continue
		}

		pair, ok := krakenPairs[symbol]
		if !ok {
			return nil, fmt.Errorf("%w: no ticker pair for symbol %q", ErrPriceUnavailable, symbol)
		}
		pairBySymbol[symbol] = pair
	}

	g, ctx := errgroup.WithContext(ctx)
	for symbol, pair := range pairBySymbol {
		symbol, pair := symbol, pair
		g.Go(func() error {
			price, err := o.fetchTicker(ctx, pair)
			if err != nil {
				return fmt.Errorf("%s: %w", symbol, err)
			}
			mutex.Lock()
			prices[symbol] = price
			mutex.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Warn("Pricing cycle failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	return prices, nil
}

func (o *KrakenOracle) fetchTicker(ctx context.Context, pair string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/0/public/Ticker?pair=%s", o.baseURL, pair)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var ticker krakenTicker
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return decimal.Zero, fmt.Errorf("malformed ticker payload: %v", err)
	}
	if len(ticker.Error) > 0 {
		return decimal.Zero, fmt.Errorf("kraken error: %v", ticker.Error)
	}

	for _, entry := range ticker.Result {
		if len(entry.LastTrade) == 0 {
			break
		}
		price, err := decimal.NewFromString(entry.LastTrade[0])
		if err != nil {
			return decimal.Zero, fmt.Errorf("unparseable price %q: %v", entry.LastTrade[0], err)
		}
		if price.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, fmt.Errorf("non-positive price %s", price)
		}
		return price, nil
	}

	return decimal.Zero, fmt.Errorf("no ticker result for pair %s", pair)
}
