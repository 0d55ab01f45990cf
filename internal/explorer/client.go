package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"crypto-deposit-reconcile-go/internal/common"
	"crypto-deposit-reconcile-go/internal/models"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// ErrRemoteUnavailable wraps any transport, HTTP status or payload failure
// talking to an explorer. Transient by definition: the engine skips the
// asset for the cycle and the trailing lookback window retries it later.
var ErrRemoteUnavailable = errors.New("remote explorer unavailable")

// Client fetches confirmed incoming transfers for one (network, token)
// pair. Implementations never retry, never surface unconfirmed transfers
// and only return transfers whose destination is the queried address.
type Client interface {
	Asset() common.Asset
	FetchTransfers(ctx context.Context, address string, since time.Time) ([]models.Transfer, error)
}

func newHTTPClient(timeout time.Duration) (*http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: timeout,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// httpFetcher is the shared GET-and-decode helper all clients use. Each
// client gets its own circuit breaker so one misbehaving explorer cannot
// burn request budget for the others.
type httpFetcher struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func newFetcher(name string, client *http.Client) *httpFetcher {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			zap.L().Info("Explorer circuit breaker state changed",
				zap.String("explorer", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &httpFetcher{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// getJSON performs one GET and decodes the body into out. Every failure
// mode (breaker open, transport, non-2xx, malformed body) comes back
// wrapped in ErrRemoteUnavailable so the engine can absorb it uniformly.
func (f *httpFetcher) getJSON(ctx context.Context, url string, out any) error {
	_, err := f.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("malformed payload: %v", err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRemoteUnavailable, f.breaker.Name(), err)
	}
	return nil
}
