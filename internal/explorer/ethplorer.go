package explorer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crypto-deposit-reconcile-go/internal/common"
	"crypto-deposit-reconcile-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultEthplorerBaseURL = "https://api.ethplorer.io"

// ethplorerClient serves both native ETH and ERC-20 assets. A token asset
// carries its contract and queries the transfer history endpoint; native
// ETH uses the address transaction listing.
type ethplorerClient struct {
	fetch    *httpFetcher
	baseURL  string
	apiKey   string
	asset    common.Asset
	contract string
	decimals int32
}

func newEthplorerClient(fetch *httpFetcher, baseURL, apiKey string, asset common.Asset, info common.AssetInfo) *ethplorerClient {
	if baseURL == "" {
		baseURL = defaultEthplorerBaseURL
	}
	return &ethplorerClient{
		fetch:    fetch,
		baseURL:  baseURL,
		apiKey:   apiKey,
		asset:    asset,
		contract: info.Contract,
		decimals: info.Decimals,
	}
}

func (c *ethplorerClient) Asset() common.Asset {
	return c.asset
}

type ethplorerTransaction struct {
	Hash      string  `json:"hash"`
	To        string  `json:"to"`
	Value     float64 `json:"value"`
	Success   bool    `json:"success"`
	Timestamp int64   `json:"timestamp"`
}

type ethplorerHistory struct {
	Operations []struct {
		TransactionHash string `json:"transactionHash"`
		To              string `json:"to"`
		Value           string `json:"value"`
		Timestamp       int64  `json:"timestamp"`
	} `json:"operations"`
}

func (c *ethplorerClient) FetchTransfers(ctx context.Context, address string, since time.Time) ([]models.Transfer, error) {
	if c.contract == "" {
		return c.fetchNative(ctx, address, since)
	}
	return c.fetchToken(ctx, address, since)
}

func (c *ethplorerClient) fetchNative(ctx context.Context, address string, since time.Time) ([]models.Transfer, error) {
	url := fmt.Sprintf("%s/getAddressTransactions/%s?limit=1000&showZeroValues=false&apiKey=%s",
		c.baseURL, address, c.apiKey)

	var txs []ethplorerTransaction
	if err := c.fetch.getJSON(ctx, url, &txs); err != nil {
		return nil, err
	}

	sinceUnix := since.Unix()
	transfers := make([]models.Transfer, 0, len(txs))
	for _, tx := range txs {
		if !tx.Success {
			continue
		}
		if !strings.EqualFold(tx.To, address) {
			continue
		}
		if tx.Timestamp > 0 && tx.Timestamp < sinceUnix {
			continue
		}
		// Ethplorer reports native value in whole ETH; scale to wei here so
		// the ledger stores the same smallest-unit convention as every
		// other asset.
		wei := decimal.NewFromFloat(tx.Value).Shift(c.decimals).BigInt()
		if !wei.IsInt64() || wei.Int64() <= 0 {
			if wei.Sign() > 0 {
				zap.L().Error("ETH transfer value out of range, skipping",
					zap.String("tx_id", tx.Hash),
					zap.Float64("value", tx.Value))
			}
			continue
		}
		transfers = append(transfers, models.Transfer{
			TxId:   tx.Hash,
			Amount: wei.Int64(),
		})
	}

	return transfers, nil
}

func (c *ethplorerClient) fetchToken(ctx context.Context, address string, since time.Time) ([]models.Transfer, error) {
	url := fmt.Sprintf("%s/getAddressHistory/%s?type=transfer&token=%s&apiKey=%s&limit=1000",
		c.baseURL, address, c.contract, c.apiKey)

	var history ethplorerHistory
	if err := c.fetch.getJSON(ctx, url, &history); err != nil {
		return nil, err
	}

	sinceUnix := since.Unix()
	transfers := make([]models.Transfer, 0, len(history.Operations))
	for _, op := range history.Operations {
		if !strings.EqualFold(op.To, address) {
			continue
		}
		if op.Timestamp > 0 && op.Timestamp < sinceUnix {
			continue
		}
		amount, err := strconv.ParseInt(op.Value, 10, 64)
		if err != nil {
			zap.L().Warn("Skipping ERC-20 transfer with unparseable value",
				zap.String("tx_id", op.TransactionHash),
				zap.String("value", op.Value))
			continue
		}
		if amount <= 0 {
			continue
		}
		transfers = append(transfers, models.Transfer{
			TxId:   op.TransactionHash,
			Amount: amount,
		})
	}

	return transfers, nil
}
