package explorer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"crypto-deposit-reconcile-go/internal/common"
	"crypto-deposit-reconcile-go/internal/models"

	"go.uber.org/zap"
)

const defaultTrongridBaseURL = "https://api.trongrid.io"

// trongridClient reads TRC-20 token transfers for an account from TronGrid.
// Queries are scoped by token contract and bounded by the caller's since
// timestamp so a full history re-scan never happens.
type trongridClient struct {
	fetch    *httpFetcher
	baseURL  string
	asset    common.Asset
	contract string
}

func newTrongridClient(fetch *httpFetcher, baseURL string, asset common.Asset, contract string) *trongridClient {
	if baseURL == "" {
		baseURL = defaultTrongridBaseURL
	}
	return &trongridClient{fetch: fetch, baseURL: baseURL, asset: asset, contract: contract}
}

func (c *trongridClient) Asset() common.Asset {
	return c.asset
}

type trongridTransfers struct {
	Data []struct {
		TransactionId string `json:"transaction_id"`
		To            string `json:"to"`
		Value         string `json:"value"`
	} `json:"data"`
}

func (c *trongridClient) FetchTransfers(ctx context.Context, address string, since time.Time) ([]models.Transfer, error) {
	url := fmt.Sprintf(
		"%s/v1/accounts/%s/transactions/trc20?only_confirmed=true&only_to=true&min_timestamp=%d&contract_address=%s&limit=200",
		c.baseURL, address, since.UnixMilli(), c.contract)

	var data trongridTransfers
	if err := c.fetch.getJSON(ctx, url, &data); err != nil {
		return nil, err
	}

	transfers := make([]models.Transfer, 0, len(data.Data))
	for _, transfer := range data.Data {
		// only_to=true already scopes the query; keep the destination
		// check for payloads that carry the field anyway.
		if transfer.To != "" && transfer.To != address {
			continue
		}
		amount, err := strconv.ParseInt(transfer.Value, 10, 64)
		if err != nil {
			zap.L().Warn("Skipping TRC-20 transfer with unparseable value",
				zap.String("tx_id", transfer.TransactionId),
				zap.String("value", transfer.Value))
			continue
		}
		if amount <= 0 {
			continue
		}
		transfers = append(transfers, models.Transfer{
			TxId:   transfer.TransactionId,
			Amount: amount,
		})
	}

	return transfers, nil
}
