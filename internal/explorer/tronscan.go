package explorer

import (
	"context"
	"fmt"
	"time"

	"crypto-deposit-reconcile-go/internal/common"
	"crypto-deposit-reconcile-go/internal/models"
)

const defaultTronscanBaseURL = "https://apilist.tronscanapi.com"

// tronscanClient reads native TRX transfers from Tronscan. The endpoint
// has no server-side time bound, so the since filter is applied here.
type tronscanClient struct {
	fetch   *httpFetcher
	baseURL string
}

func newTronscanClient(fetch *httpFetcher, baseURL string) *tronscanClient {
	if baseURL == "" {
		baseURL = defaultTronscanBaseURL
	}
	return &tronscanClient{fetch: fetch, baseURL: baseURL}
}

func (c *tronscanClient) Asset() common.Asset {
	return common.AssetTRX
}

type tronscanTransfers struct {
	Data []struct {
		TransactionHash   string `json:"transactionHash"`
		TransferToAddress string `json:"transferToAddress"`
		Amount            int64  `json:"amount"`
		Confirmed         bool   `json:"confirmed"`
		Timestamp         int64  `json:"timestamp"`
	} `json:"data"`
}

func (c *tronscanClient) FetchTransfers(ctx context.Context, address string, since time.Time) ([]models.Transfer, error) {
	url := fmt.Sprintf("%s/api/new/transfer?sort=-timestamp&count=true&limit=200&start=0&address=%s",
		c.baseURL, address)

	var data tronscanTransfers
	if err := c.fetch.getJSON(ctx, url, &data); err != nil {
		return nil, err
	}

	sinceMillis := since.UnixMilli()
	transfers := make([]models.Transfer, 0, len(data.Data))
	for _, transfer := range data.Data {
		if !transfer.Confirmed {
			continue
		}
		if transfer.TransferToAddress != address {
			continue
		}
		if transfer.Timestamp > 0 && transfer.Timestamp < sinceMillis {
			continue
		}
		if transfer.Amount <= 0 {
			continue
		}
		transfers = append(transfers, models.Transfer{
			TxId:   transfer.TransactionHash,
			Amount: transfer.Amount,
		})
	}

	return transfers, nil
}
