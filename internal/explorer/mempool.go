package explorer

import (
	"context"
	"fmt"
	"time"

	"crypto-deposit-reconcile-go/internal/common"
	"crypto-deposit-reconcile-go/internal/models"
)

const defaultMempoolBaseURL = "https://mempool.space"

// mempoolClient reads the BTC UTXO set for an address from mempool.space.
// The UTXO listing is cursor-free, so a cycle skipped on failure loses
// nothing; the since bound is not needed.
type mempoolClient struct {
	fetch   *httpFetcher
	baseURL string
}

func newMempoolClient(fetch *httpFetcher, baseURL string) *mempoolClient {
	if baseURL == "" {
		baseURL = defaultMempoolBaseURL
	}
	return &mempoolClient{fetch: fetch, baseURL: baseURL}
}

func (c *mempoolClient) Asset() common.Asset {
	return common.AssetBTC
}

type mempoolUTXO struct {
	TxId   string `json:"txid"`
	Vout   int64  `json:"vout"`
	Value  int64  `json:"value"`
	Status struct {
		Confirmed bool `json:"confirmed"`
	} `json:"status"`
}

func (c *mempoolClient) FetchTransfers(ctx context.Context, address string, _ time.Time) ([]models.Transfer, error) {
	url := fmt.Sprintf("%s/api/address/%s/utxo", c.baseURL, address)

	var utxos []mempoolUTXO
	if err := c.fetch.getJSON(ctx, url, &utxos); err != nil {
		return nil, err
	}

	transfers := make([]models.Transfer, 0, len(utxos))
	for _, utxo := range utxos {
		if !utxo.Status.Confirmed {
			continue
		}
		vout := utxo.Vout
		transfers = append(transfers, models.Transfer{
			TxId:   utxo.TxId,
			Amount: utxo.Value,
			Vout:   &vout,
		})
	}

	return transfers, nil
}
