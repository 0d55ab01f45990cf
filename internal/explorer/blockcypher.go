package explorer

import (
	"context"
	"fmt"
	"time"

	"crypto-deposit-reconcile-go/internal/common"
	"crypto-deposit-reconcile-go/internal/models"
)

const defaultBlockcypherBaseURL = "https://api.blockcypher.com"

// blockcypherClient reads unspent LTC outputs from BlockCypher. The
// confirmation signal here is a count, not a flag; anything still at zero
// confirmations is excluded.
type blockcypherClient struct {
	fetch   *httpFetcher
	baseURL string
}

func newBlockcypherClient(fetch *httpFetcher, baseURL string) *blockcypherClient {
	if baseURL == "" {
		baseURL = defaultBlockcypherBaseURL
	}
	return &blockcypherClient{fetch: fetch, baseURL: baseURL}
}

func (c *blockcypherClient) Asset() common.Asset {
	return common.AssetLTC
}

type blockcypherAddress struct {
	NTx    int `json:"n_tx"`
	TxRefs []struct {
		TxHash        string `json:"tx_hash"`
		TxOutputN     int64  `json:"tx_output_n"`
		Value         int64  `json:"value"`
		Confirmations int64  `json:"confirmations"`
	} `json:"txrefs"`
}

func (c *blockcypherClient) FetchTransfers(ctx context.Context, address string, _ time.Time) ([]models.Transfer, error) {
	url := fmt.Sprintf("%s/v1/ltc/main/addrs/%s?unspentOnly=true", c.baseURL, address)

	var data blockcypherAddress
	if err := c.fetch.getJSON(ctx, url, &data); err != nil {
		return nil, err
	}

	if data.NTx == 0 {
		return nil, nil
	}

	transfers := make([]models.Transfer, 0, len(data.TxRefs))
	for _, ref := range data.TxRefs {
		if ref.Confirmations <= 0 {
			continue
		}
		// tx_output_n is -1 for inputs; only outputs pay this address.
		if ref.TxOutputN < 0 {
			continue
		}
		vout := ref.TxOutputN
		transfers = append(transfers, models.Transfer{
			TxId:   ref.TxHash,
			Amount: ref.Value,
			Vout:   &vout,
		})
	}

	return transfers, nil
}
