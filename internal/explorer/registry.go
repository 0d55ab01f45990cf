package explorer

import (
	"fmt"
	"net/http"

	"crypto-deposit-reconcile-go/internal/common"
	"crypto-deposit-reconcile-go/internal/models"
)

// NewClients builds one explorer client per enabled asset. The mapping from
// asset to implementation is a closed switch over the registry's enum, so an
// asset without a client fails at construction, not mid-cycle.
func NewClients(cfg models.ExplorerConfig, enabled []common.Asset) ([]Client, error) {
	httpClient, err := newHTTPClient(cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create explorer http client: %w", err)
	}

	clients := make([]Client, 0, len(enabled))
	for _, asset := range enabled {
		client, err := newClient(cfg, httpClient, asset)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	return clients, nil
}

func newClient(cfg models.ExplorerConfig, httpClient *http.Client, asset common.Asset) (Client, error) {
	info, ok := common.Lookup(asset)
	if !ok {
		return nil, fmt.Errorf("no registry entry for asset %s", asset)
	}

	switch asset {
	case common.AssetBTC:
		return newMempoolClient(newFetcher("mempool.space", httpClient), cfg.MempoolBaseURL), nil
	case common.AssetLTC:
		return newBlockcypherClient(newFetcher("blockcypher", httpClient), cfg.BlockcypherBaseURL), nil
	case common.AssetTRX:
		return newTronscanClient(newFetcher("tronscan", httpClient), cfg.TronscanBaseURL), nil
	case common.AssetUSDTTRC20, common.AssetUSDDTRC20:
		return newTrongridClient(newFetcher("trongrid/"+asset.Token, httpClient), cfg.TrongridBaseURL, asset, info.Contract), nil
	case common.AssetETH, common.AssetUSDTERC20, common.AssetUSDCERC20:
		return newEthplorerClient(newFetcher("ethplorer/"+asset.Key(), httpClient), cfg.EthplorerBaseURL, cfg.EthplorerAPIKey, asset, info), nil
	default:
		return nil, fmt.Errorf("no explorer client for asset %s", asset)
	}
}
