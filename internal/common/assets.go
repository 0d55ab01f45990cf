package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Network is a closed enumeration of supported chains.
type Network string

const (
	NetworkBTC Network = "BTC"
	NetworkLTC Network = "LTC"
	NetworkTRX Network = "TRX"
	NetworkETH Network = "ETH"
)

// Asset identifies a creditable asset: a network plus an optional token
// hosted on it. An empty Token means the network's native asset.
type Asset struct {
	Network Network
	Token   string
}

// Key returns the stable identifier used in maps, logs and notifications,
// e.g. "BTC" or "TRX/USDT_TRC20".
func (a Asset) Key() string {
	if a.Token == "" {
		return string(a.Network)
	}
	return fmt.Sprintf("%s/%s", a.Network, a.Token)
}

func (a Asset) String() string {
	return a.Key()
}

var (
	AssetBTC       = Asset{Network: NetworkBTC}
	AssetLTC       = Asset{Network: NetworkLTC}
	AssetTRX       = Asset{Network: NetworkTRX}
	AssetETH       = Asset{Network: NetworkETH}
	AssetUSDTTRC20 = Asset{Network: NetworkTRX, Token: "USDT_TRC20"}
	AssetUSDDTRC20 = Asset{Network: NetworkTRX, Token: "USDD_TRC20"}
	AssetUSDTERC20 = Asset{Network: NetworkETH, Token: "USDT_ERC20"}
	AssetUSDCERC20 = Asset{Network: NetworkETH, Token: "USDC_ERC20"}
)

// AssetInfo holds the static per-asset facts every component consults:
// the oracle pricing symbol, the smallest-unit decimal precision, and the
// token contract for account-model chains.
type AssetInfo struct {
	PriceSymbol string
	Decimals    int32
	Contract    string
}

// registry is the single source of truth for asset metadata. Adding an
// asset means adding a row here plus an explorer client for it.
var registry = map[Asset]AssetInfo{
	AssetBTC:       {PriceSymbol: "btc", Decimals: 8},
	AssetLTC:       {PriceSymbol: "ltc", Decimals: 8},
	AssetTRX:       {PriceSymbol: "trx", Decimals: 6},
	AssetETH:       {PriceSymbol: "eth", Decimals: 18},
	AssetUSDTTRC20: {PriceSymbol: "usdt", Decimals: 6, Contract: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"},
	AssetUSDDTRC20: {PriceSymbol: "usdd", Decimals: 18, Contract: "TPYmHEhy5n8TCEfYGqW2rPxsghSfzghPDn"},
	AssetUSDTERC20: {PriceSymbol: "usdt", Decimals: 6, Contract: "0xdAC17F958D2ee523a2206206994597C13D831ec7"},
	AssetUSDCERC20: {PriceSymbol: "usdc", Decimals: 6, Contract: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
}

// assetOrder fixes a stable iteration order for fan-outs and reports.
var assetOrder = []Asset{
	AssetBTC,
	AssetLTC,
	AssetTRX,
	AssetUSDTTRC20,
	AssetUSDDTRC20,
	AssetETH,
	AssetUSDTERC20,
	AssetUSDCERC20,
}

// AllAssets returns every registered asset in stable order.
func AllAssets() []Asset {
	out := make([]Asset, len(assetOrder))
	copy(out, assetOrder)
	return out
}

// Lookup returns the registry entry for an asset.
func Lookup(a Asset) (AssetInfo, bool) {
	info, ok := registry[a]
	return info, ok
}

// ParseAsset resolves a (network, token) pair against the registry.
func ParseAsset(network, token string) (Asset, error) {
	a := Asset{Network: Network(network), Token: token}
	if _, ok := registry[a]; !ok {
		return Asset{}, fmt.Errorf("unsupported asset: network %q token %q", network, token)
	}
	return a, nil
}

// ToNative converts a raw smallest-unit amount into the asset's native unit
// using the registry's decimal precision. This is the only place raw
// amounts are scaled; components must not divide by hardcoded powers of ten.
func ToNative(a Asset, raw int64) (decimal.Decimal, error) {
	info, ok := registry[a]
	if !ok {
		return decimal.Zero, fmt.Errorf("unsupported asset: %s", a)
	}
	return decimal.New(raw, -info.Decimals), nil
}

type AssetConfig struct {
	Network string `yaml:"network"`
	Token   string `yaml:"token,omitempty"`
}

type AssetsConfig struct {
	Assets []AssetConfig `yaml:"assets"`
}

// LoadEnabledAssets reads the assets file and returns the enabled subset of
// the registry. Entries that do not resolve against the registry are a
// configuration error, not a runtime dispatch surprise.
func LoadEnabledAssets(assetsFile string) ([]Asset, error) {
	var assetsPath string
	if filepath.IsAbs(assetsFile) {
		assetsPath = assetsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		assetsPath = filepath.Join(wd, assetsFile)
	}

	data, err := os.ReadFile(assetsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", assetsFile, err)
	}

	var config AssetsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", assetsFile, err)
	}

	if len(config.Assets) == 0 {
		return nil, fmt.Errorf("%s lists no assets", assetsFile)
	}

	assets := make([]Asset, 0, len(config.Assets))
	seen := make(map[Asset]bool)
	for i, entry := range config.Assets {
		if entry.Network == "" {
			return nil, fmt.Errorf("asset at index %d missing network", i)
		}
		asset, err := ParseAsset(entry.Network, entry.Token)
		if err != nil {
			return nil, fmt.Errorf("asset at index %d: %w", i, err)
		}
		if seen[asset] {
			return nil, fmt.Errorf("asset at index %d duplicates %s", i, asset)
		}
		seen[asset] = true
		assets = append(assets, asset)
	}

	return assets, nil
}
