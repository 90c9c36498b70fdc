package models

import (
	"strings"

	apperrors "vaultledger/internal/errors"
)

// Asset is one of the fixed set of custodied assets.
type Asset string

const (
	AssetBTC      Asset = "btc"
	AssetETH      Asset = "eth"
	AssetUSDTTron Asset = "usdtTron"
	AssetUSDTBnb  Asset = "usdtBnb"
	AssetBNB      Asset = "bnb"
	AssetTRX      Asset = "trx"
	AssetSOL      Asset = "sol"
	AssetXRP      Asset = "xrp"
	AssetDOGE     Asset = "doge"
	AssetLTC      Asset = "ltc"
)

// Assets lists every supported asset in display order.
var Assets = []Asset{
	AssetBTC, AssetETH, AssetUSDTTron, AssetUSDTBnb, AssetBNB,
	AssetTRX, AssetSOL, AssetXRP, AssetDOGE, AssetLTC,
}

var assetSymbols = map[Asset]string{
	AssetBTC:      "BTC",
	AssetETH:      "ETH",
	AssetUSDTTron: "USDT (TRC20)",
	AssetUSDTBnb:  "USDT (BEP20)",
	AssetBNB:      "BNB",
	AssetTRX:      "TRX",
	AssetSOL:      "SOL",
	AssetXRP:      "XRP",
	AssetDOGE:     "DOGE",
	AssetLTC:      "LTC",
}

// ParseAsset resolves an asset key case-insensitively.
func ParseAsset(raw string) (Asset, error) {
	key := strings.TrimSpace(raw)
	for _, a := range Assets {
		if strings.EqualFold(string(a), key) {
			return a, nil
		}
	}
	return "", apperrors.ErrInvalidAsset.Withf("unsupported asset %q", raw)
}

func (a Asset) Valid() bool {
	_, ok := assetSymbols[a]
	return ok
}

// Symbol is the human readable ticker used in notifications.
func (a Asset) Symbol() string {
	if s, ok := assetSymbols[a]; ok {
		return s
	}
	return strings.ToUpper(string(a))
}

// AddressPrefix is the family prefix used for placeholder addresses.
func (a Asset) AddressPrefix() string {
	switch a {
	case AssetUSDTBnb, AssetBNB, AssetETH:
		return "0x"
	case AssetUSDTTron, AssetTRX:
		return "T"
	case AssetBTC:
		return "bc1q"
	case AssetSOL:
		return ""
	case AssetXRP:
		return "r"
	case AssetDOGE:
		return "D"
	case AssetLTC:
		return "L"
	default:
		return "0x"
	}
}
