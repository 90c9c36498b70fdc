package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
)

var coinGeckoIDs = map[models.Asset]string{
	models.AssetBTC:      "bitcoin",
	models.AssetETH:      "ethereum",
	models.AssetUSDTTron: "tether",
	models.AssetUSDTBnb:  "tether",
	models.AssetBNB:      "binancecoin",
	models.AssetTRX:      "tron",
	models.AssetSOL:      "solana",
	models.AssetXRP:      "ripple",
	models.AssetDOGE:     "dogecoin",
	models.AssetLTC:      "litecoin",
}

// CoinGecko queries the public simple price endpoint. Concurrent lookups
// for the same coin share one request.
type CoinGecko struct {
	client *resty.Client
	group  singleflight.Group
}

func NewCoinGecko(baseURL string, timeout time.Duration) *CoinGecko {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &CoinGecko{client: client}
}

func (c *CoinGecko) Price(ctx context.Context, asset models.Asset) (decimal.Decimal, error) {
	id, ok := coinGeckoIDs[asset]
	if !ok {
		return decimal.Zero, apperrors.ErrInvalidAsset.Withf("unsupported asset %q", asset)
	}

	v, err, _ := c.group.Do(id, func() (interface{}, error) {
		return c.fetch(ctx, id)
	})
	if err != nil {
		return decimal.Zero, apperrors.ErrPriceUnavailable.Wrap(err)
	}
	return v.(decimal.Decimal), nil
}

func (c *CoinGecko) fetch(ctx context.Context, id string) (decimal.Decimal, error) {
	var body map[string]map[string]decimal.Decimal
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"ids": id, "vs_currencies": "usd"}).
		SetResult(&body).
		ForceContentType("application/json").
		Get("/simple/price")
	if err != nil {
		return decimal.Zero, fmt.Errorf("price request failed: %w", err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("price request returned status %d", resp.StatusCode())
	}
	price, ok := body[id]["usd"]
	if !ok || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("no usd price for %s", id)
	}
	return price, nil
}
