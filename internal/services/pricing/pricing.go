// Package pricing supplies USD quotes for the custodied assets.
package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultledger/internal/config"
	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
)

// Provider returns the current USD price of one unit of asset.
type Provider interface {
	Price(ctx context.Context, asset models.Asset) (decimal.Decimal, error)
}

// Static serves fixed quotes. Stablecoins default to 1.
type Static map[models.Asset]decimal.Decimal

func NewStatic(prices map[string]decimal.Decimal) Static {
	s := Static{
		models.AssetUSDTTron: decimal.NewFromInt(1),
		models.AssetUSDTBnb:  decimal.NewFromInt(1),
	}
	for k, v := range prices {
		if a, err := models.ParseAsset(k); err == nil {
			s[a] = v
		}
	}
	return s
}

func (s Static) Price(ctx context.Context, asset models.Asset) (decimal.Decimal, error) {
	p, ok := s[asset]
	if !ok || !p.IsPositive() {
		return decimal.Zero, apperrors.ErrPriceUnavailable.Withf("no price configured for %s", asset)
	}
	return p, nil
}

// New builds the provider selected by cfg.Source. A non-nil cache wraps it.
func New(cfg config.PricingConfig, cache Cache, log *zap.Logger) (Provider, error) {
	var p Provider
	switch strings.ToLower(cfg.Source) {
	case "static":
		p = NewStatic(cfg.Static)
	case "coingecko", "":
		p = NewCoinGecko(cfg.BaseURL, 10*time.Second)
	default:
		return nil, fmt.Errorf("unknown price source %q", cfg.Source)
	}
	if cache != nil && cfg.CacheTTL > 0 {
		p = NewCached(p, cache, cfg.CacheTTL, log)
	}
	return p, nil
}
