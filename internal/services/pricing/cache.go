package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultledger/internal/models"
)

// Cache is the subset of the redis cache service used for quotes.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Cached keeps quotes for ttl. Cache failures fall through to the
// underlying provider.
type Cached struct {
	next  Provider
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCached(next Provider, cache Cache, ttl time.Duration, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{next: next, cache: cache, ttl: ttl, log: log}
}

func (c *Cached) Price(ctx context.Context, asset models.Asset) (decimal.Decimal, error) {
	key := "price:usd:" + string(asset)

	var cached decimal.Decimal
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.log.Warn("price cache read failed", zap.String("asset", string(asset)), zap.Error(err))
	} else if found && cached.IsPositive() {
		return cached, nil
	}

	price, err := c.next.Price(ctx, asset)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.cache.SetWithTTL(ctx, key, price, c.ttl); err != nil {
		c.log.Warn("price cache write failed", zap.String("asset", string(asset)), zap.Error(err))
	}
	return price, nil
}
