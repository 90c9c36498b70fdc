package reward

import (
	"time"

	"go.uber.org/zap"

	"vaultledger/internal/metrics"
	"vaultledger/internal/repositories"
	"vaultledger/internal/services/wallet"
)

type service struct {
	repo    repositories.LedgerRepository
	wallet  wallet.Service
	prices  wallet.PriceProvider
	cfg     Config
	metrics metrics.Collector
	log     *zap.Logger
	now     func() time.Time
}

// NewService wires reward crediting. prices is consulted strictly for spin
// conversions; referral bonuses are quoted through the wallet service.
func NewService(
	repo repositories.LedgerRepository,
	ws wallet.Service,
	prices wallet.PriceProvider,
	cfg Config,
	m metrics.Collector,
	log *zap.Logger,
) Service {
	if cfg.SpinCooldown <= 0 {
		cfg.SpinCooldown = 84 * time.Hour
	}
	if m == nil {
		m = metrics.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		repo:    repo,
		wallet:  ws,
		prices:  prices,
		cfg:     cfg,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}
