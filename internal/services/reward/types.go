package reward

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"vaultledger/internal/config"
	"vaultledger/internal/models"
)

// SpinAsset is the asset spin prizes are paid in.
const SpinAsset = models.AssetBTC

type Config struct {
	Asset         models.Asset
	WelcomeBonus  decimal.Decimal
	ReferralBonus decimal.Decimal
	SpinCooldown  time.Duration
	// LossRestartsCooldown makes a losing spin start a new cooldown window,
	// so a user cannot keep spinning until they win.
	LossRestartsCooldown bool
	Templates            config.Templates
}

// ConfigFrom maps the environment configuration onto Config.
func ConfigFrom(cfg config.RewardConfig, templates config.Templates) (Config, error) {
	asset, err := models.ParseAsset(cfg.Asset)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Asset:                asset,
		WelcomeBonus:         cfg.WelcomeBonus,
		ReferralBonus:        cfg.ReferralBonus,
		SpinCooldown:         cfg.SpinCooldown,
		LossRestartsCooldown: cfg.LossRestartsCooldown,
		Templates:            templates,
	}, nil
}

// ReferralOutcome says which bonus, if any, was paid.
type ReferralOutcome string

const (
	OutcomeNone     ReferralOutcome = "none"
	OutcomeWelcome  ReferralOutcome = "welcome"
	OutcomeReferral ReferralOutcome = "referral"
)

type ReferralResult struct {
	Outcome ReferralOutcome
	Entries []*models.LedgerEntry
}

// Availability reports whether a winning spin would be accepted now.
type Availability struct {
	CanSpin bool `json:"canSpin"`
	// TimeRemaining is in milliseconds, nil when CanSpin is true.
	TimeRemaining *int64     `json:"timeRemaining"`
	LastSpinTime  *time.Time `json:"lastSpinTime"`
}

type SpinRequest struct {
	AccountID  uint
	USDAmount  string
	PrizeLabel string
}

type SpinResult struct {
	Won          bool                `json:"won"`
	USDWon       decimal.Decimal     `json:"usdWon"`
	Credited     decimal.Decimal     `json:"btcCredited"`
	PriceUsed    decimal.Decimal     `json:"btcPriceUsed"`
	TotalBalance decimal.Decimal     `json:"totalBtcBalance"`
	Reference    string              `json:"transactionId,omitempty"`
	LastSpinTime *time.Time          `json:"lastSpinTime"`
	Entry        *models.LedgerEntry `json:"transfer,omitempty"`
}

type Service interface {
	CreditReferralReward(ctx context.Context, accountID uint) (*ReferralResult, error)
	CheckSpinCooldown(ctx context.Context, accountID uint) (*Availability, error)
	CreditSpinReward(ctx context.Context, req SpinRequest) (*SpinResult, error)
}
