package reward

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
	"vaultledger/internal/services/notification"
	"vaultledger/internal/services/wallet"
)

func (s *service) CheckSpinCooldown(ctx context.Context, accountID uint) (*Availability, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := &Availability{CanSpin: true, LastSpinTime: account.LastSpinAt}
	if remaining := s.remaining(account, s.now()); remaining > 0 {
		ms := remaining.Milliseconds()
		out.CanSpin = false
		out.TimeRemaining = &ms
	}
	return out, nil
}

// CreditSpinReward records a spin. A positive prize is converted into
// SpinAsset at the live price; the price is resolved before anything is
// written so an outage leaves the account untouched.
func (s *service) CreditSpinReward(ctx context.Context, req SpinRequest) (*SpinResult, error) {
	usd, err := decimal.NewFromString(strings.TrimSpace(req.USDAmount))
	if err != nil || usd.IsNegative() {
		return nil, apperrors.ErrInvalidPrize.Withf("prize amount must be a non-negative number")
	}
	win := usd.IsPositive()

	var price decimal.Decimal
	if win {
		price, err = s.prices.Price(ctx, SpinAsset)
		if err != nil || !price.IsPositive() {
			if err == nil {
				err = fmt.Errorf("non-positive %s price %s", SpinAsset, price)
			}
			s.log.Warn("spin aborted, price unavailable", zap.Uint("account_id", req.AccountID), zap.Error(err))
			return nil, apperrors.ErrPriceUnavailable.Withf("Could not fetch live BTC price. Please try again in a moment.").Wrap(err)
		}
	}

	label := strings.TrimSpace(req.PrizeLabel)
	if label == "" {
		label = "$" + usd.String()
	}

	now := s.now()
	result := &SpinResult{Won: win, USDWon: usd, PriceUsed: price}
	var account *models.Account
	err = s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		var err error
		account, err = tx.LockAccount(ctx, req.AccountID)
		if err != nil {
			return err
		}

		if !win {
			if !s.cfg.LossRestartsCooldown {
				return nil
			}
			account.LastSpinAt = &now
			return tx.SaveAccount(ctx, account)
		}

		if remaining := s.remaining(account, now); remaining > 0 {
			hours := int(math.Ceil(remaining.Hours()))
			return apperrors.ErrSpinCooldown.Withf("Please wait %d hours before spinning again", hours)
		}

		account.LastSpinAt = &now
		entry, err := s.wallet.Apply(ctx, tx, account, wallet.Mutation{
			Asset:        SpinAsset,
			Delta:        usd.DivRound(price, 8),
			Kind:         models.KindSpinReward,
			Price:        price,
			Counterparty: wallet.SpinCounterparty,
			Metadata: map[string]interface{}{
				"prizeLabel":       label,
				"usdAmount":        usd.String(),
				"btcPriceAtReward": price.String(),
			},
		})
		if err != nil {
			return err
		}
		if entry == nil {
			return tx.SaveAccount(ctx, account)
		}
		result.Entry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.LastSpinTime = account.LastSpinAt
	result.TotalBalance = account.Balances.Get(SpinAsset)
	if result.Entry != nil {
		result.Credited = result.Entry.Amount
		result.Reference = result.Entry.Reference
		s.wallet.Committed(ctx, account, result.Entry, s.cfg.Templates.SpinReward, notification.Vars{
			"prizeLabel": label,
			"usdAmount":  notification.FormatUSD(usd),
			"btcPrice":   notification.FormatUSD(price),
		})
	}
	return result, nil
}

func (s *service) remaining(account *models.Account, now time.Time) time.Duration {
	if account.LastSpinAt == nil {
		return 0
	}
	left := s.cfg.SpinCooldown - now.Sub(*account.LastSpinAt)
	if left < 0 {
		return 0
	}
	return left
}
