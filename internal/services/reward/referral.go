package reward

import (
	"context"

	"go.uber.org/zap"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
	"vaultledger/internal/services/notification"
	"vaultledger/internal/services/wallet"
)

// CreditReferralReward pays the one-time signup bonus. Without a referral
// code the new account gets the welcome bonus; with a resolvable code both
// parties get the referral bonus. An unknown code pays nothing and leaves
// the flag unset.
func (s *service) CreditReferralReward(ctx context.Context, accountID uint) (*ReferralResult, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.ReferralRewarded {
		return &ReferralResult{Outcome: OutcomeNone}, nil
	}
	if account.ReferredBy == "" {
		return s.creditWelcome(ctx, accountID)
	}

	referrer, err := s.repo.GetAccountByReferralCode(ctx, account.ReferredBy)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			s.log.Info("referral code did not resolve",
				zap.Uint("account_id", accountID),
				zap.String("code", account.ReferredBy))
			return &ReferralResult{Outcome: OutcomeNone}, nil
		}
		return nil, err
	}
	if referrer.ID == accountID {
		return &ReferralResult{Outcome: OutcomeNone}, nil
	}
	return s.creditReferral(ctx, accountID, referrer.ID)
}

func (s *service) creditWelcome(ctx context.Context, accountID uint) (*ReferralResult, error) {
	price := s.wallet.Quote(ctx, s.cfg.Asset)

	var (
		account *models.Account
		entry   *models.LedgerEntry
		paid    bool
	)
	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		var err error
		account, err = tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if account.ReferralRewarded || account.ReferredBy != "" {
			return nil
		}
		account.ReferralRewarded = true
		entry, err = s.wallet.Apply(ctx, tx, account, wallet.Mutation{
			Asset: s.cfg.Asset,
			Delta: s.cfg.WelcomeBonus,
			Kind:  models.KindWelcomeBonus,
			Price: price,
		})
		if err != nil {
			return err
		}
		paid = true
		if entry == nil {
			return tx.SaveAccount(ctx, account)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !paid {
		return &ReferralResult{Outcome: OutcomeNone}, nil
	}

	res := &ReferralResult{Outcome: OutcomeWelcome}
	if entry != nil {
		res.Entries = append(res.Entries, entry)
		s.wallet.Committed(ctx, account, entry, s.cfg.Templates.WelcomeBonus, nil)
	}
	return res, nil
}

func (s *service) creditReferral(ctx context.Context, referredID, referrerID uint) (*ReferralResult, error) {
	price := s.wallet.Quote(ctx, s.cfg.Asset)

	type credit struct {
		account *models.Account
		entry   *models.LedgerEntry
	}
	var (
		credits []credit
		paid    bool
	)
	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		// lock in id order so two signups referring each other cannot deadlock
		first, second := referredID, referrerID
		if second < first {
			first, second = second, first
		}
		locked := make(map[uint]*models.Account, 2)
		for _, id := range []uint{first, second} {
			a, err := tx.LockAccount(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = a
		}
		referred, referrer := locked[referredID], locked[referrerID]
		if referred.ReferralRewarded || referred.ReferredBy != referrer.ReferralCode {
			return nil
		}

		referred.ReferralRewarded = true
		credits = credits[:0]
		for _, a := range []*models.Account{referrer, referred} {
			entry, err := s.wallet.Apply(ctx, tx, a, wallet.Mutation{
				Asset: s.cfg.Asset,
				Delta: s.cfg.ReferralBonus,
				Kind:  models.KindReferralReward,
				Price: price,
				Metadata: map[string]interface{}{
					"referrerEmail": referrer.Email,
					"referredEmail": referred.Email,
				},
			})
			if err != nil {
				return err
			}
			credits = append(credits, credit{account: a, entry: entry})
		}
		if credits[1].entry == nil {
			if err := tx.SaveAccount(ctx, referred); err != nil {
				return err
			}
		}

		if err := tx.CreateReferralReward(ctx, &models.ReferralReward{
			ReferrerID:    referrer.ID,
			ReferredID:    referred.ID,
			ReferrerEmail: referrer.Email,
			ReferredEmail: referred.Email,
			Amount:        s.cfg.ReferralBonus,
			Asset:         s.cfg.Asset,
		}); err != nil {
			return err
		}
		paid = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !paid {
		return &ReferralResult{Outcome: OutcomeNone}, nil
	}

	res := &ReferralResult{Outcome: OutcomeReferral}
	for _, c := range credits {
		if c.entry == nil {
			continue
		}
		res.Entries = append(res.Entries, c.entry)
		s.wallet.Committed(ctx, c.account, c.entry, s.cfg.Templates.ReferralReward, notification.Vars{
			"bonus": c.entry.Amount.String(),
		})
	}
	return res, nil
}
