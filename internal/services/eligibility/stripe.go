package eligibility

import (
	"context"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/issuing/card"
	"go.uber.org/zap"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/repositories"
)

type cardGetter interface {
	Get(id string, params *stripe.IssuingCardParams) (*stripe.IssuingCard, error)
}

// StripeChecker resolves the status of an issued card through Stripe
// Issuing. Applications without a card fall back to their stored status.
type StripeChecker struct {
	apps  repositories.CardApplicationRepository
	cards cardGetter
	log   *zap.Logger
}

func NewStripeChecker(apps repositories.CardApplicationRepository, key string, log *zap.Logger) *StripeChecker {
	if log == nil {
		log = zap.NewNop()
	}
	return &StripeChecker{
		apps:  apps,
		cards: &card.Client{B: stripe.GetBackend(stripe.APIBackend), Key: key},
		log:   log,
	}
}

func (c *StripeChecker) Status(ctx context.Context, accountID uint) (Status, error) {
	app, err := c.apps.GetByAccountID(ctx, accountID)
	if err != nil {
		return "", apperrors.ErrEligibilityUnavailable.Wrap(err)
	}
	if app == nil {
		return StatusInactive, nil
	}
	if app.StripeCardID == "" {
		return Normalize(app.Status), nil
	}

	params := &stripe.IssuingCardParams{}
	params.Context = ctx
	ic, err := c.cards.Get(app.StripeCardID, params)
	if err != nil {
		c.log.Warn("stripe card lookup failed",
			zap.Uint("account_id", accountID),
			zap.String("card_id", app.StripeCardID),
			zap.Error(err))
		return "", apperrors.ErrEligibilityUnavailable.Wrap(err)
	}

	switch ic.Status {
	case stripe.IssuingCardStatusActive:
		return StatusActive, nil
	case stripe.IssuingCardStatusInactive:
		// Stripe reports both a fresh card and a deactivated one as inactive.
		// Only an application still awaiting activation keeps qualifying.
		switch Normalize(app.Status) {
		case StatusActivate, StatusPending:
			return StatusActivate, nil
		}
		return StatusInactive, nil
	case stripe.IssuingCardStatusCanceled:
		return StatusCanceled, nil
	}
	return Normalize(string(ic.Status)), nil
}
