// Package eligibility answers whether an account may use an off-platform
// withdrawal channel, based on its debit card application.
package eligibility

import (
	"context"
	"strings"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/repositories"
)

// Status is the uppercased card status reported to clients.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusActivate Status = "ACTIVATE"
	StatusPending  Status = "PENDING"
	StatusInactive Status = "INACTIVE"
	StatusCanceled Status = "CANCELED"
)

// Normalize uppercases raw; an empty status means no application.
func Normalize(raw string) Status {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return StatusInactive
	}
	return Status(s)
}

// Qualifies reports whether a withdrawal may proceed to processing.
func (s Status) Qualifies() bool {
	switch s {
	case StatusActive, StatusActivate, StatusPending:
		return true
	}
	return false
}

// Checker looks up the eligibility status of an account.
type Checker interface {
	Status(ctx context.Context, accountID uint) (Status, error)
}

// ApplicationChecker reads the status straight from the card application.
type ApplicationChecker struct {
	apps repositories.CardApplicationRepository
}

func NewApplicationChecker(apps repositories.CardApplicationRepository) *ApplicationChecker {
	return &ApplicationChecker{apps: apps}
}

func (c *ApplicationChecker) Status(ctx context.Context, accountID uint) (Status, error) {
	app, err := c.apps.GetByAccountID(ctx, accountID)
	if err != nil {
		return "", apperrors.ErrEligibilityUnavailable.Wrap(err)
	}
	if app == nil {
		return StatusInactive, nil
	}
	return Normalize(app.Status), nil
}
