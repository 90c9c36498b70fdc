package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "vaultledger/internal/errors"
)

const uniqueViolation = "23505"

// mapError converts driver errors into the domain taxonomy. notFound is
// returned for gorm.ErrRecordNotFound when provided.
func mapError(op string, err error, notFound *apperrors.DomainError) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.ErrDuplicate.Wrap(fmt.Errorf("failed to %s: %w", op, err))
	}
	return apperrors.ErrPersistence.Wrap(fmt.Errorf("failed to %s: %w", op, err))
}
