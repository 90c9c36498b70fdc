package repositories

import (
	"context"

	"gorm.io/gorm"

	"vaultledger/internal/models"
)

// CardApplicationRepository reads debit card applications.
type CardApplicationRepository interface {
	GetByAccountID(ctx context.Context, accountID uint) (*models.CardApplication, error)
	Upsert(ctx context.Context, app *models.CardApplication) error
}

type cardApplicationRepository struct {
	db *gorm.DB
}

func NewCardApplicationRepository(db *gorm.DB) CardApplicationRepository {
	return &cardApplicationRepository{db: db}
}

// GetByAccountID returns nil without error when the account never applied.
func (r *cardApplicationRepository) GetByAccountID(ctx context.Context, accountID uint) (*models.CardApplication, error) {
	var apps []models.CardApplication
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Limit(1).Find(&apps).Error
	if err != nil {
		return nil, mapError("get card application", err, nil)
	}
	if len(apps) == 0 {
		return nil, nil
	}
	return &apps[0], nil
}

func (r *cardApplicationRepository) Upsert(ctx context.Context, app *models.CardApplication) error {
	return mapError("save card application", r.db.WithContext(ctx).Save(app).Error, nil)
}
