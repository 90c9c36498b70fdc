package memory

import (
	"context"
	"sync"
	"time"

	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
)

// CardApplicationRepository keeps card applications keyed by account.
type CardApplicationRepository struct {
	mu   sync.RWMutex
	apps map[uint]models.CardApplication
}

var _ repositories.CardApplicationRepository = (*CardApplicationRepository)(nil)

func NewCardApplicationRepository() *CardApplicationRepository {
	return &CardApplicationRepository{apps: make(map[uint]models.CardApplication)}
}

func (r *CardApplicationRepository) GetByAccountID(ctx context.Context, accountID uint) (*models.CardApplication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[accountID]
	if !ok {
		return nil, nil
	}
	return &app, nil
}

func (r *CardApplicationRepository) Upsert(ctx context.Context, app *models.CardApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if existing, ok := r.apps[app.AccountID]; ok {
		app.ID = existing.ID
		app.CreatedAt = existing.CreatedAt
	} else {
		app.ID = uint(len(r.apps) + 1)
		app.CreatedAt = now
	}
	app.UpdatedAt = now
	r.apps[app.AccountID] = *app
	return nil
}
