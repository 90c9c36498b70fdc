package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"vaultledger/internal/models"
)

// EntryFilter narrows an account's transaction history.
type EntryFilter struct {
	AccountID uint
	Asset     models.Asset
	Direction models.Direction
	Status    models.TransferStatus
	Limit     int
	Offset    int
}

// EntrySummary aggregates an account's entries sharing asset, direction and
// status.
type EntrySummary struct {
	Asset     models.Asset
	Direction models.Direction
	Status    models.TransferStatus
	Count     int64
	Amount    decimal.Decimal
	Value     decimal.Decimal
}

// LedgerRepository persists accounts, their ledger entries and the staged
// withdrawal sub-resource. Writes that must land together go through
// ExecuteInTransaction; Lock* methods hold a row lock until that
// transaction ends.
type LedgerRepository interface {
	// Accounts
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id uint) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error)
	LockAccount(ctx context.Context, id uint) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error

	// Ledger entries
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	GetEntry(ctx context.Context, id uint) (*models.LedgerEntry, error)
	LockEntry(ctx context.Context, id uint) (*models.LedgerEntry, error)
	SaveEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListEntries(ctx context.Context, filter EntryFilter) ([]models.LedgerEntry, int64, error)
	ListOpenEntries(ctx context.Context, limit, offset int) ([]models.LedgerEntry, int64, error)
	SummarizeEntries(ctx context.Context, accountID uint, since time.Time) ([]EntrySummary, error)

	// Staged withdrawals
	ReplaceStagedWithdrawal(ctx context.Context, staged *models.StagedWithdrawal) error
	TakeStagedWithdrawal(ctx context.Context, accountID uint) (*models.StagedWithdrawal, error)
	DeleteExpiredStagedWithdrawals(ctx context.Context, now time.Time) (int64, error)

	// Referral audit
	CreateReferralReward(ctx context.Context, reward *models.ReferralReward) error

	ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error
}
