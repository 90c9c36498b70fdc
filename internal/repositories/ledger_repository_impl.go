package repositories

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories/cache"
)

type ledgerRepository struct {
	db    *gorm.DB
	cache *cache.CacheService
	log   *zap.Logger

	// touched collects accounts written inside a transaction so their
	// cached wallet views can be dropped once it commits.
	touched map[uint]struct{}
}

// NewLedgerRepository returns the gorm backed store. Every committed account
// write invalidates the account's cache entry; cache may be nil.
func NewLedgerRepository(db *gorm.DB, cache *cache.CacheService, log *zap.Logger) LedgerRepository {
	return &ledgerRepository{db: db, cache: cache, log: log}
}

func (r *ledgerRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		err = mapError("create account", err, nil)
		if apperrors.KindOf(err) == apperrors.KindStateConflict {
			return apperrors.ErrEmailTaken.Wrap(err)
		}
		return err
	}
	return nil
}

func (r *ledgerRepository) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, mapError("get account", err, apperrors.ErrAccountNotFound)
	}
	account.EnsureMappings()
	return &account, nil
}

func (r *ledgerRepository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&account).Error
	if err != nil {
		return nil, mapError("get account by email", err, apperrors.ErrAccountNotFound)
	}
	account.EnsureMappings()
	return &account, nil
}

func (r *ledgerRepository) GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&account).Error; err != nil {
		return nil, mapError("get account by referral code", err, apperrors.ErrAccountNotFound)
	}
	account.EnsureMappings()
	return &account, nil
}

func (r *ledgerRepository) LockAccount(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, id).Error
	if err != nil {
		return nil, mapError("lock account", err, apperrors.ErrAccountNotFound)
	}
	account.EnsureMappings()
	return &account, nil
}

func (r *ledgerRepository) SaveAccount(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		return mapError("save account", err, nil)
	}
	r.touch(ctx, account.ID)
	return nil
}

func (r *ledgerRepository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return mapError("create ledger entry", r.db.WithContext(ctx).Create(entry).Error, nil)
}

func (r *ledgerRepository) GetEntry(ctx context.Context, id uint) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, mapError("get ledger entry", err, apperrors.ErrEntryNotFound)
	}
	return &entry, nil
}

func (r *ledgerRepository) LockEntry(ctx context.Context, id uint) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&entry, id).Error
	if err != nil {
		return nil, mapError("lock ledger entry", err, apperrors.ErrEntryNotFound)
	}
	return &entry, nil
}

func (r *ledgerRepository) SaveEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return mapError("save ledger entry", r.db.WithContext(ctx).Save(entry).Error, nil)
}

func (r *ledgerRepository) ListEntries(ctx context.Context, f EntryFilter) ([]models.LedgerEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.LedgerEntry{})
	switch f.Direction {
	case models.DirectionSend:
		q = q.Where("from_account_id = ? AND direction = ?", f.AccountID, models.DirectionSend)
	case models.DirectionReceive:
		q = q.Where("to_account_id = ? AND direction = ?", f.AccountID, models.DirectionReceive)
	default:
		q = q.Where("from_account_id = ? OR to_account_id = ?", f.AccountID, f.AccountID)
	}
	if f.Asset != "" {
		q = q.Where("asset = ?", f.Asset)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, mapError("count ledger entries", err, nil)
	}

	var entries []models.LedgerEntry
	err := q.Order("created_at DESC, id DESC").Limit(f.Limit).Offset(f.Offset).Find(&entries).Error
	if err != nil {
		return nil, 0, mapError("list ledger entries", err, nil)
	}
	return entries, total, nil
}

func (r *ledgerRepository) ListOpenEntries(ctx context.Context, limit, offset int) ([]models.LedgerEntry, int64, error) {
	open := make([]string, 0, len(models.OpenStatuses))
	for _, s := range models.OpenStatuses {
		open = append(open, string(s))
	}
	q := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("status IN ?", open)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, mapError("count open entries", err, nil)
	}

	var entries []models.LedgerEntry
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		return nil, 0, mapError("list open entries", err, nil)
	}
	return entries, total, nil
}

func (r *ledgerRepository) SummarizeEntries(ctx context.Context, accountID uint, since time.Time) ([]EntrySummary, error) {
	var rows []EntrySummary
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("asset, direction, status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount, COALESCE(SUM(value), 0) AS value").
		Where("(from_account_id = ? OR to_account_id = ?) AND created_at >= ?", accountID, accountID, since).
		Group("asset, direction, status").
		Order("asset, direction, status").
		Scan(&rows).Error
	if err != nil {
		return nil, mapError("summarize ledger entries", err, nil)
	}
	return rows, nil
}

func (r *ledgerRepository) ReplaceStagedWithdrawal(ctx context.Context, staged *models.StagedWithdrawal) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			UpdateAll: true,
		}).
		Create(staged).Error
	return mapError("stage withdrawal", err, nil)
}

// TakeStagedWithdrawal deletes and returns the staged request in one
// statement, so two racing callers cannot both observe it.
func (r *ledgerRepository) TakeStagedWithdrawal(ctx context.Context, accountID uint) (*models.StagedWithdrawal, error) {
	var taken []models.StagedWithdrawal
	res := r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("account_id = ?", accountID).
		Delete(&taken)
	if res.Error != nil {
		return nil, mapError("take staged withdrawal", res.Error, nil)
	}
	if res.RowsAffected == 0 || len(taken) == 0 {
		return nil, apperrors.ErrNoStagedWithdrawal
	}
	return &taken[0], nil
}

func (r *ledgerRepository) DeleteExpiredStagedWithdrawals(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.StagedWithdrawal{})
	if res.Error != nil {
		return 0, mapError("purge staged withdrawals", res.Error, nil)
	}
	return res.RowsAffected, nil
}

func (r *ledgerRepository) CreateReferralReward(ctx context.Context, reward *models.ReferralReward) error {
	return mapError("create referral reward", r.db.WithContext(ctx).Create(reward).Error, nil)
}

func (r *ledgerRepository) ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error {
	if r.touched != nil {
		return fn(r)
	}
	txRepo := &ledgerRepository{cache: r.cache, log: r.log, touched: make(map[uint]struct{})}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo.db = tx
		return fn(txRepo)
	})
	if err != nil {
		return err
	}
	for id := range txRepo.touched {
		r.invalidate(ctx, id)
	}
	return nil
}

func (r *ledgerRepository) touch(ctx context.Context, id uint) {
	if r.touched != nil {
		r.touched[id] = struct{}{}
		return
	}
	r.invalidate(ctx, id)
}

func (r *ledgerRepository) invalidate(ctx context.Context, id uint) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateAccount(ctx, id); err != nil {
		r.log.Warn("failed to invalidate account cache", zap.Uint("account_id", id), zap.Error(err))
	}
}
