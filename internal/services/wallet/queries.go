package wallet

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
)

func (s *service) GetOverview(ctx context.Context, accountID uint) (*Overview, error) {
	account, err := s.cachedAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Overview{
		AccountID: account.ID,
		Balances:  account.Balances.Clone(),
		Addresses: account.Addresses.Clone(),
	}, nil
}

func (s *service) History(ctx context.Context, q HistoryQuery) (*HistoryPage, error) {
	filter := repositories.EntryFilter{
		AccountID: q.AccountID,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	if filter.Limit > MaxHistoryLimit {
		filter.Limit = MaxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if q.Asset != "" {
		asset, err := models.ParseAsset(q.Asset)
		if err != nil {
			return nil, err
		}
		filter.Asset = asset
	}

	switch strings.ToLower(q.Type) {
	case "":
	case "sent":
		filter.Direction = models.DirectionSend
	case "received":
		filter.Direction = models.DirectionReceive
	case "pending":
		filter.Status = models.StatusPending
	case "processing":
		filter.Status = models.StatusProcessing
	default:
		return nil, apperrors.ErrInvalidRequest.Withf("unknown history type %q", q.Type)
	}

	entries, total, err := s.repo.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Entries: entries, Total: total}, nil
}

// GetEntry returns one of the account's own entries. Entries of other
// accounts read as not found.
func (s *service) GetEntry(ctx context.Context, accountID, entryID uint) (*models.LedgerEntry, error) {
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.FromAccountID != accountID && entry.ToAccountID != accountID {
		return nil, apperrors.ErrEntryNotFound
	}
	return entry, nil
}

func (s *service) Stats(ctx context.Context, accountID uint) (*Stats, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	week, err := s.repo.SummarizeEntries(ctx, accountID, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, err
	}
	_, pending, err := s.repo.ListEntries(ctx, repositories.EntryFilter{
		AccountID: accountID,
		Status:    models.StatusPending,
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}

	out := &Stats{Pending: pending}
	out.Today.Sent = []AssetTotal{}
	out.Today.Received = []AssetTotal{}
	for _, sum := range week {
		out.Recent += sum.Count
	}

	daily, err := s.repo.SummarizeEntries(ctx, accountID, today)
	if err != nil {
		return nil, err
	}
	for _, sum := range daily {
		if sum.Status != models.StatusCompleted {
			continue
		}
		total := AssetTotal{Asset: sum.Asset, Count: sum.Count, Amount: sum.Amount, Value: sum.Value}
		if sum.Direction == models.DirectionSend {
			out.Today.Sent = append(out.Today.Sent, total)
		} else {
			out.Today.Received = append(out.Today.Received, total)
		}
	}
	return out, nil
}

// cachedAccount reads through the account cache. Cache errors fall back to the store.
func (s *service) cachedAccount(ctx context.Context, accountID uint) (*models.Account, error) {
	if s.cache != nil {
		account, err := s.cache.GetAccount(ctx, accountID)
		if err == nil && account != nil {
			return account, nil
		}
		if err != nil {
			s.log.Debug("account cache read failed", zap.Uint("account_id", accountID), zap.Error(err))
		}
	}

	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.CacheAccount(ctx, account); err != nil {
			s.log.Debug("account cache write failed", zap.Uint("account_id", accountID), zap.Error(err))
		}
	}
	return account, nil
}
