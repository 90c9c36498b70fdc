// Package memory is an in-process Ledger Store. Transactions are serialized
// and applied copy-on-write, which gives the same all-or-nothing and
// row-lock guarantees as the postgres store for a single node.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
)

type state struct {
	accounts   map[uint]*models.Account
	entries    map[uint]*models.LedgerEntry
	staged     map[uint]*models.StagedWithdrawal
	rewards    []models.ReferralReward
	nextAcct   uint
	nextEntry  uint
	nextReward uint
}

func newState() *state {
	return &state{
		accounts: make(map[uint]*models.Account),
		entries:  make(map[uint]*models.LedgerEntry),
		staged:   make(map[uint]*models.StagedWithdrawal),
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts:   make(map[uint]*models.Account, len(s.accounts)),
		entries:    make(map[uint]*models.LedgerEntry, len(s.entries)),
		staged:     make(map[uint]*models.StagedWithdrawal, len(s.staged)),
		rewards:    append([]models.ReferralReward(nil), s.rewards...),
		nextAcct:   s.nextAcct,
		nextEntry:  s.nextEntry,
		nextReward: s.nextReward,
	}
	for id, a := range s.accounts {
		c.accounts[id] = a.Clone()
	}
	for id, e := range s.entries {
		c.entries[id] = e.Clone()
	}
	for id, w := range s.staged {
		cp := *w
		c.staged[id] = &cp
	}
	return c
}

type store struct {
	mu    sync.Mutex
	state *state
}

// LedgerRepository implements repositories.LedgerRepository in memory.
type LedgerRepository struct {
	store *store
	tx    *state
	now   func() time.Time
}

var _ repositories.LedgerRepository = (*LedgerRepository)(nil)

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{store: &store{state: newState()}, now: time.Now}
}

func (r *LedgerRepository) do(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.state)
}

func (r *LedgerRepository) ExecuteInTransaction(ctx context.Context, fn func(repositories.LedgerRepository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	snapshot := r.store.state.clone()
	if err := fn(&LedgerRepository{store: r.store, tx: snapshot, now: r.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.ErrPersistence.Wrap(err)
	}
	r.store.state = snapshot
	return nil
}

func (r *LedgerRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	return r.do(func(st *state) error {
		account.Email = strings.ToLower(strings.TrimSpace(account.Email))
		for _, a := range st.accounts {
			if a.Email == account.Email {
				return apperrors.ErrEmailTaken
			}
			if account.ReferralCode != "" && a.ReferralCode == account.ReferralCode {
				return apperrors.ErrDuplicate.Withf("referral code already in use")
			}
		}
		st.nextAcct++
		now := r.now()
		account.ID = st.nextAcct
		account.CreatedAt, account.UpdatedAt = now, now
		if account.Role == "" {
			account.Role = models.RoleUser
		}
		account.EnsureMappings()
		st.accounts[account.ID] = account.Clone()
		return nil
	})
}

func (r *LedgerRepository) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	var out *models.Account
	err := r.do(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return apperrors.ErrAccountNotFound
		}
		out = a.Clone()
		return nil
	})
	return out, err
}

// LockAccount is GetAccount; the transaction already excludes other writers.
func (r *LedgerRepository) LockAccount(ctx context.Context, id uint) (*models.Account, error) {
	return r.GetAccount(ctx, id)
}

func (r *LedgerRepository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.findAccount(func(a *models.Account) bool { return a.Email == email })
}

func (r *LedgerRepository) GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	return r.findAccount(func(a *models.Account) bool { return code != "" && a.ReferralCode == code })
}

func (r *LedgerRepository) findAccount(match func(*models.Account) bool) (*models.Account, error) {
	var out *models.Account
	err := r.do(func(st *state) error {
		for _, a := range st.accounts {
			if match(a) {
				out = a.Clone()
				return nil
			}
		}
		return apperrors.ErrAccountNotFound
	})
	return out, err
}

func (r *LedgerRepository) SaveAccount(ctx context.Context, account *models.Account) error {
	return r.do(func(st *state) error {
		if _, ok := st.accounts[account.ID]; !ok {
			return apperrors.ErrAccountNotFound
		}
		account.UpdatedAt = r.now()
		st.accounts[account.ID] = account.Clone()
		return nil
	})
}

func (r *LedgerRepository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.do(func(st *state) error {
		for _, e := range st.entries {
			if e.Reference == entry.Reference {
				return apperrors.ErrDuplicate.Withf("transaction reference %s already used", entry.Reference)
			}
		}
		st.nextEntry++
		now := r.now()
		entry.ID = st.nextEntry
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.UpdatedAt = now
		st.entries[entry.ID] = entry.Clone()
		return nil
	})
}

func (r *LedgerRepository) GetEntry(ctx context.Context, id uint) (*models.LedgerEntry, error) {
	var out *models.LedgerEntry
	err := r.do(func(st *state) error {
		e, ok := st.entries[id]
		if !ok {
			return apperrors.ErrEntryNotFound
		}
		out = e.Clone()
		return nil
	})
	return out, err
}

func (r *LedgerRepository) LockEntry(ctx context.Context, id uint) (*models.LedgerEntry, error) {
	return r.GetEntry(ctx, id)
}

func (r *LedgerRepository) SaveEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.do(func(st *state) error {
		if _, ok := st.entries[entry.ID]; !ok {
			return apperrors.ErrEntryNotFound
		}
		entry.UpdatedAt = r.now()
		st.entries[entry.ID] = entry.Clone()
		return nil
	})
}

func (r *LedgerRepository) ListEntries(ctx context.Context, f repositories.EntryFilter) ([]models.LedgerEntry, int64, error) {
	return r.listEntries(f.Limit, f.Offset, func(e *models.LedgerEntry) bool {
		switch f.Direction {
		case models.DirectionSend:
			if e.Direction != models.DirectionSend || e.FromAccountID != f.AccountID {
				return false
			}
		case models.DirectionReceive:
			if e.Direction != models.DirectionReceive || e.ToAccountID != f.AccountID {
				return false
			}
		default:
			if e.FromAccountID != f.AccountID && e.ToAccountID != f.AccountID {
				return false
			}
		}
		if f.Asset != "" && e.Asset != f.Asset {
			return false
		}
		return f.Status == "" || e.Status == f.Status
	})
}

func (r *LedgerRepository) ListOpenEntries(ctx context.Context, limit, offset int) ([]models.LedgerEntry, int64, error) {
	return r.listEntries(limit, offset, func(e *models.LedgerEntry) bool {
		return !e.Status.IsTerminal()
	})
}

func (r *LedgerRepository) SummarizeEntries(ctx context.Context, accountID uint, since time.Time) ([]repositories.EntrySummary, error) {
	type key struct {
		asset     models.Asset
		direction models.Direction
		status    models.TransferStatus
	}
	sums := make(map[key]*repositories.EntrySummary)
	err := r.do(func(st *state) error {
		for _, e := range st.entries {
			if e.FromAccountID != accountID && e.ToAccountID != accountID {
				continue
			}
			if e.CreatedAt.Before(since) {
				continue
			}
			k := key{e.Asset, e.Direction, e.Status}
			sum, ok := sums[k]
			if !ok {
				sum = &repositories.EntrySummary{Asset: e.Asset, Direction: e.Direction, Status: e.Status}
				sums[k] = sum
			}
			sum.Count++
			sum.Amount = sum.Amount.Add(e.Amount)
			sum.Value = sum.Value.Add(e.Value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]repositories.EntrySummary, 0, len(sums))
	for _, sum := range sums {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Asset != out[j].Asset {
			return out[i].Asset < out[j].Asset
		}
		if out[i].Direction != out[j].Direction {
			return out[i].Direction < out[j].Direction
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

func (r *LedgerRepository) listEntries(limit, offset int, match func(*models.LedgerEntry) bool) ([]models.LedgerEntry, int64, error) {
	var matched []models.LedgerEntry
	err := r.do(func(st *state) error {
		for _, e := range st.entries {
			if match(e) {
				matched = append(matched, *e.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []models.LedgerEntry{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *LedgerRepository) ReplaceStagedWithdrawal(ctx context.Context, staged *models.StagedWithdrawal) error {
	return r.do(func(st *state) error {
		if _, ok := st.accounts[staged.AccountID]; !ok {
			return apperrors.ErrAccountNotFound
		}
		cp := *staged
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = r.now()
		}
		st.staged[staged.AccountID] = &cp
		return nil
	})
}

func (r *LedgerRepository) TakeStagedWithdrawal(ctx context.Context, accountID uint) (*models.StagedWithdrawal, error) {
	var out *models.StagedWithdrawal
	err := r.do(func(st *state) error {
		w, ok := st.staged[accountID]
		if !ok {
			return apperrors.ErrNoStagedWithdrawal
		}
		delete(st.staged, accountID)
		out = w
		return nil
	})
	return out, err
}

func (r *LedgerRepository) DeleteExpiredStagedWithdrawals(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.do(func(st *state) error {
		for id, w := range st.staged {
			if w.ExpiresAt.Before(now) {
				delete(st.staged, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *LedgerRepository) CreateReferralReward(ctx context.Context, reward *models.ReferralReward) error {
	return r.do(func(st *state) error {
		for _, rr := range st.rewards {
			if rr.ReferredID == reward.ReferredID {
				return apperrors.ErrDuplicate.Withf("referral already rewarded")
			}
		}
		st.nextReward++
		reward.ID = st.nextReward
		reward.CreatedAt = r.now()
		st.rewards = append(st.rewards, *reward)
		return nil
	})
}

// ReferralRewards returns a copy of every audit record.
func (r *LedgerRepository) ReferralRewards() []models.ReferralReward {
	var out []models.ReferralReward
	_ = r.do(func(st *state) error {
		out = append(out, st.rewards...)
		return nil
	})
	return out
}

// EntryCount reports how many ledger entries exist.
func (r *LedgerRepository) EntryCount() int {
	var n int
	_ = r.do(func(st *state) error {
		n = len(st.entries)
		return nil
	})
	return n
}
