// Package resolution lets administrators move open ledger entries to a
// final state. Rejecting an entry reverses its balance effect exactly once.
package resolution

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"vaultledger/internal/config"
	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/metrics"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
	"vaultledger/internal/services/notification"
	"vaultledger/internal/services/wallet"
)

// Action is an admin decision on an open entry.
type Action string

const (
	ActionReview  Action = "pending"
	ActionApprove Action = "approved"
	ActionReject  Action = "rejected"
)

func ParseAction(raw string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(raw))); a {
	case ActionReview, ActionApprove, ActionReject:
		return a, nil
	case "reviewing", "processing":
		return ActionReview, nil
	case "approve", "completed":
		return ActionApprove, nil
	case "reject", "failed":
		return ActionReject, nil
	}
	return "", apperrors.ErrInvalidRequest.Withf("Invalid status")
}

const noteRefund = "Refund for rejected transaction"

// Resolution is the outcome of an admin action.
type Resolution struct {
	Entry *models.LedgerEntry
	// Refund is the counter-entry written by a reject.
	Refund *models.LedgerEntry
}

// PendingItem is one row of the admin review queue.
type PendingItem struct {
	ID            uint                  `json:"id"`
	Name          string                `json:"name"`
	Email         string                `json:"email"`
	Amount        string                `json:"amount"`
	Asset         models.Asset          `json:"asset"`
	Method        string                `json:"method"`
	Reference     string                `json:"txid"`
	ToAddress     string                `json:"toAddress"`
	Status        models.TransferStatus `json:"status"`
	Confirmations []bool                `json:"confirmations"`
	Date          string                `json:"date"`
	Time          string                `json:"time"`
}

type Service interface {
	MarkReviewing(ctx context.Context, entryID uint, confirmations []bool) (*Resolution, error)
	Approve(ctx context.Context, entryID uint) (*Resolution, error)
	Reject(ctx context.Context, entryID uint) (*Resolution, error)
	Resolve(ctx context.Context, entryID uint, action Action, confirmations []bool) (*Resolution, error)
	ListPending(ctx context.Context, limit, offset int) ([]PendingItem, int64, error)
}

type service struct {
	repo      repositories.LedgerRepository
	wallet    wallet.Service
	notifier  notification.Notifier
	templates config.Templates
	metrics   metrics.Collector
	log       *zap.Logger
	now       func() time.Time
}

func NewService(
	repo repositories.LedgerRepository,
	ws wallet.Service,
	notifier notification.Notifier,
	templates config.Templates,
	m metrics.Collector,
	log *zap.Logger,
) Service {
	if m == nil {
		m = metrics.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		repo:      repo,
		wallet:    ws,
		notifier:  notifier,
		templates: templates,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

func (s *service) Resolve(ctx context.Context, entryID uint, action Action, confirmations []bool) (*Resolution, error) {
	switch action {
	case ActionReview:
		return s.MarkReviewing(ctx, entryID, confirmations)
	case ActionApprove:
		return s.Approve(ctx, entryID)
	case ActionReject:
		return s.Reject(ctx, entryID)
	}
	return nil, apperrors.ErrInvalidRequest.Withf("Invalid status")
}

func (s *service) MarkReviewing(ctx context.Context, entryID uint, confirmations []bool) (*Resolution, error) {
	if len(confirmations) == 0 {
		confirmations = models.DefaultConfirmations()
	}
	entry, err := s.transition(ctx, ActionReview, entryID, func(tx repositories.LedgerRepository, e *models.LedgerEntry) error {
		next, err := e.Status.Transition(models.StatusProcessing)
		if err != nil {
			return err
		}
		e.Status = next
		e.Confirmations = append(e.Confirmations[:0:0], confirmations...)
		return tx.SaveEntry(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, entry, s.templates.AdminTxPending, "Pending")
	return &Resolution{Entry: entry}, nil
}

func (s *service) Approve(ctx context.Context, entryID uint) (*Resolution, error) {
	entry, err := s.transition(ctx, ActionApprove, entryID, func(tx repositories.LedgerRepository, e *models.LedgerEntry) error {
		next, err := e.Status.Transition(models.StatusCompleted)
		if err != nil {
			return err
		}
		now := s.now()
		e.Status = next
		e.CompletedAt = &now
		return tx.SaveEntry(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, entry, s.templates.AdminTxSuccess, "Completed")
	return &Resolution{Entry: entry}, nil
}

// Reject fails the entry and, in the same transaction, writes the
// counter-entry that reverses its balance change. The entry row lock
// serializes concurrent rejects of one entry; the loser sees AlreadyFinalized.
func (s *service) Reject(ctx context.Context, entryID uint) (*Resolution, error) {
	var (
		account *models.Account
		refund  *models.LedgerEntry
	)
	entry, err := s.transition(ctx, ActionReject, entryID, func(tx repositories.LedgerRepository, e *models.LedgerEntry) error {
		next, err := e.Status.Transition(models.StatusFailed)
		if err != nil {
			return err
		}
		e.Status = next
		if err := tx.SaveEntry(ctx, e); err != nil {
			return err
		}

		account, err = tx.LockAccount(ctx, e.PrimaryAccountID())
		if err != nil {
			return err
		}
		kind, counterparty := models.KindWithdrawalRefund, e.ToAddress
		if e.Direction == models.DirectionReceive {
			kind, counterparty = models.KindAdminAdjustment, e.FromAddress
		}
		refund, err = s.wallet.Apply(ctx, tx, account, wallet.Mutation{
			Asset:        e.Asset,
			Delta:        e.SignedAmount().Neg(),
			Kind:         kind,
			Price:        e.Price,
			Counterparty: counterparty,
			Metadata: map[string]interface{}{
				"note":     noteRefund,
				"refundOf": e.Reference,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	vars := commonVars(entry, account, "Rejected")
	if entry.Kind() == models.KindPaypalWithdrawal {
		vars["refundAmount"] = entry.Amount.String()
		vars["refundAsset"] = entry.Asset.Symbol()
	}
	s.wallet.Committed(ctx, account, refund, s.templates.AdminTxReject, vars)
	return &Resolution{Entry: entry, Refund: refund}, nil
}

func (s *service) ListPending(ctx context.Context, limit, offset int) ([]PendingItem, int64, error) {
	entries, total, err := s.repo.ListOpenEntries(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	owners := make(map[uint]*models.Account)
	items := make([]PendingItem, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		id := e.PrimaryAccountID()
		owner, seen := owners[id]
		if !seen {
			owner, err = s.repo.GetAccount(ctx, id)
			if err != nil && apperrors.KindOf(err) != apperrors.KindNotFound {
				return nil, 0, err
			}
			owners[id] = owner
		}

		item := PendingItem{
			ID:            e.ID,
			Name:          "-",
			Email:         "-",
			Amount:        e.Amount.String(),
			Asset:         e.Asset,
			Method:        e.MethodLabel(),
			Reference:     e.Reference,
			ToAddress:     e.ToAddress,
			Status:        e.Status,
			Confirmations: []bool(e.Confirmations),
			Date:          e.CreatedAt.Format("2006-01-02"),
			Time:          e.CreatedAt.Format("15:04"),
		}
		if owner != nil {
			item.Name, item.Email = owner.Name, owner.Email
		}
		if item.ToAddress == "" {
			item.ToAddress = "-"
		}
		if len(item.Confirmations) == 0 {
			item.Confirmations = models.DefaultConfirmations()
		}
		items = append(items, item)
	}
	return items, total, nil
}

func (s *service) transition(ctx context.Context, action Action, entryID uint, fn func(tx repositories.LedgerRepository, e *models.LedgerEntry) error) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		e, err := tx.LockEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if err := fn(tx, e); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		s.metrics.RecordResolution(string(action), outcome(err))
		s.log.Warn("transaction resolution failed",
			zap.Uint("entry_id", entryID),
			zap.String("action", string(action)),
			zap.Error(err))
		return nil, err
	}
	s.metrics.RecordResolution(string(action), "ok")
	s.log.Info("transaction resolved",
		zap.Uint("entry_id", entry.ID),
		zap.String("reference", entry.Reference),
		zap.String("action", string(action)),
		zap.String("status", string(entry.Status)))
	return entry, nil
}

func (s *service) notify(ctx context.Context, entry *models.LedgerEntry, template, status string) {
	account, err := s.repo.GetAccount(ctx, entry.PrimaryAccountID())
	if err != nil {
		s.log.Warn("resolution notice skipped", zap.Uint("entry_id", entry.ID), zap.Error(err))
		return
	}
	s.notifier.Notify(ctx, notification.Message{
		AccountID: account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Template:  template,
		Variables: commonVars(entry, account, status),
	})
}

func commonVars(e *models.LedgerEntry, account *models.Account, status string) notification.Vars {
	confirmed := 0
	for _, c := range e.Confirmations {
		if c {
			confirmed++
		}
	}
	dest := e.ToAddress
	if dest == "" {
		dest = "External Wallet"
	}
	v := notification.Vars{
		"userName":      account.Name,
		"amount":        e.Amount.String(),
		"asset":         e.Asset.Symbol(),
		"wallet":        dest,
		"txid":          e.Reference,
		"transactionId": e.Reference,
		"method":        e.MethodLabel(),
		"confirmations": strconv.Itoa(confirmed),
		"status":        status,
	}
	return v.Stamp(e.CreatedAt)
}

func outcome(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return "not_found"
	case apperrors.KindStateConflict:
		return "conflict"
	case apperrors.KindValidation:
		return "invalid"
	}
	return "error"
}
