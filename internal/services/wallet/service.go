package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultledger/internal/config"
	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/metrics"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
	"vaultledger/internal/services/notification"
)

type service struct {
	repo      repositories.LedgerRepository
	prices    PriceProvider
	addresses AddressGenerator
	notifier  notification.Notifier
	templates config.Templates
	metrics   metrics.Collector
	cache     AccountCache
	log       *zap.Logger
	now       func() time.Time
}

// Option configures optional collaborators of the wallet service.
type Option func(*service)

// WithAccountCache serves wallet views from c. The store drops entries when
// an account is written.
func WithAccountCache(c AccountCache) Option {
	return func(s *service) {
		s.cache = c
	}
}

// NewService creates the wallet service. metrics and log may be nil.
func NewService(
	repo repositories.LedgerRepository,
	prices PriceProvider,
	addresses AddressGenerator,
	notifier notification.Notifier,
	templates config.Templates,
	m metrics.Collector,
	log *zap.Logger,
	opts ...Option,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if prices == nil {
		panic("price provider is required")
	}
	if notifier == nil {
		panic("notifier is required")
	}
	if addresses == nil {
		addresses = RandomAddresses{}
	}
	if m == nil {
		m = metrics.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &service{
		repo:      repo,
		prices:    prices,
		addresses: addresses,
		notifier:  notifier,
		templates: templates,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewReference builds a client visible transaction id such as
// "REF-1718000000000-9f86d081".
func NewReference(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *service) Quote(ctx context.Context, asset models.Asset) decimal.Decimal {
	price, err := s.prices.Price(ctx, asset)
	if err != nil {
		s.log.Warn("price unavailable, recording zero value", zap.String("asset", string(asset)), zap.Error(err))
		return decimal.Zero
	}
	if !price.IsPositive() {
		return decimal.Zero
	}
	return price
}

func (s *service) Apply(ctx context.Context, tx repositories.LedgerRepository, account *models.Account, m Mutation) (*models.LedgerEntry, error) {
	if !m.Asset.Valid() {
		return nil, apperrors.ErrInvalidAsset.Withf("unsupported asset %q", m.Asset)
	}
	if m.Delta.IsZero() {
		return nil, nil
	}

	account.EnsureMappings()
	next := account.Balances.Get(m.Asset).Add(m.Delta)
	if next.IsNegative() {
		return nil, apperrors.ErrInsufficientBalance.Withf("insufficient %s balance", m.Asset.Symbol())
	}

	now := s.now()
	direction := models.DirectionReceive
	if m.Delta.IsNegative() {
		direction = models.DirectionSend
	}
	amount := m.Delta.Abs()
	price := m.Price
	if price.IsNegative() {
		price = decimal.Zero
	}

	own := s.addressFor(account, m.Asset)
	counterpart := m.Counterparty
	if counterpart == "" {
		counterpart = s.addresses.Address(m.Asset)
	}
	from, to := counterpart, own
	if direction == models.DirectionSend {
		from, to = own, counterpart
	}

	status := m.Status
	if status == "" {
		status = models.StatusCompleted
	}
	ref := m.Reference
	if ref == "" {
		ref = NewReference(referencePrefix(m.Kind), now)
	}

	entry := &models.LedgerEntry{
		Reference:     ref,
		FromAccountID: account.ID,
		ToAccountID:   account.ID,
		FromAddress:   from,
		ToAddress:     to,
		Asset:         m.Asset,
		Amount:        amount,
		Price:         price,
		Value:         amount.Mul(price),
		Direction:     direction,
		Status:        status,
		Metadata:      models.NewJSON(m.Kind, m.Metadata),
		CreatedAt:     now,
	}
	if status == models.StatusCompleted {
		entry.CompletedAt = &now
	}

	account.Balances[m.Asset] = next
	if err := tx.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	if err := tx.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) AdjustBalance(ctx context.Context, req AdjustRequest) (*Result, error) {
	asset, err := models.ParseAsset(req.Asset)
	if err != nil {
		return nil, err
	}
	target, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return nil, apperrors.ErrInvalidAmount.Withf("amount must be numeric")
	}
	if target.IsNegative() {
		return nil, apperrors.ErrInvalidAmount.Withf("amount must not be negative")
	}

	price := s.Quote(ctx, asset)

	var result Result
	err = s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		account, err := tx.LockAccount(ctx, req.AccountID)
		if err != nil {
			return err
		}
		previous := account.Balances.Get(asset)
		delta := target.Sub(previous)

		note := noteAdminCredit
		if delta.IsNegative() {
			note = noteAdminDebit
		}
		entry, err := s.Apply(ctx, tx, account, Mutation{
			Asset: asset,
			Delta: delta,
			Kind:  models.KindAdminAdjustment,
			Price: price,
			Metadata: map[string]interface{}{
				"note":            note,
				"txHash":          s.addresses.TxHash(),
				"previousBalance": previous.String(),
				"newBalance":      target.String(),
			},
		})
		if err != nil {
			return err
		}
		result = Result{Account: account, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Entry == nil {
		return &result, nil
	}

	tpl := s.templates.AdminBalanceCredit
	if result.Entry.Direction == models.DirectionSend {
		tpl = s.templates.AdminBalanceDebit
	}
	s.Committed(ctx, result.Account, result.Entry, tpl, notification.Vars{
		"newBalance": target.String(),
	})
	return &result, nil
}

// Committed runs the post-commit side effects of a mutation: metrics and a
// best-effort notification. Standard entry variables are merged into vars.
func (s *service) Committed(ctx context.Context, account *models.Account, entry *models.LedgerEntry, template string, vars notification.Vars) {
	if entry == nil {
		return
	}
	s.metrics.RecordMutation(string(entry.Kind()), string(entry.Direction))
	s.log.Info("balance mutated",
		zap.Uint("account_id", account.ID),
		zap.String("reference", entry.Reference),
		zap.String("kind", string(entry.Kind())),
		zap.String("asset", string(entry.Asset)),
		zap.String("direction", string(entry.Direction)),
		zap.String("amount", entry.Amount.String()))

	if vars == nil {
		vars = notification.Vars{}
	}
	base := notification.Vars{
		"userName":      account.Name,
		"asset":         entry.Asset.Symbol(),
		"amount":        entry.Amount.String(),
		"usdValue":      notification.FormatUSD(entry.Value),
		"transactionId": entry.Reference,
		"type":          string(entry.Direction),
		"status":        string(entry.Status),
	}
	for k, v := range base {
		if _, set := vars[k]; !set {
			vars[k] = v
		}
	}
	s.notifier.Notify(ctx, notification.Message{
		AccountID: account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Template:  template,
		Variables: vars.Stamp(s.now()),
	})
}

// addressFor returns the account's display address for asset, generating
// and recording one on first use.
func (s *service) addressFor(account *models.Account, asset models.Asset) string {
	if addr, ok := account.Addresses[asset]; ok && addr != "" {
		return addr
	}
	addr := s.addresses.Address(asset)
	account.Addresses[asset] = addr
	return addr
}

func referencePrefix(kind models.EntryKind) string {
	switch kind {
	case models.KindWelcomeBonus:
		return RefPrefixWelcome
	case models.KindReferralReward:
		return RefPrefixReferral
	case models.KindSpinReward:
		return RefPrefixSpin
	case models.KindWithdrawalRefund:
		return RefPrefixRefund
	case models.KindPaypalWithdrawal:
		return models.ChannelPaypal.ReferencePrefix()
	case models.KindBankWithdrawal:
		return models.ChannelBank.ReferencePrefix()
	default:
		return RefPrefixAdjustment
	}
}
