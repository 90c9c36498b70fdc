package withdrawal

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/metrics"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
	"vaultledger/internal/services/eligibility"
	"vaultledger/internal/services/notification"
	"vaultledger/internal/services/wallet"
	"vaultledger/internal/utils"
	"vaultledger/internal/validation"
)

type service struct {
	repo     repositories.LedgerRepository
	wallet   wallet.Service
	checker  eligibility.Checker
	notifier notification.Notifier
	cfg      Config
	metrics  metrics.Collector
	log      *zap.Logger
	now      func() time.Time
}

func NewService(
	repo repositories.LedgerRepository,
	ws wallet.Service,
	checker eligibility.Checker,
	notifier notification.Notifier,
	cfg Config,
	m metrics.Collector,
	log *zap.Logger,
) Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if m == nil {
		m = metrics.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		repo:     repo,
		wallet:   ws,
		checker:  checker,
		notifier: notifier,
		cfg:      cfg,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

func (s *service) Issue(ctx context.Context, accountID uint, req Request) (*Issued, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	channel, err := models.ParseChannel(req.Channel)
	if err != nil {
		return nil, err
	}
	asset, err := models.ParseAsset(req.Asset)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount.Withf("amount must be a positive number")
	}
	dest, err := destinationFor(channel, req)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Balances.Get(asset).LessThan(amount) {
		return nil, apperrors.ErrInsufficientBalance.Withf("insufficient %s balance", asset.Symbol())
	}

	var quote decimal.Decimal
	if strings.TrimSpace(req.USDAmount) != "" {
		quote, _ = decimal.NewFromString(strings.TrimSpace(req.USDAmount))
	} else {
		quote = amount.Mul(s.wallet.Quote(ctx, asset)).Round(2)
	}

	code, err := utils.GenerateNumericCode(CodeDigits)
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}
	now := s.now()
	staged := &models.StagedWithdrawal{
		AccountID:   accountID,
		Channel:     channel,
		CodeHash:    utils.HashCode(s.cfg.Secret, code),
		ExpiresAt:   now.Add(s.cfg.TTL),
		Asset:       asset,
		Amount:      amount,
		QuoteAmount: quote,
		Destination: dest,
		CreatedAt:   now,
	}
	if err := s.repo.ReplaceStagedWithdrawal(ctx, staged); err != nil {
		return nil, err
	}

	otpTpl, _, _ := s.templates(channel)
	vars := notification.Vars{
		"userName":    account.Name,
		"otp":         code,
		"asset":       asset.Symbol(),
		"amount":      amount.String(),
		"usdAmount":   notification.FormatUSD(quote),
		"destination": dest.Label(channel),
		"paypalEmail": dest.PaypalEmail,
	}
	s.notifier.Notify(ctx, notification.Message{
		AccountID: account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Template:  otpTpl,
		Variables: vars.Stamp(now),
	})
	s.log.Info("withdrawal code issued",
		zap.Uint("account_id", accountID),
		zap.String("channel", string(channel)),
		zap.String("asset", string(asset)),
		zap.Time("expires_at", staged.ExpiresAt))

	return &Issued{Channel: channel, ExpiresAt: staged.ExpiresAt}, nil
}

func (s *service) Verify(ctx context.Context, accountID uint, rawChannel, code string) (*Outcome, error) {
	channel, err := models.ParseChannel(rawChannel)
	if err != nil {
		return nil, err
	}
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	// Eligibility is resolved before the code is consumed so an upstream
	// failure leaves the request retryable.
	cardStatus, err := s.checker.Status(ctx, accountID)
	if err != nil {
		s.metrics.RecordOTPVerification("unavailable")
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.ErrEligibilityUnavailable.Wrap(err)
	}

	staged, err := s.repo.TakeStagedWithdrawal(ctx, accountID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			s.metrics.RecordOTPVerification("invalid")
			return nil, apperrors.ErrInvalidOrExpiredCode
		}
		return nil, err
	}

	now := s.now()
	if staged.Expired(now) || staged.Channel != channel || !utils.CodeMatches(s.cfg.Secret, code, staged.CodeHash) {
		s.metrics.RecordOTPVerification("invalid")
		return nil, apperrors.ErrInvalidOrExpiredCode
	}
	if !staged.Asset.Valid() || !staged.Amount.IsPositive() {
		s.metrics.RecordOTPVerification("invalid")
		s.log.Error("staged withdrawal payload is malformed", zap.Uint("account_id", accountID))
		return nil, apperrors.ErrVerificationFailed
	}

	label := staged.Destination.Label(channel)
	out := &Outcome{
		Reference:   wallet.NewReference(channel.ReferencePrefix(), now),
		Channel:     channel,
		Asset:       staged.Asset,
		Amount:      staged.Amount,
		USDAmount:   staged.QuoteAmount,
		Destination: label,
		CardStatus:  cardStatus,
	}
	_, pendingTpl, failedTpl := s.templates(channel)
	vars := notification.Vars{
		"cryptoAmount": notification.FormatCrypto(staged.Amount, 8),
		"usdAmount":    notification.FormatUSD(staged.QuoteAmount),
		"destination":  label,
		"paypalEmail":  staged.Destination.PaypalEmail,
		"cardStatus":   string(cardStatus),
	}

	if !cardStatus.Qualifies() {
		out.Status = models.StatusFailed
		s.metrics.RecordOTPVerification("failed")
		s.log.Info("withdrawal failed eligibility",
			zap.Uint("account_id", accountID),
			zap.String("reference", out.Reference),
			zap.String("card_status", string(cardStatus)))
		vars["userName"] = account.Name
		vars["asset"] = staged.Asset.Symbol()
		vars["transactionId"] = out.Reference
		vars["status"] = string(out.Status)
		s.notifier.Notify(ctx, notification.Message{
			AccountID: account.ID,
			Email:     account.Email,
			Name:      account.Name,
			Template:  failedTpl,
			Variables: vars.Stamp(now),
		})
		return out, nil
	}

	// The client's usdAmount is display data only; the entry is priced here.
	price := s.wallet.Quote(ctx, staged.Asset)

	var debited *models.Account
	err = s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		locked, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		entry, err := s.wallet.Apply(ctx, tx, locked, wallet.Mutation{
			Asset:        staged.Asset,
			Delta:        staged.Amount.Neg(),
			Kind:         channel.EntryKind(),
			Status:       models.StatusProcessing,
			Reference:    out.Reference,
			Price:        price,
			Counterparty: label,
			Metadata:     withdrawalMetadata(channel, staged),
		})
		if err != nil {
			return err
		}
		out.Entry = entry
		debited = locked
		return nil
	})
	if err != nil {
		s.metrics.RecordOTPVerification("error")
		return nil, err
	}

	out.Status = models.StatusProcessing
	s.metrics.RecordOTPVerification("processing")
	s.wallet.Committed(ctx, debited, out.Entry, pendingTpl, vars)
	return out, nil
}

func (s *service) templates(c models.WithdrawalChannel) (otp, pending, failed string) {
	t := s.cfg.Templates
	if c == models.ChannelBank {
		return t.BankWithdrawalOTP, t.BankWithdrawalPending, t.BankWithdrawalFailed
	}
	return t.PaypalWithdrawalOTP, t.PaypalWithdrawalPending, t.PaypalWithdrawalFailed
}

func destinationFor(c models.WithdrawalChannel, req Request) (models.WithdrawalDestination, error) {
	d := models.WithdrawalDestination{
		PaypalEmail:   strings.TrimSpace(req.PaypalEmail),
		BankName:      strings.TrimSpace(req.BankName),
		AccountHolder: strings.TrimSpace(req.AccountHolder),
		AccountNumber: strings.TrimSpace(req.AccountNumber),
		RoutingCode:   strings.TrimSpace(req.RoutingCode),
	}
	switch c {
	case models.ChannelPaypal:
		if d.PaypalEmail == "" {
			return d, apperrors.ErrInvalidDestination.Withf("paypalEmail is required")
		}
		return models.WithdrawalDestination{PaypalEmail: d.PaypalEmail}, nil
	case models.ChannelBank:
		if d.BankName == "" || d.AccountHolder == "" || d.AccountNumber == "" {
			return d, apperrors.ErrInvalidDestination.Withf("bankName, accountHolder and accountNumber are required")
		}
		d.PaypalEmail = ""
		return d, nil
	}
	return d, apperrors.ErrInvalidChannel
}

func withdrawalMetadata(c models.WithdrawalChannel, w *models.StagedWithdrawal) map[string]interface{} {
	md := map[string]interface{}{
		"channel":   string(c),
		"usdAmount": w.QuoteAmount.String(),
	}
	if c == models.ChannelPaypal {
		md["paypalEmail"] = w.Destination.PaypalEmail
		return md
	}
	md["bankName"] = w.Destination.BankName
	md["accountHolder"] = w.Destination.AccountHolder
	md["accountLast4"] = w.Destination.Last4()
	if w.Destination.RoutingCode != "" {
		md["routingCode"] = w.Destination.RoutingCode
	}
	return md
}
