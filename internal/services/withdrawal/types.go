package withdrawal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"vaultledger/internal/config"
	"vaultledger/internal/models"
	"vaultledger/internal/services/eligibility"
)

// CodeDigits is the length of a withdrawal OTP.
const CodeDigits = 6

// Config carries the OTP secret and lifetime plus the mail templates.
type Config struct {
	Secret    string
	TTL       time.Duration
	Templates config.Templates
}

// Request is the withdrawal a user asks to stage behind an OTP.
type Request struct {
	Channel       string `json:"channel" validate:"required,channel"`
	Asset         string `json:"asset" validate:"required,asset"`
	Amount        string `json:"amount" validate:"required,decimal=positive"`
	USDAmount     string `json:"usdAmount" validate:"omitempty,decimal=nonnegative"`
	PaypalEmail   string `json:"paypalEmail" validate:"omitempty,email"`
	BankName      string `json:"bankName"`
	AccountHolder string `json:"accountHolder"`
	AccountNumber string `json:"accountNumber" validate:"omitempty,numeric,min=4"`
	RoutingCode   string `json:"routingCode"`
}

// Issued acknowledges a staged request.
type Issued struct {
	Channel   models.WithdrawalChannel `json:"channel"`
	ExpiresAt time.Time                `json:"expiresAt"`
}

// Outcome is the result of a verified code. Entry is nil when the account
// was not eligible and the request failed without touching the ledger.
type Outcome struct {
	Status      models.TransferStatus    `json:"status"`
	Reference   string                   `json:"transactionId"`
	Channel     models.WithdrawalChannel `json:"channel"`
	Asset       models.Asset             `json:"asset"`
	Amount      decimal.Decimal          `json:"amount"`
	USDAmount   decimal.Decimal          `json:"usdAmount"`
	Destination string                   `json:"destination"`
	CardStatus  eligibility.Status       `json:"cardStatus"`
	Entry       *models.LedgerEntry      `json:"-"`
}

// Service is the OTP gated withdrawal flow.
type Service interface {
	Issue(ctx context.Context, accountID uint, req Request) (*Issued, error)
	Verify(ctx context.Context, accountID uint, channel, code string) (*Outcome, error)
}
