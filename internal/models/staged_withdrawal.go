package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "vaultledger/internal/errors"
)

// WithdrawalChannel is an off-platform payout rail.
type WithdrawalChannel string

const (
	ChannelPaypal WithdrawalChannel = "paypal"
	ChannelBank   WithdrawalChannel = "bank"
)

func ParseChannel(raw string) (WithdrawalChannel, error) {
	switch WithdrawalChannel(strings.ToLower(strings.TrimSpace(raw))) {
	case ChannelPaypal:
		return ChannelPaypal, nil
	case ChannelBank:
		return ChannelBank, nil
	}
	return "", apperrors.ErrInvalidChannel
}

func (c WithdrawalChannel) EntryKind() EntryKind {
	if c == ChannelBank {
		return KindBankWithdrawal
	}
	return KindPaypalWithdrawal
}

func (c WithdrawalChannel) ReferencePrefix() string {
	if c == ChannelBank {
		return "BANK"
	}
	return "PAYPAL"
}

// WithdrawalDestination holds the payout details for either channel.
type WithdrawalDestination struct {
	PaypalEmail   string `json:"paypal_email,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	AccountHolder string `json:"account_holder,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	RoutingCode   string `json:"routing_code,omitempty"`
}

// Label is the counterpart string recorded on the ledger entry. Bank
// account numbers are masked to their last four digits.
func (d WithdrawalDestination) Label(c WithdrawalChannel) string {
	if c == ChannelPaypal {
		return d.PaypalEmail
	}
	return strings.TrimSpace(d.BankName + " ****" + d.Last4())
}

func (d WithdrawalDestination) Last4() string {
	if len(d.AccountNumber) > 4 {
		return d.AccountNumber[len(d.AccountNumber)-4:]
	}
	return d.AccountNumber
}

// StagedWithdrawal is the single OTP-protected withdrawal request an account
// may have outstanding. Issuing a new one replaces the previous row.
type StagedWithdrawal struct {
	AccountID   uint                  `gorm:"primaryKey;autoIncrement:false"`
	Channel     WithdrawalChannel     `gorm:"type:varchar(16);not null"`
	CodeHash    string                `gorm:"not null"`
	ExpiresAt   time.Time             `gorm:"index;not null"`
	Asset       Asset                 `gorm:"type:varchar(16);not null"`
	Amount      decimal.Decimal       `gorm:"type:numeric(38,18);not null"`
	QuoteAmount decimal.Decimal       `gorm:"type:numeric(38,18);not null"`
	Destination WithdrawalDestination `gorm:"embedded;embeddedPrefix:dest_"`
	CreatedAt   time.Time
}

func (s *StagedWithdrawal) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
