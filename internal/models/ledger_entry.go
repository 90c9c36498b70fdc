package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Direction is relative to the primary account of an entry.
type Direction string

const (
	DirectionSend    Direction = "Send"
	DirectionReceive Direction = "Receive"
)

// EntryKind is the machine readable reason stored under Metadata["type"].
type EntryKind string

const (
	KindWelcomeBonus     EntryKind = "WELCOME_BONUS"
	KindReferralReward   EntryKind = "REFERRAL_REWARD"
	KindSpinReward       EntryKind = "SPIN_REWARD"
	KindBankWithdrawal   EntryKind = "BANK_WITHDRAWAL"
	KindPaypalWithdrawal EntryKind = "PAYPAL_WITHDRAWAL"
	KindAdminAdjustment  EntryKind = "ADMIN_ADJUSTMENT"
	KindWithdrawalRefund EntryKind = "WITHDRAWAL_REFUND"
)

// ConfirmationSteps is the length of a fresh confirmation progress list.
const ConfirmationSteps = 4

// LedgerEntry records one signed balance change. Only Status, Confirmations
// and CompletedAt change after creation.
type LedgerEntry struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Reference     string          `gorm:"uniqueIndex;not null" json:"transaction_id"`
	FromAccountID uint            `gorm:"index;not null" json:"from_account_id"`
	ToAccountID   uint            `gorm:"index;not null" json:"to_account_id"`
	FromAddress   string          `json:"from_address"`
	ToAddress     string          `json:"to_address"`
	Asset         Asset           `gorm:"type:varchar(16);not null;index" json:"asset"`
	Amount        decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"amount"`
	Price         decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"price"`
	Value         decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"value"`
	Direction     Direction       `gorm:"type:varchar(8);not null" json:"type"`
	Status        TransferStatus  `gorm:"type:varchar(16);not null;index" json:"status"`
	Metadata      JSON            `gorm:"type:jsonb" json:"metadata"`
	Confirmations pq.BoolArray    `gorm:"type:boolean[]" json:"confirmations"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// SignedAmount is Amount with the sign of the balance change it recorded.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Direction == DirectionSend {
		return e.Amount.Neg()
	}
	return e.Amount
}

// PrimaryAccountID is the account whose balance the entry changed.
func (e *LedgerEntry) PrimaryAccountID() uint {
	if e.Direction == DirectionSend {
		return e.FromAccountID
	}
	return e.ToAccountID
}

func (e *LedgerEntry) Kind() EntryKind {
	return EntryKind(e.Metadata.String("type"))
}

// MethodLabel is the payout method shown to admins.
func (e *LedgerEntry) MethodLabel() string {
	switch e.Kind() {
	case KindBankWithdrawal:
		return "Bank Transfer"
	case KindPaypalWithdrawal:
		return "Paypal"
	default:
		return "Crypto"
	}
}

// Clone returns a deep copy.
func (e *LedgerEntry) Clone() *LedgerEntry {
	c := *e
	if e.Metadata != nil {
		c.Metadata = make(JSON, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	if e.Confirmations != nil {
		c.Confirmations = append(pq.BoolArray(nil), e.Confirmations...)
	}
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// DefaultConfirmations is the progress recorded when an admin supplies none.
func DefaultConfirmations() []bool {
	return make([]bool, ConfirmationSteps)
}
