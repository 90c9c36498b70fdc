package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralReward is an audit record of one referral payout.
type ReferralReward struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	ReferrerID    uint            `gorm:"index;not null" json:"referrer_id"`
	ReferredID    uint            `gorm:"uniqueIndex;not null" json:"referred_id"`
	ReferrerEmail string          `json:"referrer_email"`
	ReferredEmail string          `json:"referred_email"`
	Amount        decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"amount"`
	Asset         Asset           `gorm:"type:varchar(16);not null" json:"asset"`
	CreatedAt     time.Time       `json:"created_at"`
}
