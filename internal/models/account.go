package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is a user's custodial multi-asset balance record.
type Account struct {
	ID               uint        `gorm:"primarykey" json:"id"`
	Email            string      `gorm:"uniqueIndex;not null" json:"email"`
	Name             string      `gorm:"not null" json:"name"`
	PasswordHash     string      `gorm:"not null" json:"-"`
	Role             string      `gorm:"default:'user'" json:"role"`
	Balances         Balances    `gorm:"type:jsonb;not null" json:"balances"`
	Addresses        AddressBook `gorm:"type:jsonb" json:"addresses"`
	LastSpinAt       *time.Time  `json:"last_spin_at,omitempty"`
	ReferralCode     string      `gorm:"uniqueIndex;not null" json:"referral_code"`
	ReferredBy       string      `gorm:"index" json:"referred_by,omitempty"`
	ReferralRewarded bool        `gorm:"default:false" json:"referral_rewarded"`
	TokenVersion     int         `gorm:"default:1" json:"-"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	a.EnsureMappings()
	return nil
}

// EnsureMappings makes Balances total and Addresses non-nil.
func (a *Account) EnsureMappings() {
	a.Balances = a.Balances.Clone()
	if a.Addresses == nil {
		a.Addresses = AddressBook{}
	}
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	c := *a
	c.Balances = a.Balances.Clone()
	c.Addresses = a.Addresses.Clone()
	if a.LastSpinAt != nil {
		t := *a.LastSpinAt
		c.LastSpinAt = &t
	}
	return &c
}
