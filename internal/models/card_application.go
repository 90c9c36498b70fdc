package models

import "time"

// CardApplication is the debit card record consulted for withdrawal eligibility.
type CardApplication struct {
	ID           uint   `gorm:"primarykey"`
	AccountID    uint   `gorm:"uniqueIndex;not null"`
	Status       string `gorm:"not null;default:'PENDING'"`
	StripeCardID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
