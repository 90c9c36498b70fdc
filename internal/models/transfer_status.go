package models

import (
	apperrors "vaultledger/internal/errors"
)

// TransferStatus is the lifecycle state of a LedgerEntry.
type TransferStatus string

const (
	StatusPending    TransferStatus = "pending"
	StatusPendingOTP TransferStatus = "pending_otp"
	StatusProcessing TransferStatus = "processing"
	StatusCompleted  TransferStatus = "completed"
	StatusFailed     TransferStatus = "failed"
)

// OpenStatuses are the statuses an admin may still resolve.
var OpenStatuses = []TransferStatus{StatusPending, StatusPendingOTP, StatusProcessing}

var transitions = map[TransferStatus]map[TransferStatus]bool{
	StatusPending:    {StatusProcessing: true, StatusCompleted: true, StatusFailed: true},
	StatusPendingOTP: {StatusProcessing: true, StatusCompleted: true, StatusFailed: true},
	StatusProcessing: {StatusProcessing: true, StatusCompleted: true, StatusFailed: true},
}

func (s TransferStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPendingOTP, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s TransferStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transition is the only place that decides whether a status change is legal.
// Terminal statuses never move again.
func (s TransferStatus) Transition(to TransferStatus) (TransferStatus, error) {
	if s.IsTerminal() {
		return s, apperrors.ErrAlreadyFinalized
	}
	if !transitions[s][to] {
		return s, apperrors.ErrIllegalTransition.Withf("cannot move transaction from %s to %s", s, to)
	}
	return to, nil
}
