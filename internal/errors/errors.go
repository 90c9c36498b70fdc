package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a DomainError for callers and transports.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindNotFound              Kind = "not_found"
	KindStateConflict         Kind = "state_conflict"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindPersistence           Kind = "persistence"
)

// DomainError is the error type returned across service boundaries.
// Two DomainErrors are considered equal by errors.Is when their codes match.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap returns a copy of e carrying err as its cause.
func (e *DomainError) Wrap(err error) *DomainError {
	c := *e
	c.Err = err
	return &c
}

// Withf returns a copy of e with a formatted message.
func (e *DomainError) Withf(format string, args ...interface{}) *DomainError {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// KindOf reports the kind of the first DomainError in err's chain.
// Errors outside the taxonomy are treated as persistence failures.
func KindOf(err error) Kind {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Kind
	}
	return KindPersistence
}

// As is a convenience around errors.As for DomainError.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	ok := stderrors.As(err, &de)
	return de, ok
}

func newError(kind Kind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

var (
	ErrPersistence    = newError(KindPersistence, "PERSISTENCE_FAILURE", "store operation failed")
	ErrInvalidRequest = newError(KindValidation, "INVALID_REQUEST", "invalid request")
	ErrDuplicate      = newError(KindStateConflict, "DUPLICATE", "record already exists")
)
