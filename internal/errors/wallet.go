package errors

var (
	ErrInsufficientBalance = newError(KindValidation, "INSUFFICIENT_BALANCE", "insufficient wallet balance")
	ErrInvalidAmount       = newError(KindValidation, "INVALID_AMOUNT", "invalid amount")
	ErrInvalidAsset        = newError(KindValidation, "INVALID_ASSET", "unsupported asset")
	ErrAccountNotFound     = newError(KindNotFound, "ACCOUNT_NOT_FOUND", "account not found")
	ErrEntryNotFound       = newError(KindNotFound, "TRANSACTION_NOT_FOUND", "transaction not found")
	ErrAlreadyFinalized    = newError(KindStateConflict, "ALREADY_FINALIZED", "Already finalized")
	ErrIllegalTransition   = newError(KindStateConflict, "ILLEGAL_TRANSITION", "status transition not allowed")
	ErrPriceUnavailable    = newError(KindDependencyUnavailable, "PRICE_UNAVAILABLE", "price unavailable")
)
