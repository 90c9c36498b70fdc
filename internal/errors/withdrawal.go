package errors

var (
	// ErrInvalidOrExpiredCode is deliberately the same for a missing request,
	// a wrong code and an expired code.
	ErrInvalidOrExpiredCode   = newError(KindStateConflict, "INVALID_OR_EXPIRED_OTP", "Invalid or expired OTP")
	ErrVerificationFailed     = newError(KindStateConflict, "VERIFICATION_FAILED", "Verification failed")
	ErrInvalidDestination     = newError(KindValidation, "INVALID_DESTINATION", "invalid withdrawal destination")
	ErrInvalidChannel         = newError(KindValidation, "INVALID_CHANNEL", "unsupported withdrawal channel")
	ErrEligibilityUnavailable = newError(KindDependencyUnavailable, "ELIGIBILITY_UNAVAILABLE", "eligibility lookup failed")
	ErrNoStagedWithdrawal     = newError(KindNotFound, "NO_STAGED_WITHDRAWAL", "no withdrawal request outstanding")
)
