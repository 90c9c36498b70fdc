package errors

var (
	ErrSpinCooldown = newError(KindStateConflict, "SPIN_COOLDOWN", "spin is cooling down")
	ErrInvalidPrize = newError(KindValidation, "INVALID_PRIZE", "invalid prize amount")
)
