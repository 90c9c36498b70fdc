package errors

var (
	ErrEmailTaken         = newError(KindStateConflict, "EMAIL_TAKEN", "email already registered")
	ErrInvalidCredentials = newError(KindValidation, "INVALID_CREDENTIALS", "invalid email or password")
	ErrInvalidToken       = newError(KindValidation, "INVALID_TOKEN", "invalid or expired token")
)
