package validation

import (
	"strings"

	apperrors "vaultledger/internal/errors"
)

const minPasswordLength = 8

func HasSpecialChar(s string) bool {
	specialChars := "!@#$%^&*()_+-=[]{}|;:,.<>?`~"
	for _, char := range s {
		if strings.ContainsRune(specialChars, char) {
			return true
		}
	}
	return false
}

// Password enforces the account password policy.
func Password(pw string) error {
	if len(pw) < minPasswordLength || !HasSpecialChar(pw) {
		return apperrors.ErrInvalidRequest.Withf("password must be at least 8 characters and contain special characters")
	}
	return nil
}
