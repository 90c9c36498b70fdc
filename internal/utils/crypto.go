package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"
)

// GenerateNumericCode returns a uniformly random code of exactly digits
// decimal digits, leading zeros included.
func GenerateNumericCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	s := n.String()
	return strings.Repeat("0", digits-len(s)) + s, nil
}

// HashCode is the keyed one-way hash stored in place of an OTP.
func HashCode(secret, code string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// CodeMatches compares a candidate code against a stored hash in constant time.
func CodeMatches(secret, code, hash string) bool {
	return hmac.Equal([]byte(HashCode(secret, code)), []byte(hash))
}
