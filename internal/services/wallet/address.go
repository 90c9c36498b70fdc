package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"

	"vaultledger/internal/models"
)

const (
	addressBodyLength = 34
	addressAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// RandomAddresses generates display-only placeholder addresses. They are
// never valid on any chain.
type RandomAddresses struct{}

func (RandomAddresses) Address(asset models.Asset) string {
	return asset.AddressPrefix() + randomString(addressBodyLength)
}

// TxHash returns "0x" followed by 64 hex characters.
func (RandomAddresses) TxHash() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return "0x" + hex.EncodeToString(b)
}

func randomString(n int) string {
	max := big.NewInt(int64(len(addressAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		out[i] = addressAlphabet[idx.Int64()]
	}
	return string(out)
}
