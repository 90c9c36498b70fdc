package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorMatchesByCode(t *testing.T) {
	derived := ErrSpinCooldown.Withf("Please wait %d hours", 3)

	assert.True(t, stderrors.Is(derived, ErrSpinCooldown))
	assert.False(t, stderrors.Is(derived, ErrInvalidPrize))
	assert.Equal(t, "Please wait 3 hours", derived.Error())
	assert.Equal(t, "spin is cooling down", ErrSpinCooldown.Message)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := fmt.Errorf("save account: %w", ErrPersistence.Wrap(cause))

	assert.True(t, stderrors.Is(err, ErrPersistence))
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, KindPersistence, KindOf(err))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", ErrInvalidAsset, KindValidation},
		{"not found", ErrAccountNotFound, KindNotFound},
		{"conflict", ErrAlreadyFinalized, KindStateConflict},
		{"dependency", ErrPriceUnavailable, KindDependencyUnavailable},
		{"foreign error", stderrors.New("boom"), KindPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
