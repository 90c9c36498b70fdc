package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNumericCode(t *testing.T) {
	six := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 200; i++ {
		code, err := GenerateNumericCode(6)
		require.NoError(t, err)
		assert.Regexp(t, six, code)
	}
}

func TestHashCode(t *testing.T) {
	h := HashCode("secret", "123456")
	assert.Len(t, h, 64)
	assert.NotEqual(t, h, HashCode("other", "123456"))
	assert.True(t, CodeMatches("secret", "123456", h))
	assert.False(t, CodeMatches("secret", "123457", h))
	assert.False(t, CodeMatches("secret", "", h))
}
