package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("Secr3t!pass", MinBcryptCost)
	require.NoError(t, err)

	assert.NotContains(t, hash, "Secr3t!pass")
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.True(t, VerifyPassword("Secr3t!pass", hash))
	assert.False(t, VerifyPassword("secr3t!pass", hash))
}

func TestHashPassword_InvalidCost(t *testing.T) {
	for _, cost := range []int{0, 3, 21, 31} {
		_, err := HashPassword("Secr3t!pass", cost)
		assert.ErrorIs(t, err, ErrInvalidCost, "cost %d", cost)
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("anything", "not-a-bcrypt-hash"))
	assert.False(t, VerifyPassword("anything", ""))
}

func TestPasswordHasher(t *testing.T) {
	h, err := NewPasswordHasher(MinBcryptCost)
	require.NoError(t, err)
	assert.Equal(t, MinBcryptCost, h.Cost())

	hash, err := h.Hash("Another1!")
	require.NoError(t, err)
	assert.True(t, h.Verify("Another1!", hash))
	assert.False(t, h.VerifyDummy("dummy-password-for-timing"))

	_, err = NewPasswordHasher(99)
	assert.ErrorIs(t, err, ErrInvalidCost)
}
