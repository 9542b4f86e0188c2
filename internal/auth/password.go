// Package auth holds the credential primitives: bcrypt password hashing and
// HS256 bearer tokens.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinBcryptCost = 4
	MaxBcryptCost = 20
)

// ErrInvalidCost is a configuration error: the bcrypt cost is out of range.
var ErrInvalidCost = fmt.Errorf("bcrypt cost must be between %d and %d", MinBcryptCost, MaxBcryptCost)

// HashPassword hashes plaintext with bcrypt at the given cost.
func HashPassword(plaintext string, cost int) (string, error) {
	if cost < MinBcryptCost || cost > MaxBcryptCost {
		return "", ErrInvalidCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches hash. A malformed hash is a mismatch.
func VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// PasswordHasher hashes with a fixed cost and keeps a dummy hash so that
// logins for unknown accounts cost the same as real ones.
type PasswordHasher struct {
	cost  int
	dummy string
}

func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	dummy, err := HashPassword("dummy-password-for-timing", cost)
	if err != nil {
		return nil, err
	}
	return &PasswordHasher{cost: cost, dummy: dummy}, nil
}

func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	return HashPassword(plaintext, h.cost)
}

func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	return VerifyPassword(plaintext, hash)
}

// VerifyDummy burns one comparison against the dummy hash. It always reports false.
func (h *PasswordHasher) VerifyDummy(plaintext string) bool {
	_ = VerifyPassword(plaintext, h.dummy)
	return false
}

// Cost returns the configured bcrypt cost.
func (h *PasswordHasher) Cost() int {
	return h.cost
}

