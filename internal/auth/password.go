// Package auth holds the credential primitives used by the auth flows:
// password hashing, session tokens, TOTP and reset-token generation.
package auth

import "golang.org/x/crypto/bcrypt"

// DefaultPasswordCost keeps a bcrypt verification in the tens of milliseconds.
const DefaultPasswordCost = 10

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns a salted bcrypt hash of plaintext. Input past 72 bytes is
// truncated, matching what bcrypt itself would compare.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(truncatePassword(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes never match.
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(plaintext)) == nil
}

func truncatePassword(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > 72 {
		b = b[:72]
	}
	return b
}
