package auth

import (
	"crypto/rand"
	"encoding/hex"
)

// resetTokenBytes gives reset tokens 256 bits of entropy.
const resetTokenBytes = 32

// NewResetToken returns a hex-encoded random password-reset token.
func NewResetToken() (string, error) {
	var buf [resetTokenBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
