package types

import "time"

// User represents an account in the system.
// It carries identity, credential, MFA and password-reset state.
type User struct {
	// ID is the unique, immutable identifier of the user.
	ID string `json:"id" db:"id"`

	// FullName is the user's display name.
	FullName string `json:"fullName" db:"full_name"`

	// Email is the unique login identifier, compared exactly as stored.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// MFAEnabled reports whether a TOTP second factor is required at login.
	MFAEnabled bool `json:"mfaEnabled" db:"mfa_enabled"`

	// MFASecret is the base32 TOTP shared secret. It is set when MFA setup
	// begins and cleared when MFA is disabled.
	MFASecret *string `json:"-" db:"mfa_secret"`

	// ResetToken is the single-use password-reset token, if one is pending.
	ResetToken *string `json:"-" db:"reset_token"`

	// ResetTokenExpiresAt bounds the validity of ResetToken.
	ResetTokenExpiresAt *time.Time `json:"-" db:"reset_token_expires_at"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HasMFASecret reports whether an MFA secret has been provisioned.
func (u User) HasMFASecret() bool {
	return u.MFASecret != nil && *u.MFASecret != ""
}
