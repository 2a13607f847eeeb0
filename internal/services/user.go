package services

import (
	"context"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
)

// UserRepository is the credential store behind the auth flows.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)

	// SetMFASecret stores a pending secret and leaves MFA disabled.
	SetMFASecret(ctx context.Context, id, secret string) error
	// EnableMFA flips mfa_enabled on. It fails with store.ErrNotFound when
	// no secret is stored.
	EnableMFA(ctx context.Context, id string) error
	// DisableMFA turns MFA off and clears the secret.
	DisableMFA(ctx context.Context, id string) error

	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	// ConsumeResetToken atomically swaps the password hash and clears the
	// token when it matches and expires strictly after now.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (types.User, error)
}
