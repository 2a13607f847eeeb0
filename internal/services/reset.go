package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/auth"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/email"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/store"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
)

// ResetTokenTTL bounds how long an emailed reset link stays usable.
const ResetTokenTTL = time.Hour

// ResetTokenManager issues single-use reset tokens and mails the link.
type ResetTokenManager struct {
	users       UserRepository
	mailer      email.Dispatcher
	frontendURL string
	ttl         time.Duration
	now         func() time.Time
}

func NewResetTokenManager(users UserRepository, mailer email.Dispatcher, frontendURL string) *ResetTokenManager {
	return &ResetTokenManager{
		users:       users,
		mailer:      mailer,
		frontendURL: frontendURL,
		ttl:         ResetTokenTTL,
		now:         time.Now,
	}
}

// IssueResetToken replaces any pending token for user and emails the new
// link. A delivery failure is returned to the caller.
func (m *ResetTokenManager) IssueResetToken(ctx context.Context, user types.User) (string, error) {
	token, err := auth.NewResetToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := m.now().UTC().Add(m.ttl)
	if err := m.users.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("store reset token: %w", err)
	}

	msg := email.NewResetPasswordMessage(user.Email, email.ResetLink(m.frontendURL, token))
	if err := m.mailer.Send(ctx, msg); err != nil {
		return "", fmt.Errorf("send reset email: %w", err)
	}
	return token, nil
}

// ConsumeResetToken sets the new password hash if token is live and
// clears it so it cannot be used again.
func (m *ResetTokenManager) ConsumeResetToken(ctx context.Context, token, passwordHash string) (types.User, error) {
	if token == "" {
		return types.User{}, ErrInvalidOrExpiredToken
	}
	user, err := m.users.ConsumeResetToken(ctx, token, passwordHash, m.now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidOrExpiredToken
		}
		return types.User{}, fmt.Errorf("consume reset token: %w", err)
	}
	return user, nil
}
