package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/auth"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/limiter"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/mq"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/store"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
)

type RegisterInput struct {
	FullName string
	Email    string
	Password string
}

// LoginResult carries either a session token or the MFA challenge signal.
type LoginResult struct {
	Token       string
	User        types.User
	MFARequired bool
}

// MFASetup is returned by the first MFA setup step.
type MFASetup struct {
	QRCode string
	Secret string
}

// AttemptLimits throttles failed attempts per flow. Nil entries never limit.
type AttemptLimits struct {
	Login       limiter.Limiter
	VerifyMFA   limiter.Limiter
	VerifySetup limiter.Limiter
}

type AuthDependencies struct {
	Users  UserRepository
	Hasher *auth.PasswordHasher
	TOTP   *auth.TOTPEngine
	Tokens *auth.TokenIssuer
	Resets *ResetTokenManager
	Limits AttemptLimits
	Events *mq.EventPublisher
	Logger *slog.Logger
}

// AuthService drives registration, login, MFA and password reset.
type AuthService struct {
	users  UserRepository
	hasher *auth.PasswordHasher
	totp   *auth.TOTPEngine
	tokens *auth.TokenIssuer
	resets *ResetTokenManager
	limits AttemptLimits
	events *mq.EventPublisher
	logger *slog.Logger
}

func NewAuthService(deps AuthDependencies) *AuthService {
	if deps.Hasher == nil {
		deps.Hasher = auth.NewPasswordHasher(auth.DefaultPasswordCost)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Limits.Login == nil {
		deps.Limits.Login = limiter.Noop{}
	}
	if deps.Limits.VerifyMFA == nil {
		deps.Limits.VerifyMFA = limiter.Noop{}
	}
	if deps.Limits.VerifySetup == nil {
		deps.Limits.VerifySetup = limiter.Noop{}
	}

	return &AuthService{
		users:  deps.Users,
		hasher: deps.Hasher,
		totp:   deps.TOTP,
		tokens: deps.Tokens,
		resets: deps.Resets,
		limits: deps.Limits,
		events: deps.Events,
		logger: deps.Logger,
	}
}

// Register creates an account. It does not log the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	if in.FullName == "" || in.Email == "" || in.Password == "" {
		return types.User{}, ErrValidation
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	s.events.Publish(ctx, mq.EventUserRegistered, user.ID)
	return user, nil
}

// Login checks the password. Accounts with MFA enabled get MFARequired and
// no token; the client finishes with VerifyMFA.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (LoginResult, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" || password == "" {
		return LoginResult{}, ErrValidation
	}
	if err := s.reserveAttempt(ctx, s.limits.Login, emailAddr); err != nil {
		return LoginResult{}, err
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}
	s.resetLimit(ctx, s.limits.Login, emailAddr)

	if user.MFAEnabled {
		return LoginResult{MFARequired: true}, nil
	}
	return s.startSession(ctx, user)
}

// VerifyMFA completes a login for an MFA-enabled account. The user is
// identified by email only.
func (s *AuthService) VerifyMFA(ctx context.Context, emailAddr, code string) (LoginResult, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" || code == "" {
		return LoginResult{}, ErrValidation
	}
	if err := s.reserveAttempt(ctx, s.limits.VerifyMFA, emailAddr); err != nil {
		return LoginResult{}, err
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if !user.MFAEnabled || !user.HasMFASecret() {
		return LoginResult{}, ErrMFANotConfigured
	}

	if !s.totp.VerifyCode(*user.MFASecret, code, auth.DefaultTOTPWindow) {
		return LoginResult{}, ErrInvalidMFACode
	}
	s.resetLimit(ctx, s.limits.VerifyMFA, emailAddr)

	return s.startSession(ctx, user)
}

// EnableMFA provisions a fresh secret. MFA stays off until VerifySetupMFA
// confirms a code; calling it again replaces the pending secret.
func (s *AuthService) EnableMFA(ctx context.Context, userID string) (MFASetup, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return MFASetup{}, err
	}
	if user.MFAEnabled {
		return MFASetup{}, ErrMFAAlreadyEnabled
	}

	setup, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return MFASetup{}, err
	}
	if err := s.users.SetMFASecret(ctx, user.ID, setup.Secret); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return MFASetup{}, ErrUserNotFound
		}
		return MFASetup{}, fmt.Errorf("store mfa secret: %w", err)
	}

	qr, err := s.totp.RenderQRCode(setup.ProvisioningURI)
	if err != nil {
		return MFASetup{}, err
	}

	s.events.Publish(ctx, mq.EventMFASetupStarted, user.ID)
	return MFASetup{QRCode: qr, Secret: setup.Secret}, nil
}

// VerifySetupMFA activates MFA once the user proves the authenticator
// produces valid codes for the pending secret.
func (s *AuthService) VerifySetupMFA(ctx context.Context, userID, code string) error {
	if code == "" {
		return ErrValidation
	}
	if err := s.reserveAttempt(ctx, s.limits.VerifySetup, userID); err != nil {
		return err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.MFAEnabled {
		return ErrMFAAlreadyEnabled
	}
	if !user.HasMFASecret() {
		return ErrMFANotConfigured
	}

	if !s.totp.VerifyCode(*user.MFASecret, code, auth.DefaultTOTPWindow) {
		return ErrInvalidMFACode
	}

	if err := s.users.EnableMFA(ctx, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMFANotConfigured
		}
		return fmt.Errorf("enable mfa: %w", err)
	}
	s.resetLimit(ctx, s.limits.VerifySetup, userID)

	s.events.Publish(ctx, mq.EventMFAEnabled, user.ID)
	return nil
}

// DisableMFA requires the account password and clears the secret.
func (s *AuthService) DisableMFA(ctx context.Context, userID, password string) error {
	if password == "" {
		return ErrValidation
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := s.users.DisableMFA(ctx, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("disable mfa: %w", err)
	}

	s.events.Publish(ctx, mq.EventMFADisabled, user.ID)
	return nil
}

// ForgotPassword mails a reset link. Unknown emails get ErrUserNotFound.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" {
		return ErrValidation
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	if _, err := s.resets.IssueResetToken(ctx, user); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		s.logger.Error("failed to issue reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return err
	}

	s.events.Publish(ctx, mq.EventPasswordResetRequested, user.ID)
	return nil
}

// ResetPassword consumes a reset token and sets a new password. The user
// must log in again afterwards.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidOrExpiredToken
	}
	if password == "" {
		return ErrValidation
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := s.resets.ConsumeResetToken(ctx, token, hash)
	if err != nil {
		return err
	}

	s.events.Publish(ctx, mq.EventPasswordResetCompleted, user.ID)
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (types.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Authenticate verifies a session token and returns its user id.
func (s *AuthService) Authenticate(token string) (string, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

func (s *AuthService) startSession(ctx context.Context, user types.User) (LoginResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue session token: %w", err)
	}
	s.events.Publish(ctx, mq.EventUserLoggedIn, user.ID)
	return LoginResult{Token: token, User: user}, nil
}

// reserveAttempt claims one attempt before the credential is checked, so
// parallel requests cannot all slip past the limit. Failed attempts keep
// their reservation; a success calls resetLimit.
func (s *AuthService) reserveAttempt(ctx context.Context, l limiter.Limiter, key string) error {
	err := l.Reserve(ctx, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, limiter.ErrTooManyAttempts):
		return ErrTooManyAttempts
	default:
		return fmt.Errorf("reserve attempt: %w", err)
	}
}

func (s *AuthService) resetLimit(ctx context.Context, l limiter.Limiter, key string) {
	if err := l.Reset(ctx, key); err != nil {
		s.logger.Warn("failed to reset attempt counter", slog.Any("error", err))
	}
}
