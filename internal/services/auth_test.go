package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/auth"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/email"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/limiter"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/logging"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/mq"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (d *recordingDispatcher) Send(_ context.Context, msg email.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

func (d *recordingDispatcher) last(t *testing.T) email.Message {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.sent)
	return d.sent[len(d.sent)-1]
}

type authFixture struct {
	svc    *AuthService
	users  *store.MemoryUserRepository
	mailer *recordingDispatcher
	resets *ResetTokenManager
	events *mq.MemoryBackend
}

func newAuthFixture(t *testing.T, limits AttemptLimits) *authFixture {
	t.Helper()
	users := store.NewMemoryUserRepository()
	mailer := &recordingDispatcher{}
	resets := NewResetTokenManager(users, mailer, "http://localhost:3000")
	backend := mq.NewMemoryBackend()
	logger := logging.Discard()

	svc := NewAuthService(AuthDependencies{
		Users:  users,
		Hasher: auth.NewPasswordHasher(4),
		TOTP:   auth.NewTOTPEngine("FinanceAdmin"),
		Tokens: auth.NewTokenIssuer("test-secret"),
		Resets: resets,
		Limits: limits,
		Events: mq.NewEventPublisher(backend, "auth-events", logger),
		Logger: logger,
	})
	return &authFixture{svc: svc, users: users, mailer: mailer, resets: resets, events: backend}
}

func (f *authFixture) register(t *testing.T, emailAddr, password string) string {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{FullName: "Ana", Email: emailAddr, Password: password})
	require.NoError(t, err)
	return user.ID
}

func (f *authFixture) eventTypes(t *testing.T) []mq.EventType {
	t.Helper()
	var out []mq.EventType
	for _, msg := range f.events.Published("auth-events") {
		event, err := mq.DecodeEvent(msg)
		require.NoError(t, err)
		out = append(out, event.Type)
	}
	return out
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func wrongCode(t *testing.T, secret string) string {
	t.Helper()
	valid := currentCode(t, secret)
	if valid == "000000" {
		return "111111"
	}
	return "000000"
}

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AttemptLimits{})
	f.register(t, "a@x.com", "Secret1")

	res, err := f.svc.Login(ctx, "a@x.com", "Secret1")
	require.NoError(t, err)
	assert.False(t, res.MFARequired)
	assert.NotEmpty(t, res.Token)
	assert.False(t, res.User.MFAEnabled)
	assert.NotEqual(t, "Secret1", res.User.PasswordHash)

	userID, err := f.svc.Authenticate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t, AttemptLimits{})
	for _, in := range []RegisterInput{
		{Email: "a@x.com", Password: "p"},
		{FullName: "Ana", Password: "p"},
		{FullName: "Ana", Email: "a@x.com"},
		{FullName: "  ", Email: "a@x.com", Password: "p"},
	} {
		_, err := f.svc.Register(context.Background(), in)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, AttemptLimits{})
	f.register(t, "a@x.com", "Secret1")

	_, err := f.svc.Register(context.Background(), RegisterInput{FullName: "Other", Email: "a@x.com", Password: "x"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestLoginDistinguishesUnknownUserFromBadPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AttemptLimits{})
	f.register(t, "a@x.com", "Secret1")

	_, err := f.svc.Login(ctx, "nobody@x.com", "Secret1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "A@x.com", "Secret1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMFAScenario(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AttemptLimits{})
	userID := f.register(t, "a@x.com", "Secret1")

	res, err := f.svc.Login(ctx, "a@x.com", "Secret1")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	setup, err := f.svc.EnableMFA(ctx, userID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))
	assert.NotEmpty(t, setup.Secret)

	user, err := f.svc.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, user.MFAEnabled)
	assert.True(t, user.HasMFASecret())

	require.NoError(t, f.svc.VerifySetupMFA(ctx, userID, currentCode(t, setup.Secret)))

	user, err = f.svc.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.MFAEnabled)

	res, err = f.svc.Login(ctx, "a@x.com", "Secret1")
	require.NoError(t, err)
	assert.True(t, res.MFARequired)
	assert.Empty(t, res.Token)

	res, err = f.svc.VerifyMFA(ctx, "a@x.com", currentCode(t, setup.Secret))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	assert.Equal(t, []mq.EventType{
		mq.EventUserRegistered,
		mq.EventUserLoggedIn,
		mq.EventMFASetupStarted,
		mq.EventMFAEnabled,
		mq.EventUserLoggedIn,
	}, f.eventTypes(t))
}

func TestVerifySetupRejectsWrongCode(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AttemptLimits{})
	userID := f.register(t, "a@x.com", "Secret1")

	setup, err := f.svc.EnableMFA(ctx, userID)
	require.NoError(t, err)

	err = f.svc.VerifySetupMFA(ctx, userID, wrongCode(t, setup.Secret))
	assert.ErrorIs(t, err, ErrInvalidMFACode)

	user, err := f.svc.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, user.MFAEnabled)
}

func TestVerifySetupWithoutPendingSecret(t *testing.T) {
	f := newAuthFixture(t, AttemptLimits{})
	userID := f.register(t, "a@x.com", "Secret1")

	err := f.svc.VerifySetupMFA(context.Background(), userID, "123456")
	assert.ErrorIs(t, err, ErrMFANotConfigured)
}

func TestEnableMFATwice(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AttemptLimits{})
	userID := f.register(t, "a@x.com", "Secret1")

	first, err := f.svc.EnableMFA(ctx, userID)
	require.NoError(t, err)
	second, err := f.svc.EnableMFA(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Secret, second.Secret)

	require.NoError(t, f.svc.VerifySetupMFA(ctx, userID, currentCode(t, second.Secret)))

	_, err = f.svc.EnableMFA(ctx, userID)
	assert.ErrorIs(t, err, ErrMFAAlreadyEnabled)
}

func TestEnableMFAUnknownUser(t *testing.T) {
	f := newAuthFixture(t, AttemptLimits{})
	_, err := f.svc.EnableMFA(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestVerifyMFAErrors(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AttemptLimits{})
	userID := f.register(t, "a@x.com", "Secret1")

	_, err := f.svc.VerifyMFA(ctx, "nobody@x.com", "123456")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.VerifyMFA(ctx, "a@x.com", "123456")
	assert.ErrorIs(t, err, ErrMFANotConfigured)

	// A pending, unconfirmed secret does not count as configured.
	setup, err := f.svc.EnableMFA(ctx, userID)
	require.NoError(t, err)
	_, err = f.svc.VerifyMFA(ctx, "a@x.com", currentCode(t, setup.Secret))
	assert.ErrorIs(t, err, ErrMFANotConfigured)

	require.NoError(t, f.svc.VerifySetupMFA(ctx, userID, currentCode(t, setup.Secret)))
	_, err = f.svc.VerifyMFA(ctx, "a@x.com", wrongCode(t, setup.Secret))
	assert.ErrorIs(t, err, ErrInvalidMFACode)
}

func TestDisableMFA(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AttemptLimits{})
	userID := f.register(t, "a@x.com", "Secret1")

	setup, err := f.svc.EnableMFA(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifySetupMFA(ctx, userID, currentCode(t, setup.Secret)))

	err = f.svc.DisableMFA(ctx, userID, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := f.svc.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.MFAEnabled)
	require.True(t, user.HasMFASecret())
	assert.Equal(t, setup.Secret, *user.MFASecret)

	require.NoError(t, f.svc.DisableMFA(ctx, userID, "Secret1"))

	user, err = f.svc.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, user.MFAEnabled)
	assert.False(t, user.HasMFASecret())

	res, err := f.svc.Login(ctx, "a@x.com", "Secret1")
	require.NoError(t, err)
	assert.False(t, res.MFARequired)
	assert.NotEmpty(t, res.Token)
}

func resetTokenFromLink(t *testing.T, msg email.Message) string {
	t.Helper()
	const marker = "/reset-password/"
	i := strings.Index(msg.HTML, marker)
	require.GreaterOrEqual(t, i, 0, msg.HTML)
	rest := msg.HTML[i+len(marker):]
	end := strings.IndexByte(rest, '"')
	require.Greater(t, end, 0)
	return rest[:end]
}

func TestForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AttemptLimits{})
	f.register(t, "a@x.com", "Secret1")

	require.NoError(t, f.svc.ForgotPassword(ctx, "a@x.com"))

	msg := f.mailer.last(t)
	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, email.ResetPasswordSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "http://localhost:3000/reset-password/")
	token := resetTokenFromLink(t, msg)
	assert.Len(t, token, 64)

	require.NoError(t, f.svc.ResetPassword(ctx, token, "NewSecret2"))

	err := f.svc.ResetPassword(ctx, token, "Another3")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	_, err = f.svc.Login(ctx, "a@x.com", "Secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "a@x.com", "NewSecret2")
	assert.NoError(t, err)
}

func TestForgotPasswordReplacesPendingToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AttemptLimits{})
	f.register(t, "a@x.com", "Secret1")

	require.NoError(t, f.svc.ForgotPassword(ctx, "a@x.com"))
	first := resetTokenFromLink(t, f.mailer.last(t))
	require.NoError(t, f.svc.ForgotPassword(ctx, "a@x.com"))
	second := resetTokenFromLink(t, f.mailer.last(t))

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, first, "x"), ErrInvalidOrExpiredToken)
	assert.NoError(t, f.svc.ResetPassword(ctx, second, "x"))
}

func TestResetTokenExpires(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AttemptLimits{})
	userID := f.register(t, "a@x.com", "Secret1")

	issuedAt := time.Now().UTC()
	f.resets.now = func() time.Time { return issuedAt }

	user, err := f.svc.GetUser(ctx, userID)
	require.NoError(t, err)
	token, err := f.resets.IssueResetToken(ctx, user)
	require.NoError(t, err)

	f.resets.now = func() time.Time { return issuedAt.Add(ResetTokenTTL) }
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "NewSecret2"), ErrInvalidOrExpiredToken)

	f.resets.now = func() time.Time { return issuedAt.Add(ResetTokenTTL - time.Second) }
	assert.NoError(t, f.svc.ResetPassword(ctx, token, "NewSecret2"))
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newAuthFixture(t, AttemptLimits{})
	err := f.svc.ForgotPassword(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, f.mailer.sent)
}

func TestForgotPasswordMailFailure(t *testing.T) {
	f := newAuthFixture(t, AttemptLimits{})
	f.register(t, "a@x.com", "Secret1")
	f.mailer.err = errors.New("smtp down")

	err := f.svc.ForgotPassword(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUserNotFound))
}

func TestResetPasswordValidation(t *testing.T) {
	f := newAuthFixture(t, AttemptLimits{})
	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), "", "x"), ErrInvalidOrExpiredToken)
	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), "abc", ""), ErrValidation)
	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), "unknown", "x"), ErrInvalidOrExpiredToken)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	f := newAuthFixture(t, AttemptLimits{})
	_, err := f.svc.Authenticate("not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLoginAttemptLimit(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := newAuthFixture(t, AttemptLimits{Login: limiter.NewRedisLimiter(client, "login")})
	f.register(t, "a@x.com", "Secret1")

	for i := 0; i < limiter.DefaultMaxAttempts; i++ {
		_, err := f.svc.Login(ctx, "a@x.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := f.svc.Login(ctx, "a@x.com", "Secret1")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	mr.FastForward(limiter.DefaultWindow + time.Second)

	_, err = f.svc.Login(ctx, "a@x.com", "Secret1")
	assert.NoError(t, err)
}

func TestSuccessfulLoginResetsAttemptCounter(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := newAuthFixture(t, AttemptLimits{Login: limiter.NewRedisLimiter(client, "login")})
	f.register(t, "a@x.com", "Secret1")

	for i := 0; i < limiter.DefaultMaxAttempts-1; i++ {
		_, _ = f.svc.Login(ctx, "a@x.com", "wrong")
	}
	_, err := f.svc.Login(ctx, "a@x.com", "Secret1")
	require.NoError(t, err)

	for i := 0; i < limiter.DefaultMaxAttempts-1; i++ {
		_, err = f.svc.Login(ctx, "a@x.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
}

func newMiniredisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// enableMFA runs setup for userID and returns the active secret.
func (f *authFixture) enableMFA(t *testing.T, userID string) string {
	t.Helper()
	setup, err := f.svc.EnableMFA(context.Background(), userID)
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifySetupMFA(context.Background(), userID, currentCode(t, setup.Secret)))
	return setup.Secret
}

func TestVerifyMFAAttemptLimit(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)
	f := newAuthFixture(t, AttemptLimits{VerifyMFA: limiter.NewRedisLimiter(client, "verify-mfa")})
	secret := f.enableMFA(t, f.register(t, "a@x.com", "Secret1"))

	for i := 0; i < limiter.DefaultMaxAttempts; i++ {
		_, err := f.svc.VerifyMFA(ctx, "a@x.com", wrongCode(t, secret))
		require.ErrorIs(t, err, ErrInvalidMFACode)
	}

	_, err := f.svc.VerifyMFA(ctx, "a@x.com", currentCode(t, secret))
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.True(t, mr.Exists("att:verify-mfa:a@x.com"))

	mr.FastForward(limiter.DefaultWindow + time.Second)

	res, err := f.svc.VerifyMFA(ctx, "a@x.com", currentCode(t, secret))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestVerifyMFASuccessResetsAttemptCounter(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)
	f := newAuthFixture(t, AttemptLimits{VerifyMFA: limiter.NewRedisLimiter(client, "verify-mfa")})
	secret := f.enableMFA(t, f.register(t, "a@x.com", "Secret1"))

	for i := 0; i < limiter.DefaultMaxAttempts-1; i++ {
		_, _ = f.svc.VerifyMFA(ctx, "a@x.com", wrongCode(t, secret))
	}
	_, err := f.svc.VerifyMFA(ctx, "a@x.com", currentCode(t, secret))
	require.NoError(t, err)
	assert.False(t, mr.Exists("att:verify-mfa:a@x.com"))

	for i := 0; i < limiter.DefaultMaxAttempts; i++ {
		_, err = f.svc.VerifyMFA(ctx, "a@x.com", wrongCode(t, secret))
		require.ErrorIs(t, err, ErrInvalidMFACode)
	}
}

func TestVerifyMFAConcurrentBurstIsBounded(t *testing.T) {
	ctx := context.Background()
	client, _ := newMiniredisClient(t)
	f := newAuthFixture(t, AttemptLimits{VerifyMFA: limiter.NewRedisLimiter(client, "verify-mfa")})
	secret := f.enableMFA(t, f.register(t, "a@x.com", "Secret1"))
	code := wrongCode(t, secret)

	const callers = 200
	var evaluated, throttled atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.VerifyMFA(ctx, "a@x.com", code)
			switch {
			case errors.Is(err, ErrInvalidMFACode):
				evaluated.Add(1)
			case errors.Is(err, ErrTooManyAttempts):
				throttled.Add(1)
			default:
				t.Errorf("unexpected result: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limiter.DefaultMaxAttempts), evaluated.Load())
	assert.Equal(t, int64(callers-limiter.DefaultMaxAttempts), throttled.Load())
}

func TestVerifySetupAttemptLimitIsPerUser(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)
	f := newAuthFixture(t, AttemptLimits{VerifySetup: limiter.NewRedisLimiter(client, "verify-setup-mfa")})
	anaID := f.register(t, "a@x.com", "Secret1")
	bobID := f.register(t, "b@x.com", "Secret1")

	anaSetup, err := f.svc.EnableMFA(ctx, anaID)
	require.NoError(t, err)
	bobSetup, err := f.svc.EnableMFA(ctx, bobID)
	require.NoError(t, err)

	for i := 0; i < limiter.DefaultMaxAttempts; i++ {
		require.ErrorIs(t, f.svc.VerifySetupMFA(ctx, anaID, wrongCode(t, anaSetup.Secret)), ErrInvalidMFACode)
	}
	assert.ErrorIs(t, f.svc.VerifySetupMFA(ctx, anaID, currentCode(t, anaSetup.Secret)), ErrTooManyAttempts)
	assert.True(t, mr.Exists("att:verify-setup-mfa:"+anaID))
	assert.False(t, mr.Exists("att:verify-setup-mfa:a@x.com"))

	// another user is unaffected by ana's lockout
	assert.ErrorIs(t, f.svc.VerifySetupMFA(ctx, bobID, wrongCode(t, bobSetup.Secret)), ErrInvalidMFACode)
	require.NoError(t, f.svc.VerifySetupMFA(ctx, bobID, currentCode(t, bobSetup.Secret)))
	assert.False(t, mr.Exists("att:verify-setup-mfa:"+bobID))

	mr.FastForward(limiter.DefaultWindow + time.Second)
	require.NoError(t, f.svc.VerifySetupMFA(ctx, anaID, currentCode(t, anaSetup.Secret)))
}

func TestVerifySetupSuccessResetsAttemptCounter(t *testing.T) {
	ctx := context.Background()
	client, mr := newMiniredisClient(t)
	f := newAuthFixture(t, AttemptLimits{VerifySetup: limiter.NewRedisLimiter(client, "verify-setup-mfa")})
	userID := f.register(t, "a@x.com", "Secret1")

	setup, err := f.svc.EnableMFA(ctx, userID)
	require.NoError(t, err)
	for i := 0; i < limiter.DefaultMaxAttempts-1; i++ {
		require.ErrorIs(t, f.svc.VerifySetupMFA(ctx, userID, wrongCode(t, setup.Secret)), ErrInvalidMFACode)
	}
	require.NoError(t, f.svc.VerifySetupMFA(ctx, userID, currentCode(t, setup.Secret)))
	assert.False(t, mr.Exists("att:verify-setup-mfa:"+userID))
}
