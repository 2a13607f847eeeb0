package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
	"github.com/google/uuid"
)

const userColumns = `id, full_name, email, password_hash, mfa_enabled, mfa_secret, reset_token, reset_token_expires_at, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var (
		user           types.User
		mfaSecret      sql.NullString
		resetToken     sql.NullString
		resetExpiresAt sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&user.MFAEnabled,
		&mfaSecret,
		&resetToken,
		&resetExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if mfaSecret.Valid {
		user.MFASecret = &mfaSecret.String
	}
	if resetToken.Valid {
		user.ResetToken = &resetToken.String
	}
	if resetExpiresAt.Valid {
		user.ResetTokenExpiresAt = &resetExpiresAt.Time
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.User{}, ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// Create inserts a new user. A duplicate email yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (id, full_name, email, password_hash, mfa_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	user.MFAEnabled = false
	return user, nil
}

// SetMFASecret stores a pending secret and leaves MFA disabled.
func (r *UserRepository) SetMFASecret(ctx context.Context, id, secret string) error {
	const query = `
		UPDATE users
		SET mfa_secret = $1,
			mfa_enabled = FALSE,
			updated_at = $2
		WHERE id = $3`
	return r.execOne(ctx, query, secret, time.Now().UTC(), id)
}

// EnableMFA activates MFA; it requires a provisioned secret.
func (r *UserRepository) EnableMFA(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET mfa_enabled = TRUE,
			updated_at = $1
		WHERE id = $2 AND mfa_secret IS NOT NULL`
	return r.execOne(ctx, query, time.Now().UTC(), id)
}

func (r *UserRepository) DisableMFA(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET mfa_enabled = FALSE,
			mfa_secret = NULL,
			updated_at = $1
		WHERE id = $2`
	return r.execOne(ctx, query, time.Now().UTC(), id)
}

// SetResetToken replaces any pending reset token for the user.
func (r *UserRepository) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET reset_token = $1,
			reset_token_expires_at = $2,
			updated_at = $3
		WHERE id = $4`
	return r.execOne(ctx, query, token, expiresAt.UTC(), time.Now().UTC(), id)
}

// ConsumeResetToken swaps the password hash and clears the token in a single
// conditional update, so only one caller can redeem a given token.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (types.User, error) {
	query := `
		UPDATE users
		SET password_hash = $1,
			reset_token = NULL,
			reset_token_expires_at = NULL,
			updated_at = $2
		WHERE reset_token = $3 AND reset_token_expires_at > $4
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, passwordHash, now.UTC(), token, now.UTC()))
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
