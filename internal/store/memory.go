package store

import (
	"context"
	"sync"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
	"github.com/google/uuid"
)

// MemoryUserRepository keeps users in process memory. It mirrors the
// semantics of UserRepository, including the atomic reset-token swap.
type MemoryUserRepository struct {
	mu      sync.Mutex
	byID    map[string]types.User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]types.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return types.User{}, ErrConflict
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.MFAEnabled = false
	user.MFASecret = nil
	user.ResetToken = nil
	user.ResetTokenExpiresAt = nil
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) SetMFASecret(_ context.Context, id, secret string) error {
	return r.update(id, func(u *types.User) bool {
		u.MFASecret = &secret
		u.MFAEnabled = false
		return true
	})
}

func (r *MemoryUserRepository) EnableMFA(_ context.Context, id string) error {
	return r.update(id, func(u *types.User) bool {
		if u.MFASecret == nil {
			return false
		}
		u.MFAEnabled = true
		return true
	})
}

func (r *MemoryUserRepository) DisableMFA(_ context.Context, id string) error {
	return r.update(id, func(u *types.User) bool {
		u.MFAEnabled = false
		u.MFASecret = nil
		return true
	})
}

func (r *MemoryUserRepository) SetResetToken(_ context.Context, id, token string, expiresAt time.Time) error {
	return r.update(id, func(u *types.User) bool {
		u.ResetToken = &token
		u.ResetTokenExpiresAt = &expiresAt
		return true
	})
}

func (r *MemoryUserRepository) ConsumeResetToken(_ context.Context, token, passwordHash string, now time.Time) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, user := range r.byID {
		if user.ResetToken == nil || *user.ResetToken != token {
			continue
		}
		if user.ResetTokenExpiresAt == nil || !now.Before(*user.ResetTokenExpiresAt) {
			return types.User{}, ErrNotFound
		}
		user.PasswordHash = passwordHash
		user.ResetToken = nil
		user.ResetTokenExpiresAt = nil
		user.UpdatedAt = now.UTC()
		r.byID[id] = user
		return cloneUser(user), nil
	}
	return types.User{}, ErrNotFound
}

func (r *MemoryUserRepository) update(id string, mutate func(*types.User) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if !mutate(&user) {
		return ErrNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	r.byID[id] = user
	return nil
}

// cloneUser detaches pointer fields so callers cannot mutate stored state.
func cloneUser(u types.User) types.User {
	if u.MFASecret != nil {
		s := *u.MFASecret
		u.MFASecret = &s
	}
	if u.ResetToken != nil {
		s := *u.ResetToken
		u.ResetToken = &s
	}
	if u.ResetTokenExpiresAt != nil {
		t := *u.ResetTokenExpiresAt
		u.ResetTokenExpiresAt = &t
	}
	return u
}
