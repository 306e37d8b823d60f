// Package users, as part of the user profile management module.
// This file, `memory.go`, provides a process-local repository with the same
// uniqueness rules as the Postgres one, for development and tests.
package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/moviesns-go/auth"
)

// MemoryRepository is a process-local Repository. It enforces the same
// uniqueness rules as the users table and is used for local runs without a
// database and in tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*auth.User
	email map[string]string // email -> id
	name  map[string]string // username -> id
	now   func() time.Time
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[string]*auth.User),
		email: make(map[string]string),
		name:  make(map[string]string),
		now:   time.Now,
	}
}

func clone(u *auth.User) *auth.User {
	out := *u
	if u.Username != nil {
		name := *u.Username
		out.Username = &name
	}
	return &out
}

func (m *MemoryRepository) CreateUser(_ context.Context, user *auth.User) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.email[user.Email]; ok {
		return nil, auth.ErrEmailTaken
	}
	if user.Username != nil {
		if _, ok := m.name[*user.Username]; ok {
			return nil, auth.ErrUsernameTaken
		}
	}

	row := clone(user)
	row.ID = uuid.NewString()
	row.CreatedAt = m.now().UTC()
	if row.Avatar == "" {
		row.Avatar = auth.DefaultAvatar
	}
	m.byID[row.ID] = row
	m.email[row.Email] = row.ID
	if row.Username != nil {
		m.name[*row.Username] = row.ID
	}
	return clone(row), nil
}

func (m *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.email[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return clone(m.byID[id]), nil
}

func (m *MemoryRepository) GetUserByID(_ context.Context, id string) (*auth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return clone(u), nil
}

func (m *MemoryRepository) UpdateProfile(_ context.Context, id string, upd ProfileUpdate) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	if upd.Username != nil {
		if owner, taken := m.name[*upd.Username]; taken && owner != id {
			return nil, auth.ErrUsernameTaken
		}
		if u.Username != nil {
			delete(m.name, *u.Username)
		}
		name := *upd.Username
		u.Username = &name
		m.name[name] = id
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.Website != nil {
		u.Website = *upd.Website
	}
	return clone(u), nil
}

// Ping always succeeds.
func (m *MemoryRepository) Ping(context.Context) error {
	return nil
}
