// Package auth, as previously noted, handles authentication.
// This file, `models.go`, defines the user entity and the credential store
// contract the rest of the package depends on.
package auth

import (
	"context"
	"errors"
	"time"
)

// DefaultAvatar is assigned to new accounts until they upload one.
const DefaultAvatar = "https://via.placeholder.com/150?text=User"

// User represents a user in the system.
// The credential store owns these rows; the session layer only ever holds
// transient claims extracted from a verified token.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     *string   `json:"username"`
	PasswordHash string    `json:"-"` // Do not expose hashed password
	Avatar       string    `json:"avatar"`
	Bio          string    `json:"bio"`
	Website      string    `json:"website"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store errors. Implementations of UserStore must return these (possibly
// wrapped) so callers can branch with errors.Is.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

// UserStore is the credential store. Uniqueness of email is enforced by the
// store itself; CreateUser reports a duplicate with ErrEmailTaken.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
}
