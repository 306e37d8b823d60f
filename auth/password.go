// Package auth, as part of the authentication module.
// This file, `password.go`, hashes and checks passwords with bcrypt.
package auth

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/user/moviesns-go/metrics"
)

// DefaultBcryptCost is the work factor used for stored passwords.
const DefaultBcryptCost = 10

// PasswordHasher hashes and verifies passwords with bcrypt. The digest embeds
// its own salt and cost, so no salt is stored separately.
type PasswordHasher struct {
	cost    int
	metrics *metrics.Recorder
}

// NewPasswordHasher returns a hasher using cost, or DefaultBcryptCost when cost is out of range.
func NewPasswordHasher(cost int, rec *metrics.Recorder) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost, metrics: rec}
}

// Hash returns the bcrypt digest of plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	defer h.metrics.ObserveHash("hash", time.Now())
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Any failure, including a
// corrupted or empty digest, yields false.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	defer h.metrics.ObserveHash("verify", time.Now())
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
