// Package auth, as part of the authentication module.
// This file, `token.go`, issues and verifies the signed session tokens that
// carry a user's identity between requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/user/moviesns-go/metrics"
)

// DefaultSessionTTL is how long an issued session token stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Verification failures. Callers reject all of them with 401 but may log
// them distinctly; FailureKind gives a stable label for each.
var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenInvalidSignature = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenRevoked          = errors.New("token revoked")
)

// ErrRevocationLookup means the revocation set could not be consulted. It is
// a backing-store failure, not a verdict on the token.
var ErrRevocationLookup = errors.New("revocation lookup failed")

// Identity is what a session token asserts about its bearer.
type Identity struct {
	ID    string
	Email string
}

// Claims is the payload of a session token.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenVerifier validates a session token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// TokenManager issues and verifies HS256 session tokens with a single shared secret.
type TokenManager struct {
	secret      []byte
	ttl         time.Duration
	revocations RevocationSet
	metrics     *metrics.Recorder
	now         func() time.Time
}

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithRevocations makes Verify reject tokens whose id is in set.
func WithRevocations(set RevocationSet) TokenOption {
	return func(m *TokenManager) { m.revocations = set }
}

// WithMetrics counts verification failures by kind.
func WithMetrics(rec *metrics.Recorder) TokenOption {
	return func(m *TokenManager) { m.metrics = rec }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

// NewTokenManager creates a TokenManager. A non-positive ttl means DefaultSessionTTL.
func NewTokenManager(secret string, ttl time.Duration, opts ...TokenOption) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	m := &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for id that expires TTL from now.
func (m *TokenManager) Issue(id Identity) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := &Claims{
		UserID: id.ID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks the signature, expiry and revocation status of token.
// It returns one of ErrTokenMalformed, ErrTokenInvalidSignature,
// ErrTokenExpired or ErrTokenRevoked on failure, or ErrRevocationLookup when
// the revocation set is unavailable.
func (m *TokenManager) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := m.parse(token)
	if err == nil && m.revocations != nil && claims.ID != "" {
		revoked, lookupErr := m.revocations.IsRevoked(ctx, claims.ID)
		switch {
		case lookupErr != nil:
			err = fmt.Errorf("%w: %w", ErrRevocationLookup, lookupErr)
		case revoked:
			err = ErrTokenRevoked
		}
	}
	if err != nil {
		m.metrics.TokenRejected(FailureKind(err))
		return nil, err
	}
	return claims, nil
}

func (m *TokenManager) parser() *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(m.now),
	)
}

func (m *TokenManager) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parser := m.parser()
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, ErrTokenInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed) && signatureSegmentRejected(parser, token):
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalidSignature, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing id claim", ErrTokenMalformed)
	}
	return claims, nil
}

// signatureSegmentRejected reports whether the header and payload of token
// decode cleanly, so a parse failure can only come from the signature segment.
// Strict decoding rejects stray trailing bits there, and a corrupted signature
// may even contain an extra '.', so everything after the second dot counts.
func signatureSegmentRejected(parser *jwt.Parser, token string) bool {
	parts := strings.SplitN(token, ".", 3)
	if len(parts) != 3 {
		return false
	}
	_, _, err := parser.ParseUnverified(parts[0]+"."+parts[1]+".", &Claims{})
	return err == nil
}

// FailureKind maps a verification error to a short label for logs and metrics.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrRevocationLookup):
		return "lookup_failed"
	default:
		return "error"
	}
}
