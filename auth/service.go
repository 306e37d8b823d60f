// Package auth is responsible for handling authentication.
// This includes signup, login, logout, session lookup and the identity bridge
// that exposes a verified caller to the rest of the API.
package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/user/moviesns-go/apperror"
	"github.com/user/moviesns-go/logutil"
	"github.com/user/moviesns-go/metrics"
)

// Operation labels used for metrics.
const (
	opSignup = "signup"
	opLogin  = "login"
	opLogout = "logout"
	opMe     = "me"
)

// msgBadCredentials is shared by every login failure so callers cannot tell
// an unknown email from a wrong password.
const msgBadCredentials = "email or password incorrect"

// Session is the result of a successful signup or login. ExpiresAt is the
// token's exp claim and sets the lifetime of the session cookie.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService orchestrates the hasher, the token manager and the credential store.
type AuthService struct {
	store       UserStore
	hasher      *PasswordHasher
	tokens      *TokenManager
	revocations RevocationSet
	metrics     *metrics.Recorder
}

// NewAuthService creates a new AuthService. revocations may be nil, in which
// case logout only clears the client cookie.
func NewAuthService(store UserStore, hasher *PasswordHasher, tokens *TokenManager, revocations RevocationSet, rec *metrics.Recorder) *AuthService {
	return &AuthService{
		store:       store,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		metrics:     rec,
	}
}

// Signup creates an account and opens a session for it. The request must
// already be validated. Email uniqueness is left to the store.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			s.metrics.Auth(opSignup, metrics.OutcomeInvalid)
			return nil, apperror.NewValidationError("password must be at most 72 bytes", nil)
		}
		s.metrics.Auth(opSignup, metrics.OutcomeError)
		return nil, apperror.NewInternalError("failed to hash password", err)
	}

	user, err := s.store.CreateUser(ctx, &User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: digest,
		Avatar:       DefaultAvatar,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			s.metrics.Auth(opSignup, metrics.OutcomeConflict)
			return nil, apperror.NewConflictError("email already registered", nil)
		}
		s.metrics.Auth(opSignup, metrics.OutcomeError)
		return nil, apperror.NewUpstreamError("failed to create user", err)
	}

	session, err := s.openSession(user)
	if err != nil {
		s.metrics.Auth(opSignup, metrics.OutcomeError)
		return nil, err
	}
	s.metrics.Auth(opSignup, metrics.OutcomeSuccess)
	return session, nil
}

// Login checks the credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.metrics.Auth(opLogin, metrics.OutcomeRejected)
			return nil, apperror.NewUnauthenticatedError(msgBadCredentials, nil)
		}
		s.metrics.Auth(opLogin, metrics.OutcomeError)
		return nil, apperror.NewUpstreamError("failed to look up user", err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.metrics.Auth(opLogin, metrics.OutcomeRejected)
		return nil, apperror.NewUnauthenticatedError(msgBadCredentials, nil)
	}

	session, err := s.openSession(user)
	if err != nil {
		s.metrics.Auth(opLogin, metrics.OutcomeError)
		return nil, err
	}
	s.metrics.Auth(opLogin, metrics.OutcomeSuccess)
	return session, nil
}

// Logout revokes every valid token presented when a revocation set is
// configured. It never fails: the caller clears the cookie regardless.
func (s *AuthService) Logout(ctx context.Context, tokens ...string) {
	defer s.metrics.Auth(opLogout, metrics.OutcomeSuccess)
	if s.revocations == nil {
		return
	}
	log := logutil.GetOrDefault(ctx)
	for _, token := range tokens {
		claims, err := s.tokens.Verify(ctx, token)
		if err != nil || claims.ExpiresAt == nil {
			continue
		}
		if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			log.Error().Err(err).Str("jti", claims.ID).Msg("failed to revoke session token")
		}
	}
}

// Me resolves the first valid token to a fresh copy of the user row. No
// tokens yields (nil, nil): not being signed in is a normal state.
func (s *AuthService) Me(ctx context.Context, tokens ...string) (*User, error) {
	tokens = nonEmpty(tokens)
	if len(tokens) == 0 {
		s.metrics.Auth(opMe, metrics.OutcomeSuccess)
		return nil, nil
	}

	claims, err := verifyAny(ctx, s.tokens, tokens)
	if errors.Is(err, ErrRevocationLookup) {
		s.metrics.Auth(opMe, metrics.OutcomeError)
		return nil, apperror.NewUpstreamError("failed to check session", err)
	}
	if err != nil {
		log := logutil.GetOrDefault(ctx)
		log.Warn().Str("kind", FailureKind(err)).Err(err).Msg("session token rejected")
		s.metrics.Auth(opMe, metrics.OutcomeRejected)
		return nil, apperror.NewUnauthenticatedError("invalid or expired session", err)
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.metrics.Auth(opMe, metrics.OutcomeRejected)
			return nil, apperror.NewUnauthenticatedError("user not found", nil)
		}
		s.metrics.Auth(opMe, metrics.OutcomeError)
		return nil, apperror.NewUpstreamError("failed to load user", err)
	}
	s.metrics.Auth(opMe, metrics.OutcomeSuccess)
	return user, nil
}

func (s *AuthService) openSession(user *User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(Identity{ID: user.ID, Email: user.Email})
	if err != nil {
		return nil, apperror.NewInternalError("failed to issue session token", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

func nonEmpty(tokens []string) []string {
	out := tokens[:0:0]
	for _, t := range tokens {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
