// Package auth, as part of the authentication module.
// This file, `cookie.go`, writes and clears the session cookie and extracts
// session tokens from incoming requests.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "token"

// CookieOptions controls the attributes of the session cookie.
type CookieOptions struct {
	Secure bool
}

// setSessionCookie makes the cookie live exactly as long as the token it carries.
func setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, opts CookieOptions) {
	maxAge := int(time.Until(expiresAt).Round(time.Second) / time.Second)
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clearSessionCookie emits Max-Age=0 so the browser drops the cookie.
func clearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// TokensFromRequest returns the candidate session tokens of r in the order
// they are tried: the cookie first, then an `Authorization: Bearer` header.
// Duplicates and empty values are dropped.
func TokensFromRequest(r *http.Request) []string {
	var tokens []string
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		tokens = append(tokens, c.Value)
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		if bearer := strings.TrimSpace(parts[1]); bearer != "" && (len(tokens) == 0 || tokens[0] != bearer) {
			tokens = append(tokens, bearer)
		}
	}
	return tokens
}

// verifyAny returns the claims of the first candidate that verifies. A stale
// cookie therefore does not hide a valid Bearer token. When every candidate
// fails, the first failure is returned; a revocation lookup failure stops the
// search at once.
func verifyAny(ctx context.Context, verifier TokenVerifier, tokens []string) (*Claims, error) {
	var firstErr error
	for _, token := range tokens {
		claims, err := verifier.Verify(ctx, token)
		if err == nil {
			return claims, nil
		}
		if errors.Is(err, ErrRevocationLookup) {
			return nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
