// Package auth, as part of the authentication module.
// This file, `context.go`, deals with carrying the verified identity through
// the request `context.Context`.
package auth

import (
	"context"
)

// `contextKey` is a custom type for context keys so they cannot collide with
// keys defined in other packages.
type contextKey string

const (
	claimsContextKey contextKey = "auth_claims"
)

// NewContextWithClaims returns a child context carrying verified claims.
func NewContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext extracts the claims stored by NewContextWithClaims.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// GetUserIDFromContext retrieves the caller's user id placed by the identity bridge.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims.UserID == "" {
		return "", false
	}
	return claims.UserID, true
}
