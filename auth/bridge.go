// Package auth, as part of the authentication module.
// This file, `bridge.go`, defines the request identity bridge: HTTP middleware
// that turns the session cookie into a trusted identity for downstream handlers.
package auth

import (
	"errors"
	"net/http"

	"github.com/user/moviesns-go/apperror"
	"github.com/user/moviesns-go/logutil"
)

// HeaderUserID carries the verified caller id to downstream handlers.
// Clients can never set it: the bridge deletes any inbound value.
const HeaderUserID = "X-User-Id"

// IdentityBridge verifies the session token on each request and, when it is
// valid, republishes the user id as the X-User-Id header and stores the claims
// in the request context. Requests without a valid token pass through
// anonymously; use RequireUser to reject them. If the revocation set cannot be
// consulted the request fails with 500.
func IdentityBridge(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(HeaderUserID)

			tokens := TokensFromRequest(r)
			if len(tokens) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			claims, err := verifyAny(ctx, verifier, tokens)
			if errors.Is(err, ErrRevocationLookup) {
				WriteError(w, r, apperror.NewUpstreamError("failed to check session", err))
				return
			}
			if err != nil {
				log := logutil.GetOrDefault(ctx)
				log.Warn().Str("kind", FailureKind(err)).Err(err).Msg("identity bridge rejected session token")
				next.ServeHTTP(w, r)
				return
			}

			r = r.WithContext(NewContextWithClaims(ctx, claims))
			r.Header.Set(HeaderUserID, claims.UserID)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects requests that the identity bridge did not authenticate.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserIDFromContext(r.Context()); !ok {
			WriteError(w, r, apperror.NewUnauthenticatedError("authentication required", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}
