package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/moviesns-go/metrics"
)

const testSecret = "test-secret"

var testIdentity = Identity{ID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", Email: "ada@example.com"}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenIssueVerify(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewTokenManager(testSecret, time.Hour, WithClock(fixedClock(now)))

	token, expiresAt, err := m.Issue(testIdentity)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := m.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, testIdentity.ID, claims.UserID)
	assert.Equal(t, testIdentity.Email, claims.Email)
	assert.Equal(t, testIdentity.ID, claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenIDsAreUnique(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	a, _, err := m.Issue(testIdentity)
	require.NoError(t, err)
	b, _, err := m.Issue(testIdentity)
	require.NoError(t, err)

	ca, err := m.Verify(context.Background(), a)
	require.NoError(t, err)
	cb, err := m.Verify(context.Background(), b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestTokenDefaultTTL(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, NewTokenManager(testSecret, 0).TTL())
}

func TestTokenExpired(t *testing.T) {
	issuedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenManager(testSecret, time.Hour, WithClock(fixedClock(issuedAt)))
	token, _, err := issuer.Issue(testIdentity)
	require.NoError(t, err)

	later := NewTokenManager(testSecret, time.Hour, WithClock(fixedClock(issuedAt.Add(time.Hour+time.Second))))
	_, err = later.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "expired", FailureKind(err))
}

func TestTokenWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("another-secret", time.Hour).Issue(testIdentity)
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret, time.Hour).Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenInvalidSignature)
	assert.Equal(t, "invalid_signature", FailureKind(err))
}

func TestTokenTamperedPayload(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	token, _, err := m.Issue(testIdentity)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["id"] = "00000000-0000-0000-0000-000000000000"
	forged, err := json.Marshal(payload)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)

	_, err = m.Verify(context.Background(), strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrTokenInvalidSignature)
}

func TestTokenBitFlipInSignature(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	token, _, err := m.Issue(testIdentity)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	sig[0] ^= 0x01
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)

	_, err = m.Verify(context.Background(), strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrTokenInvalidSignature)
	assert.Equal(t, "invalid_signature", FailureKind(err))
}

func TestTokenEveryBitFlipInSignatureIsRejected(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	for i := 0; i < 20; i++ {
		token, _, err := m.Issue(testIdentity)
		require.NoError(t, err)
		sigStart := strings.LastIndex(token, ".") + 1

		for pos := sigStart; pos < len(token); pos++ {
			for bit := 0; bit < 8; bit++ {
				raw := []byte(token)
				raw[pos] ^= 1 << bit
				_, err := m.Verify(context.Background(), string(raw))
				require.ErrorIs(t, err, ErrTokenInvalidSignature, "position %d bit %d", pos-sigStart, bit)
			}
		}
	}
}

func TestTokenSignatureTrailingBitsAreSignificant(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	token, _, err := m.Issue(testIdentity)
	require.NoError(t, err)

	// The last of 43 base64url characters carries two unused low bits.
	last := strings.IndexByte(base64URLAlphabet, token[len(token)-1])
	require.GreaterOrEqual(t, last, 0)
	sibling := base64URLAlphabet[last^0x01]
	forged := token[:len(token)-1] + string(sibling)

	_, err = m.Verify(context.Background(), forged)
	assert.ErrorIs(t, err, ErrTokenInvalidSignature)
}

const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		UserID: testIdentity.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret, time.Hour).Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenInvalidSignature)
}

func TestTokenMalformed(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	for _, token := range []string{"abc", "a.b.c", "...", "eyJhbGciOiJIUzI1NiJ9"} {
		_, err := m.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrTokenMalformed, token)
		assert.Equal(t, "malformed", FailureKind(err), token)
	}
}

func TestTokenMissingClaims(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "ada@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = m.Verify(context.Background(), noID)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id": testIdentity.ID,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = m.Verify(context.Background(), noExp)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenInvalidSignature)
}

func TestTokenRevoked(t *testing.T) {
	set, err := InMemoryRevocations(time.Hour)
	require.NoError(t, err)
	rec := metrics.New()
	m := NewTokenManager(testSecret, time.Hour, WithRevocations(set), WithMetrics(rec))

	token, expiresAt, err := m.Issue(testIdentity)
	require.NoError(t, err)
	claims, err := m.Verify(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, set.Revoke(context.Background(), claims.ID, expiresAt))
	_, err = m.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.Equal(t, "revoked", FailureKind(err))
	assert.Equal(t, float64(1), testutil.ToFloat64(rec.TokenVerifyFailures.WithLabelValues("revoked")))
}

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Time) error { return nil }
func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("cache unavailable")
}

func TestTokenRevocationLookupFailure(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour, WithRevocations(failingRevocations{}))
	token, _, err := m.Issue(testIdentity)
	require.NoError(t, err)

	_, err = m.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrRevocationLookup)
	assert.NotErrorIs(t, err, ErrTokenRevoked)
	assert.Equal(t, "lookup_failed", FailureKind(err))
}

func TestTokenFailuresAreCounted(t *testing.T) {
	rec := metrics.New()
	m := NewTokenManager(testSecret, time.Hour, WithMetrics(rec))

	_, _ = m.Verify(context.Background(), "garbage")
	_, _ = m.Verify(context.Background(), "garbage")

	assert.Equal(t, float64(2), testutil.ToFloat64(rec.TokenVerifyFailures.WithLabelValues("malformed")))
}
