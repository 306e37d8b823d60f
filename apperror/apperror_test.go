package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NewValidationError("bad", nil), http.StatusBadRequest},
		{NewUnauthenticatedError("who", nil), http.StatusUnauthorized},
		{NewNotFoundError("gone", nil), http.StatusNotFound},
		{NewConflictError("dup", nil), http.StatusConflict},
		{NewMethodNotAllowedError("nope"), http.StatusMethodNotAllowed},
		{NewUpstreamError("db", nil), http.StatusInternalServerError},
		{NewInternalError("boom", nil), http.StatusInternalServerError},
		{NewAppError(UnknownError, "?", nil), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.err.StatusCode(), c.err.Message)
	}
}

func TestFromErrorFollowsWrapping(t *testing.T) {
	inner := NewConflictError("email already registered", nil)
	wrapped := fmt.Errorf("signup: %w", inner)

	got, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.Equal(t, ConflictError, got.Type)

	_, ok = FromError(errors.New("plain"))
	assert.False(t, ok)
	_, ok = FromError(nil)
	assert.False(t, ok)
}

func TestWriteHidesUnderlyingError(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, NewUpstreamError("failed to create user", errors.New("connection refused to 10.0.0.3")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "failed to create user", body.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

func TestWritePlainErrorBecomesInternal(t *testing.T) {
	w := httptest.NewRecorder()
	appErr := Write(w, errors.New("raw driver failure"))

	assert.Equal(t, InternalError, appErr.Type)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "raw driver failure")
}
