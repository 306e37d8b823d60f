package logutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	ctx := WithLogger(context.Background(), l)

	got := GetOrDefault(ctx)
	got.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New("bogus", "json", &buf)
	l.Debug().Msg("hidden")
	l.Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), `"service":"moviesns"`)
}

func TestMiddlewareWritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	h := Middleware(New("info", "json", &buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := GetOrDefault(r.Context())
		l.Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var access map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[1], &access))
	assert.Equal(t, "/auth/me", access["path"])
	assert.EqualValues(t, http.StatusTeapot, access["status"])
	assert.NotEmpty(t, access["req_id"])
}
