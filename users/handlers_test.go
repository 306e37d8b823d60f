package users

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"

	"github.com/user/moviesns-go/auth"
)

type profileFixture struct {
	repo    *MemoryRepository
	tokens  *auth.TokenManager
	handler http.Handler
}

func newProfileFixture() *profileFixture {
	repo := NewMemoryRepository()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.IdentityBridge(tokens))
		r.Route("/users", NewUserHandlers(NewUserService(repo)).RegisterRoutes)
	})
	return &profileFixture{repo: repo, tokens: tokens, handler: r}
}

func (f *profileFixture) user(t *testing.T, email string) (*auth.User, string) {
	t.Helper()
	u, err := f.repo.CreateUser(context.Background(), &auth.User{Email: email, PasswordHash: "digest"})
	require.NoError(t, err)
	token, _, err := f.tokens.Issue(auth.Identity{ID: u.ID, Email: u.Email})
	require.NoError(t, err)
	return u, token
}

func TestGetPublicProfile(t *testing.T) {
	f := newProfileFixture()
	u, _ := f.user(t, "ada@example.com")

	apitest.New().
		Handler(f.handler).
		Get("/api/users/" + u.ID).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.id", u.ID)).
		Assert(jsonpath.Equal("$.avatar", auth.DefaultAvatar)).
		Assert(jsonpath.NotPresent("$.email")).
		End()
}

func TestGetPublicProfileErrors(t *testing.T) {
	f := newProfileFixture()

	apitest.New().
		Handler(f.handler).
		Get("/api/users/not-a-uuid").
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Equal("$.message", "invalid user id")).
		End()

	apitest.New().
		Handler(f.handler).
		Get("/api/users/00000000-0000-0000-0000-000000000000").
		Expect(t).
		Status(http.StatusNotFound).
		Assert(jsonpath.Equal("$.success", false)).
		End()
}

func TestGetOwnProfile(t *testing.T) {
	f := newProfileFixture()
	u, token := f.user(t, "ada@example.com")

	apitest.New().
		Handler(f.handler).
		Get("/api/users/me").
		Cookie(auth.SessionCookieName, token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.id", u.ID)).
		Assert(jsonpath.Equal("$.email", "ada@example.com")).
		Assert(jsonpath.NotPresent("$.password_hash")).
		End()

	apitest.New().
		Handler(f.handler).
		Get("/api/users/me").
		Header(auth.HeaderUserID, u.ID).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestUpdateOwnProfile(t *testing.T) {
	f := newProfileFixture()
	_, token := f.user(t, "ada@example.com")

	apitest.New().
		Handler(f.handler).
		Put("/api/users/me").
		Cookie(auth.SessionCookieName, token).
		JSON(`{"username":"ada","bio":"Watches too many films.","website":"https://ada.example.com"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.username", "ada")).
		Assert(jsonpath.Equal("$.bio", "Watches too many films.")).
		Assert(jsonpath.Equal("$.website", "https://ada.example.com")).
		End()
}

func TestUpdateOwnProfileValidation(t *testing.T) {
	f := newProfileFixture()
	_, token := f.user(t, "ada@example.com")

	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"empty", `{}`, "no profile fields to update"},
		{"short username", `{"username":"ab"}`, "username must be at least 3 characters"},
		{"blank username", `{"username":"   "}`, "username must be at least 3 characters"},
		{"bad website", `{"website":"not a url"}`, "website must be a valid URL"},
		{"not json", `bio=hi`, "invalid request body"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			apitest.New().
				Handler(f.handler).
				Put("/api/users/me").
				Cookie(auth.SessionCookieName, token).
				JSON(c.body).
				Expect(t).
				Status(http.StatusBadRequest).
				Assert(jsonpath.Equal("$.message", c.msg)).
				End()
		})
	}
}

func TestUpdateOwnProfileUsernameTaken(t *testing.T) {
	f := newProfileFixture()
	_, first := f.user(t, "ada@example.com")
	_, second := f.user(t, "grace@example.com")

	apitest.New().
		Handler(f.handler).
		Put("/api/users/me").
		Cookie(auth.SessionCookieName, first).
		JSON(`{"username":"cinephile"}`).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().
		Handler(f.handler).
		Put("/api/users/me").
		Cookie(auth.SessionCookieName, second).
		JSON(`{"username":"cinephile"}`).
		Expect(t).
		Status(http.StatusConflict).
		Assert(jsonpath.Equal("$.message", "username already taken")).
		End()
}
