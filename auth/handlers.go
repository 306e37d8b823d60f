// Package auth, as part of the authentication module.
// This file, `handlers.go`, is responsible for handling HTTP requests related to authentication.
package auth

import (
	"encoding/json"
	"net/http"

	"github.com/user/moviesns-go/apperror"
	"github.com/user/moviesns-go/logutil"
)

// Handlers wraps the AuthService to provide HTTP handlers
type Handlers struct {
	service *AuthService
	cookie  CookieOptions
}

// NewHandlers creates a new Handlers instance
func NewHandlers(service *AuthService, cookie CookieOptions) *Handlers {
	return &Handlers{service: service, cookie: cookie}
}

// HandleSignup godoc
// @Summary User Signup
// @Description Registers a new user and opens a session.
// @Tags Auth
// @Accept json
// @Produce json
// @Param signupBody body auth.SignupRequest true "Signup details"
// @Success 201 {object} auth.TokenResponse
// @Failure 400 {object} apperror.ErrorResponse "Missing fields, mismatched or short password"
// @Failure 409 {object} apperror.ErrorResponse "Email already registered"
// @Failure 500 {object} apperror.ErrorResponse
// @Router /auth/signup [post]
func (h *Handlers) HandleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewValidationError("invalid request body", err))
			return
		}
		if err := req.Validate(); err != nil {
			WriteError(w, r, err)
			return
		}

		session, err := h.service.Signup(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		setSessionCookie(w, session.Token, session.ExpiresAt, h.cookie)
		writeJSON(w, http.StatusCreated, TokenResponse{
			Success: true,
			Message: "signup successful",
			Token:   session.Token,
		})
	}
}

// HandleLogin godoc
// @Summary User Login
// @Description Checks credentials and opens a session.
// @Tags Auth
// @Accept json
// @Produce json
// @Param loginBody body auth.LoginRequest true "User login credentials"
// @Success 200 {object} auth.TokenResponse
// @Failure 400 {object} apperror.ErrorResponse "Missing fields"
// @Failure 401 {object} apperror.ErrorResponse "Email or password incorrect"
// @Failure 500 {object} apperror.ErrorResponse
// @Router /auth/login [post]
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewValidationError("invalid request body", err))
			return
		}
		if err := req.Validate(); err != nil {
			WriteError(w, r, err)
			return
		}

		session, err := h.service.Login(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		setSessionCookie(w, session.Token, session.ExpiresAt, h.cookie)
		writeJSON(w, http.StatusOK, TokenResponse{
			Success: true,
			Message: "login successful",
			Token:   session.Token,
		})
	}
}

// HandleLogout godoc
// @Summary User Logout
// @Description Clears the session cookie. Calling it twice is harmless.
// @Tags Auth
// @Produce json
// @Success 200 {object} auth.SuccessResponse
// @Failure 405 {object} apperror.ErrorResponse
// @Router /auth/logout [post]
func (h *Handlers) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.service.Logout(r.Context(), TokensFromRequest(r)...)
		clearSessionCookie(w, h.cookie)
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "logged out"})
	}
}

// HandleMe godoc
// @Summary Current session
// @Description Returns the signed-in user, or {"user": null} when there is no session.
// @Tags Auth
// @Produce json
// @Success 200 {object} auth.MeResponse
// @Failure 401 {object} apperror.ErrorResponse "Invalid, expired or orphaned session"
// @Router /auth/me [get]
func (h *Handlers) HandleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.service.Me(r.Context(), TokensFromRequest(r)...)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MeResponse{User: user})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	apperror.WriteJSON(w, status, data)
}

// WriteError converts err into the standard error body. Server-side failures
// are logged with their cause; client errors only at debug.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.Write(w, err)
	log := logutil.GetOrDefault(r.Context())
	if appErr.StatusCode() >= http.StatusInternalServerError {
		log.Error().Err(appErr).Str("path", r.URL.Path).Msg("request failed")
		return
	}
	log.Debug().Err(appErr).Str("path", r.URL.Path).Int("status", appErr.StatusCode()).Msg("request rejected")
}
