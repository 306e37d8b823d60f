// Package users encapsulates all functionality related to user profile management.
// This file, `handlers.go`, is responsible for handling HTTP requests related to users.
package users

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/moviesns-go/apperror"
	"github.com/user/moviesns-go/auth"
)

// UserHandlers provides HTTP handlers for user profile management.
type UserHandlers struct {
	service *UserService
}

// NewUserHandlers creates new UserHandlers.
func NewUserHandlers(service *UserService) *UserHandlers {
	return &UserHandlers{service: service}
}

// RegisterRoutes mounts the profile routes. The caller must have installed
// auth.IdentityBridge on r; the /me routes additionally require a user.
func (h *UserHandlers) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)
		r.Get("/me", h.HandleGetUserProfile())
		r.Put("/me", h.HandleUpdateUserProfile())
	})
	r.Get("/{id}", h.HandleGetPublicProfile())
}

// HandleGetPublicProfile godoc
// @Summary Get a user's public profile
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} PublicProfileResponse
// @Failure 400 {object} apperror.ErrorResponse "Invalid user id"
// @Failure 404 {object} apperror.ErrorResponse "User not found"
// @Router /api/users/{id} [get]
func (h *UserHandlers) HandleGetPublicProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := h.service.GetPublicProfile(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		apperror.WriteJSON(w, http.StatusOK, profile)
	}
}

// HandleGetUserProfile godoc
// @Summary Get current user's profile
// @Tags users
// @Produce json
// @Success 200 {object} auth.User
// @Failure 401 {object} apperror.ErrorResponse "No valid session"
// @Router /api/users/me [get]
func (h *UserHandlers) HandleGetUserProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewUnauthenticatedError("authentication required", nil))
			return
		}

		profile, err := h.service.GetOwnProfile(r.Context(), userID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		apperror.WriteJSON(w, http.StatusOK, profile)
	}
}

// HandleUpdateUserProfile godoc
// @Summary Update current user's profile
// @Tags users
// @Accept json
// @Produce json
// @Param userProfile body UpdateUserProfileRequest true "Fields to change"
// @Success 200 {object} auth.User
// @Failure 400 {object} apperror.ErrorResponse "Invalid input data"
// @Failure 401 {object} apperror.ErrorResponse "No valid session"
// @Failure 409 {object} apperror.ErrorResponse "Username already taken"
// @Router /api/users/me [put]
func (h *UserHandlers) HandleUpdateUserProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewUnauthenticatedError("authentication required", nil))
			return
		}

		var req UpdateUserProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewValidationError("invalid request body", err))
			return
		}

		profile, err := h.service.UpdateOwnProfile(r.Context(), userID, &req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}
		apperror.WriteJSON(w, http.StatusOK, profile)
	}
}
