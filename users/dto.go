// Package users, as part of the user profile management module.
// This file, `dto.go`, defines Data Transfer Objects (DTOs) for the users module.
package users

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/user/moviesns-go/apperror"
	"github.com/user/moviesns-go/auth"
)

var validate = validator.New()

// PublicProfileResponse is what anyone may see about a user.
// @Description Public user profile
type PublicProfileResponse struct {
	// example: "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	ID string `json:"id"`
	// Null until the user picks one.
	// example: "ada"
	Username *string `json:"username"`
	// example: "https://via.placeholder.com/150?text=User"
	Avatar string `json:"avatar"`
	// example: "Watches too many films."
	Bio string `json:"bio"`
	// example: "https://ada.example.com"
	Website   string    `json:"website"`
	CreatedAt time.Time `json:"created_at"`
}

func newPublicProfile(u *auth.User) *PublicProfileResponse {
	return &PublicProfileResponse{
		ID:        u.ID,
		Username:  u.Username,
		Avatar:    u.Avatar,
		Bio:       u.Bio,
		Website:   u.Website,
		CreatedAt: u.CreatedAt,
	}
}

// UpdateUserProfileRequest represents the data for updating a user profile.
// Pointer fields allow partial updates: a nil field is left unchanged.
// @Description Request body for updating user profile
type UpdateUserProfileRequest struct {
	// example: "ada"
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=30,alphanum"`
	// example: "https://cdn.example.com/ada.png"
	Avatar *string `json:"avatar,omitempty" validate:"omitempty,url,max=2048"`
	// example: "Watches too many films."
	Bio *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	// example: "https://ada.example.com"
	Website *string `json:"website,omitempty" validate:"omitempty,url,max=2048"`
}

// toUpdate validates the request and converts it for the repository.
func (r *UpdateUserProfileRequest) toUpdate() (ProfileUpdate, error) {
	if r.Username != nil {
		name := strings.TrimSpace(*r.Username)
		if name == "" {
			return ProfileUpdate{}, apperror.NewValidationError("username must be at least 3 characters", nil)
		}
		r.Username = &name
	}
	if r.Avatar != nil && *r.Avatar == "" {
		avatar := auth.DefaultAvatar
		r.Avatar = &avatar
	}
	upd := ProfileUpdate{
		Username: r.Username,
		Avatar:   r.Avatar,
		Bio:      r.Bio,
		Website:  r.Website,
	}
	if upd.Empty() {
		return upd, apperror.NewValidationError("no profile fields to update", nil)
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return upd, apperror.NewValidationError(describe(verrs[0]), nil)
		}
		return upd, apperror.NewValidationError("invalid profile update", err)
	}
	return upd, nil
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "alphanum":
		return field + " may only contain letters and digits"
	case "url":
		return field + " must be a valid URL"
	default:
		return field + " is invalid"
	}
}
