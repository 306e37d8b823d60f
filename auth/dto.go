// Package auth provides authentication and authorization functionality
// This file, `dto.go` (Data Transfer Object), defines structures used for
// transferring data in API requests and responses related to authentication.
package auth

import (
	"errors"
	"strings"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"

	"github.com/user/moviesns-go/apperror"
)

// minPasswordLength is counted in UTF-16 code units, the way browsers report
// a string's length, so a client-side check and this one always agree.
const minPasswordLength = 6

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("minutf16", func(fl validator.FieldLevel) bool {
		return len(utf16.Encode([]rune(fl.Field().String()))) >= minPasswordLength
	})
	return v
}

// SignupRequest represents the signup request payload
type SignupRequest struct {
	Email           string `json:"email" validate:"required" example:"user@example.com"`
	Password        string `json:"password" validate:"required,minutf16" example:"secret1"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password" example:"secret1"`
}

// Validate reports the first failing rule. Missing fields win over a
// mismatch, and a mismatch wins over a short password.
func (r *SignupRequest) Validate() error {
	r.Email = normalizeEmail(r.Email)
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.NewValidationError("invalid request", err)
	}
	var mismatch, short bool
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			return apperror.NewValidationError("email, password and confirmPassword are required", nil)
		case "eqfield":
			mismatch = true
		case "minutf16":
			short = true
		}
	}
	if mismatch {
		return apperror.NewValidationError("passwords do not match", nil)
	}
	if short {
		return apperror.NewValidationError("password must be at least 6 characters", nil)
	}
	return apperror.NewValidationError("invalid request", err)
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required" example:"user@example.com"`
	Password string `json:"password" validate:"required" example:"secret1"`
}

// Validate checks that both fields are present.
func (r *LoginRequest) Validate() error {
	r.Email = normalizeEmail(r.Email)
	if err := validate.Struct(r); err != nil {
		return apperror.NewValidationError("email and password are required", nil)
	}
	return nil
}

// TokenResponse is returned by signup and login.
type TokenResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"login successful"`
	Token   string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// SuccessResponse is returned by logout.
type SuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"logged out"`
}

// MeResponse carries the current user, or null when nobody is signed in.
type MeResponse struct {
	User *User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
