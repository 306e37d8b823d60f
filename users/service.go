// Package users, as part of the user profile management module.
// This file, `service.go`, contains the business logic for user profile operations.
package users

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/user/moviesns-go/apperror"
	"github.com/user/moviesns-go/auth"
)

// UserService provides methods for user profile management.
type UserService struct {
	repo Repository
}

// NewUserService creates a new UserService.
func NewUserService(repo Repository) *UserService {
	return &UserService{repo: repo}
}

// GetPublicProfile returns the public fields of the user with the given id.
func (s *UserService) GetPublicProfile(ctx context.Context, id string) (*PublicProfileResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperror.NewValidationError("invalid user id", nil)
	}
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewUpstreamError("failed to get user profile", err)
	}
	return newPublicProfile(u), nil
}

// GetOwnProfile returns the full profile of the caller, including email.
func (s *UserService) GetOwnProfile(ctx context.Context, id string) (*auth.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// The token outlived its account.
			return nil, apperror.NewUnauthenticatedError("user not found", nil)
		}
		return nil, apperror.NewUpstreamError("failed to get user profile", err)
	}
	return u, nil
}

// UpdateOwnProfile applies req to the caller's profile.
func (s *UserService) UpdateOwnProfile(ctx context.Context, id string, req *UpdateUserProfileRequest) (*auth.User, error) {
	upd, err := req.toUpdate()
	if err != nil {
		return nil, err
	}
	u, err := s.repo.UpdateProfile(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			return nil, apperror.NewUnauthenticatedError("user not found", nil)
		case errors.Is(err, auth.ErrUsernameTaken):
			return nil, apperror.NewConflictError("username already taken", nil)
		}
		return nil, apperror.NewUpstreamError("failed to update user profile", err)
	}
	return u, nil
}
