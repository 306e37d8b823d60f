// Package apperror defines a centralized system for application-specific errors.
// Every HTTP handler converts failures into an AppError at its boundary so that
// no internal error ever reaches the client unformatted.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is an enumeration of application error categories.
type ErrorType int

const (
	// UnknownError is for unspecified errors
	UnknownError ErrorType = iota
	// ValidationError represents malformed or missing input
	ValidationError
	// UnauthenticatedError represents missing, invalid or expired credentials
	UnauthenticatedError
	// NotFoundError represents a referenced entity that does not exist
	NotFoundError
	// ConflictError represents a duplicate value in a unique field
	ConflictError
	// MethodNotAllowedError represents a request with an unsupported HTTP method
	MethodNotAllowedError
	// UpstreamError represents a failure of the store or another external service
	UpstreamError
	// InternalError represents a generic internal server error
	InternalError
)

// AppError is a custom error type for the application.
// Message is user facing; Err carries the underlying cause for logs only.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the string representation of the error, satisfying the `error` interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code appropriate for the error type
func (e *AppError) StatusCode() int {
	switch e.Type {
	case ValidationError:
		return http.StatusBadRequest
	case UnauthenticatedError:
		return http.StatusUnauthorized
	case NotFoundError:
		return http.StatusNotFound
	case ConflictError:
		return http.StatusConflict
	case MethodNotAllowedError:
		return http.StatusMethodNotAllowed
	case UpstreamError, InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError creates a new AppError. This is a generic constructor.
func NewAppError(errType ErrorType, message string, underlyingError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     underlyingError,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(message string, underlyingError error) *AppError {
	return NewAppError(ValidationError, message, underlyingError)
}

// NewUnauthenticatedError creates a new UnauthenticatedError
func NewUnauthenticatedError(message string, underlyingError error) *AppError {
	return NewAppError(UnauthenticatedError, message, underlyingError)
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(message string, underlyingError error) *AppError {
	return NewAppError(NotFoundError, message, underlyingError)
}

// NewConflictError creates a new ConflictError
func NewConflictError(message string, underlyingError error) *AppError {
	return NewAppError(ConflictError, message, underlyingError)
}

// NewMethodNotAllowedError creates a new MethodNotAllowedError
func NewMethodNotAllowedError(message string) *AppError {
	return NewAppError(MethodNotAllowedError, message, nil)
}

// NewUpstreamError creates a new UpstreamError
func NewUpstreamError(message string, underlyingError error) *AppError {
	return NewAppError(UpstreamError, message, underlyingError)
}

// NewInternalError creates a new InternalError
func NewInternalError(message string, underlyingError error) *AppError {
	return NewAppError(InternalError, message, underlyingError)
}

// ErrorResponse represents the error payload returned to API clients.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"A description of the error"`
}

// ToResponse converts an AppError to an ErrorResponse suitable for API responses.
// Only the user-facing Message is included, never the underlying Err.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Success: false, Message: e.Message}
}

// FromError attempts to convert a generic error to an *AppError, following wrap chains.
func FromError(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Write serializes any error as an ErrorResponse. Errors that are not AppErrors
// become a generic 500 so internals are never leaked.
func Write(w http.ResponseWriter, err error) *AppError {
	appErr, ok := FromError(err)
	if !ok {
		appErr = NewInternalError("an unexpected error occurred", err)
	}
	WriteJSON(w, appErr.StatusCode(), appErr.ToResponse())
	return appErr
}

// WriteJSON serializes data to JSON and writes it with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"success":false,"message":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}
