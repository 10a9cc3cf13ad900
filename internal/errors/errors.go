// Package errors provides the HTTP error surface: typed API errors,
// RFC 7807 problem responses, and the mapping from engine errors to
// status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is an error that can be rendered as a JSON response.
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates an APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates an APIError carrying structured details.
func NewWithDetails(statusCode int, errorCode, message string, details any) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined errors for common cases.
var (
	ErrInvalidRequest = New(http.StatusBadRequest, "INVALID_REQUEST", "The request is invalid")
	ErrNotFound       = New(http.StatusNotFound, "NOT_FOUND", "The requested resource was not found")
	ErrUnauthorized   = New(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	ErrRateLimited    = New(http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
	ErrInternal       = New(http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	ErrUnavailable    = New(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The service is temporarily unavailable")
)

// ErrorResponse is the JSON envelope for error responses.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// Render implements render.Renderer.
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Error.StatusCode)
	return nil
}

// WriteError renders err as a JSON error response. Non-API errors are
// wrapped as internal errors so their text never leaks to clients.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = ErrInternal
	}
	render.Render(w, r, &ErrorResponse{Success: false, Error: apiErr})
}
