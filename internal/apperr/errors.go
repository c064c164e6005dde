package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors, one per failure kind. AppError values unwrap to these so
// callers can use errors.Is.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUpstream         = errors.New("upstream error")
	ErrSignatureInvalid = errors.New("signature invalid")
)

// AppError is a classified error carrying an HTTP status and a message that
// is safe to show to the caller.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *AppError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

// Cause returns the wrapped infrastructure error, if any.
func (e *AppError) Cause() error {
	return e.cause
}

// InvalidRequest creates a 400 error.
func InvalidRequest(message string) *AppError {
	return &AppError{
		Code:    "INVALID_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidRequest,
	}
}

// NotFound creates a 404 error naming the missing ids.
func NotFound(resource string, ids ...string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("unknown %s: %s", resource, strings.Join(ids, ", ")),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Upstream creates a 502 error wrapping a failed database, storage or
// gateway call. The cause is kept for logging and never shown by Message.
func Upstream(message string, cause error) *AppError {
	return &AppError{
		Code:    "UPSTREAM_ERROR",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     ErrUpstream,
		cause:   cause,
	}
}

// SignatureInvalid creates a 400 error for a failed webhook authenticity check.
func SignatureInvalid(cause error) *AppError {
	return &AppError{
		Code:    "SIGNATURE_INVALID",
		Message: "invalid webhook signature",
		Status:  http.StatusBadRequest,
		Err:     ErrSignatureInvalid,
		cause:   cause,
	}
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrSignatureInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
