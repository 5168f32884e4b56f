// Package apperr is the error taxonomy shared by the service and HTTP layers.
//
// Every error that leaves a service is either an *AppError or an unexpected
// failure that the HTTP layer turns into an Internal error.
package apperr

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	CodeUnauthenticated      = "UNAUTHENTICATED"
	CodeForbidden            = "FORBIDDEN"
	CodeValidation           = "VALIDATION_ERROR"
	CodeConflict             = "CONFLICT"
	CodeNotFound             = "NOT_FOUND"
	CodeFeatureLimitExceeded = "FEATURE_LIMIT_EXCEEDED"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeAccountBlocked       = "ACCOUNT_BLOCKED"
	CodeInvalidToken         = "INVALID_OR_EXPIRED_TOKEN"
	CodeAlreadyAuthor        = "ALREADY_AUTHOR"
	CodeRequestPending       = "REQUEST_PENDING"
	CodeExternalService      = "EXTERNAL_SERVICE_ERROR"
	CodeRateLimited          = "RATE_LIMITED"
	CodeUnavailable          = "SERVICE_UNAVAILABLE"
	CodeInternal             = "SERVER_ERROR"
)

type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"error"`
	HTTPStatus int          `json:"-"`
	Cause      error        `json:"-"` // logged, never returned to clients
	Details    []FieldError `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

func newErr(code, msg string, status int) *AppError {
	return &AppError{Code: code, Message: msg, HTTPStatus: status}
}

func Unauthenticated(msg string) *AppError {
	if msg == "" {
		msg = "Unauthorized"
	}
	return newErr(CodeUnauthenticated, msg, http.StatusUnauthorized)
}

func Forbidden(msg string) *AppError {
	if msg == "" {
		msg = "Forbidden"
	}
	return newErr(CodeForbidden, msg, http.StatusForbidden)
}

func Validation(msg string, details ...FieldError) *AppError {
	e := newErr(CodeValidation, msg, http.StatusBadRequest)
	e.Details = details
	return e
}

func Conflict(msg string) *AppError {
	return newErr(CodeConflict, msg, http.StatusConflict)
}

func NotFound(resource string) *AppError {
	return newErr(CodeNotFound, resource+" not found", http.StatusNotFound)
}

func FeatureLimitExceeded(max int) *AppError {
	return newErr(CodeFeatureLimitExceeded, "Maximum "+strconv.Itoa(max)+" featured books allowed", http.StatusBadRequest)
}

func InvalidCredentials() *AppError {
	return newErr(CodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
}

func AccountBlocked() *AppError {
	return newErr(CodeAccountBlocked, "Your account has been blocked by admin.", http.StatusForbidden)
}

func InvalidOrExpiredToken() *AppError {
	return newErr(CodeInvalidToken, "Invalid or expired token", http.StatusBadRequest)
}

func AlreadyAuthor() *AppError {
	return newErr(CodeAlreadyAuthor, "Already an author", http.StatusBadRequest)
}

func RequestPending() *AppError {
	return newErr(CodeRequestPending, "Request already pending", http.StatusBadRequest)
}

func ExternalService(msg string, cause error) *AppError {
	e := newErr(CodeExternalService, msg, http.StatusBadGateway)
	e.Cause = cause
	return e
}

func RateLimited() *AppError {
	return newErr(CodeRateLimited, "Too many requests", http.StatusTooManyRequests)
}

func Unavailable(msg string) *AppError {
	return newErr(CodeUnavailable, msg, http.StatusServiceUnavailable)
}

func Internal(cause error) *AppError {
	e := newErr(CodeInternal, "Server error", http.StatusInternalServerError)
	e.Cause = cause
	return e
}

// As returns the *AppError in err's chain, or nil.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// Is reports whether err carries an *AppError with the given code.
func Is(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
