// Package apperr funnels the edge plane's error taxonomy into a single place:
// typed error codes, each mapped to one HTTP status. Handlers return a
// *apperr.Error (carrying one of these codes) and a single
// httpserver.RespondAppError call maps it to the wire response, instead of
// scattering status codes across handlers.
package apperr

import (
	"errors"
	"net/http"
)

// Code identifies one of the error taxonomy entries from the error handling design.
type Code string

const (
	CodeAuthMissing         Code = "auth_missing"
	CodeAuthInvalid         Code = "auth_invalid"
	CodeAuthInactive        Code = "auth_inactive"
	CodeAuthExpired         Code = "auth_expired"
	CodeDomainNotAllowed    Code = "domain_not_allowed"
	CodeInvalidEmail        Code = "invalid_email"
	CodeInvalidOrExpired    Code = "invalid_or_expired_code"
	CodeRateLimitExceeded   Code = "rate_limit_exceeded"
	CodeUpstreamTimeout     Code = "upstream_timeout"
	CodeUpstreamUnavailable Code = "upstream_unavailable"
	CodeUpstreamError       Code = "upstream_error"
	CodeEmailSendFailed     Code = "email_send_failed"
	CodeNotFound            Code = "not_found"
	CodeInvalidTier         Code = "invalid_tier"
	CodeBadRequest          Code = "bad_request"
	CodeInternal            Code = "internal_error"
)

var statusByCode = map[Code]int{
	CodeAuthMissing:         http.StatusUnauthorized,
	CodeAuthInvalid:         http.StatusUnauthorized,
	CodeAuthInactive:        http.StatusUnauthorized,
	CodeAuthExpired:         http.StatusUnauthorized,
	CodeDomainNotAllowed:    http.StatusBadRequest,
	CodeInvalidEmail:        http.StatusBadRequest,
	CodeInvalidOrExpired:    http.StatusBadRequest,
	CodeRateLimitExceeded:   http.StatusTooManyRequests,
	CodeUpstreamTimeout:     http.StatusGatewayTimeout,
	CodeUpstreamUnavailable: http.StatusBadGateway,
	CodeUpstreamError:       http.StatusInternalServerError,
	CodeEmailSendFailed:     http.StatusInternalServerError,
	CodeNotFound:            http.StatusNotFound,
	CodeInvalidTier:         http.StatusBadRequest,
	CodeBadRequest:          http.StatusBadRequest,
	CodeInternal:            http.StatusInternalServerError,
}

// Error is a tagged error carrying an HTTP-mappable code and a caller-safe message.
type Error struct {
	Code    Code
	Message string
	// RetryAfterSeconds is set only for CodeRateLimitExceeded.
	RetryAfterSeconds int
	err               error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

// Status returns the HTTP status code for this error's taxonomy entry.
func (e *Error) Status() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates a tagged error with a caller-safe message and no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a tagged error that wraps an internal cause. The cause is
// never included in the message surfaced to the client.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, err: cause}
}

// RateLimited creates a CodeRateLimitExceeded error carrying the Retry-After value.
func RateLimited(message string, retryAfterSeconds int) *Error {
	return &Error{Code: CodeRateLimitExceeded, Message: message, RetryAfterSeconds: retryAfterSeconds}
}

// As extracts an *Error from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
