package common

import (
	"errors"
	"net/http"
)

// Code is a machine-readable protocol error class returned to agents.
type Code string

const (
	CodeInvalidRequest   Code = "INVALID_REQUEST"
	CodeInvalidSignature Code = "INVALID_SIGNATURE"
	CodeTimestampExpired Code = "TIMESTAMP_EXPIRED"
	CodeNonceReused      Code = "NONCE_REUSED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeServerError      Code = "SERVER_ERROR"
)

// InternalErrorMessage is the only message ever returned for SERVER_ERROR.
const InternalErrorMessage = "Internal server error"

// HTTPStatus maps a code to its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeInvalidSignature, CodeTimestampExpired, CodeNonceReused:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a protocol error that is safe to show to the caller.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Is matches on code so errors.Is(err, &Error{Code: CodeNonceReused}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

func NewError(code Code, message string, details map[string]any) *Error {
	if details == nil {
		details = map[string]any{}
	}
	return &Error{Code: code, Message: message, Details: details}
}

func NewValidationError(message string) *Error {
	return NewError(CodeInvalidRequest, message, nil)
}

func NewAuthError(code Code, message string) *Error {
	return NewError(code, message, nil)
}

func NewForbiddenError(message string) *Error {
	return NewError(CodeForbidden, message, nil)
}

func NewNotFoundError(message string) *Error {
	return NewError(CodeNotFound, message, nil)
}

func NewRateLimitError(message string) *Error {
	return NewError(CodeRateLimited, message, nil)
}

// NewServerError returns the generic SERVER_ERROR. The cause is never part of
// the response; log it before calling this.
func NewServerError() *Error {
	return NewError(CodeServerError, InternalErrorMessage, nil)
}

// AsProtocolError extracts a protocol error from err. Anything that is not a
// protocol error collapses to SERVER_ERROR; the second return reports whether
// that happened so the caller can log the original cause.
func AsProtocolError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, false
	}
	return NewServerError(), true
}

// ErrorBody is the wire shape {"error": {...}} used by every transport.
type ErrorBody struct {
	Error *Error `json:"error"`
}
