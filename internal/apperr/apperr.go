// Package apperr implements the typed error taxonomy and its mapping
// to HTTP status codes, so every layer of the control plane surfaces
// one consistent error shape instead of ad hoc strings.
package apperr

import (
	"fmt"
	"net/http"
)

// Code is one of the taxonomy values enumerated by the error-handling
// design: validation, auth, state, and transport-level failures that
// every component maps onto the same status table.
type Code string

const (
	ValidationFailed    Code = "validation_failed"
	Unauthenticated     Code = "unauthenticated"
	Forbidden           Code = "forbidden"
	NotFound            Code = "not_found"
	InvalidState        Code = "invalid_state"
	Expired             Code = "expired"
	Gone                Code = "gone"
	Oversize            Code = "oversize"
	UnsupportedMedia    Code = "unsupported_media"
	PasswordRequired    Code = "password_required"
	PasswordIncorrect   Code = "password_incorrect"
	QuotaExceeded       Code = "quota_exceeded"
	RateLimited         Code = "rate_limited"
	UnknownPeer         Code = "unknown_peer"
	CrossRoomForbidden  Code = "cross_room_forbidden"
	FrameTooLarge       Code = "frame_too_large"
	SendBufferExhausted Code = "send_buffer_exhausted"
	Unavailable         Code = "unavailable"
	Internal            Code = "internal"
)

var statusByCode = map[Code]int{
	ValidationFailed:    http.StatusBadRequest,
	Unauthenticated:     http.StatusUnauthorized,
	Forbidden:           http.StatusForbidden,
	NotFound:            http.StatusNotFound,
	InvalidState:        http.StatusConflict,
	Expired:             http.StatusGone,
	Gone:                http.StatusGone,
	Oversize:            http.StatusRequestEntityTooLarge,
	UnsupportedMedia:    http.StatusUnsupportedMediaType,
	PasswordRequired:    http.StatusLocked,
	PasswordIncorrect:   http.StatusLocked,
	QuotaExceeded:       http.StatusPaymentRequired,
	RateLimited:         http.StatusTooManyRequests,
	UnknownPeer:         http.StatusBadRequest,
	CrossRoomForbidden:  http.StatusForbidden,
	FrameTooLarge:       http.StatusRequestEntityTooLarge,
	SendBufferExhausted: http.StatusServiceUnavailable,
	Unavailable:         http.StatusServiceUnavailable,
	Internal:            http.StatusInternalServerError,
}

// Error is the typed error every component returns instead of a bare
// error string, carrying the taxonomy code alongside a human message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error that carries an underlying cause for logging.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// StatusFor returns the HTTP status spec §6 assigns to a taxonomy code.
func StatusFor(code Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// As extracts an *Error from any error, defaulting to Internal when
// the error did not originate from this package.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*Error); ok {
		return appErr
	}
	return Wrap(Internal, "unexpected error", err)
}
