// Package apperrors defines the stable error codes returned by the API and
// the single mapping from error kind to HTTP status. Handlers build these
// instead of choosing status codes ad hoc.
package apperrors

import "net/http"

type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindDuplicate    Kind = "duplicate_key"
	KindUnauthorized Kind = "unauthorized"
	KindInvalidToken Kind = "invalid_token"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindInternal     Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindValidation:   http.StatusBadRequest,
	KindDuplicate:    http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindInvalidToken: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindNotFound:     http.StatusNotFound,
	KindInternal:     http.StatusInternalServerError,
}

// StatusOf returns the HTTP status for a kind. Unknown kinds fall back to
// 500 rather than leaking a zero status.
func StatusOf(kind Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is a user-facing failure: the message is safe to serialize as-is.
type Error struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) *Error   { return New(KindValidation, message) }
func Duplicate(message string) *Error    { return New(KindDuplicate, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func InvalidToken(message string) *Error { return New(KindInvalidToken, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Internal(message string) *Error     { return New(KindInternal, message) }
