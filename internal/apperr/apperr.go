// Package apperr defines the closed error taxonomy shared by the sync
// engine, the invitation resolver and the HTTP layer. Repositories
// translate Firestore gRPC status codes into these codes so callers
// never match on transport errors directly.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code classifies a failure.
type Code string

const (
	Unauthenticated  Code = "unauthenticated"
	PermissionDenied Code = "permission-denied"
	NotFound         Code = "not-found"
	AlreadyExists    Code = "already-exists"
	Expired          Code = "expired"
	Unavailable      Code = "unavailable"
	Unknown          Code = "unknown"
)

// Error carries a machine-readable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf extracts the taxonomy code from err, walking the wrap chain.
// Returns Unknown for foreign errors and the empty code for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// FromStatus classifies a remote store failure by its gRPC status code.
func FromStatus(msg string, err error) *Error {
	code := Unknown
	switch status.Code(err) {
	case codes.NotFound:
		code = NotFound
	case codes.PermissionDenied:
		code = PermissionDenied
	case codes.AlreadyExists:
		code = AlreadyExists
	case codes.Unauthenticated:
		code = Unauthenticated
	case codes.Unavailable, codes.DeadlineExceeded:
		code = Unavailable
	}
	return Wrap(code, msg, err)
}

// HTTPStatus maps a taxonomy code to the HTTP status the API layer
// should respond with.
func HTTPStatus(code Code) int {
	switch code {
	case Unauthenticated:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	case Expired:
		return http.StatusGone
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
