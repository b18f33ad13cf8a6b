// Package apperr defines the error taxonomy shared by the services. Every
// error carries the client-facing detail and maps to one HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kinds, matched with errors.Is.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrToken          = errors.New("invalid token")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
)

type Error struct {
	kind   error
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Detail + ": " + e.Cause.Error()
	}
	return e.Detail
}

func (e *Error) Is(target error) bool { return target == e.kind }
func (e *Error) Unwrap() error        { return e.Cause }

// StatusCode maps the kind to its HTTP status.
func (e *Error) StatusCode() int {
	switch e.kind {
	case ErrAuthentication, ErrToken:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation, ErrConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WithCause attaches the underlying error, kept out of the client detail.
func (e *Error) WithCause(err error) *Error {
	return &Error{kind: e.kind, Detail: e.Detail, Cause: err}
}

func newf(kind error, format string, args ...any) *Error {
	return &Error{kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func Authentication(format string, args ...any) *Error { return newf(ErrAuthentication, format, args...) }
func Token(format string, args ...any) *Error          { return newf(ErrToken, format, args...) }
func Forbidden(format string, args ...any) *Error      { return newf(ErrForbidden, format, args...) }
func NotFound(format string, args ...any) *Error       { return newf(ErrNotFound, format, args...) }
func Validation(format string, args ...any) *Error     { return newf(ErrValidation, format, args...) }
func Conflict(format string, args ...any) *Error       { return newf(ErrConflict, format, args...) }

// Passthrough is a downstream response that must reach the caller verbatim.
type Passthrough struct {
	Status      int
	ContentType string
	Body        []byte
}

func (p *Passthrough) Error() string {
	return fmt.Sprintf("upstream responded %d", p.Status)
}
