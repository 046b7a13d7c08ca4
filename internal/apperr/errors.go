package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind identifies a class of domain error so controllers can map it to an
// HTTP status without string matching.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindExpired           Kind = "EXPIRED"
	KindImmutableState    Kind = "IMMUTABLE_STATE"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindForbidden         Kind = "FORBIDDEN"
	KindUpstream          Kind = "UPSTREAM"
	KindMalformedResponse Kind = "MALFORMED_RESPONSE"
)

// Error is the single error type the service layer returns for expected
// failures. Unexpected failures stay as plain wrapped errors and surface
// as a generic 500.
type Error struct {
	Kind    Kind
	Message string
	// Violations carries every violated constraint for validation errors,
	// not just the first one.
	Violations []string
	cause      error
}

func (e *Error) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Violations, "; "))
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the error kind to its response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindImmutableState:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Validation(message string, violations ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, Violations: violations}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Expired(format string, args ...any) *Error {
	return &Error{Kind: KindExpired, Message: fmt.Sprintf(format, args...)}
}

func ImmutableState(format string, args ...any) *Error {
	return &Error{Kind: KindImmutableState, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Upstream(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: message, cause: cause}
}

func MalformedResponse(message string, cause error) *Error {
	return &Error{Kind: KindMalformedResponse, Message: message, cause: cause}
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
