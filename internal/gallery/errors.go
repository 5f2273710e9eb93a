package gallery

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"gallery/internal/httpx"
)

// Kind classifies a handler failure and decides its HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

const (
	msgAuthRequired     = "Authentication required"
	msgInvalidBody      = "Invalid request body"
	msgInternal         = "Internal server error"
	msgUserNotFound     = "User not found"
	msgNoProfileImage   = "No profile image set"
	msgNotFound         = "Not found"
	msgMethodNotAllowed = "Method not allowed"
)

// Error is a handler failure. Message is shown to the client; Err is the
// underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func notFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func authError() *Error {
	return &Error{Kind: KindAuth, Message: msgAuthRequired}
}

func internalError(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msgInternal, Err: fmt.Errorf("%s: %w", op, err)}
}

// writeError maps err to a JSON error response. Anything that is not an
// *Error is treated as internal.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindInternal, Message: msgInternal, Err: err}
	}

	if e.Kind == KindInternal {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", e.Err)
		httpx.WriteError(w, e.Kind.Status(), msgInternal)
		return
	}

	httpx.WriteError(w, e.Kind.Status(), e.Message)
}
