package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the taxonomy every request-terminal failure maps into.
// Handlers never build status codes by hand; they return one of these
// and the Fiber error handler renders the uniform envelope.
type Error struct {
	Code        int    // HTTP status.
	Name        string // stable machine name, part of the client contract.
	Description string
	Err         error // wrapped cause, never serialized.
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Name, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Description)
}

func (e *Error) Unwrap() error { return e.Err }

// WithCause attaches the underlying error for logs. Call it only on a
// freshly constructed Error, never on a package-level sentinel.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func Validation(description string) *Error {
	return &Error{Code: http.StatusBadRequest, Name: "ValidationError", Description: description}
}

func Authentication(code int, description string) *Error {
	return &Error{Code: code, Name: "AuthenticationError", Description: description}
}

func NotFound(description string) *Error {
	return &Error{Code: http.StatusNotFound, Name: "NotFoundError", Description: description}
}

func Configuration(description string) *Error {
	return &Error{Code: http.StatusInternalServerError, Name: "ConfigurationError", Description: description}
}

func Upstream(description string, err error) *Error {
	return &Error{Code: http.StatusInternalServerError, Name: "UpstreamError", Description: description, Err: err}
}

// From extracts the typed error from an error chain, or wraps unknown
// errors as a generic 500 so internals never leak into responses.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{
		Code:        http.StatusInternalServerError,
		Name:        "InternalServerError",
		Description: "internal server error",
		Err:         err,
	}
}
