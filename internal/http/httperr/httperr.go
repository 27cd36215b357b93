// Package httperr carries HTTP status information through gin's error list.
package httperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error with a client facing status and detail.
type Error struct {
	Status  int
	Detail  any
	Headers map[string]string
	// Unauthenticated marks failures of the bearer token guard.
	Unauthenticated bool
	Err             error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %v: %v", e.Status, e.Detail, e.Err)
	}
	return fmt.Sprintf("%d %v", e.Status, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, detail any) *Error {
	return &Error{Status: status, Detail: detail}
}

func Wrap(status int, detail any, err error) *Error {
	return &Error{Status: status, Detail: detail, Err: err}
}

func BadRequest(detail any) *Error { return New(http.StatusBadRequest, detail) }

func NotFound(detail any) *Error { return New(http.StatusNotFound, detail) }

func Conflict(detail any) *Error { return New(http.StatusConflict, detail) }

func Forbidden(detail any) *Error { return New(http.StatusForbidden, detail) }

// Unauthorized is a 401 that keeps its detail, e.g. a failed login.
func Unauthorized(detail any) *Error {
	return &Error{
		Status:  http.StatusUnauthorized,
		Detail:  detail,
		Headers: map[string]string{"WWW-Authenticate": "Bearer"},
	}
}

// Unauthenticated is a 401 raised by the auth guard; the response body is
// normalised by the error middleware.
func Unauthenticated(cause error) *Error {
	return &Error{
		Status:          http.StatusUnauthorized,
		Detail:          "Could not validate credentials",
		Headers:         map[string]string{"WWW-Authenticate": "Bearer"},
		Unauthenticated: true,
		Err:             cause,
	}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
