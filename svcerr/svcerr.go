// Package svcerr defines the error taxonomy shared by the lifecycle and
// export services and its mapping onto HTTP statuses.
package svcerr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeNotFound  Code = "not_found"
	CodeInvalid   Code = "invalid"
	CodeStorage   Code = "storage"
	CodePackaging Code = "packaging"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) error { return &Error{Code: CodeNotFound, Message: msg} }

func Invalid(msg string) error { return &Error{Code: CodeInvalid, Message: msg} }

// Storage wraps an underlying store or filesystem failure.
func Storage(msg string, err error) error {
	return &Error{Code: CodeStorage, Message: msg, Err: err}
}

// Packaging wraps an archive assembly failure.
func Packaging(msg string, err error) error {
	return &Error{Code: CodePackaging, Message: msg, Err: err}
}

func As(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	se, ok := As(err)
	return ok && se.Code == CodeNotFound
}

// HTTPStatus maps an error to the status the handlers should respond with.
func HTTPStatus(err error) int {
	se, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch se.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
