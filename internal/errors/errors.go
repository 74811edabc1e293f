// Package errors defines the coded error type shared by the preference
// service and its transports.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes. Each maps onto exactly one transport status.
const (
	EInvalid      = "invalid"
	EUnauthorized = "unauthorized"
	ENotFound     = "not found"
	EConflict     = "conflict"
	EInternal     = "internal error"
)

// Error carries a machine-readable Code, a human-readable Msg, the logical
// operation Op where it happened and an optional wrapped Err.
//
//	&Error{Code: ENotFound, Op: "prefs.readDocument", Msg: "document abc not found"}
type Error struct {
	Code string
	Msg  string
	Op   string
	Err  error
}

// New returns an Error with the given code and formatted message.
func New(code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error with the given code wrapping err.
func Wrap(code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Msg != "" && e.Err != nil {
		var b strings.Builder
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
		return b.String()
	} else if e.Msg != "" {
		return e.Msg
	} else if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("<%s>", e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode returns the code of the outermost coded error in err's chain, or
// EInternal when there is none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return EInternal
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Err != nil {
		return ErrorCode(e.Err)
	}
	return EInternal
}

// ErrorMessage returns a message safe to show to a client. Internal errors
// are not described.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) || ErrorCode(err) == EInternal {
		return "An internal error has occurred."
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// HTTPStatus maps an error onto its HTTP status code.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case "":
		return http.StatusOK
	case EInvalid:
		return http.StatusBadRequest
	case EUnauthorized:
		return http.StatusUnauthorized
	case ENotFound:
		return http.StatusNotFound
	case EConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
