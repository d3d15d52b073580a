// Package taskerr defines the error kinds the workflow engine reports.
// Every kind is detected before or during the atomic transaction; a returned
// error always means the whole mutation was rolled back.
package taskerr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindForbidden           Kind = "FORBIDDEN"
	KindInvalidState        Kind = "INVALID_STATE"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindNoCapacity          Kind = "NO_CAPACITY"
	KindAlreadyApplied      Kind = "ALREADY_APPLIED"
)

type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Kind() Kind    { return e.kind }

func New(k Kind, format string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return New(KindInvalidState, format, args...)
}

func InsufficientBalance(format string, args ...any) *Error {
	return New(KindInsufficientBalance, format, args...)
}

func NoCapacity(format string, args ...any) *Error {
	return New(KindNoCapacity, format, args...)
}

func AlreadyApplied(format string, args ...any) *Error {
	return New(KindAlreadyApplied, format, args...)
}

// Code extracts the kind from err, or "" for untyped errors.
func Code(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return ""
}

// HTTPStatus maps an error kind to its externally visible status code.
// Untyped errors map to 500.
func HTTPStatus(err error) int {
	switch Code(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidState:
		return http.StatusBadRequest
	case KindInsufficientBalance:
		return http.StatusPaymentRequired
	case KindNoCapacity, KindAlreadyApplied:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
