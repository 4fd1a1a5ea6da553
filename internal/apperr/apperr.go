// Package apperr defines the error taxonomy shared by the service and
// HTTP layers. Every failure surfaced to a client is one of these
// codes; anything else is mapped to Internal at the boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class.
type Code string

const (
	CodeValidation            Code = "validation_error"
	CodeNotFound              Code = "not_found"
	CodeInvalidLine           Code = "invalid_line"
	CodeInsufficientInventory Code = "insufficient_inventory"
	CodeBelowMinimumOrder     Code = "below_minimum_order"
	CodeForbidden             Code = "forbidden"
	CodeUnauthenticated       Code = "unauthenticated"
	CodeConflict              Code = "conflict"
	CodeUnavailable           Code = "unavailable"
	CodeInternal              Code = "internal"
)

// Error is a coded error with an optional per-field detail map.
type Error struct {
	Code    Code
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two coded errors by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New builds a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a coded error around a cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Validation(message string, details map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

func NotFound(message string) *Error    { return New(CodeNotFound, message) }
func InvalidLine(message string) *Error { return New(CodeInvalidLine, message) }
func Forbidden(message string) *Error   { return New(CodeForbidden, message) }
func Unauthenticated(msg string) *Error { return New(CodeUnauthenticated, msg) }
func Conflict(message string) *Error    { return New(CodeConflict, message) }

func Unavailable(msg string, err error) *Error {
	return Wrap(CodeUnavailable, msg, err)
}
func Internal(err error) *Error {
	return Wrap(CodeInternal, "unexpected error", err)
}

func InsufficientInventory(message string) *Error {
	return New(CodeInsufficientInventory, message)
}

func BelowMinimumOrder(message string) *Error {
	return New(CodeBelowMinimumOrder, message)
}

// CodeOf extracts the code from err, defaulting to Internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a failure code to its response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidLine, CodeInsufficientInventory, CodeBelowMinimumOrder:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
