// Package apperror is the error taxonomy shared by services and handlers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation error")
)

// Error carries one of the sentinel kinds plus a reason safe to show to the caller.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Forbidden() error {
	return &Error{Kind: ErrForbidden, Reason: "you do not have permission to perform this action"}
}

// NotFound also covers resources that exist outside the caller's visible set.
func NotFound(what string) error {
	return &Error{Kind: ErrNotFound, Reason: what + " not found"}
}

func InvalidState(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Reason: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Reason: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps err onto the status code the transport reports.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message is the text shown to the caller. Unclassified errors are never echoed back.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return "internal server error"
}
