package httperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the single error type the handlers return. The Code field is a
// stable machine-readable discriminator for clients; Issues carries field-level
// validation messages when present.
type Error struct {
	Status  int      `json:"-"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"error"`
	Issues  []string `json:"issues,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func Validation(message string, issues ...string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: message, Issues: issues}
}

func Conflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Code: "CONFLICT", Message: message}
}

func Authentication(code, message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: code, Message: message}
}

func Authorization(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: "INSUFFICIENT_ROLE", Message: message}
}

func Forbidden(code, message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: code, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: message}
}

func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "internal server error", cause: err}
}

// From extracts an *Error if err is one.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
