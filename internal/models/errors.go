package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an application error for the HTTP layer.
type ErrorCode string

const (
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeBusinessRule ErrorCode = "BUSINESS_RULE"
	ErrCodeConflict     ErrorCode = "CONFLICT"
)

// ErrWriteConflict is returned by conditional writes when the stored
// document no longer carries the version that was read.
var ErrWriteConflict = errors.New("write conflict: event was modified concurrently")

// AppError is an error that is safe to show to the client.
type AppError struct {
	Code    ErrorCode
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status maps the error code to an HTTP status.
func (e *AppError) Status() int {
	switch e.Code {
	case ErrCodeValidation, ErrCodeBusinessRule:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func NewValidationError(message string, fields map[string]string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Fields: fields}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Code: ErrCodeUnauthorized, Message: message}
}

func NewForbidden(message string) *AppError {
	return &AppError{Code: ErrCodeForbidden, Message: message}
}

func NewNotFound(resource string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// NewBusinessRule reports a domain rule violation. The message is shown verbatim.
func NewBusinessRule(message string) *AppError {
	return &AppError{Code: ErrCodeBusinessRule, Message: message}
}

func NewConflict(message string, err error) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message, Err: err}
}

// AsAppError unwraps err into an *AppError when possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
