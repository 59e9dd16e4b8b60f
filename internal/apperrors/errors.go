package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates a concurrent modification (e.g. optimistic lock version mismatch).
var ErrConflict = errors.New("resource was modified concurrently")

// ErrUnauthorized indicates the caller could not be identified.
var ErrUnauthorized = errors.New("not authenticated")

// ErrForbidden indicates the caller is identified but not allowed to act.
var ErrForbidden = errors.New("forbidden")

// ErrAlreadyActive indicates a clock-in was attempted while another open entry exists.
var ErrAlreadyActive = errors.New("an open time entry already exists")

// ErrInvalidTransition indicates an action is not allowed from the entry's current status.
var ErrInvalidTransition = errors.New("invalid timesheet transition")

// AppError carries an HTTP-ish status code alongside a message and the wrapped cause.
type AppError struct {
	Code    int
	Message string
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

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError creates an AppError wrapping ErrNotFound.
func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message, ErrNotFound)
}

// NewConflictError creates an AppError wrapping ErrConflict.
func NewConflictError(message string) *AppError {
	return NewAppError(http.StatusConflict, message, ErrConflict)
}

// NewDuplicateError creates an AppError wrapping ErrDuplicate.
func NewDuplicateError(message string) *AppError {
	return NewAppError(http.StatusConflict, message, ErrDuplicate)
}

// NewValidationFailedError creates an AppError wrapping ErrValidation.
func NewValidationFailedError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrValidation)
}

// IsRetryable reports whether err is a storage race the caller may simply retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, ErrConflict)
}
