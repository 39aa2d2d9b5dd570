package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "VALIDATION"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeConflict    ErrorType = "CONFLICT"
	ErrorTypeCapacity    ErrorType = "CAPACITY_EXCEEDED"
	ErrorTypeNotLoaded   ErrorType = "NOT_LOADED"
	ErrorTypeTransaction ErrorType = "TRANSACTION"
	ErrorTypeInternal    ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewValidation creates a validation error. Surfaced to the caller, never retried.
func NewValidation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewConflict creates a concurrency conflict error. Recoverable by a
// caller-driven reload-and-retry; the coordinator never retries it itself.
func NewConflict(message string) error {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewCapacityExceeded creates a capacity error for a sub-collection that hit
// its configured cap. The aggregate boundary needs redesigning, not a retry.
func NewCapacityExceeded(message string) error {
	return &AppError{
		Type:    ErrorTypeCapacity,
		Message: message,
	}
}

// NewNotLoaded marks a read of a sub-collection that was never fetched.
// This is a programming error, not a recoverable condition.
func NewNotLoaded(message string) error {
	return &AppError{
		Type:    ErrorTypeNotLoaded,
		Message: message,
	}
}

// NewTransactionFailed creates an error for a failed physical commit
func NewTransactionFailed(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeTransaction,
		Message: message,
		Err:     err,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	// Otherwise, create an internal error
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsConflict checks if an error is a concurrency conflict
func IsConflict(err error) bool {
	return isType(err, ErrorTypeConflict)
}

// IsCapacityExceeded checks if an error is a capacity error
func IsCapacityExceeded(err error) bool {
	return isType(err, ErrorTypeCapacity)
}

// IsNotLoaded checks if an error is a not-loaded access error
func IsNotLoaded(err error) bool {
	return isType(err, ErrorTypeNotLoaded)
}

// IsTransactionFailed checks if an error is a failed commit
func IsTransactionFailed(err error) bool {
	return isType(err, ErrorTypeTransaction)
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return isType(err, ErrorTypeInternal)
}
