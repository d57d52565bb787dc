package storage

import (
	"errors"
	"fmt"
)

// Common storage error values. They can be used directly or enriched with
// WithMessage / WithCause.
var (
	// ErrNotConnected indicates the client is not connected to the backend.
	ErrNotConnected = &StorageError{
		Code:    "NOT_CONNECTED",
		Message: "storage client is not connected",
	}

	// ErrConnectionFailed indicates a connection attempt failed.
	ErrConnectionFailed = &StorageError{
		Code:    "CONNECTION_FAILED",
		Message: "failed to connect to storage backend",
	}

	// ErrInvalidConfig indicates the storage configuration is invalid.
	ErrInvalidConfig = &StorageError{
		Code:    "INVALID_CONFIG",
		Message: "invalid storage configuration",
	}

	// ErrClientNotFound indicates the requested client is not registered.
	ErrClientNotFound = &StorageError{
		Code:    "CLIENT_NOT_FOUND",
		Message: "storage client not found",
	}

	// ErrClientAlreadyExists indicates a duplicate registration.
	ErrClientAlreadyExists = &StorageError{
		Code:    "CLIENT_ALREADY_EXISTS",
		Message: "storage client already exists",
	}
)

// StorageError is a storage-related error with a machine-readable code.
type StorageError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works across wrapped copies.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of the error with an updated message.
func (e *StorageError) WithMessage(msg string) *StorageError {
	return &StorageError{
		Code:    e.Code,
		Message: msg,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping an underlying cause.
func (e *StorageError) WithCause(cause error) *StorageError {
	return &StorageError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
	}
}

// IsStorageError reports whether err wraps a StorageError.
func IsStorageError(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}
