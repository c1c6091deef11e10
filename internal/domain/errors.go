package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups that require the record to exist
var ErrNotFound = errors.New("not found")

// ValidationError is user-correctable input. It is never retried automatically.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConnectionError is a remote handshake or credential failure; the user may retry
type ConnectionError struct {
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NewConnectionError wraps a remote failure
func NewConnectionError(message string, err error) *ConnectionError {
	return &ConnectionError{Message: message, Err: err}
}

// TokenRefreshError aborts the current privileged call; the user must reconnect
type TokenRefreshError struct {
	ShopID string
	Err    error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("failed to refresh access token for shop %s: %v", e.ShopID, e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// PersistenceError means the application store is unavailable
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps a store failure
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
