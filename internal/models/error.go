package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource already exists")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidOrExpired   = errors.New("recovery code is invalid or expired")
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrStaleAccount is returned when an update lost an optimistic
	// concurrency race. It matches ErrConflict.
	ErrStaleAccount = fmt.Errorf("%w: account was modified concurrently", ErrConflict)
)

// PersistenceError wraps a failure reported by the account store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError wraps a failure reported by the notification transport.
type DeliveryError struct {
	Transport string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery via %s: %v", e.Transport, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
