package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current phase.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrEmptyTarget is returned by Start for a blank address.
	ErrEmptyTarget = errors.New("empty target address")

	// ErrConnectTimeout is the failure reported when a connect request does
	// not complete within the configured timeout.
	ErrConnectTimeout = errors.New("connect timed out")

	// ErrNotConnected is returned by Details when no session is established.
	ErrNotConnected = errors.New("no connected session")

	// ErrClosed is returned by Start after Shutdown.
	ErrClosed = errors.New("session machine shut down")
)

// ConnectError describes a failed connect request.
type ConnectError struct {
	Address string
	Err     error
}

// Error implements the error interface
func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Address, e.Err)
}

// Unwrap returns the underlying error
func (e *ConnectError) Unwrap() error {
	return e.Err
}
