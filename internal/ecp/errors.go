package ecp

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"

	"github.com/gorilla/websocket"
)

var (
	// ErrAuthFailed is returned when the device rejects the challenge response.
	ErrAuthFailed = errors.New("ecp authentication failed")

	// ErrNotConnected is returned for requests on a closed session.
	ErrNotConnected = errors.New("ecp session not connected")
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the device did not answer in time
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing listens on the ECP port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a host name could not be resolved
	ErrTypeDNS
	// ErrTypeAuth indicates the device rejected the challenge response
	ErrTypeAuth
	// ErrTypeProtocol indicates an unexpected or failed ECP response
	ErrTypeProtocol
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is a classified failure talking to a device.
type Error struct {
	Type      ErrorType // Category of error
	Message   string    // Human-readable error message
	Address   string    // Device address (for context)
	Status    string    // ECP status code, when the device answered
	Err       error     // Underlying error (if any)
	Retryable bool      // Whether a new attempt may succeed
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a dial or I/O error
func ClassifyNetworkError(err error, address string) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, websocket.ErrBadHandshake) {
		return &Error{
			Type:      ErrTypeProtocol,
			Message:   "Device refused the ECP session upgrade",
			Address:   address,
			Err:       err,
			Retryable: false,
		}
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &Error{
			Type:      ErrTypeTimeout,
			Message:   "Device did not respond in time",
			Address:   address,
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:      ErrTypeDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Address:   address,
			Err:       err,
			Retryable: false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &Error{
				Type:      ErrTypeConnectionRefused,
				Message:   "Device refused connection",
				Address:   address,
				Err:       err,
				Retryable: true,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &Error{
				Type:      ErrTypeNetwork,
				Message:   "Host unreachable",
				Address:   address,
				Err:       err,
				Retryable: true,
			}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &Error{
				Type:      ErrTypeNetwork,
				Message:   "Network unreachable",
				Address:   address,
				Err:       err,
				Retryable: true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetworkError(urlErr.Err, address)
	}

	return &Error{
		Type:      ErrTypeNetwork,
		Message:   "Network error occurred",
		Address:   address,
		Err:       err,
		Retryable: true,
	}
}

// NewAuthError creates an authentication error wrapping ErrAuthFailed
func NewAuthError(address, status string) *Error {
	return &Error{
		Type:      ErrTypeAuth,
		Message:   "Device rejected the authentication response",
		Address:   address,
		Status:    status,
		Err:       ErrAuthFailed,
		Retryable: false,
	}
}

// NewProtocolError creates an error for an unexpected device response
func NewProtocolError(address, message string, err error) *Error {
	return &Error{
		Type:      ErrTypeProtocol,
		Message:   message,
		Address:   address,
		Err:       err,
		Retryable: false,
	}
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Device refused connection - is it powered on?"
	case ErrTypeDNS:
		return "Cannot resolve device hostname"
	case ErrTypeAuth:
		return "Device rejected authentication"
	case ErrTypeProtocol:
		return "Device does not support private listening"
	case ErrTypeNetwork:
		return "Network error - check connection"
	default:
		return e.Message
	}
}
