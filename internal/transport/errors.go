package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// ErrorType represents the category of a transport failure
type ErrorType int

const (
	// ErrTypeNetwork indicates a generic network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the connect or an I/O operation timed out
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening at the endpoint
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates the endpoint host could not be resolved
	ErrTypeDNS
	// ErrTypeUnreachable indicates no route to the host or its network
	ErrTypeUnreachable
	// ErrTypeReset indicates the peer reset or broke the stream
	ErrTypeReset
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
	case ErrTypeUnreachable:
		return "Unreachable"
	case ErrTypeReset:
		return "Connection Reset"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is a classified transport failure
type Error struct {
	Type      ErrorType // Category of error
	Message   string    // Human-readable error message
	Addr      string    // Remote address (for context)
	Err       error     // Underlying error (if any)
	Retryable bool      // Whether reconnecting may succeed
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

// Classify analyzes a dial or stream error and returns a typed Error
func Classify(err error, addr string) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if os.IsTimeout(err) {
		return &Error{
			Type:      ErrTypeTimeout,
			Message:   "Connection timed out",
			Addr:      addr,
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:      ErrTypeDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Addr:      addr,
			Err:       err,
			Retryable: !dnsErr.IsNotFound,
		}
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return &Error{
			Type:      ErrTypeConnectionRefused,
			Message:   "Remote refused connection",
			Addr:      addr,
			Err:       err,
			Retryable: true,
		}
	case errors.Is(err, syscall.EHOSTUNREACH):
		return &Error{
			Type:      ErrTypeUnreachable,
			Message:   "Host unreachable",
			Addr:      addr,
			Err:       err,
			Retryable: true,
		}
	case errors.Is(err, syscall.ENETUNREACH):
		return &Error{
			Type:      ErrTypeUnreachable,
			Message:   "Network unreachable",
			Addr:      addr,
			Err:       err,
			Retryable: true,
		}
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE), errors.Is(err, io.ErrUnexpectedEOF):
		return &Error{
			Type:      ErrTypeReset,
			Message:   "Connection reset by peer",
			Addr:      addr,
			Err:       err,
			Retryable: true,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Error{
			Type:      ErrTypeNetwork,
			Message:   fmt.Sprintf("Network error during %s", opErr.Op),
			Addr:      addr,
			Err:       err,
			Retryable: true,
		}
	}

	return &Error{
		Type:      ErrTypeUnknown,
		Message:   "Unexpected transport error",
		Addr:      addr,
		Err:       err,
		Retryable: true,
	}
}

// IsRetryable checks if an error should lead to another connect attempt
func IsRetryable(err error) bool {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Retryable
	}
	return false
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	var tErr *Error
	if !errors.As(err, &tErr) {
		return err.Error()
	}

	switch tErr.Type {
	case ErrTypeTimeout:
		return "Remote not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Remote refused connection - is the server running?"
	case ErrTypeDNS:
		return "Cannot resolve remote hostname"
	case ErrTypeUnreachable:
		return "Remote unreachable - check network connection"
	case ErrTypeReset:
		return "Connection reset by remote"
	default:
		return tErr.Message
	}
}
