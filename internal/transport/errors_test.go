package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
)

// timeoutError implements net.Error with Timeout() = true
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

func dialErr(err error) error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: err}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{"timeout", dialErr(&timeoutError{}), ErrTypeTimeout, true},
		{"refused", dialErr(&net.OpError{Op: "connect", Err: syscall.ECONNREFUSED}), ErrTypeConnectionRefused, true},
		{"refused wrapped", fmt.Errorf("dial: %w", dialErr(syscall.ECONNREFUSED)), ErrTypeConnectionRefused, true},
		{"dns not found", &net.DNSError{Err: "no such host", Name: "picolink.local", IsNotFound: true}, ErrTypeDNS, false},
		{"dns temporary", &net.DNSError{Err: "server misbehaving", Name: "picolink.local"}, ErrTypeDNS, true},
		{"host unreachable", dialErr(syscall.EHOSTUNREACH), ErrTypeUnreachable, true},
		{"network unreachable", dialErr(syscall.ENETUNREACH), ErrTypeUnreachable, true},
		{"reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, ErrTypeReset, true},
		{"unexpected eof", io.ErrUnexpectedEOF, ErrTypeReset, true},
		{"other op error", &net.OpError{Op: "write", Err: errors.New("boom")}, ErrTypeNetwork, true},
		{"unknown", errors.New("something else"), ErrTypeUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, "192.168.1.20:8082")
			if got == nil {
				t.Fatal("Classify() returned nil")
			}
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.wantRetryable)
			}
			if got.Addr != "192.168.1.20:8082" {
				t.Errorf("Addr = %q", got.Addr)
			}
			if !errors.Is(got, tt.err) {
				t.Error("classified error does not wrap the original")
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if Classify(nil, "x") != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestClassifyAlreadyClassified(t *testing.T) {
	first := Classify(dialErr(syscall.ECONNREFUSED), "a")
	again := Classify(fmt.Errorf("retry: %w", first), "b")
	if again != first {
		t.Error("an already classified error should be returned as is")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Classify(dialErr(&timeoutError{}), "")) {
		t.Error("timeout should be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("unclassified errors are not retryable")
	}
}

func TestShortMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Classify(dialErr(syscall.ECONNREFUSED), ""), "Remote refused connection - is the server running?"},
		{Classify(dialErr(&timeoutError{}), ""), "Remote not responding (timeout)"},
		{errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		if got := ShortMessage(tt.err); got != tt.want {
			t.Errorf("ShortMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestErrorTypeString(t *testing.T) {
	if got := ErrTypeConnectionRefused.String(); got != "Connection Refused" {
		t.Errorf("String() = %q", got)
	}
	if got := ErrorType(99).String(); got != "ErrorType(99)" {
		t.Errorf("String() = %q", got)
	}
}
