package transport

import "time"

// Default configuration values
const (
	// DefaultConnectTimeout bounds a single connect attempt
	DefaultConnectTimeout = 10 * time.Second
	// DefaultQueueSize is how many outbound chunks may wait for the writer
	DefaultQueueSize = 16
	// DefaultReadSize is the size of a single read from the stream
	DefaultReadSize = 2048
)

// Option configures a Dialer
type Option func(*options)

type options struct {
	connectTimeout time.Duration
	queueSize      int
	readSize       int
}

// WithConnectTimeout sets the connect timeout
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = d
	}
}

// WithQueueSize sets the outbound queue length
func WithQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}

// WithReadSize sets the read chunk size
func WithReadSize(n int) Option {
	return func(o *options) {
		o.readSize = n
	}
}

func checkOptions(opts *options) {
	if opts.connectTimeout <= 0 {
		opts.connectTimeout = DefaultConnectTimeout
	}
	if opts.queueSize <= 0 {
		opts.queueSize = DefaultQueueSize
	}
	if opts.readSize <= 0 {
		opts.readSize = DefaultReadSize
	}
}
