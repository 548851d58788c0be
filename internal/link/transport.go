package link

import (
	"net"
	"strconv"
)

// Endpoint is the fixed remote address the device connects to
type Endpoint struct {
	Host string
	Port int
}

// String returns host:port
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Notify delivers a transport event back to the event-processing context.
// Implementations must be safe to call from any goroutine, and transports
// must never call it synchronously from Dial, Send or Close.
type Notify func(Event)

// Transport is an open byte stream. Both methods are fire-and-forget: they
// must not block on the network, and failures after they return are
// reported through Notify.
type Transport interface {
	// Send queues b for transmission in order. The transport copies b.
	Send(b []byte) error
	// Close releases the stream. No events are required after Close.
	Close() error
}

// Dialer opens transports. Dial returns as soon as the connect has been
// issued; completion is reported as EventConnected or EventError.
type Dialer interface {
	Dial(ep Endpoint, notify Notify) (Transport, error)
}

// DialerFunc adapts a function to the Dialer interface
type DialerFunc func(ep Endpoint, notify Notify) (Transport, error)

// Dial calls f
func (f DialerFunc) Dial(ep Endpoint, notify Notify) (Transport, error) {
	return f(ep, notify)
}
