package link

import "time"

// EventKind identifies what happened
type EventKind int

const (
	// EventTick is the periodic scheduler tick
	EventTick EventKind = iota
	// EventConnected reports that the transport finished connecting
	EventConnected
	// EventError reports a connect failure or a mid-stream transport error
	EventError
	// EventClosed reports that the peer closed the stream
	EventClosed
	// EventReceived carries a chunk of inbound bytes
	EventReceived
	// EventShutdown asks the manager to release everything
	EventShutdown
)

// String returns a human-readable name for the event kind
func (k EventKind) String() string {
	switch k {
	case EventTick:
		return "tick"
	case EventConnected:
		return "connected"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	case EventReceived:
		return "received"
	case EventShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Event is one input to the connection state machine.
//
// Transport events are tagged with the session that produced them so that
// late events from a released transport can be told apart from current ones.
type Event struct {
	Kind    EventKind
	Now     time.Time // set on ticks; optional on other events
	Data    []byte    // EventReceived only
	Err     error     // EventError only
	Session uint64
}

// TickEvent returns a tick at now
func TickEvent(now time.Time) Event {
	return Event{Kind: EventTick, Now: now}
}

// ConnectedEvent returns a transport-connected event
func ConnectedEvent() Event {
	return Event{Kind: EventConnected}
}

// ErrorEvent returns a transport-error event
func ErrorEvent(err error) Event {
	return Event{Kind: EventError, Err: err}
}

// ClosedEvent returns a transport-closed event
func ClosedEvent() Event {
	return Event{Kind: EventClosed}
}

// ReceivedEvent returns a bytes-received event carrying data.
// The manager does not retain data after Handle returns.
func ReceivedEvent(data []byte) Event {
	return Event{Kind: EventReceived, Data: data}
}

// ShutdownEvent returns a shutdown event
func ShutdownEvent() Event {
	return Event{Kind: EventShutdown}
}
