package link

import "fmt"

// Phase is the lifecycle state of a connection
type Phase int

const (
	// Disconnected means no transport is held; a reconnect is attempted on a later tick
	Disconnected Phase = iota
	// Connecting means a transport has been opened and the connect is in flight
	Connecting
	// Connected means frames may be written
	Connected
)

// String returns a human-readable name for the phase
func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}
