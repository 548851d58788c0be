package link

import (
	"io"

	"github.com/muurk/picolink/internal/protocol"
)

// Message is one decoded inbound frame delivered upward
type Message struct {
	Opcode  protocol.Opcode
	Final   bool
	Payload []byte // owned by the receiver
}

// Observer sees every frame the manager writes or decodes. Payloads are
// plaintext and must not be retained or modified.
type Observer interface {
	FrameSent(h protocol.Header, payload []byte)
	FrameReceived(h protocol.Header, payload []byte)
}

// Option configures a Manager
type Option func(*options)

type options struct {
	notify      Notify
	deliver     func(Message)
	phaseChange func(Phase)
	observer    Observer
	rand        io.Reader
}

// WithNotify sets where transports post their events. It normally points at
// the scheduler that feeds Handle.
func WithNotify(n Notify) Option {
	return func(o *options) {
		o.notify = n
	}
}

// WithDeliver sets the callback that receives every decoded inbound frame
func WithDeliver(fn func(Message)) Option {
	return func(o *options) {
		o.deliver = fn
	}
}

// WithPhaseChange sets a callback invoked after every phase transition
func WithPhaseChange(fn func(Phase)) Option {
	return func(o *options) {
		o.phaseChange = fn
	}
}

// WithObserver attaches a frame observer such as a capture file
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithRand sets the source for mask keys and handshake keys.
// The default is crypto/rand.
func WithRand(r io.Reader) Option {
	return func(o *options) {
		o.rand = r
	}
}
