// Package scheduler is the single event-processing context of the device.
//
// A Scheduler owns one goroutine that ticks a handler at a fixed cadence
// and feeds it the events transports post. Because every call into the
// handler happens on that goroutine, the handler needs no locking.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/picolink/internal/link"
	"github.com/muurk/picolink/internal/logging"
)

// Default configuration values
const (
	DefaultTickInterval = 100 * time.Millisecond
	DefaultQueueSize    = 256
)

// Handler consumes events. *link.Manager implements it.
type Handler interface {
	Handle(ev link.Event)
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithTickInterval sets the tick cadence
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithQueueSize sets how many posted events may wait for the handler
func WithQueueSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithClock replaces time.Now for stamping events
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

type item struct {
	ev link.Event
	fn func()
}

// Scheduler serializes ticks, transport events and queued work
type Scheduler struct {
	tickInterval time.Duration
	queueSize    int
	now          func() time.Time

	queue chan item
	done  chan struct{}
}

// New creates a scheduler. Post may be used before Run starts.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		tickInterval: DefaultTickInterval,
		queueSize:    DefaultQueueSize,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = make(chan item, s.queueSize)
	s.done = make(chan struct{})
	return s
}

// Post queues ev for the handler. It is safe to call from any goroutine and
// is the link.Notify transports are given. Events posted after Run has
// returned are discarded.
func (s *Scheduler) Post(ev link.Event) {
	if s.stopped() {
		return
	}
	select {
	case s.queue <- item{ev: ev}:
	case <-s.done:
	}
}

// Do runs fn on the event-processing context, serialized with Handle calls.
// It reports false if the scheduler has stopped.
func (s *Scheduler) Do(fn func()) bool {
	if s.stopped() {
		return false
	}
	select {
	case s.queue <- item{fn: fn}:
		return true
	case <-s.done:
		return false
	}
}

func (s *Scheduler) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed once Run has returned
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// Run ticks h immediately and then every tick interval, and hands it every
// posted event, until ctx is cancelled. On cancellation h receives a
// shutdown event before Run returns.
func (s *Scheduler) Run(ctx context.Context, h Handler) error {
	defer close(s.done)

	logging.Debug("Scheduler started", zap.Duration("tick_interval", s.tickInterval))

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	h.Handle(link.TickEvent(s.now()))

	for {
		select {
		case <-ctx.Done():
			ev := link.ShutdownEvent()
			ev.Now = s.now()
			h.Handle(ev)
			logging.Debug("Scheduler stopped")
			return nil

		case <-ticker.C:
			h.Handle(link.TickEvent(s.now()))

		case it := <-s.queue:
			if it.fn != nil {
				it.fn()
				continue
			}
			if it.ev.Now.IsZero() {
				it.ev.Now = s.now()
			}
			h.Handle(it.ev)
		}
	}
}
