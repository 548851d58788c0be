// Package transport implements the link byte stream over TCP.
//
// Dial returns immediately; a goroutine connects and then runs a read loop
// and a write loop. Every outcome is reported through the link.Notify
// callback: EventConnected once the stream is up, EventReceived for each
// chunk read, EventClosed when the peer ends the stream and EventError with
// a classified *Error for everything else.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/picolink/internal/link"
	"github.com/muurk/picolink/internal/logging"
)

// ErrConnectionClosed is returned when sending on a closed transport
var ErrConnectionClosed = errors.New("connection closed")

// Dialer opens TCP transports
type Dialer struct {
	opts options
}

// NewDialer creates a TCP dialer
func NewDialer(opt ...Option) *Dialer {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)
	return &Dialer{opts: opts}
}

// ReadSize returns the size of a single read from the stream
func (d *Dialer) ReadSize() int { return d.opts.readSize }

// Dial starts connecting to ep in the background
func (d *Dialer) Dial(ep link.Endpoint, notify link.Notify) (link.Transport, error) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		addr:    ep.String(),
		opts:    d.opts,
		notify:  notify,
		sendMsg: make(chan []byte, d.opts.queueSize),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go c.run(ctx)

	return c, nil
}

// Conn is one TCP transport
type Conn struct {
	addr   string
	opts   options
	notify link.Notify

	mu      sync.Mutex
	rawConn net.Conn

	sendMsg chan []byte
	closed  atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Addr returns the remote address
func (c *Conn) Addr() string { return c.addr }

// Send queues b for the writer without blocking. It returns
// link.ErrBufferFull when the queue is full.
func (c *Conn) Send(b []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	msg := append([]byte(nil), b...)
	select {
	case c.sendMsg <- msg:
		return nil
	default:
		return link.ErrBufferFull
	}
}

// Close cancels the connect or tears down the stream.
// Safe to call multiple times.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rawConn != nil {
		return c.rawConn.Close()
	}
	return nil
}

// Done is closed when the background goroutine has exited
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) run(ctx context.Context) {
	defer close(c.done)

	dialer := net.Dialer{Timeout: c.opts.connectTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		if c.closed.Load() {
			return
		}
		c.fail(err)
		return
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		_ = raw.Close()
		return
	}
	c.rawConn = raw
	c.mu.Unlock()

	logging.LogConnection(c.addr, "connected")
	c.post(link.ConnectedEvent())

	group, child := errgroup.WithContext(ctx)
	group.Go(func() error {
		return c.readLoop(raw)
	})
	group.Go(func() error {
		return c.writeLoop(child, raw)
	})

	// The read loop only returns when the socket is closed
	go func() {
		<-child.Done()
		_ = raw.Close()
	}()

	err = group.Wait()
	_ = raw.Close()

	if c.closed.Load() {
		logging.LogConnection(c.addr, "closed locally")
		return
	}
	if errors.Is(err, io.EOF) {
		logging.LogConnection(c.addr, "closed by peer")
		c.post(link.ClosedEvent())
		return
	}

	c.fail(err)
}

// fail classifies err, logs it and reports it upward
func (c *Conn) fail(err error) {
	tErr := Classify(err, c.addr)
	logging.Warn("Transport failed",
		zap.String("remote_addr", c.addr),
		zap.String("reason", ShortMessage(tErr)),
		zap.Bool("retryable", IsRetryable(tErr)),
		zap.Error(err),
	)
	c.post(link.ErrorEvent(tErr))
}

func (c *Conn) readLoop(raw net.Conn) error {
	buf := make([]byte, c.opts.readSize)
	for {
		n, err := raw.Read(buf)
		if n > 0 {
			c.post(link.ReceivedEvent(append([]byte(nil), buf[:n]...)))
		}
		if err != nil {
			return err
		}
	}
}

func (c *Conn) writeLoop(ctx context.Context, raw net.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.sendMsg:
			if _, err := raw.Write(msg); err != nil {
				return err
			}
		}
	}
}

func (c *Conn) post(ev link.Event) {
	if c.notify != nil {
		c.notify(ev)
	}
}
