package link

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/picolink/internal/buffer"
	"github.com/muurk/picolink/internal/handshake"
	"github.com/muurk/picolink/internal/logging"
	"github.com/muurk/picolink/internal/protocol"
)

// Defaults for Config fields left at zero
const (
	DefaultBufferSize        = 2048
	DefaultReconnectInterval = 5 * time.Second
	DefaultKeepAliveInterval = 10 * time.Second
)

var (
	// ErrNotConnected is returned by Send outside the Connected phase.
	// The payload is dropped, not queued.
	ErrNotConnected = errors.New("not connected")

	// ErrBufferFull is returned by a Transport whose send queue cannot take
	// more bytes. The frame is dropped and the connection kept.
	ErrBufferFull = errors.New("transport send queue full")

	// ErrPeerClosed is the disconnect reason when the peer sends a Close frame
	ErrPeerClosed = errors.New("peer sent close frame")

	// ErrShutdown is returned by Send after a shutdown event
	ErrShutdown = errors.New("link shut down")
)

// Config holds the fixed parameters of one connection
type Config struct {
	Endpoint Endpoint

	// BufferSize is the capacity of both the outbound staging buffer and the
	// inbound accumulation buffer
	BufferSize int

	ReconnectInterval time.Duration
	KeepAliveInterval time.Duration

	// KeepAliveOpcode and KeepAlivePayload describe the frame sent once per
	// keep-alive interval. Ping when unset, or text when only a payload is
	// given.
	KeepAliveOpcode  protocol.Opcode
	KeepAlivePayload []byte

	// Handshake, when set, is written raw on transport-connected and the
	// peer's HTTP response preamble is skipped before frame decoding.
	// An empty Key is replaced with a fresh key for every connection.
	Handshake *handshake.Request
}

func (c *Config) applyDefaults() {
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = DefaultReconnectInterval
	}
	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if c.KeepAliveOpcode == protocol.OpContinuation {
		if len(c.KeepAlivePayload) == 0 {
			c.KeepAliveOpcode = protocol.OpPing
		} else {
			c.KeepAliveOpcode = protocol.OpText
		}
	}
}

func (c *Config) validate() error {
	if c.Endpoint.Host == "" {
		return errors.New("endpoint host is required")
	}
	if c.Endpoint.Port <= 0 || c.Endpoint.Port > 65535 {
		return fmt.Errorf("invalid endpoint port %d", c.Endpoint.Port)
	}
	if c.BufferSize <= protocol.MaxHeaderSize {
		return fmt.Errorf("buffer size %d must exceed the %d byte maximum header", c.BufferSize, protocol.MaxHeaderSize)
	}
	if c.ReconnectInterval < 0 || c.KeepAliveInterval < 0 {
		return errors.New("intervals must be positive")
	}
	if !c.KeepAliveOpcode.Valid() || c.KeepAliveOpcode == protocol.OpContinuation {
		return fmt.Errorf("invalid keep-alive opcode %s", c.KeepAliveOpcode)
	}
	if c.KeepAliveOpcode.IsControl() && len(c.KeepAlivePayload) > protocol.MaxControlPayload {
		return fmt.Errorf("keep-alive %s payload of %d bytes exceeds %d", c.KeepAliveOpcode, len(c.KeepAlivePayload), protocol.MaxControlPayload)
	}
	if size := protocol.FrameSize(len(c.KeepAlivePayload), true); size > c.BufferSize {
		return fmt.Errorf("keep-alive frame of %d bytes does not fit buffer of %d", size, c.BufferSize)
	}
	return nil
}

// Stats counts what the manager has done since it was created
type Stats struct {
	ConnectAttempts uint64
	FramesSent      uint64
	FramesReceived  uint64
	KeepAlives      uint64
	Dropped         uint64 // sends refused outside Connected or by a full transport
	Malformed       uint64 // inbound frames discarded
	Overflows       uint64 // inbound deliveries ignored for lack of space
}

// Manager is the connection state machine. It owns the transport handle and
// both buffers.
//
// A Manager is not safe for concurrent use: Handle and Send must be called
// from a single event-processing context, normally the scheduler.
type Manager struct {
	cfg    Config
	dialer Dialer
	opts   options

	phase     Phase
	transport Transport
	session   uint64
	stopped   bool

	staging *buffer.Buffer
	inbound *buffer.Buffer

	now          time.Time
	lastActivity time.Time
	attempted    bool

	awaitingReply bool
	expectAccept  string

	stats Stats
}

// New creates a manager in the Disconnected phase. The first tick starts a
// connect.
func New(cfg Config, dialer Dialer, opts ...Option) (*Manager, error) {
	if dialer == nil {
		return nil, errors.New("dialer is required")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid link config: %w", err)
	}

	m := &Manager{
		cfg:     cfg,
		dialer:  dialer,
		phase:   Disconnected,
		staging: buffer.New(cfg.BufferSize),
		inbound: buffer.New(cfg.BufferSize),
	}
	for _, opt := range opts {
		opt(&m.opts)
	}
	if m.opts.notify == nil {
		m.opts.notify = func(Event) {}
	}

	return m, nil
}

// Phase returns the current phase
func (m *Manager) Phase() Phase { return m.phase }

// Endpoint returns the remote endpoint
func (m *Manager) Endpoint() Endpoint { return m.cfg.Endpoint }

// Session returns the number of the most recent dial
func (m *Manager) Session() uint64 { return m.session }

// Stats returns a snapshot of the counters
func (m *Manager) Stats() Stats { return m.stats }

// Staged returns a copy of the most recently built outbound frame
func (m *Manager) Staged() []byte {
	return append([]byte(nil), m.staging.Bytes()...)
}

// Pending returns how many inbound bytes are waiting for the rest of a frame
func (m *Manager) Pending() int { return m.inbound.Len() }

// Handle applies one event to the state machine
func (m *Manager) Handle(ev Event) {
	if m.stopped {
		return
	}
	if !ev.Now.IsZero() {
		m.now = ev.Now
	}

	switch ev.Kind {
	case EventShutdown:
		m.shutdown()
		return
	case EventTick:
		m.tick()
		return
	}

	// Transport events. A zero session means the current one.
	if m.transport == nil || (ev.Session != 0 && ev.Session != m.session) {
		logging.Debug("Ignoring stale transport event",
			zap.Stringer("event", ev.Kind),
			zap.Uint64("event_session", ev.Session),
			zap.Uint64("session", m.session),
		)
		return
	}

	switch ev.Kind {
	case EventConnected:
		if m.phase == Connecting {
			m.connected()
		}
	case EventError:
		err := ev.Err
		if err == nil {
			err = errors.New("transport error")
		}
		m.disconnect(err)
	case EventClosed:
		m.disconnect(io.EOF)
	case EventReceived:
		if m.phase == Connected {
			m.receive(ev.Data)
		}
	}
}

// Send encodes payload into the staging buffer as a single masked frame and
// submits it to the transport.
//
// Outside Connected the payload is dropped, staging is left untouched and
// ErrNotConnected is returned. protocol.ErrOverflow is returned when the
// frame does not fit the staging buffer, and protocol.ErrMalformed for a
// control payload over protocol.MaxControlPayload bytes.
func (m *Manager) Send(op protocol.Opcode, payload []byte) error {
	if m.stopped {
		m.stats.Dropped++
		return ErrShutdown
	}
	if m.phase != Connected {
		m.stats.Dropped++
		logging.Debug("Dropping send while not connected",
			zap.String("remote_addr", m.cfg.Endpoint.String()),
			zap.Stringer("phase", m.phase),
			zap.Stringer("opcode", op),
			zap.Int("length", len(payload)),
		)
		return ErrNotConnected
	}
	if err := protocol.CheckControl(op, true, uint64(len(payload))); err != nil {
		return err
	}
	return m.writeFrame(op, payload)
}

// SendText sends a text frame
func (m *Manager) SendText(s string) error {
	return m.Send(protocol.OpText, []byte(s))
}

func (m *Manager) tick() {
	switch m.phase {
	case Disconnected:
		if !m.attempted || !m.now.Before(m.lastActivity.Add(m.cfg.ReconnectInterval)) {
			m.connect()
		}
	case Connected:
		if !m.now.Before(m.lastActivity.Add(m.cfg.KeepAliveInterval)) {
			m.keepAlive()
		}
	}
}

func (m *Manager) connect() {
	m.attempted = true
	m.lastActivity = m.now
	m.session++
	m.stats.ConnectAttempts++

	session := m.session
	notify := m.opts.notify
	tagged := func(ev Event) {
		ev.Session = session
		notify(ev)
	}

	logging.Info("Connecting",
		zap.String("remote_addr", m.cfg.Endpoint.String()),
		zap.Uint64("session", session),
	)

	t, err := m.dialer.Dial(m.cfg.Endpoint, tagged)
	if err != nil {
		logging.Warn("Failed to open transport",
			zap.String("remote_addr", m.cfg.Endpoint.String()),
			zap.Error(err),
		)
		return
	}

	m.transport = t
	m.inbound.Reset()
	m.staging.Reset()
	m.setPhase(Connecting)
}

func (m *Manager) connected() {
	m.lastActivity = m.now
	m.inbound.Reset()
	m.setPhase(Connected)

	if m.cfg.Handshake != nil {
		m.sendHandshake()
	}
}

func (m *Manager) sendHandshake() {
	req := *m.cfg.Handshake
	if req.Key == "" {
		key, err := handshake.NewKey(m.opts.rand)
		if err != nil {
			m.disconnect(fmt.Errorf("failed to generate handshake key: %w", err))
			return
		}
		req.Key = key
	}

	m.expectAccept = handshake.AcceptFor(req.Key)
	m.awaitingReply = true

	request := req.Bytes()
	logging.LogRawBytes("Sending upgrade request", request)
	if err := m.transport.Send(request); err != nil {
		m.disconnect(fmt.Errorf("failed to send upgrade request: %w", err))
	}
}

func (m *Manager) keepAlive() {
	m.lastActivity = m.now
	if err := m.writeFrame(m.cfg.KeepAliveOpcode, m.cfg.KeepAlivePayload); err != nil {
		logging.Warn("Keep-alive not sent",
			zap.String("remote_addr", m.cfg.Endpoint.String()),
			zap.Error(err),
		)
		return
	}
	m.stats.KeepAlives++
}

// writeFrame encodes into staging and submits the staged bytes
func (m *Manager) writeFrame(op protocol.Opcode, payload []byte) error {
	err := m.staging.Fill(func(dst []byte) (int, error) {
		return protocol.Encode(dst, op, payload, true, m.opts.rand)
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", op, err)
	}

	frame := m.staging.Bytes()
	if err := m.transport.Send(frame); err != nil {
		if errors.Is(err, ErrBufferFull) {
			m.stats.Dropped++
			return err
		}
		m.disconnect(fmt.Errorf("send failed: %w", err))
		return err
	}

	m.stats.FramesSent++
	logging.LogFrame(m.cfg.Endpoint.String(), "sent", op, payload)
	if m.opts.observer != nil {
		if h, err := protocol.DecodeHeader(frame); err == nil {
			m.opts.observer.FrameSent(h, payload)
		}
	}
	return nil
}

func (m *Manager) receive(data []byte) {
	if err := m.inbound.Append(data); err != nil {
		m.stats.Overflows++
		logging.Warn("Ignoring inbound delivery that would overflow accumulation",
			zap.String("remote_addr", m.cfg.Endpoint.String()),
			zap.Int("length", len(data)),
			zap.Int("pending", m.inbound.Len()),
		)
		return
	}

	if m.awaitingReply && !m.skipPreamble() {
		return
	}

	for m.phase == Connected && m.inbound.Len() > 0 {
		if !m.decodeOne() {
			return
		}
	}
}

// skipPreamble consumes the peer's HTTP response from the front of the
// accumulation. It reports whether frame decoding can proceed.
func (m *Manager) skipPreamble() bool {
	n, resp, err := handshake.ParseResponse(m.inbound.Bytes())
	if errors.Is(err, handshake.ErrIncomplete) && m.inbound.Available() > 0 {
		return false
	}

	m.awaitingReply = false
	if err != nil {
		logging.Warn("No upgrade response preamble, decoding frames",
			zap.String("remote_addr", m.cfg.Endpoint.String()),
			zap.Error(err),
		)
		if errors.Is(err, handshake.ErrIncomplete) {
			m.inbound.Reset()
		}
		return true
	}

	m.inbound.Consume(n)
	fields := []zap.Field{
		zap.String("remote_addr", m.cfg.Endpoint.String()),
		zap.String("status", resp.Status),
	}
	if !resp.Upgraded() {
		logging.Warn("Peer did not switch protocols", fields...)
	} else if resp.Accept() != m.expectAccept {
		logging.Warn("Peer returned unexpected accept key", fields...)
	} else {
		logging.Info("Upgrade response received", fields...)
	}
	return true
}

// decodeOne decodes the frame at the front of the accumulation. It returns
// false when more bytes are needed or the accumulation was discarded.
func (m *Manager) decodeOne() bool {
	raw := m.inbound.Bytes()

	h, err := protocol.DecodeHeader(raw)
	if err == nil && h.FrameLength() > uint64(m.inbound.Cap()) {
		err = fmt.Errorf("%w: frame of %d bytes exceeds buffer of %d", protocol.ErrMalformed, h.FrameLength(), m.inbound.Cap())
	}
	if err == nil {
		h, err = protocol.Decode(raw)
	}
	if err == nil {
		err = protocol.CheckControl(h.Opcode, h.Final, h.PayloadLength)
	}
	if errors.Is(err, protocol.ErrIncomplete) {
		return false
	}
	if err != nil {
		m.stats.Malformed++
		logging.Warn("Dropping malformed frame",
			zap.String("remote_addr", m.cfg.Endpoint.String()),
			zap.Int("discarded", m.inbound.Len()),
			zap.Error(err),
		)
		m.inbound.Reset()
		return false
	}

	payload := append([]byte(nil), h.Payload(raw)...)
	m.inbound.Consume(int(h.FrameLength()))
	m.stats.FramesReceived++
	m.dispatch(h, payload)
	return true
}

func (m *Manager) dispatch(h protocol.Header, payload []byte) {
	logging.LogFrame(m.cfg.Endpoint.String(), "received", h.Opcode, payload)
	if m.opts.observer != nil {
		m.opts.observer.FrameReceived(h, payload)
	}
	if m.opts.deliver != nil {
		m.opts.deliver(Message{Opcode: h.Opcode, Final: h.Final, Payload: payload})
	}

	switch h.Opcode {
	case protocol.OpPing:
		if err := m.writeFrame(protocol.OpPong, payload); err != nil {
			logging.Warn("Pong not sent",
				zap.String("remote_addr", m.cfg.Endpoint.String()),
				zap.Error(err),
			)
		}
	case protocol.OpClose:
		// Echo the status code only
		echo := payload
		if len(echo) > 2 {
			echo = echo[:2]
		}
		if err := m.writeFrame(protocol.OpClose, echo); err != nil {
			logging.Warn("Close echo not sent",
				zap.String("remote_addr", m.cfg.Endpoint.String()),
				zap.Error(err),
			)
		}
		if m.phase == Connected {
			m.disconnect(ErrPeerClosed)
		}
	}
}

// disconnect releases the transport and clears both buffers
func (m *Manager) disconnect(reason error) {
	if m.transport == nil {
		return
	}

	logging.Info("Disconnected",
		zap.String("remote_addr", m.cfg.Endpoint.String()),
		zap.Uint64("session", m.session),
		zap.Stringer("from", m.phase),
		zap.Error(reason),
	)

	m.release()
	m.lastActivity = m.now
	m.setPhase(Disconnected)
}

func (m *Manager) release() {
	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			logging.Debug("Transport close failed", zap.Error(err))
		}
		m.transport = nil
	}
	m.staging.Reset()
	m.inbound.Reset()
	m.awaitingReply = false
}

func (m *Manager) shutdown() {
	m.release()
	m.setPhase(Disconnected)
	m.stopped = true
	logging.LogConnection(m.cfg.Endpoint.String(), "shutdown")
}

func (m *Manager) setPhase(p Phase) {
	if p == m.phase {
		return
	}
	logging.Info("Link phase changed",
		zap.String("remote_addr", m.cfg.Endpoint.String()),
		zap.Stringer("from", m.phase),
		zap.Stringer("phase", p),
	)
	m.phase = p
	if m.opts.phaseChange != nil {
		m.opts.phaseChange(p)
	}
}
