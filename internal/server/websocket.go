package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/picolink/internal/capture"
	"github.com/muurk/picolink/internal/logging"
	"github.com/muurk/picolink/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed between inbound frames; devices send a keep-alive
	// well inside this
	readWait = 60 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// EchoPrefix is prepended to every echoed text message
	EchoPrefix = "echo: "
)

// session is one upgraded device connection. gorilla allows a single
// concurrent writer, so all writes go through write.
type session struct {
	server     *Server
	conn       *websocket.Conn
	remoteAddr string
	writeMu    sync.Mutex
	received   atomic.Int64
	connected  time.Time
}

// handleWebSocket upgrades a device connection and serves it until it closes
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wg.Add(1)
	defer s.wg.Done()

	remoteAddr := r.RemoteAddr
	logging.Info("Upgrade request",
		zap.String("remote_addr", remoteAddr),
		zap.String("path", r.URL.Path),
		zap.String("host", r.Host),
	)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response
		logging.Error("Invalid WebSocket upgrade request",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	sess := &session{
		server:     s,
		conn:       conn,
		remoteAddr: remoteAddr,
		connected:  time.Now(),
	}

	s.track(remoteAddr, conn)
	defer func() {
		_ = conn.Close()
		s.untrack(remoteAddr)
		logging.LogConnection(remoteAddr, "websocket_closed")
	}()

	logging.LogConnection(remoteAddr, "websocket_upgraded")

	if err := sess.serve(); err != nil {
		logging.Info("Connection closed or error reading frame",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// serve runs the status pusher and the read loop until the connection ends
func (sess *session) serve() error {
	conn := sess.conn
	conn.SetReadLimit(maxMessageSize)

	conn.SetPingHandler(func(data string) error {
		sess.record(capture.DirectionReceived, protocol.OpPing, []byte(data))
		logging.Debug("Received ping, sending pong", zap.String("remote_addr", sess.remoteAddr))
		if err := sess.writeControl(websocket.PongMessage, []byte(data)); err != nil {
			return err
		}
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
	conn.SetPongHandler(func(data string) error {
		sess.record(capture.DirectionReceived, protocol.OpPong, []byte(data))
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
	conn.SetCloseHandler(func(code int, text string) error {
		logging.Info("Received close frame from device",
			zap.String("remote_addr", sess.remoteAddr),
			zap.Int("code", code),
			zap.String("reason", text),
		)
		msg := websocket.FormatCloseMessage(code, "")
		_ = sess.writeControl(websocket.CloseMessage, msg)
		return nil
	})

	stop := make(chan struct{})
	defer close(stop)
	if interval := sess.server.config.StatusInterval; interval > 0 {
		go sess.pushStatus(interval, stop)
	}

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			return err
		}

		mt, payload, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil
			}
			return err
		}

		sess.received.Add(1)
		op := protocol.Opcode(mt)
		sess.record(capture.DirectionReceived, op, payload)

		switch op {
		case protocol.OpText:
			if err := sess.write(websocket.TextMessage, []byte(EchoPrefix+string(payload))); err != nil {
				return err
			}
		case protocol.OpBinary:
			if err := sess.write(websocket.BinaryMessage, payload); err != nil {
				return err
			}
		}
	}
}

// pushStatus sends a status line every interval so the device display has
// something to show
func (sess *session) pushStatus(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if err := sess.write(websocket.TextMessage, []byte(sess.status(now))); err != nil {
				logging.Debug("Status push failed",
					zap.String("remote_addr", sess.remoteAddr),
					zap.Error(err),
				)
				return
			}
		}
	}
}

// status renders the line pushed to the device
func (sess *session) status(now time.Time) string {
	return fmt.Sprintf("up %s, %d received, %d clients",
		now.Sub(sess.connected).Truncate(time.Second),
		sess.received.Load(),
		sess.server.GetActiveConnections())
}

// write sends a data message
func (sess *session) write(messageType int, payload []byte) error {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	if err := sess.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := sess.conn.WriteMessage(messageType, payload); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	sess.record(capture.DirectionSent, protocol.Opcode(messageType), payload)
	return nil
}

// writeControl sends a control frame; gorilla allows it alongside write
func (sess *session) writeControl(messageType int, payload []byte) error {
	err := sess.conn.WriteControl(messageType, payload, time.Now().Add(writeWait))
	if err == nil {
		sess.record(capture.DirectionSent, protocol.Opcode(messageType), payload)
	}
	return err
}

// record logs a frame and appends it to the capture when enabled. Payloads
// arrive already unmasked, so captures record them as unmasked.
func (sess *session) record(direction string, op protocol.Opcode, payload []byte) {
	logging.LogFrame(sess.remoteAddr, direction, op, payload)

	if sess.server.capture == nil {
		return
	}
	h := protocol.Header{
		Final:         true,
		Opcode:        op,
		PayloadLength: uint64(len(payload)),
	}
	sess.server.capture.Record(sess.remoteAddr, direction, h, payload)
}
