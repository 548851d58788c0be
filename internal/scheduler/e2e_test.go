package scheduler_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/picolink/internal/handshake"
	"github.com/muurk/picolink/internal/link"
	"github.com/muurk/picolink/internal/protocol"
	"github.com/muurk/picolink/internal/scheduler"
	"github.com/muurk/picolink/internal/transport"
)

// echoPeer greets every connection, echoes text and closes with 1000 when
// told "bye"
func echoPeer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte("welcome")); err != nil {
			return
		}
		for {
			typ, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if typ != websocket.TextMessage {
				continue
			}
			if string(msg) == "bye" {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
					time.Now().Add(time.Second))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, append([]byte("echo: "), msg...)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func endpointOf(t *testing.T, srv *httptest.Server) link.Endpoint {
	t.Helper()
	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("SplitHostPort() error = %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return link.Endpoint{Host: host, Port: port}
}

func waitMessage(t *testing.T, ch <-chan link.Message, match func(link.Message) bool, what string) link.Message {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-ch:
			if match(msg) {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
			return link.Message{}
		}
	}
}

func waitPhase(t *testing.T, ch <-chan link.Phase, want link.Phase) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-ch:
			if p == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase %v", want)
		}
	}
}

func isText(s string) func(link.Message) bool {
	return func(m link.Message) bool {
		return m.Opcode == protocol.OpText && string(m.Payload) == s
	}
}

func TestEndToEndWithWebSocketPeer(t *testing.T) {
	srv := echoPeer(t)
	ep := endpointOf(t, srv)

	messages := make(chan link.Message, 64)
	phases := make(chan link.Phase, 64)

	sched := scheduler.New(scheduler.WithTickInterval(10 * time.Millisecond))
	mgr, err := link.New(link.Config{
		Endpoint:          ep,
		ReconnectInterval: 100 * time.Millisecond,
		KeepAliveInterval: 200 * time.Millisecond,
		Handshake:         &handshake.Request{Host: ep.String(), Path: "/ws"},
	}, transport.NewDialer(),
		link.WithNotify(sched.Post),
		link.WithDeliver(func(m link.Message) { messages <- m }),
		link.WithPhaseChange(func(p link.Phase) { phases <- p }),
	)
	if err != nil {
		t.Fatalf("link.New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- sched.Run(ctx, mgr) }()

	waitPhase(t, phases, link.Connected)
	waitMessage(t, messages, isText("welcome"), "welcome text")

	sched.Do(func() {
		if err := mgr.SendText("hello"); err != nil {
			t.Errorf("SendText() error = %v", err)
		}
	})
	waitMessage(t, messages, isText("echo: hello"), "echoed text")

	// gorilla answers the keep-alive ping
	waitMessage(t, messages, func(m link.Message) bool { return m.Opcode == protocol.OpPong }, "pong")

	// A peer close releases the link and the manager reconnects by itself
	sched.Do(func() { _ = mgr.SendText("bye") })
	closeMsg := waitMessage(t, messages, func(m link.Message) bool { return m.Opcode == protocol.OpClose }, "close frame")
	if len(closeMsg.Payload) < 2 || closeMsg.Payload[0] != 0x03 || closeMsg.Payload[1] != 0xE8 {
		t.Errorf("close payload = %x, want status 1000", closeMsg.Payload)
	}
	waitPhase(t, phases, link.Disconnected)
	waitPhase(t, phases, link.Connected)
	waitMessage(t, messages, isText("welcome"), "welcome after reconnect")

	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestEndToEndReconnectsUntilPeerAppears(t *testing.T) {
	// Reserve a port with nothing listening on it
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	phases := make(chan link.Phase, 64)
	sched := scheduler.New(scheduler.WithTickInterval(10 * time.Millisecond))
	mgr, err := link.New(link.Config{
		Endpoint:          link.Endpoint{Host: "127.0.0.1", Port: port},
		ReconnectInterval: 50 * time.Millisecond,
	}, transport.NewDialer(transport.WithConnectTimeout(time.Second)),
		link.WithNotify(sched.Post),
		link.WithPhaseChange(func(p link.Phase) { phases <- p }),
	)
	if err != nil {
		t.Fatalf("link.New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sched.Run(ctx, mgr) }()

	// At least two refused attempts before the peer exists
	waitPhase(t, phases, link.Disconnected)
	waitPhase(t, phases, link.Disconnected)

	ln, err = net.Listen("tcp", addr)
	if err != nil {
		t.Skipf("could not rebind %s: %v", addr, err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			defer c.Close()
			<-ctx.Done()
		}
	}()

	waitPhase(t, phases, link.Connected)
}
