package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/picolink/internal/capture"
	"github.com/muurk/picolink/internal/discovery"
	"github.com/muurk/picolink/internal/logging"
)

// Defaults for a zero Config
const (
	DefaultListen         = ":8082"
	DefaultPath           = "/"
	DefaultStatusInterval = 5 * time.Second
	DefaultInstance       = "picolink-server"

	shutdownTimeout = 10 * time.Second
)

// Config holds the server configuration
type Config struct {
	Listen         string        // host:port to listen on
	Path           string        // URL path devices upgrade on
	StatusInterval time.Duration // How often a status line is pushed (0 = never)
	CaptureDir     string        // Directory for frame captures (empty = disabled)
	Advertise      bool          // Register the server over mDNS
	Instance       string        // mDNS instance name
	Service        string        // mDNS service type (empty = discovery.DefaultService)
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Instance == "" {
		c.Instance = DefaultInstance
	}
	if c.Service == "" {
		c.Service = discovery.DefaultService
	}
}

// Server is the WebSocket peer devices connect to
type Server struct {
	config      Config
	upgrader    websocket.Upgrader
	httpServer  *http.Server
	listener    net.Listener
	capture     *capture.Writer
	adv         *discovery.Advertisement
	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
	started     time.Time
}

// New creates a new Server instance
func New(config Config) (*Server, error) {
	config.applyDefaults()
	if config.StatusInterval < 0 {
		return nil, fmt.Errorf("status interval must not be negative, got %s", config.StatusInterval)
	}

	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			// Devices send no Origin header
			CheckOrigin: func(*http.Request) bool { return true },
		},
		activeConns: make(map[string]*websocket.Conn),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(config.Path, s.handleWebSocket)
	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Listen binds the listening socket. Start calls it when needed; calling it
// first lets callers learn the bound address of a ":0" listener.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves connections until ctx is cancelled, then shuts down
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.started = time.Now()

	if s.config.CaptureDir != "" {
		w, err := capture.Open(s.config.CaptureDir, "")
		if err != nil {
			_ = s.listener.Close()
			return err
		}
		s.capture = w
	}

	if s.config.Advertise {
		port := s.listener.Addr().(*net.TCPAddr).Port
		adv, err := discovery.Advertise(s.config.Instance, s.config.Service, port, s.config.Path)
		if err != nil {
			// The server is still reachable by address
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			s.adv = adv
		}
	}

	logging.Info("Server listening for connections",
		zap.String("addr", s.listener.Addr().String()),
		zap.String("path", s.config.Path),
		zap.Duration("status_interval", s.config.StatusInterval),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.adv.Shutdown()

	// Stops the listener; hijacked WebSocket connections are closed below
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.Error("Error closing listener", zap.Error(err))
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	if s.capture != nil {
		if err := s.capture.Close(); err != nil {
			logging.Error("Error closing capture file", zap.Error(err))
		}
	}

	logging.Sync()
	return nil
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) track(addr string, conn *websocket.Conn) {
	s.mu.Lock()
	s.activeConns[addr] = conn
	s.mu.Unlock()
}

func (s *Server) untrack(addr string) {
	s.mu.Lock()
	delete(s.activeConns, addr)
	s.mu.Unlock()
}
