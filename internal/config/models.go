package config

import (
	"time"

	"github.com/muurk/picolink/internal/discovery"
)

// Config represents the entire configuration file
type Config struct {
	Version    int            `yaml:"version"`
	Remote     RemoteConfig   `yaml:"remote"`
	Link       LinkSettings   `yaml:"link"`
	Server     ServerSettings `yaml:"server"`
	CaptureDir string         `yaml:"capture_dir,omitempty"` // JSONL frame capture directory; empty disables capture
	LogLevel   string         `yaml:"log_level,omitempty"`   // debug, info, warn, error; empty is silent
	LogFile    string         `yaml:"log_file,omitempty"`    // Log destination for the device; stderr when empty
}

// RemoteConfig describes the fixed endpoint the device connects to
type RemoteConfig struct {
	Address         string        `yaml:"address,omitempty"`  // Host name or IP; discovered over mDNS when empty
	Port            int           `yaml:"port"`               // TCP port
	Path            string        `yaml:"path"`               // Upgrade request path
	Handshake       bool          `yaml:"handshake"`          // Send the upgrade request on connect
	Service         string        `yaml:"service"`            // mDNS service type used for discovery
	DiscoverTimeout time.Duration `yaml:"discover_timeout"`   // How long discovery browses
	Instance        string        `yaml:"instance,omitempty"` // Preferred mDNS instance name
}

// LinkSettings tunes the connection manager
type LinkSettings struct {
	BufferSize        int           `yaml:"buffer_size"`                 // Capacity of staging and accumulation buffers
	TickInterval      time.Duration `yaml:"tick_interval"`               // Scheduler cadence
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`          // Fixed delay between connect attempts
	KeepAliveInterval time.Duration `yaml:"keepalive_interval"`          // One keep-alive frame per interval
	KeepAliveOpcode   string        `yaml:"keepalive_opcode"`            // ping or text
	KeepAlivePayload  string        `yaml:"keepalive_payload,omitempty"` // Fixed keep-alive payload
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`             // Bound on one TCP connect
}

// ServerSettings configures the test peer
type ServerSettings struct {
	Listen         string        `yaml:"listen"`          // host:port to listen on
	Path           string        `yaml:"path"`            // WebSocket endpoint path
	StatusInterval time.Duration `yaml:"status_interval"` // How often status text is pushed; 0 disables
	Advertise      bool          `yaml:"advertise"`       // Register over mDNS
	Instance       string        `yaml:"instance"`        // mDNS instance name
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Version: 1,
		Remote: RemoteConfig{
			Port:            8082,
			Path:            "/",
			Handshake:       true,
			Service:         discovery.DefaultService,
			DiscoverTimeout: 5 * time.Second,
		},
		Link: LinkSettings{
			BufferSize:        2048,
			TickInterval:      100 * time.Millisecond,
			ReconnectInterval: 5 * time.Second,
			KeepAliveInterval: 10 * time.Second,
			KeepAliveOpcode:   "ping",
			ConnectTimeout:    10 * time.Second,
		},
		Server: ServerSettings{
			Listen:         ":8082",
			Path:           "/",
			StatusInterval: 5 * time.Second,
			Instance:       "picolink-server",
		},
	}
}
