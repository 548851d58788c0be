package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muurk/picolink/internal/handshake"
	"github.com/muurk/picolink/internal/link"
	"github.com/muurk/picolink/internal/protocol"
)

const (
	appName    = "picolink"
	configFile = "config.yaml"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/picolink or $HOME/.config/picolink
//   - macOS: $HOME/.config/picolink (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\picolink
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	p, err := GetConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get config path: %w", err)
	}
	return p, nil
}

// Load reads the configuration at path, or the default path when empty.
// A missing file yields the defaults. Fields absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	configPath, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d (expected 1)", cfg.Version)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// Save writes the configuration to path, or the default path when empty.
// Performs an atomic write to prevent corruption on crash.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	configPath, err := resolvePath(path)
	if err != nil {
		return err
	}

	// Create directory with user-only permissions (0700)
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# picolink configuration file
# Durations use Go syntax (e.g. 100ms, 5s, 1m).
# Leave remote.address empty to discover the peer over mDNS.
#
# Location: ` + configPath + `

`)
	data = append(header, data...)

	// Write to temporary file first (atomic write)
	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// Validate checks that every value is usable
func (c *Config) Validate() error {
	var problems []string

	if c.Remote.Port <= 0 || c.Remote.Port > 65535 {
		problems = append(problems, fmt.Sprintf("remote.port %d out of range", c.Remote.Port))
	}
	if !strings.HasPrefix(c.Remote.Path, "/") {
		problems = append(problems, fmt.Sprintf("remote.path %q must start with /", c.Remote.Path))
	}
	if c.Remote.Address == "" && c.Remote.Service == "" {
		problems = append(problems, "remote.address or remote.service is required")
	}

	if c.Link.BufferSize <= protocol.MaxHeaderSize {
		problems = append(problems, fmt.Sprintf("link.buffer_size %d must exceed %d", c.Link.BufferSize, protocol.MaxHeaderSize))
	}
	intervals := []struct {
		name string
		d    time.Duration
	}{
		{"link.tick_interval", c.Link.TickInterval},
		{"link.reconnect_interval", c.Link.ReconnectInterval},
		{"link.keepalive_interval", c.Link.KeepAliveInterval},
		{"link.connect_timeout", c.Link.ConnectTimeout},
	}
	for _, iv := range intervals {
		if iv.d <= 0 {
			problems = append(problems, iv.name+" must be positive")
		}
	}

	op, err := protocol.ParseOpcode(c.Link.KeepAliveOpcode)
	switch {
	case err != nil:
		problems = append(problems, "link.keepalive_opcode: "+err.Error())
	case op != protocol.OpPing && op != protocol.OpText:
		problems = append(problems, fmt.Sprintf("link.keepalive_opcode %s must be ping or text", op))
	case op.IsControl() && len(c.Link.KeepAlivePayload) > protocol.MaxControlPayload:
		problems = append(problems, "link.keepalive_payload too long for a ping")
	}

	if c.Server.StatusInterval < 0 {
		problems = append(problems, "server.status_interval must not be negative")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// LinkConfig builds the connection manager configuration for ep
func (c *Config) LinkConfig(ep link.Endpoint) (link.Config, error) {
	op, err := protocol.ParseOpcode(c.Link.KeepAliveOpcode)
	if err != nil {
		return link.Config{}, err
	}

	lc := link.Config{
		Endpoint:          ep,
		BufferSize:        c.Link.BufferSize,
		ReconnectInterval: c.Link.ReconnectInterval,
		KeepAliveInterval: c.Link.KeepAliveInterval,
		KeepAliveOpcode:   op,
	}
	if c.Link.KeepAlivePayload != "" {
		lc.KeepAlivePayload = []byte(c.Link.KeepAlivePayload)
	}
	if c.Remote.Handshake {
		lc.Handshake = &handshake.Request{Host: ep.String(), Path: c.Remote.Path}
	}
	return lc, nil
}
