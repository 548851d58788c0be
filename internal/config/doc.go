// Package config provides configuration management for picolink.
//
// This package manages a YAML configuration file holding the remote
// endpoint, link timing, keep-alive policy, the test peer settings and
// logging/capture options. The file follows OS-specific conventions for
// storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/picolink/config.yaml or $HOME/.config/picolink/config.yaml
//   - macOS: $HOME/.config/picolink/config.yaml
//   - Windows: %LOCALAPPDATA%\picolink\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg.Remote.Address = "192.168.1.20"
//	cfg.Link.KeepAliveOpcode = "text"
//	cfg.Link.KeepAlivePayload = "GET /status"
//
//	// Save changes atomically
//	if err := cfg.Save(""); err != nil {
//	    log.Fatal(err)
//	}
//
// A missing file is not an error; Load returns Default().
package config
