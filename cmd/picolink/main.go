// Picolink runs a WebSocket client link to a fixed remote peer.
//
// It connects over TCP, sends the upgrade request, keeps the connection
// alive once per interval and reconnects on a fixed delay whenever the link
// drops. Received text is shown on the terminal, optionally in an
// interactive status view.
//
// Usage:
//
//	picolink [command] [flags]
//
// See 'picolink --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/picolink/internal/config"
	"github.com/muurk/picolink/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
	address    string
	port       int
	captureDir string
	useTUI     bool
)

var rootCmd = &cobra.Command{
	Use:   "picolink",
	Short: "WebSocket client link for small devices",
	Long: `A WebSocket client link that keeps one connection to a fixed remote peer.

The link connects, sends the upgrade request, answers pings and sends a
keep-alive once per interval. When the connection drops it waits a fixed
interval and reconnects.

Settings are read from the configuration file and can be overridden with
flags. Without a remote address the peer is discovered over mDNS.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default is the user config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")
	rootCmd.PersistentFlags().StringVar(&address, "address", "", "Remote host name or IP (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "Remote TCP port")
	rootCmd.PersistentFlags().StringVar(&captureDir, "capture-dir", "", "Directory to write frame captures to")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "Show the interactive status view")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration file and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("address") {
		cfg.Remote.Address = address
	}
	if flags.Changed("port") {
		cfg.Remote.Port = port
	}
	if flags.Changed("capture-dir") {
		cfg.CaptureDir = captureDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Detailed("picolink"))
	},
}
