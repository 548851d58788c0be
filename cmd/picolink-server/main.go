// Picolink-server is the WebSocket peer picolink devices connect to.
//
// It accepts upgrade requests, logs and optionally captures every frame,
// echoes messages back and pushes a periodic status line for the device
// display. With --advertise it registers itself over mDNS so devices can
// find it without a fixed address.
//
// Usage:
//
//	picolink-server serve [flags]
//
// See 'picolink-server serve --help' for available options.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/picolink/internal/config"
	"github.com/muurk/picolink/internal/logging"
	"github.com/muurk/picolink/internal/server"
	"github.com/muurk/picolink/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "picolink-server",
	Short: "WebSocket peer for picolink devices",
	Long: `A WebSocket server for picolink devices to connect to.

Every frame is logged. Text and binary messages are echoed back, pings are
answered, and a status line is pushed on a fixed interval so the device
display has something to show.

Note: the device side is the separate 'picolink' utility.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	configPath     string
	listen         string
	path           string
	logLevel       string
	captureDir     string
	statusInterval time.Duration
	advertise      bool
	instance       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebSocket server",
	Long: `Start the server and accept device connections until interrupted.

Defaults come from the server section of the configuration file; flags
override them. To capture frames for protocol analysis, use --capture-dir to
name a directory where JSON Lines captures are written.`,
	Example: `  # Start with defaults (:8082, status every 5s)
  picolink-server serve

  # Debug logs and a faster status line
  picolink-server serve --log-level debug --status-interval 1s

  # Advertise over mDNS and capture frames
  picolink-server serve --advertise --capture-dir ./captures`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Configuration file (default is the user config directory)")
	serveCmd.Flags().StringVar(&listen, "listen", "", "Listen address (host:port)")
	serveCmd.Flags().StringVar(&path, "path", "", "WebSocket endpoint path")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&captureDir, "capture-dir", "", "Directory to write frame captures (disabled if not specified)")
	serveCmd.Flags().DurationVar(&statusInterval, "status-interval", 0, "Status push interval (0 keeps the configured value)")
	serveCmd.Flags().BoolVar(&advertise, "advertise", false, "Register over mDNS")
	serveCmd.Flags().StringVar(&instance, "instance", "", "mDNS instance name")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	sc := server.Config{
		Listen:         cfg.Server.Listen,
		Path:           cfg.Server.Path,
		StatusInterval: cfg.Server.StatusInterval,
		CaptureDir:     cfg.CaptureDir,
		Advertise:      cfg.Server.Advertise,
		Instance:       cfg.Server.Instance,
		Service:        cfg.Remote.Service,
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		sc.Listen = listen
	}
	if flags.Changed("path") {
		sc.Path = path
	}
	if flags.Changed("capture-dir") {
		sc.CaptureDir = captureDir
	}
	if statusInterval > 0 {
		sc.StatusInterval = statusInterval
	}
	if flags.Changed("advertise") {
		sc.Advertise = advertise
	}
	if flags.Changed("instance") {
		sc.Instance = instance
	}

	srv, err := server.New(sc)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Detailed("picolink-server"))
	},
}
