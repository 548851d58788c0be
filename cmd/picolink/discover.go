package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/picolink/internal/discovery"
	"github.com/muurk/picolink/internal/ui"
)

var discoverTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find peers advertised over mDNS",
	Long: `Browse for peers advertising the configured mDNS service and list them.

A picolink-server started with --advertise answers this browse. Use the
reported address with 'picolink run --address'.`,
	Example: `  # Browse for the default 5 seconds
  picolink discover

  # Quick browse
  picolink discover --timeout 2s`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 0, "Browse duration (default from config)")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	scanner := discovery.NewScanner()
	scanner.Service = cfg.Remote.Service
	scanner.Timeout = cfg.Remote.DiscoverTimeout
	if discoverTimeout > 0 {
		scanner.Timeout = discoverTimeout
	}

	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("Peer Discovery", "picolink discover",
		ui.Field{Key: "Service", Value: scanner.Service},
		ui.Field{Key: "Timeout", Value: scanner.Timeout.String()},
	)

	peers, err := scanner.Scan(cmd.Context())
	if err != nil {
		p.PrintError("Discovery", err, "check that multicast is allowed on this network")
		return err
	}

	if len(peers) == 0 {
		err := fmt.Errorf("no %s peers answered", scanner.Service)
		p.PrintError("Discovery", err,
			"ensure the server is running with --advertise",
			"check both hosts are on the same network segment",
			"try increasing --timeout",
			"use --address to connect without discovery",
		)
		return nil
	}

	details := make([]ui.Field, 0, len(peers))
	for i, peer := range peers {
		details = append(details, ui.Field{Key: strconv.Itoa(i + 1), Value: peer.String()})
	}
	p.PrintSuccess(fmt.Sprintf("found %d peer(s)", len(peers)), details...)
	return nil
}
