package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/picolink/internal/capture"
	"github.com/muurk/picolink/internal/config"
	"github.com/muurk/picolink/internal/discovery"
	"github.com/muurk/picolink/internal/link"
	"github.com/muurk/picolink/internal/logging"
	"github.com/muurk/picolink/internal/protocol"
	"github.com/muurk/picolink/internal/scheduler"
	"github.com/muurk/picolink/internal/transport"
	"github.com/muurk/picolink/internal/ui"
)

// statsRefresh is how often the status view asks for fresh counters
const statsRefresh = time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the link until interrupted",
	Long: `Connect to the remote peer and keep the link up until interrupted.

Received text frames are printed to stdout, and each line read from stdin is
sent as a text frame. With --tui an interactive status view shows the link
phase, the last received text and the LED colour cycle instead.

Logs go to the configured log file, or to stderr.`,
	Example: `  # Connect to a fixed peer
  picolink run --address 192.168.1.20 --port 8082

  # Discover the peer over mDNS and show the status view
  picolink run --tui

  # Capture every frame for analysis, with debug logs
  picolink run --address pico.local --capture-dir ./captures --log-level debug`,
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	tui := useTUI && ui.IsTerminal()
	if useTUI && !tui {
		fmt.Fprintln(os.Stderr, "stdout is not a terminal, falling back to line output")
	}

	logOutput := cfg.LogFile
	if logOutput == "" {
		logOutput = "stderr"
	}
	if err := logging.InitializeTo(cfg.LogLevel, logOutput); err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ep, err := resolveEndpoint(ctx, cfg)
	if err != nil {
		return err
	}

	lc, err := cfg.LinkConfig(ep)
	if err != nil {
		return err
	}

	var observer link.Observer
	if cfg.CaptureDir != "" {
		w, err := capture.Open(cfg.CaptureDir, ep.String())
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		observer = w
	}

	sched := scheduler.New(scheduler.WithTickInterval(cfg.Link.TickInterval))
	dialer := newDialer(cfg)

	if tui {
		return runWithStatusView(ctx, sched, dialer, lc, observer)
	}
	return runWithLines(ctx, sched, dialer, lc, observer)
}

// newDialer sizes transport reads to the link's receive buffer
func newDialer(cfg *config.Config) *transport.Dialer {
	return transport.NewDialer(
		transport.WithConnectTimeout(cfg.Link.ConnectTimeout),
		transport.WithReadSize(cfg.Link.BufferSize),
	)
}

// resolveEndpoint returns the configured endpoint, or discovers one
func resolveEndpoint(ctx context.Context, cfg *config.Config) (link.Endpoint, error) {
	if cfg.Remote.Address != "" {
		return link.Endpoint{Host: cfg.Remote.Address, Port: cfg.Remote.Port}, nil
	}

	scanner := discovery.NewScanner()
	scanner.Service = cfg.Remote.Service
	scanner.Timeout = cfg.Remote.DiscoverTimeout

	logging.Info("No remote address configured, discovering over mDNS",
		zap.String("service", scanner.Service),
		zap.Duration("timeout", scanner.Timeout),
	)

	peer, err := scanner.Find(ctx, cfg.Remote.Instance)
	if err != nil {
		return link.Endpoint{}, fmt.Errorf("discovery failed: %w", err)
	}
	if peer.Path != "" {
		cfg.Remote.Path = peer.Path
	}
	return peer.Endpoint(), nil
}

// runWithLines prints received text and sends stdin lines
func runWithLines(ctx context.Context, sched *scheduler.Scheduler, dialer link.Dialer, lc link.Config, observer link.Observer) error {
	opts := []link.Option{
		link.WithNotify(sched.Post),
		link.WithPhaseChange(func(p link.Phase) {
			fmt.Fprintf(os.Stderr, "* %s\n", p)
		}),
		link.WithDeliver(func(m link.Message) {
			if m.Opcode == protocol.OpText {
				fmt.Println(string(m.Payload))
			}
		}),
	}
	if observer != nil {
		opts = append(opts, link.WithObserver(observer))
	}

	mgr, err := link.New(lc, dialer, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "* linking to %s (Ctrl+C to stop)\n", lc.Endpoint)

	// stdin cannot be interrupted, so the reader is not part of the group
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			ok := sched.Do(func() {
				if err := mgr.SendText(line); err != nil {
					fmt.Fprintf(os.Stderr, "* not sent: %v\n", err)
				}
			})
			if !ok {
				return
			}
		}
	}()

	return sched.Run(ctx, mgr)
}

// runWithStatusView hosts the link behind the interactive status view
func runWithStatusView(ctx context.Context, sched *scheduler.Scheduler, dialer link.Dialer, lc link.Config, observer link.Observer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mgr *link.Manager
	var prog *tea.Program

	send := func(text string) {
		// Update must not block on the scheduler queue
		go sched.Do(func() {
			err := mgr.SendText(text)
			prog.Send(ui.SendResultMsg{Text: text, Err: err})
		})
	}
	prog = tea.NewProgram(ui.NewStatusModel(lc.Endpoint.String(), send), tea.WithAltScreen())

	opts := []link.Option{
		link.WithNotify(sched.Post),
		link.WithPhaseChange(func(p link.Phase) {
			prog.Send(ui.PhaseMsg{Phase: p})
		}),
		link.WithDeliver(func(m link.Message) {
			prog.Send(ui.FrameMsg{Message: m})
		}),
	}
	if observer != nil {
		opts = append(opts, link.WithObserver(observer))
	}

	var err error
	mgr, err = link.New(lc, dialer, opts...)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(ctx, mgr)
	})

	g.Go(func() error {
		// Leaving the view stops the link
		defer cancel()
		_, err := prog.Run()
		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(statsRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				prog.Quit()
				return nil
			case <-ticker.C:
				sched.Do(func() {
					prog.Send(ui.StatsMsg{Stats: mgr.Stats()})
				})
			}
		}
	})

	return g.Wait()
}
