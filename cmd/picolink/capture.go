package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/picolink/internal/capture"
	"github.com/muurk/picolink/internal/ui"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Inspect frame capture files",
}

var captureSummaryCmd = &cobra.Command{
	Use:     "summary <file.jsonl>",
	Short:   "Summarize a capture file",
	Example: `  picolink capture summary captures/capture-20260102-030405.jsonl`,
	Args:    cobra.ExactArgs(1),
	RunE:    runCaptureSummary,
}

func init() {
	captureCmd.AddCommand(captureSummaryCmd)
	rootCmd.AddCommand(captureCmd)
}

func runCaptureSummary(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("Capture Summary", "picolink capture summary",
		ui.Field{Key: "File", Value: args[0]})

	records, err := capture.ReadFile(args[0])
	if err != nil {
		p.PrintError("Capture", err)
		return err
	}

	s := capture.Summarize(records)
	details := []ui.Field{
		{Key: "Records", Value: fmt.Sprintf("%d", s.Records)},
	}
	if s.Records > 0 {
		details = append(details,
			ui.Field{Key: "First", Value: s.First.Format("2006-01-02 15:04:05")},
			ui.Field{Key: "Duration", Value: s.Duration().String()},
		)
	}
	if len(s.Remotes) > 0 {
		details = append(details, ui.Field{Key: "Remotes", Value: strings.Join(s.Remotes, ", ")})
	}
	for _, c := range s.Counts {
		details = append(details, ui.Field{
			Key:   c.Direction + " " + c.FrameType,
			Value: fmt.Sprintf("%d frames, %d bytes", c.Frames, c.Bytes),
		})
	}

	p.PrintSuccess("capture read", details...)
	return nil
}
