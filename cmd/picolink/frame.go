package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/picolink/internal/logging"
	"github.com/muurk/picolink/internal/protocol"
	"github.com/muurk/picolink/internal/ui"
)

// Frame command flags
var (
	frameOpcode string
	frameMask   bool
	frameHex    bool
)

var frameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Encode and decode single frames",
	Long: `Encode a payload into a WebSocket frame, or decode a captured frame.

Frames are written and read as hexadecimal. Whitespace and colons in the
input are ignored, so bytes copied from a capture or a hex dump can be
pasted directly.`,
}

var frameEncodeCmd = &cobra.Command{
	Use:   "encode <payload>",
	Short: "Encode a payload into a frame",
	Example: `  # Masked text frame, as the link sends it
  picolink frame encode "hello"

  # Unmasked ping with a hex payload
  picolink frame encode --opcode ping --mask=false --hex 0102`,
	Args: cobra.ExactArgs(1),
	RunE: runFrameEncode,
}

var frameDecodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode a frame from hex",
	Example: `  picolink frame decode "81 85 37 fa 21 3d 7f 9f 4d 51 58"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runFrameDecode,
}

func init() {
	frameEncodeCmd.Flags().StringVar(&frameOpcode, "opcode", "text", "Frame opcode (text, binary, close, ping, pong, continuation)")
	frameEncodeCmd.Flags().BoolVar(&frameMask, "mask", true, "Mask the payload with a random key")
	frameEncodeCmd.Flags().BoolVar(&frameHex, "hex", false, "Treat the payload argument as hex")

	frameCmd.AddCommand(frameEncodeCmd)
	frameCmd.AddCommand(frameDecodeCmd)
	rootCmd.AddCommand(frameCmd)
}

// parseHex decodes hex, ignoring whitespace, colons and an optional 0x prefix
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

func runFrameEncode(cmd *cobra.Command, args []string) error {
	op, err := protocol.ParseOpcode(frameOpcode)
	if err != nil {
		return err
	}

	payload := []byte(args[0])
	if frameHex {
		if payload, err = parseHex(args[0]); err != nil {
			return err
		}
	}

	dst := make([]byte, protocol.FrameSize(len(payload), frameMask))
	n, err := protocol.Encode(dst, op, payload, frameMask, nil)
	if err != nil {
		return err
	}

	fmt.Println(hex.EncodeToString(dst[:n]))
	return nil
}

func runFrameDecode(cmd *cobra.Command, args []string) error {
	raw, err := parseHex(args[0])
	if err != nil {
		return err
	}

	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("Frame Decode", "picolink frame decode",
		ui.Field{Key: "Input", Value: strconv.Itoa(len(raw)) + " bytes"})

	h, err := protocol.Decode(raw)
	if err != nil {
		var tips []string
		switch {
		case errors.Is(err, protocol.ErrIncomplete):
			tips = append(tips, "the input ends before the frame does; copy the whole frame")
		case errors.Is(err, protocol.ErrMalformed):
			tips = append(tips, "the header is inconsistent; check the opcode and length bytes")
		}
		p.PrintError("Decode", err, tips...)
		return err
	}

	payload := h.Payload(raw)
	details := []ui.Field{
		{Key: "Opcode", Value: fmt.Sprintf("%s (0x%X)", h.Opcode, byte(h.Opcode))},
		{Key: "Final", Value: strconv.FormatBool(h.Final)},
		{Key: "Reserved", Value: fmt.Sprintf("%03b", h.Reserved)},
		{Key: "Masked", Value: strconv.FormatBool(h.Masked)},
	}
	if h.Masked {
		details = append(details, ui.Field{Key: "Mask key", Value: hex.EncodeToString(h.MaskKey[:])})
	}
	details = append(details,
		ui.Field{Key: "Header size", Value: strconv.Itoa(h.PayloadOffset)},
		ui.Field{Key: "Payload length", Value: strconv.FormatUint(h.PayloadLength, 10)},
		ui.Field{Key: "Payload hex", Value: logging.HexDump(payload)},
		ui.Field{Key: "Payload text", Value: logging.ASCIIDump(payload)},
	)
	if trailing := uint64(len(raw)) - h.FrameLength(); trailing > 0 {
		details = append(details, ui.Field{Key: "Trailing bytes", Value: strconv.FormatUint(trailing, 10)})
	}

	p.PrintSuccess(h.Opcode.String()+" frame", details...)
	return nil
}
