// Package ui provides terminal UI components for the picolink commands.
//
// Two styles of output are offered. Non-interactive commands (frame,
// discover, config) print styled header and result boxes through a
// Printer. The run command can instead host a StatusModel, a Bubble Tea
// program that mirrors the device display:
//
//   - the link phase, with a spinner while a connect is in flight
//   - the most recent text payload, or "Disconnected"
//   - a colour swatch cycling through the hue wheel every five seconds
//   - send, drop and keep-alive counters
//   - an input line whose contents are sent as a text frame
//
// The link runs on its own goroutine. Its callbacks hand state to the
// program with tea.Program.Send using PhaseMsg, FrameMsg and StatsMsg.
//
// # Colour Cycle
//
//	r, g, b := ui.HSVToRGB(0.5, 1, 1) // cyan: 0, 255, 255
//	c := ui.LEDColor(1500 * time.Millisecond)
package ui
