package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/muurk/picolink/internal/link"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - connected, success
	ErrorColor   = lipgloss.Color("#FF5555") // Red - disconnected, errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - connecting, warnings
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

// Text styles. Header styles indent by two columns to sit inside the
// rounded border; result styles are used inside the double border.
var (
	HeaderTitleStyle      = lipgloss.NewStyle().Foreground(TextColor).Bold(true).PaddingLeft(2)
	HeaderCommandStyle    = lipgloss.NewStyle().Foreground(MutedColor).PaddingLeft(2)
	HeaderParamKeyStyle   = lipgloss.NewStyle().Foreground(MutedColor).PaddingLeft(2)
	HeaderParamValueStyle = lipgloss.NewStyle().Foreground(TextColor)

	// Status view rows: fixed-width label, then value
	LabelStyle = lipgloss.NewStyle().Foreground(MutedColor).Width(12)
	ValueStyle = lipgloss.NewStyle().Foreground(TextColor)

	SuccessTitleStyle = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	ErrorTitleStyle   = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	ErrorMessageStyle = lipgloss.NewStyle().Foreground(ErrorColor)
	ResultKeyStyle    = lipgloss.NewStyle().Foreground(MutedColor).Width(18)
	ResultValueStyle  = lipgloss.NewStyle().Foreground(TextColor)

	HelpStyle    = lipgloss.NewStyle().Foreground(MutedColor).PaddingLeft(2)
	SpinnerStyle = lipgloss.NewStyle().Foreground(WarningColor)
)

// Status markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	LEDMarker     = "●"
)

// PhaseStyle returns the badge style for a link phase
func PhaseStyle(p link.Phase) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch p {
	case link.Connected:
		return base.Foreground(lipgloss.Color("#000000")).Background(SuccessColor)
	case link.Connecting:
		return base.Foreground(lipgloss.Color("#000000")).Background(WarningColor)
	default:
		return base.Foreground(TextColor).Background(ErrorColor)
	}
}

// DisplayBoxStyle returns the border style for the received-text display
func DisplayBoxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width-4).
		Padding(0, 1)
}

// GetTerminalWidth returns the usable terminal width
func GetTerminalWidth() int {
	width, _ := GetTerminalSize()
	return width
}

// GetTerminalSize returns the stdout terminal size, with the width clamped
// to [MinTerminalWidth, MaxContentWidth]. Without a terminal it reports
// MinTerminalWidth by 24.
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, 24
	}
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if width > MaxContentWidth {
		width = MaxContentWidth
	}
	return width, height
}

// IsTerminal reports whether stdout is an interactive terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// HeaderBorderStyle returns the border style for command headers
func HeaderBorderStyle(width int) lipgloss.Style {
	return boxStyle(lipgloss.RoundedBorder(), PrimaryColor, width)
}

// SuccessBoxStyle returns the border style for success result boxes
func SuccessBoxStyle(width int) lipgloss.Style {
	return boxStyle(lipgloss.DoubleBorder(), SuccessColor, width).Padding(1, 2)
}

// ErrorBoxStyle returns the border style for error result boxes
func ErrorBoxStyle(width int) lipgloss.Style {
	return boxStyle(lipgloss.DoubleBorder(), ErrorColor, width).Padding(1, 2)
}

// boxStyle sizes a bordered box to fill width including its border
func boxStyle(border lipgloss.Border, color lipgloss.Color, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(color).
		Width(width - 2)
}

// RenderHorizontalDivider creates a horizontal line of the specified width
func RenderHorizontalDivider(width int, char string) string {
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat(char, width))
}
