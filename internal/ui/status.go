package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/picolink/internal/link"
	"github.com/muurk/picolink/internal/protocol"
)

// DefaultDisplayText is shown until text arrives and after each disconnect
const DefaultDisplayText = "Disconnected"

// PhaseMsg reports a link phase change
type PhaseMsg struct {
	Phase link.Phase
}

// FrameMsg reports a delivered inbound frame
type FrameMsg struct {
	Message link.Message
}

// StatsMsg carries a fresh snapshot of the link counters
type StatsMsg struct {
	Stats link.Stats
}

// SendResultMsg reports the outcome of a line submitted from the input
type SendResultMsg struct {
	Text string
	Err  error
}

type ledTickMsg time.Time

// SendFunc submits a line of text for transmission. It must not block;
// the outcome is reported back with a SendResultMsg.
type SendFunc func(text string)

type statusKeyMap struct {
	Send key.Binding
	Help key.Binding
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k statusKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k statusKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Help, k.Quit},
	}
}

// StatusModel is the interactive device view: connection phase, the most
// recently received text, the LED colour cycle and the link counters.
type StatusModel struct {
	Endpoint string
	Phase    link.Phase
	Text     string
	Stats    link.Stats
	LastSend string // Result of the last submitted line
	Width    int
	Height   int

	started time.Time
	now     time.Time
	clock   func() time.Time

	send     SendFunc
	spinner  spinner.Model
	input    textinput.Model
	help     help.Model
	keys     statusKeyMap
	quitting bool
}

// NewStatusModel creates the status view for endpoint. send may be nil, in
// which case the input line is hidden.
func NewStatusModel(endpoint string, send SendFunc) StatusModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.Placeholder = "text to send"
	input.CharLimit = 120
	input.Width = 50
	if send != nil {
		input.Focus()
	}

	width, height := GetTerminalSize()
	now := time.Now()

	return StatusModel{
		Endpoint: endpoint,
		Phase:    link.Disconnected,
		Text:     DefaultDisplayText,
		Width:    width,
		Height:   height,
		started:  now,
		now:      now,
		clock:    time.Now,
		send:     send,
		spinner:  s,
		input:    input,
		help:     help.New(),
		keys: statusKeyMap{
			Send: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "send"),
			),
			Help: key.NewBinding(
				key.WithKeys("f1"),
				key.WithHelp("f1", "help"),
			),
			Quit: key.NewBinding(
				key.WithKeys("ctrl+c", "esc"),
				key.WithHelp("esc", "quit"),
			),
		},
	}
}

// Quitting reports whether the user asked to leave
func (m StatusModel) Quitting() bool {
	return m.quitting
}

func (m StatusModel) ledTick() tea.Cmd {
	return tea.Tick(LEDRefresh, func(t time.Time) tea.Msg {
		return ledTickMsg(t)
	})
}

// Init implements tea.Model
func (m StatusModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.ledTick()}
	if m.send != nil {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (m StatusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		if m.Width > MaxContentWidth {
			m.Width = MaxContentWidth
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Send):
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.send == nil {
				return m, nil
			}
			m.input.Reset()
			m.send(text)
			return m, nil
		}
		if m.send == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case PhaseMsg:
		m.Phase = msg.Phase
		if msg.Phase == link.Disconnected {
			m.Text = DefaultDisplayText
		}
		return m, nil

	case FrameMsg:
		if msg.Message.Opcode == protocol.OpText {
			m.Text = string(msg.Message.Payload)
		}
		return m, nil

	case StatsMsg:
		m.Stats = msg.Stats
		return m, nil

	case SendResultMsg:
		if msg.Err != nil {
			m.LastSend = fmt.Sprintf("%s %q: %v", FailureMarker, msg.Text, msg.Err)
		} else {
			m.LastSend = fmt.Sprintf("%s %q", SuccessMarker, msg.Text)
		}
		return m, nil

	case ledTickMsg:
		m.now = m.clock()
		return m, m.ledTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m StatusModel) View() string {
	if m.quitting {
		return ""
	}

	width := m.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	phase := PhaseStyle(m.Phase).Render(m.Phase.String())
	if m.Phase == link.Connecting {
		phase = m.spinner.View() + " " + phase
	}

	rows := []string{
		HeaderTitleStyle.Render("PICOLINK DEVICE"),
		"",
		"  " + LabelStyle.Render("Remote") + ValueStyle.Render(m.Endpoint),
		"  " + LabelStyle.Render("Link") + phase,
		"  " + LabelStyle.Render("LED") + RenderLED(m.now.Sub(m.started)),
		"",
		DisplayBoxStyle(width).Render(m.Text),
		"",
		"  " + LabelStyle.Render("Frames") + ValueStyle.Render(fmt.Sprintf(
			"sent %d  received %d  keep-alive %d",
			m.Stats.FramesSent, m.Stats.FramesReceived, m.Stats.KeepAlives)),
		"  " + LabelStyle.Render("Dropped") + ValueStyle.Render(fmt.Sprintf(
			"send %d  malformed %d  overflow %d",
			m.Stats.Dropped, m.Stats.Malformed, m.Stats.Overflows)),
		"  " + LabelStyle.Render("Attempts") + ValueStyle.Render(fmt.Sprintf("%d", m.Stats.ConnectAttempts)),
	}

	if m.send != nil {
		rows = append(rows, "", "  "+m.input.View())
		if m.LastSend != "" {
			rows = append(rows, HelpStyle.Render(m.LastSend))
		}
	}

	rows = append(rows, "", HelpStyle.Render(m.help.View(m.keys)))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
