/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/components"
	"github.com/allbin/go-serialport/internal/tui/keys"
	"github.com/allbin/go-serialport/internal/tui/models"
	"github.com/allbin/go-serialport/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <port>",
	Short: "Connect to a serial port with bidirectional communication",
	Long: `Connect to a serial port with an interactive terminal interface.

Incoming bytes are shown with timestamps in hex and ASCII. In insert mode
(press 'i') the input line sends ASCII text or hex bytes (Tab toggles).

Example usage:
  serialport connect /dev/ttyUSB0
  serialport connect /dev/ttyUSB0 --baud 115200 --parity even
  serialport connect /dev/ttyUSB0 --read-only`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := portOptions()
		if err != nil {
			return err
		}
		// The TUI owns the terminal, so library logging is muted
		opts = append(opts, serialport.WithLogger(logger.Level(zerolog.Disabled)))

		readOnly, _ := cmd.Flags().GetBool("read-only")
		lineEnding, _ := cmd.Flags().GetString("line-ending")

		return runConnectTUI(args[0], readOnly, lineEnding, opts...)
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().Bool("read-only", false, "Only display incoming data")
	connectCmd.Flags().String("line-ending", "\n", "Appended to every ASCII message")
}

// connectModel represents the Bubble Tea model for the connect command
type connectModel struct {
	*models.SerialModel
	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.ConnectKeys
	readOnly  bool
}

func runConnectTUI(portPath string, readOnly bool, lineEnding string, opts ...serialport.Option) error {
	poll := viper.GetDuration("poll-interval")
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}

	m := &connectModel{
		SerialModel: models.NewSerialModel(portPath, poll, opts...),
		terminal:    components.NewTerminal(0, 0), // Sized by the first WindowSizeMsg
		statusBar:   components.NewStatusBar(portPath),
		input:       components.NewInput(lineEnding),
		help:        help.New(),
		keys:        keys.NewConnectKeys(),
		readOnly:    readOnly,
	}

	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if cerr := m.Cleanup(); cerr != nil && err == nil {
		err = cerr
	}
	if err == nil {
		err = m.statusBar.Err()
	}
	return err
}

func (m *connectModel) Init() tea.Cmd {
	return m.OpenCmd()
}

func (m *connectModel) note(format string, args ...any) {
	m.terminal.AddMessage(components.DataReceivedMsg{
		Timestamp: time.Now(),
		Data:      []byte(fmt.Sprintf(format, args...)),
		Direction: components.DirectionNote,
	})
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Input area (3 lines with border) plus the single line status bar
		verticalMargin := 4
		if m.readOnly {
			verticalMargin = 1
		}
		m.terminal.SetSize(msg.Width, msg.Height-verticalMargin)
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.SetReady(true)
		cmds = append(cmds, m.terminal.Update(msg))

	case models.ConnectionStatusMsg:
		if msg.Error != nil {
			m.statusBar.SetDisconnected(msg.Error)
			m.note("Open failed: %v", msg.Error)
			return m, nil
		}
		if !m.Claim() {
			return m, nil
		}
		m.statusBar.SetConnected()
		if line, err := m.Line(); err == nil {
			m.statusBar.SetLine(line)
		}
		return m, m.PollCmd()

	case models.PollMsg:
		if !m.IsConnected() {
			return m, nil
		}
		data, err := m.Drain()
		if len(data) > 0 {
			m.terminal.AddMessage(components.DataReceivedMsg{
				Timestamp: time.Time(msg),
				Data:      data,
				Direction: components.DirectionRX,
			})
		}
		if err != nil {
			m.statusBar.SetDisconnected(err)
			m.note("Read failed: %v", err)
			m.Cleanup()
			return m, nil
		}
		return m, m.PollCmd()

	case tea.KeyMsg:
		if m.IsInInsertMode() {
			switch {
			case key.Matches(msg, m.keys.Escape):
				m.SetInputMode(models.InputModeNormal)
				m.input.Blur()
				return m, nil
			case key.Matches(msg, m.keys.Enter):
				m.send()
				return m, nil
			case key.Matches(msg, m.keys.HistoryUp):
				m.input.NavigateHistoryUp()
				return m, nil
			case key.Matches(msg, m.keys.HistoryDown):
				m.input.NavigateHistoryDown()
				return m, nil
			case key.Matches(msg, m.keys.ToggleSendMode):
				m.input.ToggleSendingMode()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.InsertMode):
			if !m.readOnly {
				m.SetInputMode(models.InputModeInsert)
				m.input.Focus()
			}
		case key.Matches(msg, m.keys.Clear):
			m.terminal.Clear()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.ToggleHex):
			m.terminal.ToggleHex()
		case key.Matches(msg, m.keys.ToggleASCII):
			m.terminal.ToggleASCII()
		case key.Matches(msg, m.keys.Up):
			m.terminal.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.terminal.ScrollDown()
		case key.Matches(msg, m.keys.GotoTop):
			m.terminal.GotoTop()
		case key.Matches(msg, m.keys.GotoBottom):
			m.terminal.GotoBottom()
		}
	}

	return m, tea.Batch(cmds...)
}

// send writes the input line to the port
func (m *connectModel) send() {
	value := m.input.Value()
	if value == "" {
		return
	}

	payload, err := m.input.Payload()
	if err != nil {
		m.note("Invalid hex input: %v", err)
		return
	}

	m.terminal.AddMessage(m.Send(payload))
	m.input.AddToHistory(value)
	m.input.SetValue("")
}

func (m *connectModel) View() string {
	content := "Initializing..."
	if m.IsReady() {
		content = m.terminal.View()
	}

	parts := []string{styles.ContentBorderStyle.Render(content)}
	if !m.readOnly {
		parts = append(parts, m.input.ViewWithMode(m.IsInInsertMode()))
	}
	if m.help.ShowAll {
		parts = append(parts, m.help.View(m.keys))
	}
	parts = append(parts, m.statusBar.View(
		m.GetInputMode().String(),
		m.input.GetSendingMode().String(),
		time.Now().Format("15:04:05"),
	))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
