package components

import (
	"fmt"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/allbin/go-serialport/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

type StatusBar struct {
	portPath string
	state    styles.ConnectionState
	err      error
	width    int
	line     *serialport.LineConfig
}

func NewStatusBar(portPath string) *StatusBar {
	return &StatusBar{
		portPath: portPath,
		state:    styles.StateConnecting,
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

// SetLine records the line parameters read back from the open port
func (sb *StatusBar) SetLine(line serialport.LineConfig) {
	sb.line = &line
}

func (sb *StatusBar) SetConnected() {
	sb.state = styles.StateConnected
	sb.err = nil
}

func (sb *StatusBar) SetDisconnected(err error) {
	sb.err = err
	if err != nil {
		sb.state = styles.StateError
	} else {
		sb.state = styles.StateDisconnected
	}
}

func (sb *StatusBar) Err() error {
	return sb.err
}

// View renders the status bar: mode, port, connection state and sending
// mode on the left; line parameters and clock on the right.
func (sb *StatusBar) View(inputMode, sendingMode, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeBackground := colors.Blue
	if inputMode == "INSERT" {
		modeBackground = colors.Green
	}
	mode := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(modeBackground).
		Bold(true).
		Padding(0, 1).
		Render(inputMode)

	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.portPath)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	left := []string{mode, port, styles.Indicator(sb.state)}
	if inputMode == "INSERT" {
		left = append(left, lipgloss.NewStyle().
			Foreground(colors.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendingMode)))
	}
	left = append(left, divider)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)

	lineInfo := "⚡ serial"
	switch {
	case sb.err != nil:
		lineInfo = "✗ " + sb.err.Error()
	case sb.line != nil:
		lineInfo = "⚡ " + sb.line.String()
	}
	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(lineInfo)
	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := max(terminalWidth-lipgloss.Width(leftSide)-lipgloss.Width(rightSide), 1)
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
