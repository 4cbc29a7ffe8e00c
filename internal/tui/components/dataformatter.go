package components

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/allbin/go-serialport/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

// Direction tells which way a block of bytes travelled
type Direction int

const (
	DirectionRX Direction = iota
	DirectionTX
	DirectionNote
)

// DataReceivedMsg is one line in the terminal: bytes read from or written
// to the port, or a note from the program itself.
type DataReceivedMsg struct {
	Timestamp time.Time
	Data      []byte
	Direction Direction
	Err       error // TX only: the write failed part way
}

type DisplayMode struct {
	ShowHex   bool
	ShowASCII bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowHex:   showHex,
			ShowASCII: showASCII,
		},
	}
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

func (df *DataFormatter) FormatMessage(msg DataReceivedMsg) string {
	timestamp := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Render("[" + msg.Timestamp.Format("15:04:05.000") + "]")

	var indicator string
	switch msg.Direction {
	case DirectionTX:
		color, text := colors.Green, "↗ TX ✓"
		if msg.Err != nil {
			color, text = colors.Red, "↗ TX ✗"
		}
		indicator = lipgloss.NewStyle().Foreground(color).Bold(true).Render(text)
	case DirectionNote:
		note := lipgloss.NewStyle().Foreground(colors.Peach).Render(string(msg.Data))
		return fmt.Sprintf("%s %s", timestamp, note)
	default:
		indicator = lipgloss.NewStyle().Foreground(colors.Sky).Bold(true).Render("↙ RX")
	}

	var parts []string
	if df.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", msg.Data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+Printable(msg.Data))
	}
	if !df.mode.ShowHex && !df.mode.ShowASCII {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
	}
	if msg.Err != nil {
		parts = append(parts, "ERROR: "+msg.Err.Error())
	}

	return fmt.Sprintf("%s %s: %s", timestamp, indicator, strings.Join(parts, "  "))
}

func (df *DataFormatter) FormatMessages(messages []DataReceivedMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}

// Printable replaces every byte outside printable ASCII with a dot
func Printable(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// ParseHex converts hex strings to bytes. Supports both:
// - Space-separated: "48 65 6C 6C 6F"
// - Continuous: "48656C6C6F", optionally with 0x prefixes
func ParseHex(hexStr string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", "0x", "", "0X", "").Replace(strings.TrimSpace(hexStr))
	if clean == "" {
		return nil, fmt.Errorf("empty input")
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even number of digits (got %d)", len(clean))
	}

	out := make([]byte, 0, len(clean)/2)
	for i := 0; i < len(clean); i += 2 {
		b, err := strconv.ParseUint(clean[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte '%s'", clean[i:i+2])
		}
		out = append(out, byte(b))
	}
	return out, nil
}
