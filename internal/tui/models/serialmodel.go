package models

import (
	"errors"
	"sync"
	"time"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/components"
	tea "github.com/charmbracelet/bubbletea"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	if m == InputModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

// ConnectionStatusMsg reports the outcome of opening the port. On success
// the port is waiting in the model's handoff; Claim takes it.
type ConnectionStatusMsg struct {
	Error error
}

// ErrAbandoned is reported by an open that finished after Cleanup
var ErrAbandoned = errors.New("port opened after the session ended")

// handoff passes the port from the open command's goroutine to the model.
// Whichever side comes second owns the port: Claim takes it, Cleanup closes
// it, and an open that finishes after Cleanup closes it itself.
type handoff struct {
	mu        sync.Mutex
	port      *serialport.Port
	abandoned bool
}

// put stores port, or reports false when the session already ended
func (h *handoff) put(port *serialport.Port) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.abandoned {
		return false
	}
	h.port = port
	return true
}

func (h *handoff) take() *serialport.Port {
	h.mu.Lock()
	defer h.mu.Unlock()
	port := h.port
	h.port = nil
	return port
}

// abandon ends the session and returns any port not yet claimed
func (h *handoff) abandon() *serialport.Port {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.abandoned = true
	port := h.port
	h.port = nil
	return port
}

// PollMsg asks the model to drain the input queue
type PollMsg time.Time

// maxDrain bounds the bytes read per poll so the UI stays responsive
const maxDrain = 4096

// SerialModel owns the port for the lifetime of a TUI program. Every call on
// the port happens from the bubbletea Update goroutine.
type SerialModel struct {
	port         *serialport.Port
	portPath     string
	opts         []serialport.Option
	pollInterval time.Duration
	pending      handoff

	ready     bool
	inputMode InputMode
}

func NewSerialModel(portPath string, pollInterval time.Duration, opts ...serialport.Option) *SerialModel {
	return &SerialModel{
		portPath:     portPath,
		opts:         opts,
		pollInterval: pollInterval,
		inputMode:    InputModeNormal,
	}
}

// OpenCmd opens the port off the UI goroutine. The port is parked in the
// handoff and the ConnectionStatusMsg tells the model to Claim it. A port
// that cannot be handed over because Cleanup already ran is closed here.
func (m *SerialModel) OpenCmd() tea.Cmd {
	portPath, opts, pending := m.portPath, m.opts, &m.pending
	return func() tea.Msg {
		port, err := serialport.Open(portPath, opts...)
		if err != nil {
			return ConnectionStatusMsg{Error: err}
		}
		if !pending.put(port) {
			port.Close()
			return ConnectionStatusMsg{Error: ErrAbandoned}
		}
		return ConnectionStatusMsg{}
	}
}

// Claim takes ownership of the port parked by OpenCmd
func (m *SerialModel) Claim() bool {
	port := m.pending.take()
	if port == nil {
		return false
	}
	m.port = port
	return true
}

// PollCmd schedules the next input queue check
func (m *SerialModel) PollCmd() tea.Cmd {
	return tea.Tick(m.pollInterval, func(t time.Time) tea.Msg {
		return PollMsg(t)
	})
}

func (m *SerialModel) IsConnected() bool {
	return m.port != nil && m.port.IsOpen()
}

// Line reads the current line parameters back from the port
func (m *SerialModel) Line() (serialport.LineConfig, error) {
	if m.port == nil {
		return serialport.LineConfig{}, serialport.ErrNotOpen
	}
	return m.port.LineConfig()
}

// Drain reads every byte already waiting in the input queue, up to maxDrain.
// It never waits for more data to arrive.
func (m *SerialModel) Drain() ([]byte, error) {
	if m.port == nil {
		return nil, serialport.ErrNotOpen
	}

	var data []byte
	for len(data) < maxDrain {
		ok, err := m.port.IsDataAvailable()
		if err != nil {
			return data, err
		}
		if !ok {
			break
		}
		b, err := m.port.ReadByte()
		if err != nil {
			return data, err
		}
		data = append(data, b)
	}
	return data, nil
}

// Send writes data one byte at a time and returns the message to display.
// A failed write is reported in the message with the bytes that made it out.
func (m *SerialModel) Send(data []byte) components.DataReceivedMsg {
	msg := components.DataReceivedMsg{
		Timestamp: time.Now(),
		Direction: components.DirectionTX,
	}
	if m.port == nil {
		msg.Err = serialport.ErrNotOpen
		return msg
	}

	for i, b := range data {
		if err := m.port.WriteByte(b); err != nil {
			msg.Data = data[:i]
			msg.Err = err
			return msg
		}
	}
	msg.Data = data
	return msg
}

func (m *SerialModel) IsReady() bool {
	return m.ready
}

func (m *SerialModel) SetReady(ready bool) {
	m.ready = ready
}

func (m *SerialModel) GetInputMode() InputMode {
	return m.inputMode
}

func (m *SerialModel) SetInputMode(mode InputMode) {
	m.inputMode = mode
}

func (m *SerialModel) IsInInsertMode() bool {
	return m.inputMode == InputModeInsert
}

// Cleanup closes the port, restoring its original settings. It also closes a
// port that was opened but never claimed, and makes any open still in
// flight close its port when it finishes.
func (m *SerialModel) Cleanup() error {
	var errs []error
	if port := m.pending.abandon(); port != nil {
		errs = append(errs, port.Close())
	}
	if m.port != nil {
		if err := m.port.Close(); !errors.Is(err, serialport.ErrNotOpen) {
			errs = append(errs, err)
		}
		m.port = nil
	}
	return errors.Join(errs...)
}
