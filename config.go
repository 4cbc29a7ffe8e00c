package serialport

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the line parameters applied when a port is opened, plus the
// behaviour knobs of the port itself.
type Config struct {
	BaudRate    BaudRate
	CharSize    CharacterSize
	Parity      Parity
	StopBits    StopBits
	FlowControl FlowControl

	// PollInterval is the pause between availability checks in ReadByte.
	// Zero polls back to back.
	PollInterval time.Duration

	Logger zerolog.Logger
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns 9600 8N1 without flow control
func DefaultConfig() Config {
	return Config{
		BaudRate:     Baud9600,
		CharSize:     CharSize8,
		Parity:       ParityNone,
		StopBits:     StopBits1,
		FlowControl:  FlowControlNone,
		PollInterval: 0,
		Logger:       zerolog.Nop(),
	}
}

// apply returns c with every option applied in order
func (c Config) apply(opts []Option) (Config, error) {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&c); err != nil {
			return c, err
		}
	}
	return c, nil
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate BaudRate) Option {
	return func(c *Config) error {
		if !rate.Valid() {
			return fmt.Errorf("%w: %d", ErrUnsupportedBaudRate, int(rate))
		}
		c.BaudRate = rate
		return nil
	}
}

// WithCharSize sets the number of data bits (5, 6, 7, or 8)
func WithCharSize(size CharacterSize) Option {
	return func(c *Config) error {
		if !size.Valid() {
			return fmt.Errorf("%w: character size %d", ErrInvalidArgument, int(size))
		}
		c.CharSize = size
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if !parity.Valid() {
			return fmt.Errorf("%w: parity %d", ErrInvalidArgument, int(parity))
		}
		c.Parity = parity
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits StopBits) Option {
	return func(c *Config) error {
		if !bits.Valid() {
			return fmt.Errorf("%w: stop bits %d", ErrInvalidArgument, int(bits))
		}
		c.StopBits = bits
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		if !fc.Valid() {
			return fmt.Errorf("%w: flow control %d", ErrInvalidArgument, int(fc))
		}
		c.FlowControl = fc
		return nil
	}
}

// WithPollInterval sets the pause between availability checks in ReadByte
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return fmt.Errorf("%w: negative poll interval %v", ErrInvalidArgument, d)
		}
		c.PollInterval = d
		return nil
	}
}

// WithLogger sets the logger used for open, close and parameter changes
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// String renders the line parameters as e.g. "9600 8N1 flow=none"
func (c Config) String() string {
	return fmt.Sprintf("%d %d%s%d flow=%s",
		int(c.BaudRate), int(c.CharSize), c.Parity.letter(), int(c.StopBits), c.FlowControl)
}
