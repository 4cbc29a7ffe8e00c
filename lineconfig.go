package serialport

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// LineConfig is a snapshot of a device's termios record.
//
// It is a value type: every With method returns a modified copy and changes
// only the bits owned by that parameter, so unrelated settings survive any
// read-modify-write cycle.
type LineConfig struct {
	t unix.Termios
}

// NewLineConfig wraps a termios record
func NewLineConfig(t unix.Termios) LineConfig {
	return LineConfig{t: t}
}

// Termios returns a copy of the underlying termios record
func (c LineConfig) Termios() unix.Termios {
	return c.t
}

// BaudRate returns the input speed. Linux stores a separate input speed in
// CIBAUD; when that field is zero the input speed equals the output speed.
// A record at B0 returns ErrLineHungUp and any speed code outside the
// supported set returns ErrUnsupportedBaudRate.
func (c LineConfig) BaudRate() (BaudRate, error) {
	if in := (c.t.Cflag & unix.CIBAUD) >> unix.IBSHIFT; in != 0 {
		return baudRateFromSpeed(in)
	}
	return c.OutputBaudRate()
}

// OutputBaudRate returns the output speed
func (c LineConfig) OutputBaudRate() (BaudRate, error) {
	return baudRateFromSpeed(c.t.Cflag & unix.CBAUD)
}

// WithBaudRate sets both the input and the output speed
func (c LineConfig) WithBaudRate(rate BaudRate) (LineConfig, error) {
	speed, err := rate.speed()
	if err != nil {
		return c, err
	}
	c.t.Cflag &^= unix.CBAUD | unix.CIBAUD
	c.t.Cflag |= speed
	c.t.Ispeed = speed
	c.t.Ospeed = speed
	return c, nil
}

// CharSize returns the number of data bits
func (c LineConfig) CharSize() CharacterSize {
	switch c.t.Cflag & unix.CSIZE {
	case unix.CS5:
		return CharSize5
	case unix.CS6:
		return CharSize6
	case unix.CS7:
		return CharSize7
	default:
		return CharSize8
	}
}

// WithCharSize sets the number of data bits
func (c LineConfig) WithCharSize(size CharacterSize) (LineConfig, error) {
	var bits uint32
	switch size {
	case CharSize5:
		bits = unix.CS5
	case CharSize6:
		bits = unix.CS6
	case CharSize7:
		bits = unix.CS7
	case CharSize8:
		bits = unix.CS8
	default:
		return c, fmt.Errorf("%w: character size %d", ErrInvalidArgument, int(size))
	}
	c.t.Cflag &^= unix.CSIZE
	c.t.Cflag |= bits
	return c, nil
}

// Parity decodes PARENB and PARODD
func (c LineConfig) Parity() Parity {
	if c.t.Cflag&unix.PARENB == 0 {
		return ParityNone
	}
	if c.t.Cflag&unix.PARODD != 0 {
		return ParityOdd
	}
	return ParityEven
}

// WithParity sets the parity mode
func (c LineConfig) WithParity(p Parity) (LineConfig, error) {
	switch p {
	case ParityNone:
		c.t.Cflag &^= unix.PARENB | unix.PARODD
	case ParityOdd:
		c.t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		c.t.Cflag |= unix.PARENB
		c.t.Cflag &^= unix.PARODD
	default:
		return c, fmt.Errorf("%w: parity %d", ErrInvalidArgument, int(p))
	}
	return c, nil
}

// StopBits decodes CSTOPB
func (c LineConfig) StopBits() StopBits {
	if c.t.Cflag&unix.CSTOPB != 0 {
		return StopBits2
	}
	return StopBits1
}

// WithStopBits sets the number of stop bits
func (c LineConfig) WithStopBits(s StopBits) (LineConfig, error) {
	switch s {
	case StopBits1:
		c.t.Cflag &^= unix.CSTOPB
	case StopBits2:
		c.t.Cflag |= unix.CSTOPB
	default:
		return c, fmt.Errorf("%w: stop bits %d", ErrInvalidArgument, int(s))
	}
	return c, nil
}

// FlowControl decodes CRTSCTS
func (c LineConfig) FlowControl() FlowControl {
	if c.t.Cflag&unix.CRTSCTS != 0 {
		return FlowControlHardware
	}
	return FlowControlNone
}

// WithFlowControl sets the flow control mode
func (c LineConfig) WithFlowControl(f FlowControl) (LineConfig, error) {
	switch f {
	case FlowControlNone:
		c.t.Cflag &^= unix.CRTSCTS
	case FlowControlHardware:
		c.t.Cflag |= unix.CRTSCTS
	default:
		return c, fmt.Errorf("%w: flow control %d", ErrInvalidArgument, int(f))
	}
	return c, nil
}

// Raw clears all local and output processing, enables the receiver, ignores
// modem control lines and makes non-canonical reads return immediately with
// whatever bytes are available (VMIN=0, VTIME=0).
func (c LineConfig) Raw() LineConfig {
	c.t.Lflag = 0
	c.t.Oflag = 0
	c.t.Cflag |= unix.CREAD | unix.CLOCAL
	c.t.Cc[unix.VMIN] = 0
	c.t.Cc[unix.VTIME] = 0
	return c
}

// String renders the parameters as e.g. "9600 8N1 flow=none"
func (c LineConfig) String() string {
	baud := "?"
	rate, err := c.BaudRate()
	switch {
	case err == nil:
		baud = rate.String()
	case errors.Is(err, ErrLineHungUp):
		baud = "B0"
	}
	return fmt.Sprintf("%s %d%s%d flow=%s",
		baud, int(c.CharSize()), c.Parity().letter(), int(c.StopBits()), c.FlowControl())
}
