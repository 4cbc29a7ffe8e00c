package serialport

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// BaudRate is a line speed in bits per second
type BaudRate int

// Standard line speeds accepted by the Linux tty layer
const (
	Baud50      BaudRate = 50
	Baud75      BaudRate = 75
	Baud110     BaudRate = 110
	Baud134     BaudRate = 134
	Baud150     BaudRate = 150
	Baud200     BaudRate = 200
	Baud300     BaudRate = 300
	Baud600     BaudRate = 600
	Baud1200    BaudRate = 1200
	Baud1800    BaudRate = 1800
	Baud2400    BaudRate = 2400
	Baud4800    BaudRate = 4800
	Baud9600    BaudRate = 9600
	Baud19200   BaudRate = 19200
	Baud38400   BaudRate = 38400
	Baud57600   BaudRate = 57600
	Baud115200  BaudRate = 115200
	Baud230400  BaudRate = 230400
	Baud460800  BaudRate = 460800
	Baud500000  BaudRate = 500000
	Baud576000  BaudRate = 576000
	Baud921600  BaudRate = 921600
	Baud1000000 BaudRate = 1000000
	Baud1152000 BaudRate = 1152000
	Baud1500000 BaudRate = 1500000
	Baud2000000 BaudRate = 2000000
	Baud2500000 BaudRate = 2500000
	Baud3000000 BaudRate = 3000000
	Baud3500000 BaudRate = 3500000
	Baud4000000 BaudRate = 4000000
)

// baudRates maps each supported rate to its termios speed code, in ascending order
var baudRates = []struct {
	rate  BaudRate
	speed uint32
}{
	{Baud50, unix.B50},
	{Baud75, unix.B75},
	{Baud110, unix.B110},
	{Baud134, unix.B134},
	{Baud150, unix.B150},
	{Baud200, unix.B200},
	{Baud300, unix.B300},
	{Baud600, unix.B600},
	{Baud1200, unix.B1200},
	{Baud1800, unix.B1800},
	{Baud2400, unix.B2400},
	{Baud4800, unix.B4800},
	{Baud9600, unix.B9600},
	{Baud19200, unix.B19200},
	{Baud38400, unix.B38400},
	{Baud57600, unix.B57600},
	{Baud115200, unix.B115200},
	{Baud230400, unix.B230400},
	{Baud460800, unix.B460800},
	{Baud500000, unix.B500000},
	{Baud576000, unix.B576000},
	{Baud921600, unix.B921600},
	{Baud1000000, unix.B1000000},
	{Baud1152000, unix.B1152000},
	{Baud1500000, unix.B1500000},
	{Baud2000000, unix.B2000000},
	{Baud2500000, unix.B2500000},
	{Baud3000000, unix.B3000000},
	{Baud3500000, unix.B3500000},
	{Baud4000000, unix.B4000000},
}

// BaudRates returns every supported rate in ascending order
func BaudRates() []BaudRate {
	rates := make([]BaudRate, len(baudRates))
	for i, b := range baudRates {
		rates[i] = b.rate
	}
	return rates
}

// speed converts the rate to its termios speed code
func (b BaudRate) speed() (uint32, error) {
	for _, entry := range baudRates {
		if entry.rate == b {
			return entry.speed, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedBaudRate, int(b))
}

// baudRateFromSpeed converts a termios speed code back to a rate. B0 means
// the line is hung up and has no rate.
func baudRateFromSpeed(speed uint32) (BaudRate, error) {
	if speed == unix.B0 {
		return 0, ErrLineHungUp
	}
	for _, entry := range baudRates {
		if entry.speed == speed {
			return entry.rate, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown speed code %#o", ErrUnsupportedBaudRate, speed)
}

// Valid reports whether the rate is in the supported set
func (b BaudRate) Valid() bool {
	_, err := b.speed()
	return err == nil
}

func (b BaudRate) String() string {
	return strconv.Itoa(int(b))
}

// ParseBaudRate parses a decimal rate such as "115200"
func ParseBaudRate(s string) (BaudRate, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedBaudRate, s)
	}
	b := BaudRate(n)
	if !b.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBaudRate, n)
	}
	return b, nil
}

// CharacterSize is the number of data bits per character
type CharacterSize int

const (
	CharSize5 CharacterSize = 5
	CharSize6 CharacterSize = 6
	CharSize7 CharacterSize = 7
	CharSize8 CharacterSize = 8
)

// Valid reports whether the size is one of 5, 6, 7 or 8
func (c CharacterSize) Valid() bool {
	return c >= CharSize5 && c <= CharSize8
}

func (c CharacterSize) String() string {
	return strconv.Itoa(int(c))
}

// ParseCharSize parses "5" through "8"
func ParseCharSize(s string) (CharacterSize, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !CharacterSize(n).Valid() {
		return 0, fmt.Errorf("%w: character size %q", ErrInvalidArgument, s)
	}
	return CharacterSize(n), nil
}

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// Valid reports whether p is a known parity mode
func (p Parity) Valid() bool {
	return p >= ParityNone && p <= ParityEven
}

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return fmt.Sprintf("Parity(%d)", int(p))
	}
}

// letter returns the single-letter form used in "8N1" notation
func (p Parity) letter() string {
	switch p {
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	default:
		return "N"
	}
}

// ParseParity accepts "none", "odd", "even" or their first letters
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "n":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	default:
		return 0, fmt.Errorf("%w: parity %q", ErrInvalidArgument, s)
	}
}

// StopBits is the number of stop bits per character
type StopBits int

const (
	StopBits1 StopBits = 1
	StopBits2 StopBits = 2
)

// Valid reports whether s is one or two stop bits
func (s StopBits) Valid() bool {
	return s == StopBits1 || s == StopBits2
}

func (s StopBits) String() string {
	return strconv.Itoa(int(s))
}

// ParseStopBits parses "1" or "2"
func ParseStopBits(s string) (StopBits, error) {
	switch strings.TrimSpace(s) {
	case "1":
		return StopBits1, nil
	case "2":
		return StopBits2, nil
	default:
		return 0, fmt.Errorf("%w: stop bits %q", ErrInvalidArgument, s)
	}
}

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlHardware
)

// Valid reports whether f is a known flow control mode
func (f FlowControl) Valid() bool {
	return f == FlowControlNone || f == FlowControlHardware
}

func (f FlowControl) String() string {
	switch f {
	case FlowControlNone:
		return "none"
	case FlowControlHardware:
		return "hardware"
	default:
		return fmt.Sprintf("FlowControl(%d)", int(f))
	}
}

// ParseFlowControl accepts "none", "hardware" or "rtscts"
func ParseFlowControl(s string) (FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return FlowControlNone, nil
	case "hardware", "hw", "rtscts":
		return FlowControlHardware, nil
	default:
		return 0, fmt.Errorf("%w: flow control %q", ErrInvalidArgument, s)
	}
}
