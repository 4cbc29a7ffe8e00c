// Package serialport provides a configuration and byte-transfer handle for a
// serial line exposed by Linux as a character device.
//
// A Port owns one device. Opening it puts the line into raw mode with
// non-canonical reads that return immediately, and remembers the settings
// the device had before; closing it puts those settings back.
//
// # Basic Usage
//
// Open a port at 9600 8N1 without flow control:
//
//	port, err := serialport.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	if err := port.WriteByte('A'); err != nil {
//	    log.Fatal(err)
//	}
//	b, err := port.ReadByte() // waits until a byte arrives
//
// # Configuration Options
//
// Line parameters are functional options, applied in the order baud rate,
// character size, parity, stop bits, flow control:
//
//	port, err := serialport.Open("/dev/ttyUSB0",
//	    serialport.WithBaudRate(serialport.Baud115200),
//	    serialport.WithCharSize(serialport.CharSize7),
//	    serialport.WithParity(serialport.ParityEven),
//	    serialport.WithStopBits(serialport.StopBits2),
//	    serialport.WithFlowControl(serialport.FlowControlHardware),
//	)
//
// Parameters can also be changed while the port is open. Each setter reads
// the current termios record from the device, changes only its own bits and
// writes the record back:
//
//	err = port.SetParity(serialport.ParityOdd)
//	parity, err := port.Parity()
//
// # Explicit Lifecycle
//
// New returns a closed Port that can be opened, closed and reopened:
//
//	port := serialport.New("/dev/ttyS0")
//	if err := port.Open(serialport.WithBaudRate(serialport.Baud19200)); err != nil {
//	    // errors.Is(err, serialport.ErrOpenFailed) when the device is missing
//	}
//
// Unlike the package-level Open, (*Port).Open leaves the port open when the
// device rejects one of the line parameters.
//
// # Waiting for Data
//
// IsDataAvailable reports whether the input queue holds at least one byte.
// ReadByte polls it until it does; WithPollInterval adds a pause between
// polls and ReadByteContext allows the wait to be cancelled:
//
//	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//	defer cancel()
//	b, err := port.ReadByteContext(ctx)
//
// # Error Handling
//
// Use errors.Is() with the sentinel errors:
//
//	ErrAlreadyOpen         // Open on an open port
//	ErrNotOpen             // any other call on a closed port
//	ErrOpenFailed          // device could not be acquired or put in raw mode
//	ErrUnsupportedBaudRate // rate not in the supported set or refused by the driver
//	ErrInvalidArgument     // unknown enum value or refused bit combination
//	ErrDevice              // any other failing system call
//
// A Port is not safe for concurrent use.
package serialport
