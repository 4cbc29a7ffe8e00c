package serialport

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	ErrAlreadyOpen         = errors.New("serial port already open")
	ErrNotOpen             = errors.New("serial port not open")
	ErrOpenFailed          = errors.New("failed to open serial port")
	ErrUnsupportedBaudRate = errors.New("unsupported baud rate")
	ErrInvalidArgument     = errors.New("invalid argument")

	// ErrDevice wraps any other failing call on an open device: attribute
	// reads, input queue queries and byte transfers.
	ErrDevice = errors.New("serial device error")

	// ErrLineHungUp is returned when decoding the baud rate of a device left
	// at speed code B0. It matches ErrUnsupportedBaudRate as well.
	ErrLineHungUp = fmt.Errorf("%w: speed code B0 (line hung up)", ErrUnsupportedBaudRate)

	// Discovery errors
	ErrDeviceNotFound = errors.New("serial device not found")
)
