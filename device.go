package serialport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// device is the platform boundary consumed by Port: a descriptor for an open
// character device plus the termios and input queue primitives.
type device interface {
	LineConfig() (LineConfig, error)
	SetLineConfig(cfg LineConfig) error
	InputPending() (int, error)
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	Close() error
}

// openDevice is a variable so tests can substitute an in-memory device
var openDevice = openTTY

// ttyDevice talks to a tty through golang.org/x/sys/unix
type ttyDevice struct {
	fd   int
	name string
}

// openTTY opens the device without blocking on carrier detect and without
// making it the controlling terminal, then routes SIGIO/SIGURG for the
// descriptor to this process.
func openTTY(name string) (device, error) {
	fd, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETOWN, unix.Getpid()); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set owner of %s: %w", name, err)
	}

	return &ttyDevice{fd: fd, name: name}, nil
}

func (d *ttyDevice) LineConfig() (LineConfig, error) {
	t, err := unix.IoctlGetTermios(d.fd, unix.TCGETS)
	if err != nil {
		return LineConfig{}, fmt.Errorf("get termios: %w", err)
	}
	return NewLineConfig(*t), nil
}

func (d *ttyDevice) SetLineConfig(cfg LineConfig) error {
	t := cfg.Termios()
	if err := unix.IoctlSetTermios(d.fd, unix.TCSETS, &t); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

// InputPending returns the number of bytes waiting in the input queue
func (d *ttyDevice) InputPending() (int, error) {
	n, err := unix.IoctlGetInt(d.fd, unix.TIOCINQ)
	if err != nil {
		return 0, fmt.Errorf("query input queue: %w", err)
	}
	return n, nil
}

func (d *ttyDevice) Read(buf []byte) (int, error) {
	return unix.Read(d.fd, buf)
}

func (d *ttyDevice) Write(data []byte) (int, error) {
	return unix.Write(d.fd, data)
}

func (d *ttyDevice) Close() error {
	return unix.Close(d.fd)
}
