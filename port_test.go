package serialport

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// fakeDevice is an in-memory tty. Unlike the Linux pty driver it keeps
// every bit it is given, so character size and parity round-trip.
type fakeDevice struct {
	tio     unix.Termios
	input   []byte
	written []byte
	closed  bool
	sets    int

	// rejectCflag makes SetLineConfig fail when the record has any of these bits
	rejectCflag uint32
	failGet     bool
	failSet     bool
	failPending bool
	failRead    bool
	zeroRead    bool
	failWrite   bool
	shortWrite  bool
	failClose   bool
}

func (d *fakeDevice) LineConfig() (LineConfig, error) {
	if d.failGet {
		return LineConfig{}, unix.EIO
	}
	return NewLineConfig(d.tio), nil
}

func (d *fakeDevice) SetLineConfig(cfg LineConfig) error {
	t := cfg.Termios()
	if d.failSet || t.Cflag&d.rejectCflag != 0 {
		return unix.EINVAL
	}
	d.tio = t
	d.sets++
	return nil
}

func (d *fakeDevice) InputPending() (int, error) {
	if d.failPending {
		return 0, unix.EIO
	}
	return len(d.input), nil
}

func (d *fakeDevice) Read(buf []byte) (int, error) {
	if d.failRead {
		return 0, unix.EIO
	}
	if d.zeroRead {
		return 0, nil
	}
	n := copy(buf, d.input)
	d.input = d.input[n:]
	return n, nil
}

func (d *fakeDevice) Write(data []byte) (int, error) {
	if d.failWrite {
		return 0, unix.EIO
	}
	if d.shortWrite {
		return 0, nil
	}
	d.written = append(d.written, data...)
	return len(data), nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	if d.failClose {
		return unix.EBADF
	}
	return nil
}

// initialTermios is what the fake device reports before the first open:
// a cooked 38400 7E1 terminal.
func initialTermios() unix.Termios {
	t := unix.Termios{
		Iflag:  unix.ICRNL,
		Oflag:  unix.OPOST,
		Cflag:  unix.B38400 | unix.CS7 | unix.PARENB | unix.CREAD,
		Lflag:  unix.ICANON | unix.ECHO,
		Ispeed: unix.B38400,
		Ospeed: unix.B38400,
	}
	t.Cc[unix.VMIN] = 1
	return t
}

// useFakeDevice routes openDevice to dev for the duration of the test
func useFakeDevice(t *testing.T, dev *fakeDevice) {
	t.Helper()
	prev := openDevice
	openDevice = func(name string) (device, error) {
		if name != "/dev/ttyFAKE0" {
			return nil, unix.ENOENT
		}
		dev.closed = false
		return dev, nil
	}
	t.Cleanup(func() { openDevice = prev })
}

func newFake(t *testing.T) *fakeDevice {
	dev := &fakeDevice{tio: initialTermios()}
	useFakeDevice(t, dev)
	return dev
}

func TestNewPortIsClosed(t *testing.T) {
	newFake(t)
	port := New("/dev/ttyFAKE0")

	if port.IsOpen() {
		t.Error("new port reports open")
	}
	if port.Name() != "/dev/ttyFAKE0" {
		t.Errorf("Name = %q", port.Name())
	}
}

func TestClosedPortOperations(t *testing.T) {
	newFake(t)
	port := New("/dev/ttyFAKE0")

	checks := map[string]error{
		"Close":          port.Close(),
		"SetBaudRate":    port.SetBaudRate(Baud9600),
		"SetCharSize":    port.SetCharSize(CharSize8),
		"SetParity":      port.SetParity(ParityNone),
		"SetStopBits":    port.SetStopBits(StopBits1),
		"SetFlowControl": port.SetFlowControl(FlowControlNone),
		"WriteByte":      port.WriteByte('A'),
	}
	_, checks["BaudRate"] = port.BaudRate()
	_, checks["CharSize"] = port.CharSize()
	_, checks["Parity"] = port.Parity()
	_, checks["StopBits"] = port.StopBits()
	_, checks["FlowControl"] = port.FlowControl()
	_, checks["IsDataAvailable"] = port.IsDataAvailable()
	_, checks["ReadByte"] = port.ReadByte()
	_, checks["LineConfig"] = port.LineConfig()

	for op, err := range checks {
		if !errors.Is(err, ErrNotOpen) {
			t.Errorf("%s on closed port: error = %v, want ErrNotOpen", op, err)
		}
	}
}

func TestClosedPortRejectsInvalidArgumentAsNotOpen(t *testing.T) {
	newFake(t)
	port := New("/dev/ttyFAKE0")

	if err := port.SetParity(Parity(9)); !errors.Is(err, ErrNotOpen) {
		t.Errorf("SetParity(9) on closed port: error = %v, want ErrNotOpen", err)
	}
	if err := port.SetBaudRate(14400); !errors.Is(err, ErrNotOpen) {
		t.Errorf("SetBaudRate(14400) on closed port: error = %v, want ErrNotOpen", err)
	}
}

func TestOpenAppliesDefaults(t *testing.T) {
	dev := newFake(t)
	port := New("/dev/ttyFAKE0")

	if err := port.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	if !port.IsOpen() {
		t.Fatal("port not open after Open")
	}

	cfg, err := port.LineConfig()
	if err != nil {
		t.Fatalf("LineConfig failed: %v", err)
	}
	if got, want := cfg.String(), "9600 8N1 flow=none"; got != want {
		t.Errorf("line = %q, want %q", got, want)
	}

	// Raw mode
	if dev.tio.Lflag != 0 || dev.tio.Oflag != 0 {
		t.Errorf("Lflag/Oflag = %#o/%#o, want raw", dev.tio.Lflag, dev.tio.Oflag)
	}
	if dev.tio.Cflag&(unix.CREAD|unix.CLOCAL) != unix.CREAD|unix.CLOCAL {
		t.Errorf("Cflag = %#o, want CREAD|CLOCAL", dev.tio.Cflag)
	}
	if dev.tio.Cc[unix.VMIN] != 0 || dev.tio.Cc[unix.VTIME] != 0 {
		t.Error("VMIN/VTIME not zero after open")
	}
	// Untouched by raw mode or the line setters
	if dev.tio.Iflag != unix.ICRNL {
		t.Errorf("Iflag = %#o, want %#o", dev.tio.Iflag, unix.ICRNL)
	}
}

func TestOpenWithParameters(t *testing.T) {
	newFake(t)
	port := New("/dev/ttyFAKE0", WithBaudRate(Baud115200))

	err := port.Open(
		WithCharSize(CharSize7),
		WithParity(ParityEven),
		WithStopBits(StopBits2),
		WithFlowControl(FlowControlHardware),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	if rate, _ := port.BaudRate(); rate != Baud115200 {
		t.Errorf("BaudRate = %d, want 115200", rate)
	}
	if size, _ := port.CharSize(); size != CharSize7 {
		t.Errorf("CharSize = %d, want 7", size)
	}
	if parity, _ := port.Parity(); parity != ParityEven {
		t.Errorf("Parity = %v, want even", parity)
	}
	if bits, _ := port.StopBits(); bits != StopBits2 {
		t.Errorf("StopBits = %d, want 2", bits)
	}
	if fc, _ := port.FlowControl(); fc != FlowControlHardware {
		t.Errorf("FlowControl = %v, want hardware", fc)
	}
}

func TestOpenTwice(t *testing.T) {
	newFake(t)
	port := New("/dev/ttyFAKE0")
	if err := port.Open(WithBaudRate(Baud19200)); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	err := port.Open(WithBaudRate(Baud115200))
	if !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("second Open error = %v, want ErrAlreadyOpen", err)
	}
	if !port.IsOpen() {
		t.Error("port closed by second Open")
	}
	if rate, _ := port.BaudRate(); rate != Baud19200 {
		t.Errorf("BaudRate = %d after rejected Open, want 19200", rate)
	}
}

func TestOpenMissingDevice(t *testing.T) {
	newFake(t)
	port := New("/dev/ttyMISSING")

	err := port.Open()
	if !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("Open error = %v, want ErrOpenFailed", err)
	}
	if !errors.Is(err, unix.ENOENT) {
		t.Errorf("Open error = %v, want wrapped ENOENT", err)
	}
	if port.IsOpen() {
		t.Error("port open after failed Open")
	}
}

func TestOpenSnapshotFailure(t *testing.T) {
	dev := newFake(t)
	dev.failGet = true
	port := New("/dev/ttyFAKE0")

	if err := port.Open(); !errors.Is(err, ErrOpenFailed) {
		t.Fatalf("Open error = %v, want ErrOpenFailed", err)
	}
	if port.IsOpen() {
		t.Error("port open after failed snapshot")
	}
	if !dev.closed {
		t.Error("descriptor leaked after failed snapshot")
	}
	if dev.sets != 0 {
		t.Errorf("device modified %d times after failed snapshot", dev.sets)
	}
}

func TestOpenInvalidOptionTouchesNothing(t *testing.T) {
	dev := newFake(t)
	port := New("/dev/ttyFAKE0")

	if err := port.Open(WithParity(9)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Open error = %v, want ErrInvalidArgument", err)
	}
	if port.IsOpen() {
		t.Error("port open after invalid option")
	}
	if dev.sets != 0 {
		t.Error("device modified for an invalid option")
	}
}

func TestOpenPartialFailureStaysOpen(t *testing.T) {
	dev := newFake(t)
	dev.rejectCflag = unix.CRTSCTS
	port := New("/dev/ttyFAKE0")

	err := port.Open(WithBaudRate(Baud57600), WithFlowControl(FlowControlHardware))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Open error = %v, want ErrInvalidArgument", err)
	}
	if !port.IsOpen() {
		t.Fatal("port closed after a rejected parameter")
	}
	defer port.Close()

	// Earlier parameters stay applied
	if rate, _ := port.BaudRate(); rate != Baud57600 {
		t.Errorf("BaudRate = %d, want 57600", rate)
	}
	if fc, _ := port.FlowControl(); fc != FlowControlNone {
		t.Errorf("FlowControl = %v, want none", fc)
	}
}

func TestPackageOpenClosesOnFailure(t *testing.T) {
	dev := newFake(t)
	dev.rejectCflag = unix.CSTOPB

	port, err := Open("/dev/ttyFAKE0", WithStopBits(StopBits2))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Open error = %v, want ErrInvalidArgument", err)
	}
	if port != nil {
		t.Error("Open returned a port on failure")
	}
	if !dev.closed {
		t.Error("device not closed after failed Open")
	}
	if dev.tio != initialTermios() {
		t.Error("settings not restored after failed Open")
	}
}

func TestCloseRestoresSettings(t *testing.T) {
	dev := newFake(t)
	port := New("/dev/ttyFAKE0")

	for i := 0; i < 2; i++ {
		if err := port.Open(WithBaudRate(Baud115200), WithParity(ParityOdd)); err != nil {
			t.Fatalf("Open #%d failed: %v", i, err)
		}
		if err := port.Close(); err != nil {
			t.Fatalf("Close #%d failed: %v", i, err)
		}
		if port.IsOpen() {
			t.Fatalf("port open after Close #%d", i)
		}
		if !dev.closed {
			t.Errorf("descriptor not closed after Close #%d", i)
		}
		if dev.tio != initialTermios() {
			t.Errorf("settings after Close #%d = %v, want original", i, NewLineConfig(dev.tio))
		}
	}

	if err := port.Close(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("third Close error = %v, want ErrNotOpen", err)
	}
}

func TestSetInvalidParityKeepsCurrent(t *testing.T) {
	dev := newFake(t)
	port := New("/dev/ttyFAKE0")
	if err := port.Open(WithParity(ParityEven)); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	sets := dev.sets
	if err := port.SetParity(Parity(5)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("SetParity(5) error = %v, want ErrInvalidArgument", err)
	}
	if dev.sets != sets {
		t.Error("device written for an invalid parity")
	}
	if parity, _ := port.Parity(); parity != ParityEven {
		t.Errorf("Parity = %v, want even", parity)
	}
}

func TestSetUnsupportedBaudKeepsCurrent(t *testing.T) {
	newFake(t)
	port := New("/dev/ttyFAKE0")
	if err := port.Open(WithBaudRate(Baud38400)); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	if err := port.SetBaudRate(14400); !errors.Is(err, ErrUnsupportedBaudRate) {
		t.Fatalf("SetBaudRate(14400) error = %v, want ErrUnsupportedBaudRate", err)
	}
	if rate, _ := port.BaudRate(); rate != Baud38400 {
		t.Errorf("BaudRate = %d, want 38400", rate)
	}
}

func TestSetBaudRejectedByDevice(t *testing.T) {
	dev := newFake(t)
	port := New("/dev/ttyFAKE0")
	if err := port.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	dev.rejectCflag = unix.CBAUDEX
	if err := port.SetBaudRate(Baud921600); !errors.Is(err, ErrUnsupportedBaudRate) {
		t.Fatalf("SetBaudRate error = %v, want ErrUnsupportedBaudRate", err)
	}
	if rate, _ := port.BaudRate(); rate != Baud9600 {
		t.Errorf("BaudRate = %d, want 9600", rate)
	}
}

func TestSettersPreserveOtherParameters(t *testing.T) {
	newFake(t)
	port := New("/dev/ttyFAKE0")
	if err := port.Open(
		WithBaudRate(Baud4800),
		WithCharSize(CharSize6),
		WithParity(ParityOdd),
		WithStopBits(StopBits2),
		WithFlowControl(FlowControlHardware),
	); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	if err := port.SetCharSize(CharSize5); err != nil {
		t.Fatalf("SetCharSize failed: %v", err)
	}

	cfg, err := port.LineConfig()
	if err != nil {
		t.Fatalf("LineConfig failed: %v", err)
	}
	if got, want := cfg.String(), "4800 5O2 flow=hardware"; got != want {
		t.Errorf("line = %q, want %q", got, want)
	}
}

func TestByteTransfer(t *testing.T) {
	dev := newFake(t)
	port := New("/dev/ttyFAKE0")
	if err := port.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	if ok, err := port.IsDataAvailable(); err != nil || ok {
		t.Errorf("IsDataAvailable = %v, %v on empty input", ok, err)
	}

	dev.input = []byte{0x41, 0x00, 0xFF}
	if ok, err := port.IsDataAvailable(); err != nil || !ok {
		t.Errorf("IsDataAvailable = %v, %v with pending input", ok, err)
	}
	for _, want := range []byte{0x41, 0x00, 0xFF} {
		got, err := port.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte failed: %v", err)
		}
		if got != want {
			t.Errorf("ReadByte = %#x, want %#x", got, want)
		}
	}

	for _, b := range []byte("AT\r") {
		if err := port.WriteByte(b); err != nil {
			t.Fatalf("WriteByte failed: %v", err)
		}
	}
	if string(dev.written) != "AT\r" {
		t.Errorf("written = %q, want %q", dev.written, "AT\r")
	}
}

func TestIsDataAvailableDeviceError(t *testing.T) {
	dev := newFake(t)
	port := New("/dev/ttyFAKE0")
	if err := port.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	dev.failPending = true
	if _, err := port.IsDataAvailable(); !errors.Is(err, ErrDevice) {
		t.Errorf("IsDataAvailable error = %v, want ErrDevice", err)
	}
	if _, err := port.ReadByte(); !errors.Is(err, ErrDevice) {
		t.Errorf("ReadByte error = %v, want ErrDevice", err)
	}
}

func TestReadByteContextCancel(t *testing.T) {
	tests := []struct {
		name string
		poll time.Duration
	}{
		{"tight loop", 0},
		{"interval", time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newFake(t)
			port := New("/dev/ttyFAKE0", WithPollInterval(tt.poll))
			if err := port.Open(); err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer port.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			start := time.Now()
			_, err := port.ReadByteContext(ctx)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("ReadByteContext error = %v, want DeadlineExceeded", err)
			}
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Errorf("ReadByteContext returned after %v", elapsed)
			}
		})
	}
}

// openFake opens a port on a fresh fake device and closes it at test end
func openFake(t *testing.T) (*Port, *fakeDevice) {
	t.Helper()
	dev := newFake(t)
	port := New("/dev/ttyFAKE0")
	if err := port.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if port.IsOpen() {
			dev.failGet, dev.failSet, dev.failClose = false, false, false
			port.Close()
		}
	})
	return port, dev
}

func TestAttributeReadFailure(t *testing.T) {
	tests := []struct {
		name string
		call func(*Port) error
	}{
		{"SetBaudRate", func(p *Port) error { return p.SetBaudRate(Baud19200) }},
		{"SetCharSize", func(p *Port) error { return p.SetCharSize(CharSize7) }},
		{"SetParity", func(p *Port) error { return p.SetParity(ParityOdd) }},
		{"SetStopBits", func(p *Port) error { return p.SetStopBits(StopBits2) }},
		{"SetFlowControl", func(p *Port) error { return p.SetFlowControl(FlowControlHardware) }},
		{"BaudRate", func(p *Port) error { _, err := p.BaudRate(); return err }},
		{"CharSize", func(p *Port) error { _, err := p.CharSize(); return err }},
		{"Parity", func(p *Port) error { _, err := p.Parity(); return err }},
		{"StopBits", func(p *Port) error { _, err := p.StopBits(); return err }},
		{"FlowControl", func(p *Port) error { _, err := p.FlowControl(); return err }},
		{"LineConfig", func(p *Port) error { _, err := p.LineConfig(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port, dev := openFake(t)
			dev.failGet = true
			sets := dev.sets

			err := tt.call(port)
			if !errors.Is(err, ErrDevice) {
				t.Errorf("error = %v, want ErrDevice", err)
			}
			if !errors.Is(err, unix.EIO) {
				t.Errorf("error = %v, want wrapped EIO", err)
			}
			if dev.sets != sets {
				t.Error("device written after a failed attribute read")
			}
			if !port.IsOpen() {
				t.Error("port closed by a failed attribute read")
			}
		})
	}
}

func TestAttributeWriteFailure(t *testing.T) {
	tests := []struct {
		name string
		call func(*Port) error
		want error
	}{
		{"SetBaudRate", func(p *Port) error { return p.SetBaudRate(Baud19200) }, ErrUnsupportedBaudRate},
		{"SetCharSize", func(p *Port) error { return p.SetCharSize(CharSize7) }, ErrInvalidArgument},
		{"SetParity", func(p *Port) error { return p.SetParity(ParityOdd) }, ErrInvalidArgument},
		{"SetStopBits", func(p *Port) error { return p.SetStopBits(StopBits2) }, ErrInvalidArgument},
		{"SetFlowControl", func(p *Port) error { return p.SetFlowControl(FlowControlHardware) }, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port, dev := openFake(t)
			before := dev.tio
			dev.failSet = true

			if err := tt.call(port); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if dev.tio != before {
				t.Error("record changed by a rejected write")
			}
		})
	}
}

func TestTransferFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*fakeDevice)
		call    func(*Port) error
		wrapped error
	}{
		{
			name:    "read error",
			setup:   func(d *fakeDevice) { d.input = []byte{0x41}; d.failRead = true },
			call:    func(p *Port) error { _, err := p.ReadByte(); return err },
			wrapped: unix.EIO,
		},
		{
			name:    "zero byte read",
			setup:   func(d *fakeDevice) { d.input = []byte{0x41}; d.zeroRead = true },
			call:    func(p *Port) error { _, err := p.ReadByte(); return err },
			wrapped: io.ErrUnexpectedEOF,
		},
		{
			name:    "write error",
			setup:   func(d *fakeDevice) { d.failWrite = true },
			call:    func(p *Port) error { return p.WriteByte(0x41) },
			wrapped: unix.EIO,
		},
		{
			name:    "short write",
			setup:   func(d *fakeDevice) { d.shortWrite = true },
			call:    func(p *Port) error { return p.WriteByte(0x41) },
			wrapped: io.ErrShortWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port, dev := openFake(t)
			tt.setup(dev)

			err := tt.call(port)
			if !errors.Is(err, ErrDevice) {
				t.Errorf("error = %v, want ErrDevice", err)
			}
			if !errors.Is(err, tt.wrapped) {
				t.Errorf("error = %v, want wrapped %v", err, tt.wrapped)
			}
			if !port.IsOpen() {
				t.Error("port closed by a failed transfer")
			}
		})
	}
}

func TestCloseFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*fakeDevice)
		wrapped error
	}{
		{"restore fails", func(d *fakeDevice) { d.failSet = true }, unix.EINVAL},
		{"close fails", func(d *fakeDevice) { d.failClose = true }, unix.EBADF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port, dev := openFake(t)
			tt.setup(dev)

			err := port.Close()
			if !errors.Is(err, ErrDevice) {
				t.Errorf("Close error = %v, want ErrDevice", err)
			}
			if !errors.Is(err, tt.wrapped) {
				t.Errorf("Close error = %v, want wrapped %v", err, tt.wrapped)
			}
			if port.IsOpen() {
				t.Error("port still open after a failed Close")
			}
			if !dev.closed {
				t.Error("descriptor close not attempted")
			}
			if err := port.Close(); !errors.Is(err, ErrNotOpen) {
				t.Errorf("second Close error = %v, want ErrNotOpen", err)
			}
		})
	}
}
