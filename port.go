package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Port is a handle for one serial device.
//
// A Port starts closed. Open acquires the device, snapshots its termios
// record and switches it to raw mode; Close writes the snapshot back and
// releases the descriptor. Every line parameter accessor reads the current
// record from the device first, so the device is always the source of truth.
//
// A Port is not safe for concurrent use. ReadByte blocks the caller until a
// byte arrives and must not race with Close.
type Port struct {
	name string
	opts []Option

	cfg Config
	log zerolog.Logger

	sess    *session
	cleanup runtime.Cleanup
}

// session is the state that exists only while the port is open
type session struct {
	dev   device
	saved LineConfig
}

// release restores the snapshot taken at open and closes the descriptor
func (s *session) release() error {
	restoreErr := s.dev.SetLineConfig(s.saved)
	closeErr := s.dev.Close()
	return errors.Join(restoreErr, closeErr)
}

// New returns a closed port for the named device. The name is not checked
// until Open. Options given here apply to every Open of the port.
func New(device string, opts ...Option) *Port {
	return &Port{
		name: device,
		opts: opts,
		cfg:  DefaultConfig(),
		log:  zerolog.Nop(),
	}
}

// Open opens a serial port with the given device path and options and
// returns it ready for use. Unlike (*Port).Open, a parameter the device
// rejects closes the port again before the error is returned.
func Open(device string, opts ...Option) (*Port, error) {
	p := New(device, opts...)
	if err := p.Open(); err != nil {
		if p.IsOpen() {
			p.Close()
		}
		return nil, err
	}
	return p, nil
}

// Name returns the device path
func (p *Port) Name() string {
	return p.name
}

// IsOpen reports whether the port is open
func (p *Port) IsOpen() bool {
	return p.sess != nil
}

// Open acquires the device in raw mode and applies the line parameters
// from the port's options followed by params, in the order baud rate,
// character size, parity, stop bits, flow control.
//
// All parameters are validated before the device is touched. If the device
// rejects one of them the port stays open with the earlier parameters
// applied and the error is returned; the caller decides whether to Close.
func (p *Port) Open(params ...Option) error {
	if p.IsOpen() {
		return ErrAlreadyOpen
	}

	opts := make([]Option, 0, len(p.opts)+len(params))
	opts = append(opts, p.opts...)
	opts = append(opts, params...)
	cfg, err := DefaultConfig().apply(opts)
	if err != nil {
		return err
	}
	p.cfg = cfg
	p.log = cfg.Logger.With().Str("device", p.name).Logger()

	if err := p.openRaw(); err != nil {
		return err
	}

	if err := p.SetBaudRate(cfg.BaudRate); err != nil {
		return err
	}
	if err := p.SetCharSize(cfg.CharSize); err != nil {
		return err
	}
	if err := p.SetParity(cfg.Parity); err != nil {
		return err
	}
	if err := p.SetStopBits(cfg.StopBits); err != nil {
		return err
	}
	if err := p.SetFlowControl(cfg.FlowControl); err != nil {
		return err
	}

	p.log.Info().Stringer("line", cfg).Msg("serial port opened")
	return nil
}

// openRaw performs the Closed -> Open transition. Nothing is left behind
// when a step fails.
func (p *Port) openRaw() error {
	dev, err := openDevice(p.name)
	if err != nil {
		p.log.Debug().Err(err).Msg("open failed")
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	saved, err := dev.LineConfig()
	if err != nil {
		dev.Close()
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	if err := dev.SetLineConfig(saved.Raw()); err != nil {
		dev.Close()
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	s := &session{dev: dev, saved: saved}
	p.sess = s
	// Restore and close a session whose Port is dropped without Close.
	p.cleanup = runtime.AddCleanup(p, func(s *session) { s.release() }, s)

	p.log.Debug().Stringer("saved", saved).Msg("device acquired in raw mode")
	return nil
}

// Close restores the settings captured by Open and releases the device.
// The port is closed afterwards even if restoring or closing reported an
// error.
func (p *Port) Close() error {
	if !p.IsOpen() {
		return ErrNotOpen
	}

	s := p.sess
	p.sess = nil
	p.cleanup.Stop()

	if err := s.release(); err != nil {
		p.log.Warn().Err(err).Msg("release failed")
		return fmt.Errorf("%w: close %s: %w", ErrDevice, p.name, err)
	}

	p.log.Debug().Stringer("restored", s.saved).Msg("serial port closed")
	return nil
}

// LineConfig reads the current termios record from the device
func (p *Port) LineConfig() (LineConfig, error) {
	if !p.IsOpen() {
		return LineConfig{}, ErrNotOpen
	}
	cfg, err := p.sess.dev.LineConfig()
	if err != nil {
		return LineConfig{}, fmt.Errorf("%w: %w", ErrDevice, err)
	}
	return cfg, nil
}

// modify runs one read-modify-write cycle. A write the device refuses is
// reported as rejected.
func (p *Port) modify(param string, rejected error, change func(LineConfig) (LineConfig, error)) error {
	cur, err := p.LineConfig()
	if err != nil {
		return err
	}

	next, err := change(cur)
	if err != nil {
		return err
	}

	if err := p.sess.dev.SetLineConfig(next); err != nil {
		return fmt.Errorf("%w: set %s: %w", rejected, param, err)
	}

	p.log.Debug().Str("param", param).Stringer("line", next).Msg("line parameter set")
	return nil
}

// SetBaudRate sets the input and output speed
func (p *Port) SetBaudRate(rate BaudRate) error {
	if !p.IsOpen() {
		return ErrNotOpen
	}
	if !rate.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedBaudRate, int(rate))
	}
	return p.modify("baud rate", ErrUnsupportedBaudRate, func(c LineConfig) (LineConfig, error) {
		return c.WithBaudRate(rate)
	})
}

// BaudRate returns the input speed. Output and input speeds are always set
// together by SetBaudRate, so a mismatch is not reported. A device whose
// speed code is B0 (hung up) or outside the supported set reports
// ErrUnsupportedBaudRate; for B0 the error is also ErrLineHungUp.
func (p *Port) BaudRate() (BaudRate, error) {
	cfg, err := p.LineConfig()
	if err != nil {
		return 0, err
	}
	return cfg.BaudRate()
}

// SetCharSize sets the number of data bits
func (p *Port) SetCharSize(size CharacterSize) error {
	if !p.IsOpen() {
		return ErrNotOpen
	}
	if !size.Valid() {
		return fmt.Errorf("%w: character size %d", ErrInvalidArgument, int(size))
	}
	return p.modify("character size", ErrInvalidArgument, func(c LineConfig) (LineConfig, error) {
		return c.WithCharSize(size)
	})
}

// CharSize returns the number of data bits
func (p *Port) CharSize() (CharacterSize, error) {
	cfg, err := p.LineConfig()
	if err != nil {
		return 0, err
	}
	return cfg.CharSize(), nil
}

// SetParity sets the parity mode
func (p *Port) SetParity(parity Parity) error {
	if !p.IsOpen() {
		return ErrNotOpen
	}
	if !parity.Valid() {
		return fmt.Errorf("%w: parity %d", ErrInvalidArgument, int(parity))
	}
	return p.modify("parity", ErrInvalidArgument, func(c LineConfig) (LineConfig, error) {
		return c.WithParity(parity)
	})
}

// Parity returns the parity mode
func (p *Port) Parity() (Parity, error) {
	cfg, err := p.LineConfig()
	if err != nil {
		return 0, err
	}
	return cfg.Parity(), nil
}

// SetStopBits sets the number of stop bits
func (p *Port) SetStopBits(bits StopBits) error {
	if !p.IsOpen() {
		return ErrNotOpen
	}
	if !bits.Valid() {
		return fmt.Errorf("%w: stop bits %d", ErrInvalidArgument, int(bits))
	}
	return p.modify("stop bits", ErrInvalidArgument, func(c LineConfig) (LineConfig, error) {
		return c.WithStopBits(bits)
	})
}

// StopBits returns the number of stop bits
func (p *Port) StopBits() (StopBits, error) {
	cfg, err := p.LineConfig()
	if err != nil {
		return 0, err
	}
	return cfg.StopBits(), nil
}

// SetFlowControl sets the flow control mode
func (p *Port) SetFlowControl(fc FlowControl) error {
	if !p.IsOpen() {
		return ErrNotOpen
	}
	if !fc.Valid() {
		return fmt.Errorf("%w: flow control %d", ErrInvalidArgument, int(fc))
	}
	return p.modify("flow control", ErrInvalidArgument, func(c LineConfig) (LineConfig, error) {
		return c.WithFlowControl(fc)
	})
}

// FlowControl returns the flow control mode
func (p *Port) FlowControl() (FlowControl, error) {
	cfg, err := p.LineConfig()
	if err != nil {
		return 0, err
	}
	return cfg.FlowControl(), nil
}

// IsDataAvailable reports whether at least one byte is waiting to be read
func (p *Port) IsDataAvailable() (bool, error) {
	if !p.IsOpen() {
		return false, ErrNotOpen
	}
	n, err := p.sess.dev.InputPending()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrDevice, err)
	}
	return n > 0, nil
}

// ReadByte waits until a byte is available and reads it. There is no
// timeout; use ReadByteContext for a bounded wait.
func (p *Port) ReadByte() (byte, error) {
	return p.ReadByteContext(context.Background())
}

// ReadByteContext is ReadByte with cancellation checked between polls
func (p *Port) ReadByteContext(ctx context.Context) (byte, error) {
	if !p.IsOpen() {
		return 0, ErrNotOpen
	}

	if err := p.waitForData(ctx); err != nil {
		return 0, err
	}

	var buf [1]byte
	n, err := p.sess.dev.Read(buf[:])
	if err != nil {
		return 0, fmt.Errorf("%w: read: %w", ErrDevice, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: read: %w", ErrDevice, io.ErrUnexpectedEOF)
	}
	return buf[0], nil
}

// waitForData polls IsDataAvailable until it reports true
func (p *Port) waitForData(ctx context.Context) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		ok, err := p.IsDataAvailable()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if p.cfg.PollInterval <= 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}

		if timer == nil {
			timer = time.NewTimer(p.cfg.PollInterval)
		} else {
			timer.Reset(p.cfg.PollInterval)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// WriteByte writes exactly one byte
func (p *Port) WriteByte(c byte) error {
	if !p.IsOpen() {
		return ErrNotOpen
	}
	n, err := p.sess.dev.Write([]byte{c})
	if err != nil {
		return fmt.Errorf("%w: write: %w", ErrDevice, err)
	}
	if n != 1 {
		return fmt.Errorf("%w: write: %w", ErrDevice, io.ErrShortWrite)
	}
	return nil
}

// Ensure Port implements the byte-level io interfaces at compile time
var (
	_ io.ByteReader = (*Port)(nil)
	_ io.ByteWriter = (*Port)(nil)
)
