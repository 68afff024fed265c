package spiprobe

import (
	"errors"
	"fmt"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
)

// ResetLine is an output driving the FPGA reset (or a chip select).
// gpio.PinOut satisfies it.
type ResetLine interface {
	Out(l gpio.Level) error
}

// Device owns the reset line and the SPI connection to the FPGA user SPI
// slave. It is not safe for concurrent use.
type Device struct {
	reset ResetLine
	conn  spi.Conn

	// closers release backend resources, run in reverse order by Close.
	closers []func() error
	closed  bool
}

// NewDevice wraps an already configured reset line and SPI connection.
func NewDevice(reset ResetLine, conn spi.Conn) *Device {
	return &Device{reset: reset, conn: conn}
}

// Open acquires the reset line and the SPI device for the configured backend.
func Open(cfg Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendPeriph:
		return openPeriph(cfg)
	case BackendRPIO:
		return openRPIO(cfg)
	case BackendFTDI:
		return openFTDI(cfg)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

var hostInitialized atomic.Bool

func initHost() error {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			hostInitialized.Store(false)
			return fmt.Errorf("host initialization failed: %w", err)
		}
	}
	return nil
}

func (d *Device) onClose(f func() error) {
	d.closers = append(d.closers, f)
}

// ResetFPGA asserts (low) or deasserts (high) the FPGA reset line.
func (d *Device) ResetFPGA(l gpio.Level) error {
	return d.reset.Out(l)
}

// Tx clocks w out while clocking in the same number of bytes, and returns
// what was read.
func (d *Device) Tx(w []byte) ([]byte, error) {
	r := make([]byte, len(w))
	if err := d.conn.Tx(w, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (d *Device) String() string {
	return d.conn.String()
}

// Close leaves the FPGA out of reset and releases the backend. Calling it
// more than once is a no-op.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if err := d.reset.Out(gpio.High); err != nil {
		errs = append(errs, fmt.Errorf("release reset: %w", err))
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
