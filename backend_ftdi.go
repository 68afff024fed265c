package spiprobe

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3/ftdi"
)

var ErrDeviceNotFound = errors.New("FT2232H device not found")

// FindFT2232H returns the first attached FT2232H.
func FindFT2232H() (*ftdi.FT232H, error) {
	if err := initHost(); err != nil {
		return nil, err
	}

	const (
		vendorID  = 0x0403 // FTDI
		productID = 0x6010 // FT2232H
	)

	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vendorID || info.DevID != productID {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			return ft, nil
		}
	}
	return nil, ErrDeviceNotFound
}

func openFTDI(cfg Config) (*Device, error) {
	ft, err := FindFT2232H()
	if err != nil {
		return nil, err
	}

	// [EB82|Appendix A. Sheet 2 of 5 (USB to SPI/RS232)]
	// ADBUS0 | iCE_SCK
	// ADBUS1 | iCE_MOSI
	// ADBUS2 | iCE_MISO
	// ADBUS4 | iCE_SS_B
	// ADBUS7 | iCE_CRESET / iCE_RESET
	cs := ft.D4
	reset := ft.D7
	if err := reset.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("failed to release reset: %w", err)
	}
	if err := cs.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("failed to deselect chip: %w", err)
	}

	port, err := ft.SPI()
	if err != nil {
		return nil, fmt.Errorf("failed to get SPI port: %w", err)
	}

	// [FTDI-AN_114|1.2] > FTDI device can only support mode 0 and mode 2 due to the limitation of MPSSE engine
	mode := cfg.SPI.SPIMode()
	if mode != spi.Mode0 && mode != spi.Mode2 {
		port.Close()
		return nil, fmt.Errorf("FT2232H supports SPI mode 0 and 2 only, got %d", cfg.SPI.Mode)
	}
	conn, err := port.Connect(cfg.SPI.Clock(), mode, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("SPI connection failed: %w", err)
	}

	d := NewDevice(reset, &csConn{Conn: conn, cs: cs})
	d.onClose(port.Close)
	return d, nil
}

// csConn asserts a GPIO chip select around every transaction.
type csConn struct {
	spi.Conn
	cs ResetLine
}

func (c *csConn) Tx(w, r []byte) error {
	return c.selected(func() error { return c.Conn.Tx(w, r) })
}

func (c *csConn) TxPackets(p []spi.Packet) error {
	return c.selected(func() error { return c.Conn.TxPackets(p) })
}

func (c *csConn) selected(tx func() error) (err error) {
	if err = c.cs.Out(gpio.Low); err != nil {
		return err
	}
	defer func() {
		if csErr := c.cs.Out(gpio.High); csErr != nil && err == nil {
			err = csErr
		}
	}()
	err = tx()
	return
}
