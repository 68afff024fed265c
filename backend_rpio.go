package spiprobe

import (
	"errors"
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// rpioPin drives a BCM pin through go-rpio.
type rpioPin rpio.Pin

func (p rpioPin) Out(l gpio.Level) error {
	if l == gpio.High {
		rpio.Pin(p).High()
	} else {
		rpio.Pin(p).Low()
	}
	return nil
}

// rpioConn adapts the go-rpio SPI0 controller to spi.Conn. go-rpio keeps the
// controller state in package globals, so only one rpioConn may be open.
type rpioConn struct {
	cs uint8
}

func (c *rpioConn) String() string {
	return fmt.Sprintf("rpio SPI0 CE%d", c.cs)
}

func (c *rpioConn) Duplex() conn.Duplex {
	return conn.Full
}

func (c *rpioConn) Tx(w, r []byte) error {
	if len(r) != 0 && len(r) != len(w) {
		return errors.New("rpio: read and write buffers must have the same length")
	}
	// SpiExchange overwrites its argument with the received bytes.
	buf := append([]byte(nil), w...)
	rpio.SpiExchange(buf)
	copy(r, buf)
	return nil
}

func (c *rpioConn) TxPackets(p []spi.Packet) error {
	for _, pkt := range p {
		if err := c.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

func openRPIO(cfg Config) (*Device, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open rpio: %w", err)
	}

	pin := rpio.Pin(cfg.ResetPin)
	pin.Output()
	pin.High()

	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return nil, fmt.Errorf("failed to begin spi: %w", err)
	}
	cs := uint8(cfg.SPI.Device)
	rpio.SpiChipSelect(cs)
	rpio.SpiSpeed(int(cfg.SPI.ClockHz))
	// Mode bit 1 is CPOL, bit 0 is CPHA.
	rpio.SpiMode(uint8(cfg.SPI.Mode>>1)&1, uint8(cfg.SPI.Mode)&1)

	d := NewDevice(rpioPin(pin), &rpioConn{cs: cs})
	d.onClose(func() error {
		rpio.SpiEnd(rpio.Spi0)
		return rpio.Close()
	})
	return d, nil
}
