package spiprobe

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
)

// PinNotFoundError is returned when the GPIO registry has no pin by that name.
type PinNotFoundError struct {
	Name string
}

func (e *PinNotFoundError) Error() string {
	return fmt.Sprintf("failed to find pin %s", e.Name)
}

// SPIPortName is the spireg name of the spidev node for bus.device.
func SPIPortName(bus, device int) string {
	return fmt.Sprintf("/dev/spidev%d.%d", bus, device) // [spidev]
}

func openPeriph(cfg Config) (*Device, error) {
	if err := initHost(); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("GPIO%d", cfg.ResetPin)
	reset := gpioreg.ByName(name)
	if reset == nil {
		return nil, &PinNotFoundError{Name: name}
	}
	// Start released; the loop asserts reset itself.
	if err := reset.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("failed to set %s to output: %w", name, err)
	}

	port, err := spireg.Open(SPIPortName(cfg.SPI.Bus, cfg.SPI.Device))
	if err != nil {
		return nil, fmt.Errorf("failed to open spi: %w", err)
	}
	conn, err := port.Connect(cfg.SPI.Clock(), cfg.SPI.SPIMode(), 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to connect to spi device: %w", err)
	}

	d := NewDevice(reset, conn)
	d.onClose(port.Close)
	return d, nil
}
