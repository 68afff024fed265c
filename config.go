package spiprobe

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Backend names accepted by Config.Backend.
const (
	BackendPeriph = "periph" // Raspberry Pi, sysfs spidev + gpio
	BackendRPIO   = "rpio"   // Raspberry Pi, /dev/gpiomem registers
	BackendFTDI   = "ftdi"   // FT2232H MPSSE over USB
)

var ErrUnknownBackend = errors.New("unknown backend")

type Config struct {
	Backend string `yaml:"backend"`

	// ResetPin is the BCM number of the active-low FPGA reset line. It is
	// ignored by the ftdi backend, which always uses ADBUS7.
	ResetPin int `yaml:"reset_pin"`

	SPI    SPIConfig `yaml:"spi"`
	Timing Timing    `yaml:"timing"`
}

type SPIConfig struct {
	Bus     int   `yaml:"bus"`
	Device  int   `yaml:"device"` // chip select
	ClockHz int64 `yaml:"clock_hz"`
	Mode    int   `yaml:"mode"`
}

// Timing holds the delays between loop phases.
type Timing struct {
	ResetHold   time.Duration `yaml:"reset_hold"`   // reset asserted (low)
	ReleaseHold time.Duration `yaml:"release_hold"` // after release, before the first command
	CommandHold time.Duration `yaml:"command_hold"` // after each command
}

// DefaultConfig returns the bench wiring: board pin 36 (GPIO16) as reset and
// CE0 of SPI0 as the FPGA user SPI chip select.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendPeriph,
		ResetPin: 16, // [RPi-GPIO] board pin 36
		SPI: SPIConfig{
			Bus:     0,
			Device:  0,
			ClockHz: 100_000,
			Mode:    0,
		},
		Timing: DefaultTiming(),
	}
}

func DefaultTiming() Timing {
	return Timing{
		ResetHold:   1 * time.Second,
		ReleaseHold: 2 * time.Second,
		CommandHold: 1 * time.Second,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig, so keys missing from
// the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendPeriph, BackendFTDI:
	case BackendRPIO:
		// go-rpio drives the SPI0 controller only, with CE0..CE2.
		if c.SPI.Bus != 0 {
			return fmt.Errorf("rpio backend supports SPI bus 0 only, got %d", c.SPI.Bus)
		}
		if c.SPI.Device > 2 {
			return fmt.Errorf("rpio backend supports chip select 0-2, got %d", c.SPI.Device)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.ResetPin < 0 {
		return fmt.Errorf("invalid reset pin %d", c.ResetPin)
	}
	if c.SPI.Bus < 0 || c.SPI.Device < 0 {
		return fmt.Errorf("invalid SPI bus/device %d.%d", c.SPI.Bus, c.SPI.Device)
	}
	if c.SPI.ClockHz <= 0 {
		return fmt.Errorf("invalid SPI clock %d Hz", c.SPI.ClockHz)
	}
	if c.SPI.Mode < 0 || c.SPI.Mode > 3 {
		return fmt.Errorf("invalid SPI mode %d", c.SPI.Mode)
	}
	t := c.Timing
	if t.ResetHold < 0 || t.ReleaseHold < 0 || t.CommandHold < 0 {
		return errors.New("timing values must not be negative")
	}
	return nil
}

func (s SPIConfig) Clock() physic.Frequency {
	return physic.Frequency(s.ClockHz) * physic.Hertz
}

func (s SPIConfig) SPIMode() spi.Mode {
	return spi.Mode(s.Mode)
}
