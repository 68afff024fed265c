package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gentam/spiprobe"
	"github.com/gentam/spiprobe/internal/logging"
)

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func fatalUsage(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
	spiprobe <command> [arguments]

Commands:
	run	 reset the FPGA and send the probe commands in a loop
	reset	 pulse the FPGA reset line once
	info	 list host drivers, SPI ports and FT2232H details
`)
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	switch cmd := flag.Arg(0); cmd {
	case "run":
		runCommand(flag.Args()[1:])
	case "reset":
		resetCommand(flag.Args()[1:])
	case "info":
		infoCommand(flag.Args()[1:])
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %q\n", cmd)
		usage()
	}
}

// deviceFlags are shared by every command that opens the device. Flags given
// on the command line override the config file.
type deviceFlags struct {
	config    string
	backend   string
	resetPin  int
	bus       int
	device    int
	hz        int64
	mode      int
	timing    spiprobe.Timing
	logLevel  string
	logFormat string
}

func addDeviceFlags(fs *flag.FlagSet) *deviceFlags {
	def := spiprobe.DefaultConfig()
	f := &deviceFlags{}
	fs.StringVar(&f.config, "config", "", "YAML config file")
	fs.StringVar(&f.backend, "backend", def.Backend, "hardware backend: periph, rpio or ftdi")
	fs.IntVar(&f.resetPin, "reset-pin", def.ResetPin, "BCM number of the active-low FPGA reset line")
	fs.IntVar(&f.bus, "bus", def.SPI.Bus, "SPI bus")
	fs.IntVar(&f.device, "device", def.SPI.Device, "SPI chip select")
	fs.Int64Var(&f.hz, "hz", def.SPI.ClockHz, "SPI clock in Hz")
	fs.IntVar(&f.mode, "mode", def.SPI.Mode, "SPI mode (0-3)")
	fs.DurationVar(&f.timing.ResetHold, "reset-hold", def.Timing.ResetHold, "time reset is held low")
	fs.DurationVar(&f.timing.ReleaseHold, "release-hold", def.Timing.ReleaseHold, "wait after releasing reset")
	fs.DurationVar(&f.timing.CommandHold, "command-hold", def.Timing.CommandHold, "wait after each command")
	fs.StringVar(&f.logLevel, "log-level", "INFO", "DEBUG, INFO, WARN or ERROR")
	fs.StringVar(&f.logFormat, "log-format", "text", "text or json")
	return f
}

// load builds the config and installs the logger. fs must be parsed.
func (f *deviceFlags) load(fs *flag.FlagSet) (spiprobe.Config, *slog.Logger) {
	logger := logging.Init(os.Stderr, f.logLevel, f.logFormat)

	cfg := spiprobe.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = spiprobe.LoadConfig(f.config); err != nil {
			fatalf("load config: %v", err)
		}
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "backend":
			cfg.Backend = f.backend
		case "reset-pin":
			cfg.ResetPin = f.resetPin
		case "bus":
			cfg.SPI.Bus = f.bus
		case "device":
			cfg.SPI.Device = f.device
		case "hz":
			cfg.SPI.ClockHz = f.hz
		case "mode":
			cfg.SPI.Mode = f.mode
		case "reset-hold":
			cfg.Timing.ResetHold = f.timing.ResetHold
		case "release-hold":
			cfg.Timing.ReleaseHold = f.timing.ReleaseHold
		case "command-hold":
			cfg.Timing.CommandHold = f.timing.CommandHold
		}
	})
	if err := cfg.Validate(); err != nil {
		fatalUsage("%v", err)
	}

	logger.Debug("configuration",
		"backend", cfg.Backend,
		"reset_pin", cfg.ResetPin,
		"spi", spiprobe.SPIPortName(cfg.SPI.Bus, cfg.SPI.Device),
		"clock", cfg.SPI.Clock(),
		"mode", cfg.SPI.Mode,
		"reset_hold", cfg.Timing.ResetHold.String(),
		"release_hold", cfg.Timing.ReleaseHold.String(),
		"command_hold", cfg.Timing.CommandHold.String(),
	)
	return cfg, logger
}

func openDevice(cfg spiprobe.Config, logger *slog.Logger) *spiprobe.Device {
	start := time.Now()
	d, err := spiprobe.Open(cfg)
	if err != nil {
		fatalf("open %s device: %v", cfg.Backend, err)
	}
	logger.Info("device opened", "backend", cfg.Backend, "spi", d.String(), "took", time.Since(start))
	return d
}

func closeDevice(d *spiprobe.Device, logger *slog.Logger) {
	if err := d.Close(); err != nil {
		logger.Error("close device", "err", err)
	}
}
