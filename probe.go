package spiprobe

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Command is a fixed payload sent to the FPGA user SPI slave.
type Command struct {
	Name    string
	Payload []byte
}

// Commands returns the probe sequence sent after every reset: a 3-byte
// hardware protocol command followed by six zero bytes.
func Commands() []Command {
	return []Command{
		{Name: "Hardware Protocol Command, 3 Bytes", Payload: []byte{0xF0, 0x00, 0x00}},
		{Name: "Zero Command, 3+ Bytes", Payload: make([]byte, 6)},
	}
}

// Target is what the Prober drives. *Device implements it.
type Target interface {
	ResetFPGA(l gpio.Level) error
	Tx(w []byte) ([]byte, error)
}

// ShortTransferError reports a full-duplex transfer that returned fewer or
// more bytes than were sent.
type ShortTransferError struct {
	Command  string
	Sent     int
	Received int
}

func (e *ShortTransferError) Error() string {
	return fmt.Sprintf("%s: sent %d bytes, received %d", e.Command, e.Sent, e.Received)
}

// Prober runs the reset-and-probe loop against a Target.
type Prober struct {
	dev      Target
	commands []Command
	cfg      proberConfig
}

func NewProber(dev Target, opts ...Option) *Prober {
	cfg := defaultProberConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Prober{
		dev:      dev,
		commands: Commands(),
		cfg:      cfg,
	}
}

// Run repeats Iterate until ctx is cancelled or the iteration limit is
// reached. Cancellation is not an error.
func (p *Prober) Run(ctx context.Context) error {
	log := p.cfg.logger
	for n := 1; p.cfg.iterations == 0 || n <= p.cfg.iterations; n++ {
		log.Debug("starting iteration", "n", n)
		if err := p.Iterate(ctx); err != nil {
			if ctx.Err() != nil {
				log.Info("probe loop stopped", "iterations", n-1, "reason", ctx.Err())
				return nil
			}
			return fmt.Errorf("iteration %d: %w", n, err)
		}
	}
	log.Info("probe loop finished", "iterations", p.cfg.iterations)
	return nil
}

// Iterate pulses reset once and then sends every command, printing each
// response.
func (p *Prober) Iterate(ctx context.Context) error {
	if err := p.Pulse(ctx); err != nil {
		return err
	}
	for _, cmd := range p.commands {
		fmt.Fprintf(p.cfg.out, "Issue %s\n", cmd.Name)
		resp, err := p.Transfer(cmd)
		if err != nil {
			return err
		}
		p.printResponse(resp)
		if err := sleep(ctx, p.cfg.timing.CommandHold); err != nil {
			return err
		}
	}
	return nil
}

// Pulse holds the active-low reset for the reset hold time, releases it, and
// waits for the release hold time.
func (p *Prober) Pulse(ctx context.Context) error {
	fmt.Fprintln(p.cfg.out, "\nReset FPGA Fabric Logic")
	if err := p.dev.ResetFPGA(gpio.Low); err != nil {
		return fmt.Errorf("assert reset: %w", err)
	}
	if err := sleep(ctx, p.cfg.timing.ResetHold); err != nil {
		return err
	}
	if err := p.dev.ResetFPGA(gpio.High); err != nil {
		return fmt.Errorf("release reset: %w", err)
	}
	return sleep(ctx, p.cfg.timing.ReleaseHold)
}

// Transfer sends one command and returns the bytes clocked in.
func (p *Prober) Transfer(cmd Command) ([]byte, error) {
	resp, err := p.dev.Tx(cmd.Payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	if len(resp) != len(cmd.Payload) {
		return nil, &ShortTransferError{Command: cmd.Name, Sent: len(cmd.Payload), Received: len(resp)}
	}
	p.cfg.logger.Debug("spi transfer", "command", cmd.Name, "tx", fmt.Sprintf("%X", cmd.Payload), "rx", fmt.Sprintf("%X", resp))
	return resp, nil
}

func (p *Prober) printResponse(resp []byte) {
	switch p.cfg.format {
	case FormatHex:
		fmt.Fprintf(p.cfg.out, "% X\n", resp)
	default:
		fmt.Fprintln(p.cfg.out, resp)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
