package spiprobe

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects how responses are printed.
type Format int

const (
	FormatDec Format = iota // [240 0 0]
	FormatHex               // F0 00 00
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "dec":
		return FormatDec, nil
	case "hex":
		return FormatHex, nil
	}
	return FormatDec, fmt.Errorf("unknown format %q", s)
}

func (f Format) String() string {
	if f == FormatHex {
		return "hex"
	}
	return "dec"
}

type proberConfig struct {
	timing     Timing
	out        io.Writer
	format     Format
	logger     *slog.Logger
	iterations int
}

func defaultProberConfig() proberConfig {
	return proberConfig{
		timing: DefaultTiming(),
		out:    os.Stdout,
		format: FormatDec,
		logger: slog.Default(),
	}
}

// Option configures a Prober.
type Option func(*proberConfig)

// WithTiming replaces the phase delays.
func WithTiming(t Timing) Option {
	return func(c *proberConfig) {
		c.timing = t
	}
}

// WithOutput sets where status lines and responses are printed. The default
// is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *proberConfig) {
		c.out = w
	}
}

func WithFormat(f Format) Option {
	return func(c *proberConfig) {
		c.format = f
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *proberConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIterations stops Run after n iterations. Zero, the default, runs until
// the context is cancelled.
func WithIterations(n int) Option {
	return func(c *proberConfig) {
		c.iterations = max(n, 0)
	}
}
