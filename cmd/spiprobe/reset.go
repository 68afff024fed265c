package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gentam/spiprobe"
)

func resetCommand(args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	df := addDeviceFlags(fs)
	fs.Parse(args)
	cfg, logger := df.load(fs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := openDevice(cfg, logger)
	p := spiprobe.NewProber(d, spiprobe.WithTiming(cfg.Timing), spiprobe.WithLogger(logger))
	err := p.Pulse(ctx)
	closeDevice(d, logger)
	if err != nil && ctx.Err() == nil {
		fatalf("reset failed: %v", err)
	}
}
