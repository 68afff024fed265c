package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gentam/spiprobe"
)

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	df := addDeviceFlags(fs)
	var (
		iterations int
		format     string
	)
	fs.IntVar(&iterations, "n", 0, "number of iterations (0: until interrupted)")
	fs.StringVar(&format, "format", "dec", "response format: dec or hex")
	fs.Parse(args)

	respFormat, err := spiprobe.ParseFormat(format)
	if err != nil {
		fatalUsage("%v", err)
	}
	if iterations < 0 {
		fatalUsage("-n must not be negative")
	}
	cfg, logger := df.load(fs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := openDevice(cfg, logger)
	p := spiprobe.NewProber(d,
		spiprobe.WithTiming(cfg.Timing),
		spiprobe.WithFormat(respFormat),
		spiprobe.WithIterations(iterations),
		spiprobe.WithLogger(logger),
	)
	err = p.Run(ctx)
	closeDevice(d, logger)
	if err != nil {
		fatalf("probe failed: %v", err)
	}
}
