package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/gentam/spiprobe"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

func infoCommand(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	var withFTDI bool
	fs.BoolVar(&withFTDI, "ftdi", false, "also print FT2232H details")
	fs.Parse(args)

	state, err := host.Init()
	if err != nil {
		fatalf("host initialization failed: %v", err)
	}

	fmt.Println("Drivers loaded:")
	for _, drv := range state.Loaded {
		fmt.Printf("- %s\n", drv)
	}
	for _, f := range state.Failed {
		fmt.Printf("- %s (failed: %v)\n", f.D, f.Err)
	}

	fmt.Println("SPI ports:")
	for _, ref := range spireg.All() {
		fmt.Printf("- %s", ref.Name)
		if len(ref.Aliases) != 0 {
			fmt.Printf(" (%s)", strings.Join(ref.Aliases, " "))
		}
		fmt.Println()

		p, err := ref.Open()
		if err != nil {
			fmt.Printf("  failed to open: %v\n", err)
			continue
		}
		if pins, ok := p.(spi.Pins); ok {
			fmt.Printf("  CLK : %s\n", pins.CLK())
			fmt.Printf("  MOSI: %s\n", pins.MOSI())
			fmt.Printf("  MISO: %s\n", pins.MISO())
			fmt.Printf("  CS  : %s\n", pins.CS())
		}
		if err := p.Close(); err != nil {
			fmt.Printf("  failed to close: %v\n", err)
		}
	}

	if withFTDI {
		ftdiInfo()
	}
}

func ftdiInfo() {
	ft, err := spiprobe.FindFT2232H()
	if err != nil {
		fatalf("%v", err)
	}

	// Reference: https://github.com/periph/cmd/tree/main/ftdi-list
	i := ftdi.Info{}
	ft.Info(&i)
	fmt.Printf("Type:            %s\n", i.Type)
	fmt.Printf("Vendor ID:       %#04x\n", i.VenID)
	fmt.Printf("Device ID:       %#04x\n", i.DevID)

	ee := ftdi.EEPROM{}
	if err := ft.EEPROM(&ee); err != nil {
		fatalf("failed to read EEPROM: %v", err)
	}
	fmt.Printf("Manufacturer:    %s\n", ee.Manufacturer)
	fmt.Printf("Desc:            %s\n", ee.Desc)
	fmt.Printf("Serial:          %s\n", ee.Serial)

	for _, p := range ft.Header() {
		fmt.Printf("%s: %s\n", p, p.Function())
	}
}
