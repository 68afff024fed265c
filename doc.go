// Package spiprobe resets an FPGA and probes its user SPI slave with two fixed
// commands, printing what comes back.
//
// # References:
//
// Raspberry Pi
//   - [RPi-GPIO]: Raspberry Pi GPIO and the 40-pin header (https://www.raspberrypi.com/documentation/computers/raspberry-pi.html#gpio)
//   - [RPi-SPI]: SPI on the Raspberry Pi (https://www.raspberrypi.com/documentation/computers/raspberry-pi.html#serial-peripheral-interface-spi)
//   - [spidev]: Linux userspace SPI API (https://www.kernel.org/doc/html/latest/spi/spidev.html)
//
// FTDI (https://ftdichip.com/document/application-notes/)
//   - [FTDI-AN_114]: Interfacing FT2232H Hi-Speed Devices To SPI Bus (https://ftdichip.com/wp-content/uploads/2020/08/AN_114_FTDI_Hi_Speed_USB_To_SPI_Example.pdf)
//   - [FTDI-AN_135]: FTDI MPSSE Basics (https://ftdichip.com/wp-content/uploads/2020/08/AN_135_MPSSE_Basics.pdf)
//
// FPGA
//   - [Lattice-EB82]: iCEstick User Manual (https://www.latticesemi.com/view_document?document_id=50701)
package spiprobe
