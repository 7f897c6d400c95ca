// Package pci implements a software-driven, single-slot, single-master
// driver for conventional 32-bit PCI adopting the following reference
// specification:
//   - PCI Local Bus Specification, revision 2.2/3.0, PCI Special Interest Group
//
// Every PCI signal (CLK, FRAME#, IRDY#, TRDY#, DEVSEL#, STOP#, IDSEL,
// AD[31:0], C/BE[3:0]#, PAR) is driven directly by bit-banging GPIO pins
// under program control; there is no dedicated PCI host controller. The
// package is the sole bus initiator on a single-slot bus with one target
// device attached.
//
// The package has no dependency on any particular microcontroller or board:
// it is driven entirely through the Pin, ADBus and CBEBus interfaces (see
// signals.go), so any platform capable of toggling a handful of GPIO lines
// fast enough to satisfy PCI 33 MHz-class setup/hold times can host it.
package pci
