package pci

import (
	"fmt"
	"io"
	"os"
)

// InterruptMasker is the downward capability the fault sink uses to
// globally disable pin-change interrupts before releasing control lines
// (see Bus.Fault). Platforms that route PERR#/SERR# or REQ# edges to an
// interrupt controller should implement this over that controller; a
// platform with no such interrupt source may pass a no-op implementation.
type InterruptMasker interface {
	// DisableInterrupts globally masks interrupts.
	DisableInterrupts()
}

type noopMasker struct{}

func (noopMasker) DisableInterrupts() {}

// Bus is a single-slot, single-master software PCI bus. Every field other
// than Console and Interrupts must be set by the caller before
// Init is called; Bus holds no other mutable state across transactions.
type Bus struct {
	// AD is the 32-bit multiplexed address/data bus.
	AD ADBus
	// CBE is the 4-bit command/byte-enable bus.
	CBE CBEBus
	// PAR is the parity pin.
	PAR Pin
	// CLK is the master-generated bus clock. Never tri-stated.
	CLK Pin
	// IDSEL is the single-slot chip-select strap. It is driven high at
	// Idle and during the address phase of configuration transactions,
	// and low for the remainder of every transaction (see Perform).
	IDSEL Pin
	// RST is the bus reset line.
	RST Pin
	// GNT and REQ are wired for diagnostics only. Init drives GNT as an
	// output, low, and Disconnect releases it; nothing else touches GNT,
	// and REQ is set to input but never sampled to make a decision.
	GNT Pin
	REQ Pin

	// Frame, Irdy, Trdy, Devsel and Stop are the five shared,
	// three-step-disciplined control lines.
	Frame  ControlLine
	Irdy   ControlLine
	Trdy   ControlLine
	Devsel ControlLine
	Stop   ControlLine

	// Console receives fault diagnostics. Defaults to os.Stderr.
	Console io.Writer
	// Interrupts masks pin-change interrupts during a fault tear-down.
	// Defaults to a no-op.
	Interrupts InterruptMasker

	initialized bool
}

func (b *Bus) console() io.Writer {
	if b.Console == nil {
		return os.Stderr
	}
	return b.Console
}

func (b *Bus) interrupts() InterruptMasker {
	if b.Interrupts == nil {
		return noopMasker{}
	}
	return b.Interrupts
}

// clockPulse drives one CLK high/low cycle.
func (b *Bus) clockPulse() {
	b.CLK.High()
	b.CLK.Low()
}

// Init resets the bus and brings it out of reset with a caller-chosen
// number of warm-up CLK cycles.
//
// PCI requires 2^25 CLK cycles between RST# deassertion and the first
// configuration access. This driver deliberately does not enforce that:
// Realtek RTL8139/RTL8169 NICs have been observed in practice to respond
// correctly after far fewer. warmupCycles must be a positive count chosen
// by the caller (there is intentionally no silent default of 1); if early
// configuration reads come back as a master abort, call Warmup for
// additional cycles before retrying.
func (b *Bus) Init(warmupCycles int) {
	if warmupCycles <= 0 {
		b.Fault(faultBadWarmup)
	}

	// RST#, CLK and GNT are master-driven outputs, initially low; REQ#
	// is an input.
	b.RST.Out()
	b.RST.Low()
	b.CLK.Out()
	b.CLK.Low()
	b.GNT.Out()
	b.GNT.Low()
	b.REQ.In()

	// C/BE and the shared control lines start released (input, relying
	// on the bus's pull-ups). C/BE has no pull-up on this bus: a
	// deliberate deviation from PCI bus parking, tolerated because
	// there is only ever one master and one target.
	b.CBE.Tristate()
	b.Frame.pin.In()
	b.Irdy.pin.In()
	b.Trdy.pin.In()
	b.Devsel.pin.In()
	b.Stop.pin.In()

	// IDSEL is driven high, the Idle level the bus-ownership invariant
	// requires of it; Perform lowers and restores it around each
	// transaction.
	b.IDSEL.Out()
	b.IDSEL.High()

	// AD and PAR are fully released.
	b.AD.Tristate()
	b.PAR.In()

	// RST# is already held low from above; the platform is responsible
	// for ensuring at least 1ms elapses here before it is released.
	b.RST.High()

	b.clockPulse()
	b.Warmup(warmupCycles - 1)

	b.initialized = true
}

// Warmup issues additional CLK cycles without otherwise touching the bus.
// See Init for why the cycle count is caller-controlled.
func (b *Bus) Warmup(cycles int) {
	for c := 0; c < cycles; c++ {
		b.clockPulse()
	}
}

// Disconnect unconditionally and safely releases the bus: RST# is driven
// low so the target tri-states its own outputs as quickly as possible,
// then every other pin group this master drives is released to input with
// no pull resistors. It is safe to call from any state, including
// mid-transaction, which is why it does not check or rely on initialized.
func (b *Bus) Disconnect() {
	b.RST.Out()
	b.RST.Low()

	b.CLK.In()
	b.GNT.In()

	b.AD.Tristate()
	b.CBE.Tristate()
	b.PAR.In()
	b.IDSEL.In()

	b.Frame.pin.In()
	b.Irdy.pin.In()
	b.Trdy.pin.In()
	b.Devsel.pin.In()
	b.Stop.pin.In()
}

// Fault runs the fault sink: it masks interrupts, disconnects the bus (in
// that order, so that no PERR#/SERR# interrupt can fire when the control
// lines are released), writes message to the diagnostic
// console, and halts. Fault never returns.
func (b *Bus) Fault(message string) {
	b.interrupts().DisableInterrupts()
	b.Disconnect()
	fmt.Fprintln(b.console(), message)
	panic(message)
}

// ConfigHeader is the subset of a PCI Type 0 configuration header this
// single-slot master decodes after a bus probe.
type ConfigHeader struct {
	Vendor uint16
	Device uint16
	// Class is the 24-bit class code at offset 0x09, identifying the
	// device's function (e.g. 0x020000 for an Ethernet controller).
	Class uint32
}

// ProbeConfig reads the vendor/device ID and class code of the single
// attached device. The second return value is false if the read came back
// as a master abort (vendor field 0xffff), i.e. if no device responded; in
// that case Class is never read.
func (b *Bus) ProbeConfig() (ConfigHeader, bool) {
	id := b.ConfigRead32(0x00)

	vendor := uint16(id)
	if vendor == 0xffff {
		return ConfigHeader{}, false
	}

	rev := b.ConfigRead32(0x08)

	return ConfigHeader{
		Vendor: vendor,
		Device: uint16(id >> 16),
		Class:  rev >> 8,
	}, true
}
