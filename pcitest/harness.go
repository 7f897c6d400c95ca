package pcitest

import "github.com/penma-contrib/softpci"

// Harness bundles a fully wired fake Bus, its Log and a MockTarget, so a
// test can build one with New and immediately call Init/Perform/the typed
// accessors on Bus while driving Target's timing knobs.
type Harness struct {
	Bus    *pci.Bus
	Log    *Log
	Target *MockTarget

	clk                             *ClockPin
	frame, irdy, trdy, devsel, stop *Pin
	ad                              *ADBus
	cbe                             *CBEBus
	par                             *Pin
}

// New builds a Harness: a Bus wired entirely to fakes, and a MockTarget
// attached to the same fakes but not yet configured (DevselAfter etc. are
// left zero; the caller sets them before the first transaction).
func New() *Harness {
	log := NewLog()

	h := &Harness{
		Log:    log,
		Target: &MockTarget{},

		clk:    NewClockPin(log),
		frame:  NewPin(log, "FRAME#", true),
		irdy:   NewPin(log, "IRDY#", true),
		trdy:   NewPin(log, "TRDY#", true),
		devsel: NewPin(log, "DEVSEL#", true),
		stop:   NewPin(log, "STOP#", true),
		ad:     NewADBus(log),
		cbe:    NewCBEBus(log),
		par:    NewPin(log, "PAR", false),
	}

	h.Bus = &pci.Bus{
		AD:    h.ad,
		CBE:   h.cbe,
		PAR:   h.par,
		CLK:   h.clk,
		IDSEL: NewPin(log, "IDSEL#", true),
		RST:   NewPin(log, "RST#", true),
		GNT:   NewPin(log, "GNT#", true),
		REQ:   NewPin(log, "REQ#", true),

		Frame:  pci.NewControlLine(h.frame),
		Irdy:   pci.NewControlLine(h.irdy),
		Trdy:   pci.NewControlLine(h.trdy),
		Devsel: pci.NewControlLine(h.devsel),
		Stop:   pci.NewControlLine(h.stop),
	}

	h.Target.Attach(h.clk, h.frame, h.irdy, h.devsel, h.trdy, h.stop, h.ad, h.cbe, h.par)

	return h
}
