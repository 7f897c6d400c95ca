package pcitest

// MockTarget is a synchronous fake PCI target: a tiny state machine driven
// entirely from ClockPin's rising-edge callback, reacting to FRAME#/IRDY#
// and driving DEVSEL#/TRDY#/STOP#/AD/PAR the way a real target would, at
// cycle counts the test configures. It gives the transaction-engine tests
// control over every timing-dependent branch in Bus.Perform without any
// real target hardware.
type MockTarget struct {
	// DevselAfter is the number of CLK rising edges after FRAME# is first
	// observed asserted at which DEVSEL# is asserted. Zero means the
	// target never claims the cycle (master abort).
	DevselAfter int

	// TrdyAfter is the number of CLK rising edges after DEVSEL# is
	// asserted at which TRDY# is asserted. If AbortAt is also set,
	// whichever of the two counts is reached first takes effect
	// (AbortAt wins a tie).
	TrdyAfter int

	// AbortAt, if non-zero, is the number of CLK rising edges after
	// DEVSEL# is asserted at which the target asserts STOP# instead of
	// TRDY#. If KeepDevsel is also set, DEVSEL# stays asserted alongside
	// STOP# (target-retry); otherwise DEVSEL# is withdrawn in the same
	// edge (target-abort).
	AbortAt    int
	KeepDevsel bool

	// ReadData is driven onto AD once TRDY# is asserted, for a read
	// command. BadParity flips the PAR bit driven alongside it, to
	// exercise the master's read-completion parity check.
	ReadData  uint32
	BadParity bool

	// Store, if non-nil, turns the target into a simple word store keyed
	// by the address latched during the address phase: a write replaces
	// the whole stored word with the AD value, whatever the byte enables,
	// and a read returns the stored word if the address is present
	// (falling back to ReadData otherwise).
	Store map[uint32]uint32

	frame, irdy          *Pin
	devsel, trdy, stop   *Pin
	ad                   *ADBus
	cbe                  *CBEBus
	par                  *Pin

	phase          targetPhase
	edge           int
	latchedAddr    uint32
	latchedCommand uint8
	claimed        bool
}

type targetPhase int

const (
	phaseIdle targetPhase = iota
	phaseWaitDevsel
	phaseWaitTrdy
	phaseDone
)

// Attach wires the target to a bus's fake pins. The transaction address is
// read back from AD during the address phase (the test already knows it, since it is the one
// issuing the transaction, but latching it here keeps the Store path
// realistic: the target decodes it off AD itself).
func (t *MockTarget) Attach(clk *ClockPin, frame, irdy, devsel, trdy, stop *Pin, ad *ADBus, cbe *CBEBus, par *Pin) {
	t.frame, t.irdy = frame, irdy
	t.devsel, t.trdy, t.stop = devsel, trdy, stop
	t.ad, t.cbe, t.par = ad, cbe, par
	clk.OnEdge(t.onEdge)
}

func (t *MockTarget) onEdge(rising bool) {
	if !rising {
		return
	}

	switch t.phase {
	case phaseIdle:
		if t.frame.Value() == false { // FRAME# asserted (active low)
			t.latchedAddr = t.ad.Get()
			t.latchedCommand = t.cbe.Current()
			t.phase = phaseWaitDevsel
			t.edge = 0
		}

	case phaseWaitDevsel:
		t.edge++
		if t.DevselAfter > 0 && t.edge == t.DevselAfter {
			t.devsel.DriveAsTarget(true)
			t.claimed = true
			t.phase = phaseWaitTrdy
			t.edge = 0
		}

	case phaseWaitTrdy:
		t.edge++
		if t.AbortAt > 0 && t.edge == t.AbortAt {
			t.stop.DriveAsTarget(true)
			if !t.KeepDevsel {
				t.devsel.ReleaseAsTarget()
			}
			t.phase = phaseDone
			return
		}
		if t.TrdyAfter > 0 && t.edge == t.TrdyAfter {
			t.driveCompletion()
			t.trdy.DriveAsTarget(true)
			t.phase = phaseDone
		}

	case phaseDone:
		if t.frame.Value() == true && t.irdy.Value() == true {
			// Master has returned to Idle; release everything this
			// target was driving.
			t.devsel.ReleaseAsTarget()
			t.trdy.ReleaseAsTarget()
			t.stop.ReleaseAsTarget()
			t.ad.ReleaseAsTarget()
			t.par.ReleaseAsTarget()
			t.phase = phaseIdle
			t.claimed = false
		}
	}
}

// driveCompletion drives AD and PAR (on a read) or captures the written
// word into Store (on a write), once TRDY# is about to assert. The command
// latched during the address phase distinguishes the two: every write
// command this driver issues has its low bit set.
func (t *MockTarget) driveCompletion() {
	be := t.cbe.Current()

	if t.latchedCommand&1 == 1 {
		if t.Store != nil {
			t.Store[t.latchedAddr] = t.ad.Get()
		}
		return
	}

	data := t.ReadData
	if t.Store != nil {
		if v, ok := t.Store[t.latchedAddr]; ok {
			data = v
		}
	}

	t.ad.DriveAsTarget(data)

	parity := parityOf(data) != parityOf(uint32(be))
	if t.BadParity {
		parity = !parity
	}
	// DriveAsTarget takes an active-low "asserted" flag; PAR is driven
	// high exactly when parity is true.
	t.par.DriveAsTarget(!parity)
}

// parityOf computes the same value as bits.Parity (true for an odd number
// of set bits) with its own bit-by-bit loop instead of calling bits.Parity.
func parityOf(v uint32) bool {
	count := 0
	for v != 0 {
		count += int(v & 1)
		v >>= 1
	}
	return count%2 == 1
}

// Claimed reports whether the target has claimed the current transaction
// (asserted DEVSEL#) and not yet seen the master return to Idle. It stays
// true after DEVSEL# is withdrawn for a target abort.
func (t *MockTarget) Claimed() bool {
	return t.claimed
}
