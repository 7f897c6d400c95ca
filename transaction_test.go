package pci_test

import (
	"strings"
	"testing"

	pci "github.com/penma-contrib/softpci"
	"github.com/penma-contrib/softpci/pcitest"
)

// indexAfter returns the index of the first entry in entries, at or after
// from, containing substr, or -1 if none matches.
func indexAfter(entries []string, substr string, from int) int {
	for i := from; i < len(entries); i++ {
		if strings.Contains(entries[i], substr) {
			return i
		}
	}
	return -1
}

func TestMasterAbort(t *testing.T) {
	h := pcitest.New() // DevselAfter left zero: no target ever claims

	h.Bus.Init(8)

	val, err := h.Bus.Perform(0x100, pci.CommandConfigRead, pci.ByteEnableAll, 0, pci.Read)
	if err != pci.ErrMasterAbort {
		t.Fatalf("err = %v, want ErrMasterAbort", err)
	}
	if val != 0xffffffff {
		t.Errorf("val = 0x%08x, want 0xffffffff", val)
	}

	// The trace must show phase-1 (driven high) then phase-2 (released to
	// input) deassertion of both IRDY# and FRAME#, in that order.
	entries := h.Log.Entries()
	for _, name := range []string{"FRAME#", "IRDY#"} {
		asserted := indexAfter(entries, name+" = low", 0)
		if asserted < 0 {
			t.Fatalf("%s was never asserted", name)
		}
		phase1 := indexAfter(entries, name+" = high", asserted)
		if phase1 < 0 {
			t.Fatalf("%s: no phase-1 (drive-high) deassert after assertion", name)
		}
		phase2 := indexAfter(entries, name+" -> input", phase1)
		if phase2 < 0 {
			t.Fatalf("%s: no phase-2 (release to input) deassert after phase-1", name)
		}
	}

	// A configuration cycle raises IDSEL during the address phase, lowers
	// it for the remainder of the transaction, and the recovered bus must
	// leave it high again, restoring the Idle bus-ownership state, before
	// Perform returns.
	lastIDSEL := -1
	for i, e := range entries {
		if strings.Contains(e, "IDSEL#") {
			lastIDSEL = i
		}
	}
	if lastIDSEL < 0 {
		t.Fatal("IDSEL# never appears in the trace")
	}
	if !strings.Contains(entries[lastIDSEL], "high") {
		t.Errorf("IDSEL# not left high after a recovered master abort; last IDSEL# entry = %q", entries[lastIDSEL])
	}

	// The bus must be fully recovered: a second transaction must behave
	// identically rather than jamming.
	val, err = h.Bus.Perform(0x100, pci.CommandIORead, pci.ByteEnableAll, 0, pci.Read)
	if err != pci.ErrMasterAbort {
		t.Fatalf("second attempt: err = %v, want ErrMasterAbort", err)
	}
	if val != 0xffffffff {
		t.Errorf("second attempt: val = 0x%08x, want 0xffffffff", val)
	}
}

func TestTargetAbort(t *testing.T) {
	h := pcitest.New()
	// DEVSEL# claims the cycle, then is withdrawn alongside STOP# partway
	// through the TRDY# wait: target-abort, not target-retry.
	h.Target.DevselAfter = 1
	h.Target.AbortAt = 3

	h.Bus.Init(8)

	val, err := h.Bus.Perform(0x100, pci.CommandIORead, pci.ByteEnableAll, 0, pci.Read)
	if err != pci.ErrTargetAbort {
		t.Fatalf("err = %v, want ErrTargetAbort", err)
	}
	if val != 0xffffffff {
		t.Errorf("val = 0x%08x, want 0xffffffff", val)
	}
}

func TestTargetRetryIsFatal(t *testing.T) {
	h := pcitest.New()
	// DEVSEL# stays asserted alongside STOP#: a target retry, which this
	// single-pass master does not implement and treats as fatal.
	h.Target.DevselAfter = 1
	h.Target.AbortAt = 3
	h.Target.KeepDevsel = true

	h.Bus.Init(8)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("target retry did not panic")
		}
		if !strings.Contains(r.(string), "retry") {
			t.Errorf("panic message = %q, want mention of retry", r)
		}
	}()

	h.Bus.Perform(0x100, pci.CommandIORead, pci.ByteEnableAll, 0, pci.Read)
}

func TestReadParityErrorIsFatal(t *testing.T) {
	h := pcitest.New()
	h.Target.DevselAfter = 1
	h.Target.TrdyAfter = 1
	h.Target.ReadData = 0xaaaaaaaa
	h.Target.BadParity = true

	h.Bus.Init(8)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("bad read parity did not panic")
		}
		if !strings.Contains(r.(string), "parity") {
			t.Errorf("panic message = %q, want mention of parity", r)
		}
	}()

	h.Bus.Perform(0x100, pci.CommandMemoryRead, pci.ByteEnableAll, 0, pci.Read)
}

func TestReadParityTiming(t *testing.T) {
	h := pcitest.New()
	h.Target.DevselAfter = 1
	h.Target.TrdyAfter = 1
	h.Target.ReadData = 0xdeadbeef

	h.Bus.Init(8)

	val, err := h.Bus.Perform(0x100, pci.CommandMemoryRead, pci.ByteEnableAll, 0, pci.Read)
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if val != 0xdeadbeef {
		t.Fatalf("val = 0x%08x, want 0xdeadbeef", val)
	}

	// The target drives AD and PAR together, but the master samples AD
	// immediately (the same clock TRDY# asserts) and only checks PAR a
	// full clock later, after one more CLK pulse spent completing the
	// data phase: exactly two "CLK high" edges must separate the AD
	// drive from the master releasing IRDY# and PAR back to input once
	// its check is done (IRDY#'s release, logged just before PAR's in the
	// same clock, marks that point).
	entries := h.Log.Entries()
	adIdx := -1
	for i, e := range entries {
		if strings.Contains(e, "AD: target drives 0xdeadbeef") {
			adIdx = i
		}
	}
	if adIdx < 0 {
		t.Fatal("AD target drive of the read data never appears in the trace")
	}

	irdyReleaseIdx := indexAfter(entries, "IRDY# -> input", adIdx)
	if irdyReleaseIdx < 0 {
		t.Fatal("IRDY# never released to input after the read completes")
	}

	clkHighs := 0
	for _, e := range entries[adIdx:irdyReleaseIdx] {
		if strings.Contains(e, "CLK high") {
			clkHighs++
		}
	}
	if clkHighs != 2 {
		t.Errorf("CLK high edges between AD drive and IRDY# release = %d, want 2 (one clock of gap before PAR is sampled, then one more before release)", clkHighs)
	}
}

func TestIdleViolationIsFatal(t *testing.T) {
	h := pcitest.New()
	h.Target.DevselAfter = 1
	h.Target.TrdyAfter = 1

	h.Bus.Init(8)

	// Force FRAME# asserted on what the engine believes is an idle bus.
	h.Bus.Frame.Assert()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("starting a transaction with FRAME# already asserted did not panic")
		}
		if !strings.Contains(r.(string), "FRAME#") {
			t.Errorf("panic message = %q, want mention of FRAME#", r)
		}
	}()

	h.Bus.Perform(0x100, pci.CommandIORead, pci.ByteEnableAll, 0, pci.Read)
}
