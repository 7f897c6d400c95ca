package pci_test

import (
	"strings"
	"testing"

	"github.com/penma-contrib/softpci/pcitest"
)

func TestProbeConfig(t *testing.T) {
	h := pcitest.New()
	h.Target.DevselAfter = 1
	h.Target.TrdyAfter = 1
	h.Target.ReadData = 0x12345678

	h.Bus.Init(8)

	hdr, ok := h.Bus.ProbeConfig()
	if !ok {
		t.Fatal("ProbeConfig reported no device present")
	}
	if hdr.Vendor != 0x5678 {
		t.Errorf("vendor = 0x%04x, want 0x5678", hdr.Vendor)
	}
	if hdr.Device != 0x1234 {
		t.Errorf("device = 0x%04x, want 0x1234", hdr.Device)
	}

	// ProbeConfig issues two separate configuration reads; IDSEL must be
	// raised again for the second one rather than staying low from the
	// first.
	raises := 0
	for _, e := range h.Log.Entries() {
		if strings.Contains(e, "IDSEL# = high") {
			raises++
		}
	}
	if raises < 3 { // Init's initial raise, plus one per ConfigRead32 call
		t.Errorf("IDSEL# = high logged %d times, want at least 3 (Init + two ConfigRead32 calls)", raises)
	}
}

func TestProbeConfigNoDevice(t *testing.T) {
	h := pcitest.New() // DevselAfter left zero: nothing ever claims the bus
	h.Bus.Init(8)

	_, ok := h.Bus.ProbeConfig()
	if ok {
		t.Fatal("ProbeConfig reported a device present with nothing attached")
	}
}

func TestInitRejectsNonPositiveWarmup(t *testing.T) {
	h := pcitest.New()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Init(0) did not panic")
		}
		if !strings.Contains(r.(string), "warm-up") {
			t.Errorf("panic message = %q, want mention of warm-up", r)
		}
	}()

	h.Bus.Init(0)
}

func TestIOReadWriteRoundTrip(t *testing.T) {
	h := pcitest.New()
	h.Target.DevselAfter = 1
	h.Target.TrdyAfter = 1
	h.Target.Store = map[uint32]uint32{}

	h.Bus.Init(8)

	h.Bus.IOWrite32(0x100, 0xdeadbeef)
	if got := h.Bus.IORead32(0x100); got != 0xdeadbeef {
		t.Errorf("IORead32 after IOWrite32 = 0x%08x, want 0xdeadbeef", got)
	}
}

func TestMemWriteByteLane(t *testing.T) {
	h := pcitest.New()
	h.Target.DevselAfter = 1
	h.Target.TrdyAfter = 1
	h.Target.Store = map[uint32]uint32{}

	h.Bus.Init(8)

	// Byte 3 of the word at 0x1000.
	h.Bus.MemWrite8(0x1003, 0xab)

	word := h.Target.Store[0x1000]
	if got := uint8(word >> 24); got != 0xab {
		t.Errorf("captured word = 0x%08x, byte 3 = 0x%02x, want 0xab", word, got)
	}
}

func TestUnalignedHalfwordAccessFaults(t *testing.T) {
	h := pcitest.New()
	h.Target.DevselAfter = 1
	h.Target.TrdyAfter = 1

	h.Bus.Init(8)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("IOWrite16 at an odd address did not panic")
		}
		if !strings.Contains(r.(string), "unaligned") {
			t.Errorf("panic message = %q, want mention of unaligned access", r)
		}
	}()

	h.Bus.IOWrite16(0x1001, 0x1234)
}
