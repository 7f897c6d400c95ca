// Package pcitest provides a recording, fully in-process fake PCI
// substrate for testing the engine in package pci without any real GPIO
// hardware. It is modeled on the fake-pin approach of
// periph.io/x/periph/conn/gpio/gpiotest ("use it to fake edges" by
// mutating exported fields the test controls), generalized with a shared
// clock-indexed Log so every pin transition can be asserted against (the
// "recording substrate that logs every pin assertion with a clock index"
// a correctness test suite for this driver needs).
package pcitest

import (
	"fmt"
	"sync"

	"github.com/penma-contrib/softpci/bits"
)

// Log accumulates a clock-indexed trace of every pin transition driven by
// the bus under test, plus the current clock tick, shared by every Pin,
// ClockPin and bus mock created against it.
type Log struct {
	mu      sync.Mutex
	tick    int
	entries []string
}

// NewLog returns an empty, tick-zero log.
func NewLog() *Log {
	return &Log{}
}

func (l *Log) record(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf("t=%d: "+format, append([]interface{}{l.tick}, args...)...))
}

// Tick returns the current clock tick (incremented on every CLK rising
// edge).
func (l *Log) Tick() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tick
}

// Entries returns a snapshot of the recorded trace, in order.
func (l *Log) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Pin is a single-bit recording fake implementing pci.Pin. It tracks the
// direction and level the bus under test has driven it to, and separately
// allows a test-controlled "other bus participant" (a MockTarget) to drive
// or release the same line, simulating a shared, open-collector-style PCI
// signal with a pull resistor.
type Pin struct {
	log  *Log
	name string

	// idleHigh is the level read back when nobody (neither the bus under
	// test nor a target) is driving the line: true for lines with a
	// pull-up (the shared control lines, IDSEL's own net), false for
	// lines with no pull (AD, PAR, C/BE on this bus).
	idleHigh bool

	mu            sync.Mutex
	dir           string // "in" or "out", from the bus-under-test's perspective
	level         bool
	targetDriving bool
	targetLevel   bool
}

// NewPin returns a fake pin. idleHigh selects the floating read-back level.
func NewPin(log *Log, name string, idleHigh bool) *Pin {
	return &Pin{log: log, name: name, idleHigh: idleHigh, dir: "in"}
}

func (p *Pin) Out() {
	p.mu.Lock()
	p.dir = "out"
	p.mu.Unlock()
	p.log.record("%s -> output", p.name)
}

func (p *Pin) In() {
	p.mu.Lock()
	p.dir = "in"
	p.mu.Unlock()
	p.log.record("%s -> input", p.name)
}

func (p *Pin) High() {
	p.mu.Lock()
	wasOut := p.dir == "out"
	p.level = true
	p.mu.Unlock()
	if !wasOut {
		p.log.record("%s: High() called while not in output mode", p.name)
	}
	p.log.record("%s = high", p.name)
}

func (p *Pin) Low() {
	p.mu.Lock()
	wasOut := p.dir == "out"
	p.level = false
	p.mu.Unlock()
	if !wasOut {
		p.log.record("%s: Low() called while not in output mode", p.name)
	}
	p.log.record("%s = low", p.name)
}

// Value samples the line exactly as a real GPIO input would: the
// bus-under-test's own driven level if it is currently an output,
// otherwise whatever a target is driving, otherwise the floating level.
func (p *Pin) Value() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dir == "out" {
		return p.level
	}
	if p.targetDriving {
		return p.targetLevel
	}
	return p.idleHigh
}

// DriveAsTarget simulates a target device asserting (if asserted is true,
// driving the line low) or releasing-high this line, independent of
// whatever the bus under test is doing with it. It must only be called
// while the bus under test has released the line (direction "in"); callers
// that violate this represent bus contention and it is recorded as such.
func (p *Pin) DriveAsTarget(asserted bool) {
	p.mu.Lock()
	if p.dir == "out" {
		p.mu.Unlock()
		p.log.record("%s: target drove while master still output (contention)", p.name)
		return
	}
	p.targetDriving = true
	p.targetLevel = !asserted
	p.mu.Unlock()
	p.log.record("%s: target drives %v", p.name, asserted)
}

// ReleaseAsTarget stops the target from driving this line.
func (p *Pin) ReleaseAsTarget() {
	p.mu.Lock()
	p.targetDriving = false
	p.mu.Unlock()
	p.log.record("%s: target releases", p.name)
}

// ClockPin is the fake CLK line. Besides implementing pci.Pin, every
// rising edge (High) advances the shared Log's clock tick and, if set,
// notifies an attached target so it can react synchronously, the way a
// real PCI target's own state machine reacts to the shared bus clock.
type ClockPin struct {
	log    *Log
	onEdge func(rising bool)
}

// NewClockPin returns a fake CLK pin bound to log.
func NewClockPin(log *Log) *ClockPin {
	return &ClockPin{log: log}
}

// OnEdge registers a callback invoked on every CLK transition this pin
// drives, after the tick counter (for rising edges) has been updated.
func (c *ClockPin) OnEdge(f func(rising bool)) {
	c.onEdge = f
}

func (c *ClockPin) Out() {}
func (c *ClockPin) In()  {}

func (c *ClockPin) High() {
	c.log.mu.Lock()
	c.log.tick++
	c.log.mu.Unlock()
	c.log.record("CLK high")
	if c.onEdge != nil {
		c.onEdge(true)
	}
}

func (c *ClockPin) Low() {
	c.log.record("CLK low")
	if c.onEdge != nil {
		c.onEdge(false)
	}
}

func (c *ClockPin) Value() bool { return false }

// ADBus is the fake 32-bit multiplexed address/data bus.
type ADBus struct {
	log *Log

	mu            sync.Mutex
	driving       bool
	value         uint32
	targetDriving bool
	targetValue   uint32
}

// NewADBus returns a fake AD bus bound to log.
func NewADBus(log *Log) *ADBus {
	return &ADBus{log: log}
}

func (a *ADBus) OutputMode() {
	a.mu.Lock()
	a.driving = true
	a.mu.Unlock()
	a.log.record("AD -> output")
}

func (a *ADBus) Tristate() {
	a.mu.Lock()
	a.driving = false
	a.mu.Unlock()
	a.log.record("AD -> tristate")
}

func (a *ADBus) Set(v uint32) {
	a.mu.Lock()
	driving := a.driving
	a.value = v
	a.mu.Unlock()
	if !driving {
		a.log.record("AD: Set(0x%08x) called while not in output mode", v)
	}
	a.log.record("AD = 0x%08x", v)
}

func (a *ADBus) Get() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.driving {
		return a.value
	}
	if a.targetDriving {
		return a.targetValue
	}
	return 0xffffffff
}

// DriveAsTarget simulates a target driving v onto AD.
func (a *ADBus) DriveAsTarget(v uint32) {
	a.mu.Lock()
	contended := a.driving
	a.targetDriving = true
	a.targetValue = v
	a.mu.Unlock()
	if contended {
		a.log.record("AD: target drove while master still output (contention)")
	}
	a.log.record("AD: target drives 0x%08x", v)
}

// ReleaseAsTarget stops the target from driving AD.
func (a *ADBus) ReleaseAsTarget() {
	a.mu.Lock()
	a.targetDriving = false
	a.mu.Unlock()
	a.log.record("AD: target releases")
}

// CBEBus is the fake 4-bit command/byte-enable bus.
type CBEBus struct {
	log *Log

	mu      sync.Mutex
	driving bool
	value   uint8
}

// NewCBEBus returns a fake C/BE bus bound to log.
func NewCBEBus(log *Log) *CBEBus {
	return &CBEBus{log: log}
}

func (c *CBEBus) OutputMode() {
	c.mu.Lock()
	c.driving = true
	c.mu.Unlock()
	c.log.record("C/BE -> output")
}

func (c *CBEBus) Tristate() {
	c.mu.Lock()
	c.driving = false
	c.mu.Unlock()
	c.log.record("C/BE -> tristate")
}

func (c *CBEBus) Set(v uint8) {
	c.mu.Lock()
	c.value = uint8(bits.Get(uint32(v), 0, 0b1111))
	c.mu.Unlock()
	c.log.record("C/BE = 0x%x", v&0b1111)
}

// Current returns the last value driven onto C/BE, for a MockTarget's use;
// it is not part of the pci.CBEBus interface.
func (c *CBEBus) Current() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}
