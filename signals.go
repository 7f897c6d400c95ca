package pci

// Pin is the minimal GPIO capability the bus substrate requires of the
// underlying platform for a single-bit signal: direction control and level
// control/sensing. It mirrors the capability set already exposed by
// ordinary SoC GPIO drivers (Out/In for direction, High/Low for level,
// Value for sensing), generalized to an interface so the bus can be driven
// by a real pin binding or, in tests, by a recording fake.
//
// CLK and IDSEL only ever call Out/High/Low on their Pin (they are never
// tri-stated by this package during normal operation); PAR and the shared
// control lines use the full set.
type Pin interface {
	// Out configures the pin as an output.
	Out()
	// In configures the pin as an input (tri-state from this driver's
	// point of view).
	In()
	// High drives the pin high. The pin must be in output mode.
	High()
	// Low drives the pin low. The pin must be in output mode.
	Low()
	// Value returns the sensed level of the pin.
	Value() bool
}

// ADBus is the 32-bit multiplexed address/data bus.
type ADBus interface {
	// OutputMode configures all 32 lines as outputs.
	OutputMode()
	// Tristate configures all 32 lines as inputs with no pull resistors,
	// releasing the bus.
	Tristate()
	// Set drives the 32 lines with v. OutputMode must have been called.
	Set(v uint32)
	// Get samples the 32 lines.
	Get() uint32
}

// CBEBus is the 4-bit command/byte-enable bus.
type CBEBus interface {
	// OutputMode configures all 4 lines as outputs.
	OutputMode()
	// Tristate configures all 4 lines as inputs with no pull resistors.
	Tristate()
	// Set drives the low 4 bits of v onto the bus. OutputMode must have
	// been called.
	Set(v uint8)
}

// ControlLine implements the PCI three-step assert/deassert discipline for
// a sustained tri-state, active-low control signal (FRAME#, IRDY#, TRDY#,
// DEVSEL#, STOP#).
//
// PCI control lines are driven open-collector style with a weak pull-up.
// Asserting one means enabling it as an output and then driving it low (the
// pin is driven against its own pulled-up idle state for a moment). Only
// this package's shared FRAME#/IRDY#/TRDY#/DEVSEL#/STOP# lines use this
// discipline; releasing the line directly to input without first driving it
// high would let the weak pull-up alone pull the line high, which violates
// PCI rise-time requirements, so deassertion is always two steps.
//
// The five lines (FRAME#, IRDY#, TRDY#, DEVSEL#, STOP#) are each one
// ControlLine value wrapping their own Pin; this replaces the
// per-signal-macro duplication of the discipline with a single
// implementation reused five times.
type ControlLine struct {
	pin Pin
}

// NewControlLine wraps pin with the three-step assert/deassert discipline.
func NewControlLine(pin Pin) ControlLine {
	return ControlLine{pin: pin}
}

// Assert enables the line as an output and drives it low.
func (l ControlLine) Assert() {
	l.pin.Out()
	l.pin.Low()
}

// DeassertPhase1 drives the line high while still an output. It must be
// followed, at least one clock later, by DeassertPhase2.
func (l ControlLine) DeassertPhase1() {
	l.pin.High()
}

// DeassertPhase2 returns the line to input, releasing it to the pull-up.
func (l ControlLine) DeassertPhase2() {
	l.pin.In()
}

// IsAsserted samples the line. Active-low: asserted means the sensed level
// is low.
func (l ControlLine) IsAsserted() bool {
	return !l.pin.Value()
}
