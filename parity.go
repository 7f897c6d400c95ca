package pci

import "github.com/penma-contrib/softpci/bits"

// addressParity computes the PAR value to drive one clock after the
// address phase: even parity over address and command taken together,
// expressed (as the original firmware does) as the XOR of the two
// individual parities rather than a parity over the concatenated bits —
// the two are equivalent, since XOR of parities of two disjoint bit groups
// equals the parity of their union.
func addressParity(address uint32, command Command) bool {
	return bits.Parity(address) != bits.Parity(uint32(command))
}

// dataParity computes the PAR value that covers a data phase: even parity
// over the data word and the byte-enable mask driven during that phase.
func dataParity(data uint32, be ByteEnable) bool {
	return bits.Parity(data) != bits.Parity(uint32(be))
}
