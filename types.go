package pci

// Command is the 4-bit PCI bus command driven on C/BE during the address
// phase.
type Command uint8

// Commands this driver issues. PCI defines others (interrupt acknowledge,
// special cycle, memory read line/multiple, memory write-invalidate, dual
// address cycle); this single-master, non-bursting, 32-bit-AD driver never
// issues them.
const (
	CommandIORead      Command = 0b0010
	CommandIOWrite     Command = 0b0011
	CommandMemoryRead  Command = 0b0110
	CommandMemoryWrite Command = 0b0111
	CommandConfigRead  Command = 0b1010
	CommandConfigWrite Command = 0b1011
)

// ByteEnable is the active-low 4-bit lane mask driven on C/BE during the
// data phase: a cleared bit means the corresponding byte lane participates
// in the transfer.
type ByteEnable uint8

// ByteEnableAll selects all four byte lanes, used for 32-bit transfers.
const ByteEnableAll ByteEnable = 0b0000

// Mode selects the direction of a transaction.
type Mode int

const (
	Read Mode = iota
	Write
)
