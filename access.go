package pci

// computeAccess chooses the (effective address, byte-enable, shift) tuple
// for a sub-32-bit transfer of the given width (in bytes) at address.
// width 4 is always aligned and always selects every lane.
func computeAccess(address uint32, width int) (effective uint32, be ByteEnable, shift uint) {
	lane := address & 0b11

	switch width {
	case 4:
		return address, ByteEnableAll, 0

	case 2:
		switch lane {
		case 0b00:
			return address, 0b1100, 0
		case 0b10:
			return address &^ 0b11, 0b0011, 16
		default:
			return 0, 0, 0 // unaligned, caller handles
		}

	case 1:
		shifts := [4]uint{0, 8, 16, 24}
		masks := [4]ByteEnable{0b1110, 0b1101, 0b1011, 0b0111}
		return address &^ 0b11, masks[lane], shifts[lane]

	default:
		panic("pci: invalid access width")
	}
}

func (b *Bus) read(address uint32, width int, cmd Command) uint32 {
	if width == 2 && address&0b01 != 0 {
		b.Fault(faultUnalignedAccess)
	}

	effective, be, shift := computeAccess(address, width)

	val, err := b.Perform(effective, cmd, be, 0, Read)
	if err != nil {
		return 0xffffffff
	}

	return (val >> shift) & widthMask(width)
}

func (b *Bus) write(address uint32, width int, value uint32, cmd Command) {
	if width == 2 && address&0b01 != 0 {
		b.Fault(faultUnalignedAccess)
	}

	effective, be, shift := computeAccess(address, width)

	b.Perform(effective, cmd, be, (value&widthMask(width))<<shift, Write)
}

func widthMask(width int) uint32 {
	switch width {
	case 1:
		return 0xff
	case 2:
		return 0xffff
	default:
		return 0xffffffff
	}
}

// Configuration access. Offset is the low 8 bits of the configuration
// address; this single-slot driver uses IDSEL in place of a device-select
// mechanism, so there is no Type-0 header to assemble.

func (b *Bus) ConfigRead32(offset uint8) uint32 {
	return b.read(uint32(offset), 4, CommandConfigRead)
}

func (b *Bus) ConfigWrite8(offset uint8, value uint8) {
	b.write(uint32(offset), 1, uint32(value), CommandConfigWrite)
}

func (b *Bus) ConfigWrite16(offset uint8, value uint16) {
	b.write(uint32(offset), 2, uint32(value), CommandConfigWrite)
}

func (b *Bus) ConfigWrite32(offset uint8, value uint32) {
	b.write(uint32(offset), 4, value, CommandConfigWrite)
}

// I/O space access.

func (b *Bus) IORead8(address uint32) uint8 {
	return uint8(b.read(address, 1, CommandIORead))
}

func (b *Bus) IORead16(address uint32) uint16 {
	return uint16(b.read(address, 2, CommandIORead))
}

func (b *Bus) IORead32(address uint32) uint32 {
	return b.read(address, 4, CommandIORead)
}

func (b *Bus) IOWrite8(address uint32, value uint8) {
	b.write(address, 1, uint32(value), CommandIOWrite)
}

func (b *Bus) IOWrite16(address uint32, value uint16) {
	b.write(address, 2, uint32(value), CommandIOWrite)
}

func (b *Bus) IOWrite32(address uint32, value uint32) {
	b.write(address, 4, value, CommandIOWrite)
}

// Memory space access.

func (b *Bus) MemRead8(address uint32) uint8 {
	return uint8(b.read(address, 1, CommandMemoryRead))
}

func (b *Bus) MemRead16(address uint32) uint16 {
	return uint16(b.read(address, 2, CommandMemoryRead))
}

func (b *Bus) MemRead32(address uint32) uint32 {
	return b.read(address, 4, CommandMemoryRead)
}

func (b *Bus) MemWrite8(address uint32, value uint8) {
	b.write(address, 1, uint32(value), CommandMemoryWrite)
}

func (b *Bus) MemWrite16(address uint32, value uint16) {
	b.write(address, 2, uint32(value), CommandMemoryWrite)
}

func (b *Bus) MemWrite32(address uint32, value uint32) {
	b.write(address, 4, value, CommandMemoryWrite)
}
