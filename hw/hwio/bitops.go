package hwio

// 16-bit operations
func GetBit16(v uint16, n uint) bool {
	return GetBiti16(v, n) != 0
}

func GetBiti16(v uint16, n uint) uint16 {
	return v >> (n) & 0x01
}

// SetClr applies the set/clear-strobe write convention of control registers
// (DMA control, interrupt enable/request): bit 15 of val selects whether the
// remaining bits are set into or cleared from old.
func SetClr(old, val uint16) uint16 {
	bits := val & 0x7FFF
	if val&0x8000 != 0 {
		return old | bits
	}
	return old &^ bits
}
