package hwio

// Reverse8 reverses the bit order of v (used for horizontally flipped
// sprites).
func Reverse8(v uint8) uint8 {
	v = (v&0xF0)>>4 | (v&0x0F)<<4
	v = (v&0xCC)>>2 | (v&0x33)<<2
	v = (v&0xAA)>>1 | (v&0x55)<<1
	return v
}
