package hw

import (
	"image"
)

// PeekNametable returns the content of nametable n (0-3), as seen from the PPU
// bus, without side effects.
func (p *PPU) PeekNametable(n int) [0x400]byte {
	var nt [0x400]byte
	base := 0x2000 + uint16(n&3)*0x400
	for i := range nt {
		nt[i] = p.Bus.Peek8(base + uint16(i))
	}
	return nt
}

// PeekOAM returns a copy of the primary OAM.
func (p *PPU) PeekOAM() [0x100]byte {
	return p.oamMem
}

// PatternTable renders the pattern table tbl (0 or 1) into a 128x128 image
// (16x16 tiles), with the colors of the given palette (0-7).
func (p *PPU) PatternTable(tbl, palidx int, pal *Palette) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 128, 128))
	base := uint16(tbl&1) << 12
	palbase := uint16(palidx&7) << 2

	for tile := range uint16(256) {
		tx, ty := int(tile%16)*8, int(tile/16)*8
		for row := range uint16(8) {
			addr := base | tile<<4 | row
			lo := p.Bus.Peek8(addr)
			hi := p.Bus.Peek8(addr + 8)
			for col := range 8 {
				shift := 7 - col
				px := (hi>>shift)&1<<1 | (lo>>shift)&1
				idx := palbase | uint16(px)
				if px == 0 {
					idx = 0
				}
				img.SetRGBA(tx+col, ty+int(row), pal[p.Palettes.Data[idx]&0x3F])
			}
		}
	}
	return img
}

// Image returns the last rendered frame as an RGBA image.
func (p *PPU) Image(pal *Palette) *image.RGBA {
	return pal.Render(p.frame[:])
}
