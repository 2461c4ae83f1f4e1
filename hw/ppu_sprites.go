package hw

import (
	"nesppu/emu/log"
	"nesppu/hw/hwio"
)

// sprite is an entry of the secondary OAM, that is one of the 8 sprites of a
// scanline, with its pattern data.
type sprite struct {
	id   uint8 // index in OAM
	x    uint8
	y    uint8
	tile uint8
	attr spriteAttr

	// pattern data, already flipped horizontally if needed.
	lo, hi uint8
}

func (p *PPU) spriteHeight() int {
	if p.ctrl.spriteSize() {
		return 16
	}
	return 8
}

// evalSprites selects the sprites to draw on the next scanline.
func (p *PPU) evalSprites() {
	h := p.spriteHeight()
	line := p.Scanline

	inRange := func(y uint8) bool {
		row := line - int(y)
		return row >= 0 && row < h
	}

	p.nsprites = 0
	n := 0
	for ; n < 64 && p.nsprites < 8; n++ {
		oam := p.oamMem[n*4 : n*4+4]
		if !inRange(oam[0]) {
			continue
		}
		p.sprites[p.nsprites] = sprite{
			id:   uint8(n),
			y:    oam[0],
			tile: oam[1],
			attr: spriteAttr(oam[2]),
			x:    oam[3],
		}
		p.nsprites++
	}

	// Once 8 sprites have been found, the PPU keeps on looking for a 9th one
	// to set the overflow flag. Due to a hardware bug, the byte offset is
	// incremented along with the sprite index, so that the PPU reads tile
	// numbers, attributes and X coordinates as if they were Y coordinates.
	m := 0
	for ; n < 64; n++ {
		if inRange(p.oamMem[n*4+m]) {
			p.status.setSpriteOverflow(true)
			log.ModPPU.DebugZ("sprite overflow").Int("sprite", n).End()
			break
		}
		m = (m + 1) & 3
	}
}

// fetchSprites performs the sprite pattern fetches of the given dot, in
// 257-320. Each of the 8 slots takes 8 dots, unused slots fetch tile $FF.
func (p *PPU) fetchSprites(dot int) {
	slot := (dot - 257) / 8

	var kind FetchKind
	switch (dot - 257) & 7 {
	case 4:
		kind = FetchSpriteLow
	case 6:
		kind = FetchSpriteHigh
	default:
		return
	}

	if slot >= p.nsprites {
		addr := p.spritePatternAddr(&sprite{tile: 0xFF}, 0)
		if kind == FetchSpriteHigh {
			addr += 8
		}
		p.fetch(addr, kind)
		return
	}

	s := &p.sprites[slot]
	addr := p.spritePatternAddr(s, p.Scanline-int(s.y))
	if kind == FetchSpriteHigh {
		addr += 8
	}
	val := p.fetch(addr, kind)
	if s.attr.hflip() {
		val = hwio.Reverse8(val)
	}
	if kind == FetchSpriteLow {
		s.lo = val
	} else {
		s.hi = val
	}
}

func (p *PPU) spritePatternAddr(s *sprite, row int) uint16 {
	if p.ctrl.spriteSize() {
		if s.attr.vflip() {
			row = 15 - row
		}
		// 8x16 sprites take their pattern table from bit 0 of the tile index.
		tbl := uint16(s.tile&1) << 12
		tile := uint16(s.tile &^ 1)
		if row > 7 {
			tile++
			row -= 8
		}
		return tbl | tile<<4 | uint16(row)
	}

	if s.attr.vflip() {
		row = 7 - row
	}
	return p.ctrl.spriteTable()<<12 | uint16(s.tile)<<4 | uint16(row)
}

// spritePixel returns the first opaque sprite pixel at x on the current line.
func (p *PPU) spritePixel(x int) (px, pal uint8, behind, sprite0 bool) {
	for i := range p.nsprites {
		s := &p.sprites[i]
		off := x - int(s.x)
		if off < 0 || off > 7 {
			continue
		}
		shift := 7 - off
		px = (s.hi>>shift)&1<<1 | (s.lo>>shift)&1
		if px == 0 {
			continue
		}
		return px, s.attr.palette(), s.attr.behindBg(), s.id == 0
	}
	return 0, 0, false, false
}
