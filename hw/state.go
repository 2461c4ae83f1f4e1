package hw

import (
	"fmt"

	"nesppu/hw/hwdefs"
	"nesppu/hw/snapshot"
)

func (p *PPU) SaveState(s *snapshot.PPU) {
	s.Nametables = p.Nametables
	copy(s.Palette[:], p.Palettes.Data)
	s.OAMMem = p.oamMem

	for i, spr := range p.sprites {
		s.OAM[i] = snapshot.Sprite{
			ID:    spr.id,
			X:     spr.x,
			Y:     spr.y,
			Tile:  spr.tile,
			Attr:  spr.attr.val(),
			DataL: spr.lo,
			DataH: spr.hi,
		}
	}
	s.NumSprites = p.nsprites

	s.OpenBus = p.openBus
	s.OpenBusDecay = p.openBusDecay

	s.BusAddr = p.busAddr
	s.OAMAddr = p.oamAddr
	s.VRAMAddr = p.vramAddr.val()
	s.VRAMTemp = p.vramTmp.val()
	s.WriteLatch = p.writeLatch
	s.PPUDataBuf = p.ppuDataRbuf

	s.PPUBgRegs = snapshot.PPUBgRegs{
		Finex:     p.bg.finex,
		NT:        p.bg.nt,
		AT:        p.bg.at,
		BgLo:      p.bg.lo,
		BgHi:      p.bg.hi,
		BgShiftLo: p.bg.shiftLo,
		BgShiftHi: p.bg.shiftHi,
		ATShiftLo: p.bg.atShiftLo,
		ATShiftHi: p.bg.atShiftHi,
	}

	s.PPUCTRL = p.ctrl.val()
	s.PPUMASK = p.mask.val()
	s.PPUSTATUS = p.status.val()

	s.Clock = p.Clock
	s.Cycle = p.Cycle
	s.Scanline = p.Scanline
	s.FrameCount = p.FrameCount
	s.OddFrame = p.oddFrame
	s.PreventVBlank = p.preventVBlank
}

// LoadState restores the PPU from s. The PPU is left untouched if s holds an
// out of range position or sprite count.
func (p *PPU) LoadState(s *snapshot.PPU) error {
	switch {
	case s.Scanline < 0 || s.Scanline >= hwdefs.NumScanlines:
		return fmt.Errorf("invalid scanline %d", s.Scanline)
	case s.Cycle < 0 || s.Cycle >= hwdefs.NumDots:
		return fmt.Errorf("invalid dot %d", s.Cycle)
	case s.NumSprites < 0 || s.NumSprites > len(p.sprites):
		return fmt.Errorf("invalid sprite count %d", s.NumSprites)
	}

	p.Nametables = s.Nametables
	copy(p.Palettes.Data, s.Palette[:])
	p.oamMem = s.OAMMem

	for i, spr := range s.OAM {
		p.sprites[i] = sprite{
			id:   spr.ID,
			x:    spr.X,
			y:    spr.Y,
			tile: spr.Tile,
			attr: spriteAttr(spr.Attr),
			lo:   spr.DataL,
			hi:   spr.DataH,
		}
	}
	p.nsprites = s.NumSprites

	p.openBus = s.OpenBus
	p.openBusDecay = s.OpenBusDecay

	p.busAddr = s.BusAddr
	p.oamAddr = s.OAMAddr
	p.vramAddr.setVal(s.VRAMAddr)
	p.vramTmp.setVal(s.VRAMTemp)
	p.writeLatch = s.WriteLatch
	p.ppuDataRbuf = s.PPUDataBuf

	p.bg = bgRegs{
		finex:     s.PPUBgRegs.Finex & 7,
		nt:        s.PPUBgRegs.NT,
		at:        s.PPUBgRegs.AT,
		lo:        s.PPUBgRegs.BgLo,
		hi:        s.PPUBgRegs.BgHi,
		shiftLo:   s.PPUBgRegs.BgShiftLo,
		shiftHi:   s.PPUBgRegs.BgShiftHi,
		atShiftLo: s.PPUBgRegs.ATShiftLo,
		atShiftHi: s.PPUBgRegs.ATShiftHi,
	}

	p.ctrl = ppuctrl(s.PPUCTRL)
	p.mask = ppumask(s.PPUMASK)
	p.status = ppustatus(s.PPUSTATUS)
	p.PPUCTRL.Value = s.PPUCTRL
	p.PPUMASK.Value = s.PPUMASK

	p.Clock = s.Clock
	p.Cycle = s.Cycle
	p.Scanline = s.Scanline
	p.FrameCount = s.FrameCount
	p.oddFrame = s.OddFrame
	p.preventVBlank = s.PreventVBlank
	return nil
}

func (b *CPUBus) SaveState(s *snapshot.NES) {
	s.Cycles = b.Cycles
	copy(s.RAM[:], b.RAM.Data)
	s.NMIFlag = b.nmiFlag
	s.PrevNMIFlag = b.prevNmiFlag
	s.IRQFlag = uint8(b.irqFlag)
	s.OpenBus = b.openBus
	b.PPUDMA.saveState(&s.DMA)
}

func (b *CPUBus) LoadState(s *snapshot.NES) {
	b.Cycles = s.Cycles
	copy(b.RAM.Data, s.RAM[:])
	b.nmiFlag = s.NMIFlag
	b.prevNmiFlag = s.PrevNMIFlag
	b.irqFlag = hwdefs.IRQSource(s.IRQFlag)
	b.openBus = s.OpenBus
	b.PPUDMA.loadState(&s.DMA)
}
