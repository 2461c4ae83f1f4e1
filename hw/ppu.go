package hw

import (
	"nesppu/emu/log"
	"nesppu/hw/hwdefs"
	"nesppu/hw/hwio"
)

// Open bus bits decay after ~600ms without being refreshed.
const openBusDecayFrames = 36

type PPU struct {
	Bus *hwio.Table // PPU bus
	NMI NMILine

	Cycle      int    // Current dot in scanline
	Scanline   int    // Current scanline being drawn
	FrameCount uint32 // Number of frames since power up
	Clock      uint64 // Number of dots since power up

	// Internal VRAM (CIRAM), 2 nametables. The cartridge decides how they're
	// mapped in $2000-$2FFF.
	Nametables [0x800]byte

	// $3F00-$3F1F	$0020	Palette RAM indexes
	// $3F20-$3FFF	$00E0	Mirrors of $3F00-$3F1F
	Palettes hwio.Mem `hwio:"offset=0x3F00,size=0x20,vsize=0x100,wcb"`

	// CPU-exposed memory-mapped PPU registers
	// mapped from $2000 to $2007, mirrored up to $3fff
	PPUCTRL   hwio.Reg8 `hwio:"bank=1,offset=0x0,rcb,wcb,pcb=PeekOPENBUS"`
	PPUMASK   hwio.Reg8 `hwio:"bank=1,offset=0x1,rcb,wcb,pcb=PeekOPENBUS"`
	PPUSTATUS hwio.Reg8 `hwio:"bank=1,offset=0x2,rcb,wcb,pcb"`
	OAMADDR   hwio.Reg8 `hwio:"bank=1,offset=0x3,rcb,wcb,pcb=PeekOPENBUS"`
	OAMDATA   hwio.Reg8 `hwio:"bank=1,offset=0x4,rcb,wcb,pcb"`
	PPUSCROLL hwio.Reg8 `hwio:"bank=1,offset=0x5,rcb,wcb,pcb=PeekOPENBUS"`
	PPUADDR   hwio.Reg8 `hwio:"bank=1,offset=0x6,rcb,wcb,pcb=PeekOPENBUS"`
	PPUDATA   hwio.Reg8 `hwio:"bank=1,offset=0x7,rcb,wcb,pcb"`

	ctrl   ppuctrl
	mask   ppumask
	status ppustatus

	oamMem  [0x100]byte
	oamAddr uint8

	// Sprites of the line being drawn, evaluated at the end of the previous
	// line.
	sprites  [8]sprite
	nsprites int

	// VRAM read/write
	vramAddr    loopy
	vramTmp     loopy
	writeLatch  bool
	ppuDataRbuf uint8
	busAddr     uint16

	bg bgRegs

	openBus      uint8
	openBusDecay [8]uint32 // frame at which each open bus bit was last refreshed

	oddFrame      bool
	preventVBlank bool

	busWatcher  BusWatcher
	lineWatcher ScanlineWatcher

	frame [hwdefs.ScreenWidth * hwdefs.ScreenHeight]uint16
}

// Background registers.
type bgRegs struct {
	finex uint8

	// latches
	nt uint8
	at uint8
	lo uint8
	hi uint8

	// shift registers.
	shiftLo   uint16
	shiftHi   uint16
	atShiftLo uint16
	atShiftHi uint16
}

func NewPPU() *PPU {
	return &PPU{
		Bus: hwio.NewTable("ppu"),
		NMI: nopNMI{},
	}
}

func (p *PPU) InitBus() {
	hwio.MustInitRegs(p)
	p.Bus.MapBank(0x0000, p, 0)
}

// PowerUp sets the PPU in its power-up state.
func (p *PPU) PowerUp() {
	p.Reset(hwdefs.HardReset)
	p.status = 0
	p.oamAddr = 0
	p.vramAddr = 0
	p.vramTmp = 0
	p.busAddr = 0
	p.openBus = 0
	p.openBusDecay = [8]uint32{}
	p.oamMem = [0x100]byte{}
	p.Nametables = [0x800]byte{}
	copy(p.Palettes.Data, powerUpPalette[:])
	p.Cycle = 0
	p.Scanline = 0
	p.FrameCount = 0
	p.Clock = 0
	p.preventVBlank = false
}

// Reset resets the PPU. A soft reset (console reset button) only affects a
// few registers, nametables, palettes, OAM and VRAM address are kept.
func (p *PPU) Reset(soft bool) {
	p.ctrl = 0
	p.mask = 0
	p.writeLatch = false
	p.vramTmp = 0
	p.bg = bgRegs{}
	p.ppuDataRbuf = 0
	p.oddFrame = false
	p.nsprites = 0

	log.ModPPU.InfoZ("reset").Bool("soft", soft).End()
}

// AddLogContext implements log.LogContext.
func (p *PPU) AddLogContext(entry *log.EntryZ) {
	entry.Uint32("frame", p.FrameCount).Int("line", p.Scanline).Int("dot", p.Cycle)
}

func (p *PPU) rendering() bool {
	return p.mask.bg() || p.mask.sprites()
}

// SpriteSize16 reports whether sprites are 8x16.
func (p *PPU) SpriteSize16() bool {
	return p.ctrl.spriteSize()
}

// Tick advances the PPU by one dot.
func (p *PPU) Tick() {
	p.Clock++
	p.Cycle++

	// With rendering enabled, odd frames are one dot shorter, the last dot of
	// the pre-render line is skipped.
	last := hwdefs.NumDots
	if p.Scanline == 261 && p.oddFrame && p.rendering() {
		last--
	}
	if p.Cycle >= last {
		p.Cycle = 0
		p.Scanline++
		if p.Scanline == hwdefs.NumScanlines {
			p.Scanline = 0
			p.FrameCount++
			p.oddFrame = !p.oddFrame
		}
	}

	switch {
	case p.Scanline < 240:
		p.renderLine(false)
	case p.Scanline == 241:
		if p.Cycle == 1 {
			p.startVBlank()
		}
	case p.Scanline == 261:
		p.renderLine(true)
	}

	if p.Cycle == 1 && p.lineWatcher != nil {
		p.lineWatcher.Scanline(p.Scanline, p.rendering())
	}
}

func (p *PPU) startVBlank() {
	if p.preventVBlank {
		p.preventVBlank = false
		log.ModPPU.DebugZ("vblank suppressed").End()
		return
	}
	p.status.setVblank(true)
	if p.ctrl.nmi() {
		p.NMI.SetNMIFlag()
	}
}

// renderLine executes the current dot of a visible or pre-render scanline.
func (p *PPU) renderLine(prerender bool) {
	dot := p.Cycle

	if prerender && dot == 1 {
		p.status.setVblank(false)
		p.status.setSpriteHit(false)
		p.status.setSpriteOverflow(false)
		p.NMI.ClearNMIFlag()
		p.decayOpenBus()
	}

	if !prerender && dot >= 1 && dot <= 256 {
		p.drawPixel(dot-1, p.Scanline)
	}

	if !p.rendering() {
		return
	}

	switch {
	case dot >= 1 && dot <= 256, dot >= 321 && dot <= 336:
		p.shiftBg()
		p.fetchTile(dot)
		if dot == 256 {
			p.incY()
		}
	case dot == 257:
		p.copyX()
		if prerender {
			p.nsprites = 0
		} else {
			p.evalSprites()
		}
		p.oamAddr = 0
		p.fetchSprites(dot)
	case dot > 257 && dot <= 320:
		p.oamAddr = 0
		if prerender && dot >= 280 && dot <= 304 {
			p.copyY()
		}
		p.fetchSprites(dot)
	case dot == 337 || dot == 339:
		p.fetch(0x2000|p.vramAddr.val()&0x0FFF, FetchDummy)
	}
}

// fetchTile performs the background fetches for the given dot. Each tile takes
// 8 dots: nametable, attribute, pattern low and pattern high fetches, each
// taking 2 dots.
func (p *PPU) fetchTile(dot int) {
	v := p.vramAddr.val()
	switch dot & 7 {
	case 1:
		p.bg.nt = p.fetch(0x2000|v&0x0FFF, FetchNametable)
	case 3:
		addr := 0x23C0 | v&0x0C00 | (v>>4)&0x38 | (v>>2)&0x07
		shift := (v>>4)&4 | v&2
		p.bg.at = (p.fetch(addr, FetchAttribute) >> shift) & 3
	case 5:
		p.bg.lo = p.fetch(p.bgPatternAddr(), FetchBgLow)
	case 7:
		p.bg.hi = p.fetch(p.bgPatternAddr()+8, FetchBgHigh)
	case 0:
		p.reloadBg()
		p.incCoarseX()
	}
}

func (p *PPU) bgPatternAddr() uint16 {
	return p.ctrl.bgTable()<<12 | uint16(p.bg.nt)<<4 | p.vramAddr.finey()
}

// shiftBg shifts the background registers by one pixel.
func (p *PPU) shiftBg() {
	p.bg.shiftLo <<= 1
	p.bg.shiftHi <<= 1
	p.bg.atShiftLo <<= 1
	p.bg.atShiftHi <<= 1
}

// reloadBg loads the latched tile into the lower 8 bits of the shifters.
func (p *PPU) reloadBg() {
	p.bg.shiftLo = p.bg.shiftLo&0xFF00 | uint16(p.bg.lo)
	p.bg.shiftHi = p.bg.shiftHi&0xFF00 | uint16(p.bg.hi)
	p.bg.atShiftLo &= 0xFF00
	p.bg.atShiftHi &= 0xFF00
	if p.bg.at&1 != 0 {
		p.bg.atShiftLo |= 0xFF
	}
	if p.bg.at&2 != 0 {
		p.bg.atShiftHi |= 0xFF
	}
}

func (p *PPU) incCoarseX() {
	if p.vramAddr.coarsex() == 31 {
		p.vramAddr.setCoarsex(0)
		p.vramAddr.setNametable(p.vramAddr.nametable() ^ 1)
	} else {
		p.vramAddr.setCoarsex(p.vramAddr.coarsex() + 1)
	}
}

func (p *PPU) incY() {
	if fy := p.vramAddr.finey(); fy < 7 {
		p.vramAddr.setFiney(fy + 1)
		return
	}

	p.vramAddr.setFiney(0)
	switch y := p.vramAddr.coarsey(); y {
	case 29:
		p.vramAddr.setCoarsey(0)
		p.vramAddr.setNametable(p.vramAddr.nametable() ^ 2)
	case 31:
		// Coarse Y can be set out of bounds (attribute table rows), it then
		// wraps to 0 without switching nametable.
		p.vramAddr.setCoarsey(0)
	default:
		p.vramAddr.setCoarsey(y + 1)
	}
}

// copyX copies the horizontal position from t to v.
func (p *PPU) copyX() {
	const mask = 0x041F
	p.vramAddr = p.vramAddr&^mask | p.vramTmp&mask
}

// copyY copies the vertical position from t to v.
func (p *PPU) copyY() {
	const mask = 0x7BE0
	p.vramAddr = p.vramAddr&^mask | p.vramTmp&mask
}

// drawPixel computes the color of pixel (x, y).
func (p *PPU) drawPixel(x, y int) {
	var bgpx, bgpal uint8
	if p.mask.bg() && (x >= 8 || p.mask.bgLeft()) {
		shift := 15 - p.bg.finex
		bgpx = uint8((p.bg.shiftHi>>shift)&1)<<1 | uint8((p.bg.shiftLo>>shift)&1)
		bgpal = uint8((p.bg.atShiftHi>>shift)&1)<<1 | uint8((p.bg.atShiftLo>>shift)&1)
	}

	var sppx, sppal uint8
	var behind, sprite0 bool
	if p.mask.sprites() && (x >= 8 || p.mask.spriteLeft()) {
		sppx, sppal, behind, sprite0 = p.spritePixel(x)
	}

	var idx uint8
	switch {
	case bgpx == 0 && sppx == 0:
		idx = p.backdrop()
	case bgpx == 0:
		idx = 0x10 | sppal<<2 | sppx
	case sppx == 0:
		idx = bgpal<<2 | bgpx
	default:
		if sprite0 && x != 255 {
			p.status.setSpriteHit(true)
		}
		if behind {
			idx = bgpal<<2 | bgpx
		} else {
			idx = 0x10 | sppal<<2 | sppx
		}
	}

	color := p.Palettes.Data[idx&0x1F]
	if p.mask.gray() {
		color &= 0x30
	}
	p.frame[y*hwdefs.ScreenWidth+x] = uint16(color&0x3F) | p.mask.emphasis()<<6
}

// backdrop returns the palette index of the backdrop color. When rendering is
// disabled and v points to the palette, the color at v is shown instead.
func (p *PPU) backdrop() uint8 {
	if !p.rendering() && p.vramAddr.addr() >= 0x3F00 {
		return uint8(p.vramAddr.addr() & 0x1F)
	}
	return 0
}

// Frame returns the last rendered frame, as 6-bit color indexes with the
// emphasis bits in bits 6-8.
func (p *PPU) Frame() []uint16 {
	return p.frame[:]
}

func (p *PPU) setOpenBus(mask, val uint8) {
	p.openBus = p.openBus&^mask | val&mask
	for i := range 8 {
		if mask&(1<<i) != 0 {
			p.openBusDecay[i] = p.FrameCount
		}
	}
}

// applyOpenBus returns val, replacing the bits in mask with the open bus ones.
// The other bits refresh the open bus.
func (p *PPU) applyOpenBus(mask, val uint8) uint8 {
	p.setOpenBus(^mask, val)
	return val&^mask | p.openBus&mask
}

func (p *PPU) decayOpenBus() {
	for i := range 8 {
		if p.FrameCount-p.openBusDecay[i] > openBusDecayFrames {
			p.openBus &^= 1 << i
		}
	}
}

/* Registers */

func (p *PPU) PeekOPENBUS(_ uint8) uint8 { return p.openBus }

// Write-only registers return the open bus value when read.

func (p *PPU) ReadPPUCTRL(_ uint8) uint8   { return p.openBus }
func (p *PPU) ReadPPUMASK(_ uint8) uint8   { return p.openBus }
func (p *PPU) ReadOAMADDR(_ uint8) uint8   { return p.openBus }
func (p *PPU) ReadPPUSCROLL(_ uint8) uint8 { return p.openBus }
func (p *PPU) ReadPPUADDR(_ uint8) uint8   { return p.openBus }

// PPUCTRL: $2000
func (p *PPU) WritePPUCTRL(old, val uint8) {
	log.ModPPU.DebugZ("Write to PPUCTRL").Hex8("val", val).End()
	p.setOpenBus(0xFF, val)

	prev := p.ctrl
	p.ctrl = ppuctrl(val)

	// By toggling the nmi bit (bit 7 of PPUCTRL) during vblank without reading
	// PPUSTATUS, a program can cause /nmi to be pulled low multiple times,
	// causing multiple NMIs to be generated.
	switch {
	case !p.ctrl.nmi():
		p.NMI.ClearNMIFlag()
	case !prev.nmi() && p.status.vblank():
		p.NMI.SetNMIFlag()
	}

	// Transfer the nametable bits.
	p.vramTmp.setNametable(p.ctrl.nametable())
}

// PPUMASK: $2001
func (p *PPU) WritePPUMASK(old, val uint8) {
	log.ModPPU.DebugZ("Write to PPUMASK").Hex8("val", val).End()
	p.setOpenBus(0xFF, val)
	p.mask = ppumask(val)
}

// PPUSTATUS: $2002
func (p *PPU) ReadPPUSTATUS(_ uint8) uint8 {
	ret := p.applyOpenBus(0x1F, p.status.val())

	// Reading one dot before vblank is set returns the flag cleared, and
	// suppresses vblank and NMI for this frame.
	if p.Scanline == 241 && p.Cycle == 0 {
		p.preventVBlank = true
	}

	p.status.setVblank(false)
	p.NMI.ClearNMIFlag()
	p.writeLatch = false
	return ret
}

func (p *PPU) PeekPPUSTATUS(_ uint8) uint8 {
	return p.status.val()&0xE0 | p.openBus&0x1F
}

func (p *PPU) WritePPUSTATUS(_, val uint8) {
	p.setOpenBus(0xFF, val)
}

// OAMADDR: $2003
func (p *PPU) WriteOAMADDR(old, val uint8) {
	p.setOpenBus(0xFF, val)
	p.oamAddr = val
}

func (p *PPU) renderingLine() bool {
	return p.rendering() && (p.Scanline < 240 || p.Scanline == 261)
}

// OAMDATA: $2004
func (p *PPU) ReadOAMDATA(_ uint8) uint8 {
	val := p.PeekOAMDATA(0)
	p.setOpenBus(0xFF, val)
	return val
}

func (p *PPU) PeekOAMDATA(_ uint8) uint8 {
	if p.renderingLine() && p.Cycle >= 1 && p.Cycle <= 64 {
		// Secondary OAM is being cleared.
		return 0xFF
	}
	val := p.oamMem[p.oamAddr]
	if p.oamAddr&3 == 2 {
		// Unimplemented attribute bits.
		val &= 0xE3
	}
	return val
}

func (p *PPU) WriteOAMDATA(old, val uint8) {
	p.setOpenBus(0xFF, val)
	if p.renderingLine() {
		// Writes during rendering do not modify OAM, but perform a glitchy
		// increment of OAMADDR, bumping only the high 6 bits.
		p.oamAddr += 4
		return
	}
	p.oamMem[p.oamAddr] = val
	p.oamAddr++
}

// PPUSCROLL: $2005
func (p *PPU) WritePPUSCROLL(old, val uint8) {
	log.ModPPU.DebugZ("Write to PPUSCROLL").Hex8("val", val).Bool("latch", p.writeLatch).End()
	p.setOpenBus(0xFF, val)

	if !p.writeLatch { // first write
		p.bg.finex = val & 0b111
		p.vramTmp.setCoarsex(val >> 3)
	} else { // second write
		p.vramTmp.setFiney(uint16(val & 0b111))
		p.vramTmp.setCoarsey(val >> 3)
	}

	p.writeLatch = !p.writeLatch
}

// To read/write VRAM from CPU, PPUADDR is set to the address of the operation.
// It's a 16-bit register so 2 writes are necessary.
// PPUADDR: $2006
func (p *PPU) WritePPUADDR(old, val uint8) {
	log.ModPPU.DebugZ("Write to PPUADDR").Hex8("val", val).Bool("latch", p.writeLatch).End()
	p.setOpenBus(0xFF, val)

	if !p.writeLatch { // first write
		// Bit 14 (15th bit) of t gets set to zero.
		p.vramTmp.setHigh(val & 0x3F)
	} else { // second write
		p.vramTmp.setLow(val)
		p.vramAddr = p.vramTmp
		if !p.renderingLine() {
			p.setBusAddr(p.vramAddr.addr())
		}
	}

	p.writeLatch = !p.writeLatch
}

// PPUDATA: $2007
func (p *PPU) ReadPPUDATA(_ uint8) uint8 {
	addr := p.vramAddr.addr()
	var val uint8
	if addr >= 0x3F00 {
		// Reading palette data is immediate, the upper 2 bits come from the
		// open bus.
		val = p.applyOpenBus(0xC0, p.Palettes.Data[addr&0x1F])
		// Still, the read buffer is refilled with the nametable byte
		// 'under' the palette.
		p.ppuDataRbuf = p.fetch(addr-0x1000, FetchCPU)
	} else {
		// Reading VRAM is too slow so the actual data
		// will be returned at the next read.
		val = p.ppuDataRbuf
		p.ppuDataRbuf = p.fetch(addr, FetchCPU)
		p.setOpenBus(0xFF, val)
	}

	log.ModPPU.DebugZ("VRAM read").
		Hex16("addr", addr).
		Hex8("val", val).
		End()

	p.incVRAMAddr()
	return val
}

func (p *PPU) PeekPPUDATA(_ uint8) uint8 {
	addr := p.vramAddr.addr()
	if addr >= 0x3F00 {
		return p.Palettes.Data[addr&0x1F] | p.openBus&0xC0
	}
	return p.ppuDataRbuf
}

// PPUDATA: $2007
func (p *PPU) WritePPUDATA(old, val uint8) {
	addr := p.vramAddr.addr()
	log.ModPPU.DebugZ("VRAM write").
		Hex16("addr", addr).
		Hex8("val", val).
		End()

	p.setOpenBus(0xFF, val)
	p.store(addr, val)
	p.incVRAMAddr()
}

// After each access to PPUDATA, the VRAM address is incremented.
func (p *PPU) incVRAMAddr() {
	if p.renderingLine() {
		// During rendering, PPUDATA accesses trigger both a coarse X and a Y
		// increment, without the usual wrapping.
		p.incCoarseX()
		p.incY()
		return
	}

	incr := uint16(1)
	if p.ctrl.incr() {
		incr = 32
	}
	p.vramAddr.setVal(p.vramAddr.val() + incr)
	p.setBusAddr(p.vramAddr.addr())
}

// Palettes $3F10/$3F14/$3F18/$3F1C are mirrors of $3F00/$3F04/$3F08/$3F0C.
func (p *PPU) WritePALETTES(addr uint16, val uint8) {
	idx := addr & 0x1F
	val &= 0x3F
	p.Palettes.Data[idx] = val
	if idx&3 == 0 {
		p.Palettes.Data[idx^0x10] = val
	}
}

// The PPU power-up palette.
var powerUpPalette = [0x20]uint8{
	0x09, 0x01, 0x00, 0x01, 0x00, 0x02, 0x02, 0x0D, 0x08, 0x10, 0x08, 0x24, 0x00, 0x00, 0x04, 0x2C,
	0x09, 0x01, 0x34, 0x03, 0x00, 0x04, 0x00, 0x14, 0x08, 0x3A, 0x00, 0x02, 0x00, 0x20, 0x2C, 0x08,
}
