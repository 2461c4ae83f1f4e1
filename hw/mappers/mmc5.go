package mappers

import (
	"fmt"
	"strconv"

	"nesppu/hw"
	"nesppu/hw/hwdefs"
	"nesppu/hw/hwio"
	"nesppu/hw/snapshot"
)

var MMC5 = MapperDesc{
	Name: "MMC5",
	Load: loadMMC5,
}

// ExRAM modes ($5104).
const (
	exramNT      = 0 // extra nametable
	exramExAttr  = 1 // extended attributes
	exramRAM     = 2 // CPU read/write
	exramRAMRead = 3 // CPU read-only
)

// Nametable sources ($5105).
const (
	ntCIRAMA = 0
	ntCIRAMB = 1
	ntExRAM  = 2
	ntFill   = 3
)

type prgSlot struct {
	ram bool
	off int
}

type mmc5 struct {
	*base

	// CPU $5000-$5FFF
	Regs hwio.Device
	// CPU $6000-$FFFF
	PRG hwio.Device
	// PPU $0000-$1FFF
	CHR hwio.Device
	// PPU $2000-$3EFF
	NT hwio.Device

	exram [0x400]byte

	prgMode    uint8
	prgRegs    [5]uint8 // $5113-$5117
	prg        [5]prgSlot
	ramProtect [2]uint8 // $5102, $5103

	chrMode  uint8
	chrA     [8]uint16 // $5120-$5127, sprites in 8x16 mode
	chrB     [4]uint16 // $5128-$512B, background in 8x16 mode
	chrUpper uint8     // $5130
	lastB    bool      // last CHR register written was in set B

	exramMode uint8
	ntMapping uint8 // $5105
	fillTile  uint8
	fillColor uint8

	splitCtrl   uint8 // $5200
	splitScroll uint8 // $5201
	splitBank   uint8 // $5202

	irqCompare uint8
	irqEnabled bool
	irqPending bool
	inFrame    bool
	irqCounter uint8

	mulA, mulB uint8

	// PPU fetch tracking.
	kind      hw.FetchKind
	inSprites bool
	tile      int // index of the background tile being fetched in the line
	fetchLine int // scanline the background tiles are fetched for
	inSplit   bool
	splitNT   uint8 // split tile index, for the pattern fetches
	splitAT   uint8
	exbyte    uint8 // ExRAM byte of the current tile, in extended attribute mode
}

func (m *mmc5) ReadREG(addr uint16) uint8 {
	switch {
	case addr == 0x5204:
		val := m.PeekREG(addr)
		m.irqPending = false
		m.cpu.ClearIRQSource(hwdefs.External)
		return val
	case addr >= 0x5C00:
		if m.exramMode < exramRAM {
			return m.cpu.OpenBus()
		}
		return m.exram[addr-0x5C00]
	}
	return m.PeekREG(addr)
}

func (m *mmc5) PeekREG(addr uint16) uint8 {
	switch {
	case addr == 0x5204:
		var val uint8
		if m.irqPending {
			val |= 0x80
		}
		if m.inFrame {
			val |= 0x40
		}
		return val
	case addr == 0x5205:
		return uint8(uint16(m.mulA) * uint16(m.mulB))
	case addr == 0x5206:
		return uint8((uint16(m.mulA) * uint16(m.mulB)) >> 8)
	case addr >= 0x5C00:
		if m.exramMode < exramRAM {
			return m.cpu.OpenBus()
		}
		return m.exram[addr-0x5C00]
	}
	return m.cpu.OpenBus()
}

func (m *mmc5) WriteREG(addr uint16, val uint8) {
	switch {
	case addr == 0x5100:
		m.prgMode = val & 3
		m.remapPRG()
	case addr == 0x5101:
		m.chrMode = val & 3
	case addr == 0x5102:
		m.ramProtect[0] = val & 3
	case addr == 0x5103:
		m.ramProtect[1] = val & 3
	case addr == 0x5104:
		m.exramMode = val & 3
	case addr == 0x5105:
		m.ntMapping = val
	case addr == 0x5106:
		m.fillTile = val
	case addr == 0x5107:
		m.fillColor = val & 3
	case addr >= 0x5113 && addr <= 0x5117:
		m.prgRegs[addr-0x5113] = val
		m.remapPRG()
	case addr >= 0x5120 && addr <= 0x5127:
		m.chrA[addr-0x5120] = uint16(val) | uint16(m.chrUpper)<<8
		m.lastB = false
	case addr >= 0x5128 && addr <= 0x512B:
		m.chrB[addr-0x5128] = uint16(val) | uint16(m.chrUpper)<<8
		m.lastB = true
	case addr == 0x5130:
		m.chrUpper = val & 3
	case addr == 0x5200:
		m.splitCtrl = val
	case addr == 0x5201:
		m.splitScroll = val
	case addr == 0x5202:
		m.splitBank = val
	case addr == 0x5203:
		m.irqCompare = val
	case addr == 0x5204:
		m.irqEnabled = val&0x80 != 0
		m.updateIRQ()
	case addr == 0x5205:
		m.mulA = val
	case addr == 0x5206:
		m.mulB = val
	case addr >= 0x5C00:
		m.writeExRAM(addr-0x5C00, val)
	default:
		modMapper.DebugZ("unhandled register write").String("mapper", m.desc.Name).Hex16("addr", addr).Hex8("val", val).End()
	}
}

func (m *mmc5) writeExRAM(off uint16, val uint8) {
	switch m.exramMode {
	case exramNT, exramExAttr:
		// Only writable while the PPU renders, $00 is written otherwise.
		if !m.inFrame {
			val = 0
		}
		m.exram[off] = val
	case exramRAM:
		m.exram[off] = val
	}
}

func (m *mmc5) updateIRQ() {
	if m.irqEnabled && m.irqPending {
		m.cpu.SetIRQSource(hwdefs.External)
	} else {
		m.cpu.ClearIRQSource(hwdefs.External)
	}
}

// prgSlotFor returns the PRG slot for a bank register value. Bit 7 selects ROM,
// except for $E000-$FFFF which is always ROM.
func (m *mmc5) prgSlotFor(val uint8, rom bool) prgSlot {
	if rom || val&0x80 != 0 {
		return prgSlot{off: bankOffset(len(m.rom.PRGROM), 0x2000, int(val&0x7F))}
	}
	return prgSlot{ram: true, off: bankOffset(len(m.prgram), 0x2000, int(val&0x07))}
}

func (m *mmc5) remapPRG() {
	r := m.prgRegs
	m.prg[0] = m.prgSlotFor(r[0]&0x7F, false)

	switch m.prgMode {
	case 0:
		for i := range 4 {
			m.prg[1+i] = m.prgSlotFor(r[4]&0x7C|uint8(i), true)
		}
	case 1:
		m.prg[1] = m.prgSlotFor(r[2]&^1, false)
		m.prg[2] = m.prgSlotFor(r[2]|1, false)
		m.prg[3] = m.prgSlotFor(r[4]&^1, true)
		m.prg[4] = m.prgSlotFor(r[4]|1, true)
	case 2:
		m.prg[1] = m.prgSlotFor(r[2]&^1, false)
		m.prg[2] = m.prgSlotFor(r[2]|1, false)
		m.prg[3] = m.prgSlotFor(r[3], false)
		m.prg[4] = m.prgSlotFor(r[4], true)
	case 3:
		m.prg[1] = m.prgSlotFor(r[1], false)
		m.prg[2] = m.prgSlotFor(r[2], false)
		m.prg[3] = m.prgSlotFor(r[3], false)
		m.prg[4] = m.prgSlotFor(r[4], true)
	}
}

func (m *mmc5) ramWritable() bool {
	return m.ramProtect[0] == 2 && m.ramProtect[1] == 1
}

func (m *mmc5) ReadPRG(addr uint16) uint8 {
	s := m.prg[(addr-0x6000)>>13]
	if s.ram {
		return m.prgram[s.off+int(addr&0x1FFF)]
	}
	return m.rom.PRGROM[s.off+int(addr&0x1FFF)]
}

func (m *mmc5) WritePRG(addr uint16, val uint8) {
	s := m.prg[(addr-0x6000)>>13]
	if !s.ram || !m.ramWritable() {
		return
	}
	m.prgram[s.off+int(addr&0x1FFF)] = val
}

// WatchPPUBus implements hw.BusWatcher. It tracks the background tile being
// fetched for split screen and extended attributes.
func (m *mmc5) WatchPPUBus(addr uint16, kind hw.FetchKind) {
	m.kind = kind
	switch kind {
	case hw.FetchSpriteLow, hw.FetchSpriteHigh:
		m.inSprites = true
	case hw.FetchNametable:
		if m.inSprites {
			// First tile of the next line, fetched at dot 321.
			m.inSprites = false
			m.tile = 0
			m.fetchLine = m.ppu.Scanline + 1
			if m.fetchLine >= hwdefs.NumScanlines {
				m.fetchLine = 0
			}
		} else {
			m.tile++
		}
		m.inSplit = m.splitActive()
		if m.inSplit {
			y := m.splitY()
			col := m.tile & 31
			m.splitNT = m.exram[(y/8)*32+col]
			at := m.exram[0x3C0+(y/32)*8+col/4]
			shift := ((y/8)&2)<<1 | col&2
			m.splitAT = (at >> shift) & 3
		} else if m.exramMode == exramExAttr {
			m.exbyte = m.exram[addr&0x3FF]
		}
	}
}

func (m *mmc5) splitActive() bool {
	if m.splitCtrl&0x80 == 0 || m.exramMode > exramExAttr {
		return false
	}
	threshold := int(m.splitCtrl & 0x1F)
	if m.splitCtrl&0x40 != 0 {
		return m.tile >= threshold
	}
	return m.tile < threshold
}

func (m *mmc5) splitY() int {
	return (int(m.splitScroll) + m.fetchLine) % 240
}

// Scanline implements hw.ScanlineWatcher, it drives the scanline IRQ.
func (m *mmc5) Scanline(line int, rendering bool) {
	if !rendering || line >= hwdefs.ScreenHeight {
		m.inFrame = false
		return
	}
	if !m.inFrame {
		m.inFrame = true
		m.irqCounter = 0
		m.irqPending = false
		m.updateIRQ()
		return
	}
	m.irqCounter++
	if m.irqCounter == m.irqCompare {
		m.irqPending = true
		m.updateIRQ()
	}
}

// chrOffset returns the offset in CHR memory of the given pattern address,
// using CHR bank set B if useB is true, set A otherwise.
func (m *mmc5) chrOffset(addr uint16, useB bool) int {
	addr &= 0x1FFF
	var size int
	var bank uint16
	switch m.chrMode {
	case 0:
		size = 0x2000
		bank = m.chrA[7]
		if useB {
			bank = m.chrB[3]
		}
	case 1:
		size = 0x1000
		bank = m.chrA[3+4*(addr>>12)]
		if useB {
			bank = m.chrB[3]
		}
	case 2:
		size = 0x800
		bank = m.chrA[1+2*(addr>>11)]
		if useB {
			bank = m.chrB[1+2*((addr>>11)&1)]
		}
	case 3:
		size = 0x400
		bank = m.chrA[addr>>10]
		if useB {
			bank = m.chrB[(addr>>10)&3]
		}
	}
	return bankOffset(len(m.chr), size, int(bank)) + int(addr)&(size-1)
}

func (m *mmc5) useSetB(kind hw.FetchKind) bool {
	if !m.ppu.SpriteSize16() {
		return m.lastB
	}
	switch kind {
	case hw.FetchSpriteLow, hw.FetchSpriteHigh:
		return false
	case hw.FetchBgLow, hw.FetchBgHigh:
		return true
	}
	return m.lastB
}

func (m *mmc5) readCHR(addr uint16, kind hw.FetchKind) uint8 {
	if kind == hw.FetchBgLow || kind == hw.FetchBgHigh {
		switch {
		case m.inSplit:
			off := bankOffset(len(m.chr), 0x1000, int(m.splitBank))
			off += int(m.splitNT)<<4 | m.splitY()&7 | int(addr&8)
			return m.chr[off]
		case m.exramMode == exramExAttr:
			bank := int(m.exbyte&0x3F) | int(m.chrUpper)<<6
			return m.chr[bankOffset(len(m.chr), 0x1000, bank)+int(addr&0xFFF)]
		}
	}
	return m.chr[m.chrOffset(addr, m.useSetB(kind))]
}

func (m *mmc5) ReadCHR(addr uint16) uint8 { return m.readCHR(addr, m.kind) }
func (m *mmc5) PeekCHR(addr uint16) uint8 { return m.readCHR(addr, hw.FetchCPU) }

func (m *mmc5) WriteCHR(addr uint16, val uint8) {
	if m.chrRO {
		return
	}
	m.chr[m.chrOffset(addr, m.lastB)] = val
}

// ntSource returns the source of the nametable at addr.
func (m *mmc5) ntSource(addr uint16) uint8 {
	quadrant := (addr >> 10) & 3
	return (m.ntMapping >> (2 * quadrant)) & 3
}

func (m *mmc5) readNT(addr uint16, kind hw.FetchKind) uint8 {
	if kind == hw.FetchNametable && m.inSplit {
		return m.splitNT
	}
	if kind == hw.FetchAttribute {
		switch {
		case m.inSplit:
			return m.splitAT * 0x55
		case m.exramMode == exramExAttr:
			return (m.exbyte >> 6) * 0x55
		}
	}

	off := addr & 0x3FF
	switch m.ntSource(addr) {
	case ntCIRAMA:
		return m.ppu.Nametables[off]
	case ntCIRAMB:
		return m.ppu.Nametables[0x400+off]
	case ntExRAM:
		if m.exramMode > exramExAttr {
			return 0
		}
		return m.exram[off]
	default:
		if off >= 0x3C0 {
			return m.fillColor * 0x55
		}
		return m.fillTile
	}
}

func (m *mmc5) ReadNT(addr uint16) uint8 { return m.readNT(addr, m.kind) }
func (m *mmc5) PeekNT(addr uint16) uint8 { return m.readNT(addr, hw.FetchCPU) }

func (m *mmc5) WriteNT(addr uint16, val uint8) {
	off := addr & 0x3FF
	switch m.ntSource(addr) {
	case ntCIRAMA:
		m.ppu.Nametables[off] = val
	case ntCIRAMB:
		m.ppu.Nametables[0x400+off] = val
	case ntExRAM:
		if m.exramMode <= exramExAttr {
			m.exram[off] = val
		}
	}
}

func (m *mmc5) mapNametables() {
	m.ppu.Bus.MapDevice(0x2000, &m.NT)
}

func (m *mmc5) Reset(soft bool) {
	m.irqEnabled = false
	m.irqPending = false
	m.inFrame = false
	m.cpu.ClearIRQSource(hwdefs.External)
}

func (m *mmc5) SaveState(s *snapshot.Mapper) {
	m.base.SaveState(s)
	s.ExRAM = append([]byte(nil), m.exram[:]...)

	r := s.Regs
	r["prgmode"] = int64(m.prgMode)
	for i, v := range m.prgRegs {
		r["prg"+strconv.Itoa(i)] = int64(v)
	}
	r["ramprotect0"] = int64(m.ramProtect[0])
	r["ramprotect1"] = int64(m.ramProtect[1])
	r["chrmode"] = int64(m.chrMode)
	for i, v := range m.chrA {
		r["chra"+strconv.Itoa(i)] = int64(v)
	}
	for i, v := range m.chrB {
		r["chrb"+strconv.Itoa(i)] = int64(v)
	}
	r["chrupper"] = int64(m.chrUpper)
	r["lastb"] = btoi(m.lastB)
	r["exrammode"] = int64(m.exramMode)
	r["ntmapping"] = int64(m.ntMapping)
	r["filltile"] = int64(m.fillTile)
	r["fillcolor"] = int64(m.fillColor)
	r["splitctrl"] = int64(m.splitCtrl)
	r["splitscroll"] = int64(m.splitScroll)
	r["splitbank"] = int64(m.splitBank)
	r["irqcompare"] = int64(m.irqCompare)
	r["irqenabled"] = btoi(m.irqEnabled)
	r["irqpending"] = btoi(m.irqPending)
	r["inframe"] = btoi(m.inFrame)
	r["irqcounter"] = int64(m.irqCounter)
	r["mula"] = int64(m.mulA)
	r["mulb"] = int64(m.mulB)
	r["kind"] = int64(m.kind)
	r["insprites"] = btoi(m.inSprites)
	r["tile"] = int64(m.tile)
	r["fetchline"] = int64(m.fetchLine)
	r["insplit"] = btoi(m.inSplit)
	r["splitnt"] = int64(m.splitNT)
	r["splitat"] = int64(m.splitAT)
	r["exbyte"] = int64(m.exbyte)
}

func (m *mmc5) LoadState(s *snapshot.Mapper) error {
	if len(s.ExRAM) != len(m.exram) {
		return fmt.Errorf("ExRAM size mismatch: got %d bytes, want %d", len(s.ExRAM), len(m.exram))
	}
	if l := s.Regs["fetchline"]; l < 0 || l >= hwdefs.NumScanlines {
		return fmt.Errorf("invalid fetch line %d", l)
	}
	if err := m.base.LoadState(s); err != nil {
		return err
	}
	copy(m.exram[:], s.ExRAM)

	r := s.Regs
	m.prgMode = uint8(r["prgmode"]) & 3
	for i := range m.prgRegs {
		m.prgRegs[i] = uint8(r["prg"+strconv.Itoa(i)])
	}
	m.ramProtect[0] = uint8(r["ramprotect0"])
	m.ramProtect[1] = uint8(r["ramprotect1"])
	m.chrMode = uint8(r["chrmode"]) & 3
	for i := range m.chrA {
		m.chrA[i] = uint16(r["chra"+strconv.Itoa(i)])
	}
	for i := range m.chrB {
		m.chrB[i] = uint16(r["chrb"+strconv.Itoa(i)])
	}
	m.chrUpper = uint8(r["chrupper"])
	m.lastB = r["lastb"] != 0
	m.exramMode = uint8(r["exrammode"]) & 3
	m.ntMapping = uint8(r["ntmapping"])
	m.fillTile = uint8(r["filltile"])
	m.fillColor = uint8(r["fillcolor"]) & 3
	m.splitCtrl = uint8(r["splitctrl"])
	m.splitScroll = uint8(r["splitscroll"])
	m.splitBank = uint8(r["splitbank"])
	m.irqCompare = uint8(r["irqcompare"])
	m.irqEnabled = r["irqenabled"] != 0
	m.irqPending = r["irqpending"] != 0
	m.inFrame = r["inframe"] != 0
	m.irqCounter = uint8(r["irqcounter"])
	m.mulA = uint8(r["mula"])
	m.mulB = uint8(r["mulb"])
	m.kind = hw.FetchKind(r["kind"])
	m.inSprites = r["insprites"] != 0
	m.tile = int(r["tile"])
	m.fetchLine = int(r["fetchline"])
	m.inSplit = r["insplit"] != 0
	m.splitNT = uint8(r["splitnt"])
	m.splitAT = uint8(r["splitat"])
	m.exbyte = uint8(r["exbyte"])

	m.remapPRG()
	// base.LoadState restored a plain mirroring.
	m.mapNametables()
	return nil
}

func loadMMC5(b *base) (hw.Cartridge, error) {
	if b.prgram == nil || (!b.rom.IsNES2() && len(b.prgram) < 0x10000) {
		// iNES headers can't tell, give the largest PRG-RAM.
		b.prgram = make([]byte, 0x10000)
	}

	m := &mmc5{base: b}
	m.Regs = hwio.Device{
		Name:    "MMC5",
		Size:    0x1000,
		ReadCb:  m.ReadREG,
		PeekCb:  m.PeekREG,
		WriteCb: m.WriteREG,
	}
	m.PRG = hwio.Device{
		Name:    "PRG",
		Size:    0xA000,
		ReadCb:  m.ReadPRG,
		PeekCb:  m.ReadPRG,
		WriteCb: m.WritePRG,
	}
	m.CHR = hwio.Device{
		Name:    "CHR",
		Size:    0x2000,
		ReadCb:  m.ReadCHR,
		PeekCb:  m.PeekCHR,
		WriteCb: m.WriteCHR,
	}
	m.NT = hwio.Device{
		Name:    "NT",
		Size:    0x1F00,
		ReadCb:  m.ReadNT,
		PeekCb:  m.PeekNT,
		WriteCb: m.WriteNT,
	}

	b.cpu.Bus.MapDevice(0x5000, &m.Regs)
	b.cpu.Bus.MapDevice(0x6000, &m.PRG)
	b.ppu.Bus.MapDevice(0x0000, &m.CHR)
	m.mapNametables()

	// Power-up: PRG mode 3 with the last bank everywhere, 1KB CHR banks.
	m.prgMode = 3
	m.prgRegs = [5]uint8{0, 0xFF, 0xFF, 0xFF, 0xFF}
	m.remapPRG()
	m.chrMode = 3
	return m, nil
}
