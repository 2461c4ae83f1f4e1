package mappers

import (
	"nesppu/hw"
	"nesppu/hw/snapshot"
	"nesppu/ines"
)

var MMC1 = MapperDesc{
	Name: "MMC1",
	Load: loadMMC1,
}

type mmc1 struct {
	*base

	prevCycle int64

	serial  shiftReg // shift register
	counter uint8    // count of bits shifted

	// CTRL reg bits
	chrmode uint8
	prgmode uint8
	ntm     uint8

	// CHR regs
	chrbank0 uint8
	chrbank1 uint8

	// PRG reg bits
	disableWRAM bool
	prgbank     uint8
}

type shiftReg uint8

func (sr shiftReg) push(val uint8) shiftReg {
	sr >>= 1
	sr |= shiftReg((val << 4) & 0x10)
	return sr
}

func (m *mmc1) WritePRGROM(addr uint16, val uint8) {
	curCycle := m.cpu.CurrentCycle()
	// Writes on consecutive cycles (RMW instructions) are ignored, only the
	// first one is taken into account.
	resetbit := val&0x80 != 0
	if resetbit || curCycle-m.prevCycle >= 2 {
		if resetbit {
			//	- ignore databit
			//	- reset shift register (so that the next write is the "first" write)
			//	- bits 2,3 of control reg are set (16k PRG mode, $8000 swappable)
			//	- other bits of $8000 (and other regs) are unchanged
			m.serial = 0
			m.counter = 0
			m.prgmode = 0b11
			m.remap()
		} else {
			m.serial = m.serial.push(val)
			m.counter++
			if m.counter == 5 {
				m.writeREG(addr, uint8(m.serial))
				m.remap()
				m.serial = 0
				m.counter = 0
			}
		}
	}
	m.prevCycle = curCycle
}

func (m *mmc1) writeREG(addr uint16, val uint8) {
	switch (addr & 0x6000) >> 13 {
	case 0:
		m.writeCTRL(val)
	case 1:
		m.chrbank0 = val & 0x1F
	case 2:
		m.chrbank1 = val & 0x1F
	case 3:
		m.prgbank = val & 0x0F
		m.disableWRAM = val&0x10 != 0
	}
	modMapper.DebugZ("write register").String("mapper", m.desc.Name).
		Hex16("addr", addr).
		Hex8("val", val).
		End()
}

func (m *mmc1) writeCTRL(val uint8) {
	// 4bit0
	// -----
	// CPPMM
	// |||||
	// |||++- Mirroring (0: one-screen, lower bank; 1: one-screen, upper bank;
	// |||               2: vertical; 3: horizontal)
	// |++--- PRG ROM bank mode (0, 1: switch 32 KB at $8000, ignoring low bit of bank number;
	// |                         2: fix first bank at $8000 and switch 16 KB bank at $C000;
	// |                         3: fix last bank at $C000 and switch 16 KB bank at $8000)
	// +----- CHR ROM bank mode (0: switch 8 KB at a time; 1: switch two separate 4 KB banks)
	m.chrmode = (val & 0x10) >> 4
	m.prgmode = (val & 0x0C) >> 2
	m.ntm = val & 0x03
}

var mmc1Mirroring = [4]ines.NTMirroring{
	ines.OnlyAScreen,
	ines.OnlyBScreen,
	ines.VertMirroring,
	ines.HorzMirroring,
}

// prgOuter returns the 256KB PRG-ROM outer bank (SUROM). Bit 4 of the CHR
// registers selects it.
func (m *mmc1) prgOuter() int {
	if len(m.rom.PRGROM) <= 0x40000 {
		return 0
	}
	return int(m.chrbank0>>4&1) * 16
}

// remap applies the current registers to the bus mappings.
func (m *mmc1) remap() {
	if mirroring := mmc1Mirroring[m.ntm]; mirroring != m.base.ntm {
		m.setNTMirroring(mirroring)
	}

	outer := m.prgOuter()
	switch m.prgmode {
	case 0, 1:
		m.selectPRGPage32KB((outer + int(m.prgbank)) >> 1)
	case 2:
		m.selectPRGPage16KB(0, outer)
		m.selectPRGPage16KB(1, outer+int(m.prgbank))
	case 3:
		m.selectPRGPage16KB(0, outer+int(m.prgbank))
		m.selectPRGPage16KB(1, outer+15)
	}

	switch m.chrmode {
	case 0:
		m.selectCHRPage8KB(int(m.chrbank0 >> 1))
	case 1:
		m.selectCHRPage4KB(0, int(m.chrbank0))
		m.selectCHRPage4KB(1, int(m.chrbank1))
	}

	if m.prgram != nil {
		if m.disableWRAM {
			m.cpu.Bus.Unmap(0x6000, 0x7FFF)
		} else {
			m.cpu.Bus.MapMemorySlice(0x6000, 0x7FFF, m.prgram[:0x2000], false)
		}
	}
}

func (m *mmc1) SaveState(s *snapshot.Mapper) {
	m.base.SaveState(s)
	s.Regs["prevcycle"] = m.prevCycle
	s.Regs["serial"] = int64(m.serial)
	s.Regs["counter"] = int64(m.counter)
	s.Regs["chrmode"] = int64(m.chrmode)
	s.Regs["prgmode"] = int64(m.prgmode)
	s.Regs["ntm"] = int64(m.ntm)
	s.Regs["chrbank0"] = int64(m.chrbank0)
	s.Regs["chrbank1"] = int64(m.chrbank1)
	s.Regs["prgbank"] = int64(m.prgbank)
	s.Regs["disablewram"] = btoi(m.disableWRAM)
}

func (m *mmc1) LoadState(s *snapshot.Mapper) error {
	if err := m.base.LoadState(s); err != nil {
		return err
	}
	m.prevCycle = s.Regs["prevcycle"]
	m.serial = shiftReg(s.Regs["serial"])
	m.counter = uint8(s.Regs["counter"])
	m.chrmode = uint8(s.Regs["chrmode"])
	m.prgmode = uint8(s.Regs["prgmode"])
	m.ntm = uint8(s.Regs["ntm"]) & 3
	m.chrbank0 = uint8(s.Regs["chrbank0"])
	m.chrbank1 = uint8(s.Regs["chrbank1"])
	m.prgbank = uint8(s.Regs["prgbank"])
	m.disableWRAM = s.Regs["disablewram"] != 0
	m.remap()
	return nil
}

func loadMMC1(b *base) (hw.Cartridge, error) {
	mmc1 := &mmc1{base: b, prevCycle: -2}
	b.init(mmc1.WritePRGROM)

	// On powerup: bits 2,3 of $8000 are set (this ensures the $8000 is bank 0,
	// and $C000 is the last bank - needed for SEROM/SHROM/SH1ROM which do no
	// support banking)
	mmc1.writeCTRL(0x0C)
	mmc1.base.ntm = 0xFF
	mmc1.remap()
	return mmc1, nil
}
