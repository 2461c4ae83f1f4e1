package mappers

import (
	"nesppu/hw"
	"nesppu/hw/snapshot"
	"nesppu/ines"
)

var AxROM = MapperDesc{
	Name: "AxROM",
	Load: loadAxROM,
}

type axrom struct {
	*base

	prgbank      uint8
	busConflicts bool
}

func (m *axrom) WritePRGROM(addr uint16, val uint8) {
	if m.busConflicts {
		val = m.busConflict(addr, val)
	}

	// 7  bit  0
	// ---- ----
	// xxxM xPPP
	//    |  |||
	//    |  +++- Select 32 KB PRG ROM bank for CPU $8000-$FFFF
	//    +------ Select 1 KB VRAM page for all 4 nametables
	prev := m.prgbank
	m.prgbank = val & 0x7
	if prev != m.prgbank {
		m.selectPRGPage32KB(int(m.prgbank))
	}

	ntm := ines.OnlyAScreen
	if val&0x10 != 0 {
		ntm = ines.OnlyBScreen
	}
	if ntm != m.ntm {
		modMapper.DebugZ("select NT mirroring").String("mapper", m.desc.Name).Stringer("prev", m.ntm).Stringer("new", ntm).End()
		m.setNTMirroring(ntm)
	}
}

func (m *axrom) SaveState(s *snapshot.Mapper) {
	m.base.SaveState(s)
	s.Regs["prgbank"] = int64(m.prgbank)
}

func (m *axrom) LoadState(s *snapshot.Mapper) error {
	if err := m.base.LoadState(s); err != nil {
		return err
	}
	m.prgbank = uint8(s.Regs["prgbank"])
	m.selectPRGPage32KB(int(m.prgbank))
	return nil
}

func loadAxROM(b *base) (hw.Cartridge, error) {
	axrom := &axrom{
		base:         b,
		busConflicts: b.rom.SubMapper() == 2,
	}
	b.init(axrom.WritePRGROM)

	b.setNTMirroring(ines.OnlyAScreen)
	b.selectCHRPage8KB(0)
	b.selectPRGPage32KB(0)
	return axrom, nil
}
