package mappers

import (
	"nesppu/hw"
	"nesppu/hw/snapshot"
)

var UxROM = MapperDesc{
	Name: "UxROM",
	Load: loadUxROM,
}

type uxrom struct {
	*base

	prgbank      uint8
	bankmask     uint8
	busConflicts bool
}

func (m *uxrom) WritePRGROM(addr uint16, val uint8) {
	if m.busConflicts {
		val = m.busConflict(addr, val)
	}

	// 7  bit  0
	// ---- ----
	// xxxx pPPP
	//      ||||
	//      ++++- Select 16 KB PRG ROM bank for CPU $8000-$BFFF
	//            (UNROM uses bits 2-0; UOROM uses bits 3-0)
	prev := m.prgbank
	m.prgbank = val & m.bankmask
	if prev != m.prgbank {
		m.selectPRGPage16KB(0, int(m.prgbank))
		modMapper.DebugZ("PRGROM bank switch").String("mapper", m.desc.Name).Uint8("prev", prev).Uint8("new", m.prgbank).End()
	}
}

func (m *uxrom) SaveState(s *snapshot.Mapper) {
	m.base.SaveState(s)
	s.Regs["prgbank"] = int64(m.prgbank)
}

func (m *uxrom) LoadState(s *snapshot.Mapper) error {
	if err := m.base.LoadState(s); err != nil {
		return err
	}
	m.prgbank = uint8(s.Regs["prgbank"])
	m.selectPRGPage16KB(0, int(m.prgbank))
	return nil
}

func loadUxROM(b *base) (hw.Cartridge, error) {
	uxrom := &uxrom{
		base:         b,
		busConflicts: b.rom.SubMapper() == 2,
		bankmask:     uint8(len(b.rom.PRGROM)>>14) - 1,
	}
	b.init(uxrom.WritePRGROM)

	b.setNTMirroring(b.rom.Mirroring())
	b.selectCHRPage8KB(0)
	b.selectPRGPage16KB(0, 0)
	b.selectPRGPage16KB(1, -1)
	return uxrom, nil
}
