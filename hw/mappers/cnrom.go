package mappers

import (
	"nesppu/hw"
	"nesppu/hw/snapshot"
)

var CNROM = MapperDesc{
	Name: "CNROM",
	Load: loadCNROM,
}

type cnrom struct {
	*base

	chrbank      uint8
	busConflicts bool
}

func (m *cnrom) WritePRGROM(addr uint16, val uint8) {
	if m.busConflicts {
		val = m.busConflict(addr, val)
	}

	// 7  bit  0
	// ---- ----
	// cccc ccCC
	// |||| ||||
	// ++++-++++- Select 8 KB CHR ROM bank for PPU $0000-$1FFF
	prev := m.chrbank
	m.chrbank = val
	if prev != m.chrbank {
		m.selectCHRPage8KB(int(m.chrbank))
		modMapper.DebugZ("CHRROM bank switch").String("mapper", m.desc.Name).Uint8("prev", prev).Uint8("new", m.chrbank).End()
	}
}

func (m *cnrom) SaveState(s *snapshot.Mapper) {
	m.base.SaveState(s)
	s.Regs["chrbank"] = int64(m.chrbank)
}

func (m *cnrom) LoadState(s *snapshot.Mapper) error {
	if err := m.base.LoadState(s); err != nil {
		return err
	}
	m.chrbank = uint8(s.Regs["chrbank"])
	m.selectCHRPage8KB(int(m.chrbank))
	return nil
}

func loadCNROM(b *base) (hw.Cartridge, error) {
	cnrom := &cnrom{
		base:         b,
		busConflicts: b.rom.SubMapper() == 2,
	}
	b.init(cnrom.WritePRGROM)

	b.selectPRGPage16KB(0, 0)
	b.selectPRGPage16KB(1, -1)
	b.setNTMirroring(b.rom.Mirroring())
	b.selectCHRPage8KB(0)
	return cnrom, nil
}
