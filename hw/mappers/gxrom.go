package mappers

import (
	"nesppu/hw"
	"nesppu/hw/snapshot"
)

var GxROM = MapperDesc{
	Name: "GxROM",
	Load: loadGxROM,
}

type gxrom struct {
	*base

	chrbank uint8
	prgbank uint8
}

func (m *gxrom) WritePRGROM(addr uint16, val uint8) {
	// 7  bit  0
	// ---- ----
	// xxPP xxCC
	//   ||   ||
	//   ||   ++- Select 8 KB CHR ROM bank for PPU $0000-$1FFF
	//   ++------ Select 32 KB PRG ROM bank for CPU $8000-$FFFF
	prevchr := m.chrbank
	m.chrbank = val & 0x3
	if prevchr != m.chrbank {
		m.selectCHRPage8KB(int(m.chrbank))
		modMapper.DebugZ("CHRROM bank switch").String("mapper", m.desc.Name).Uint8("prev", prevchr).Uint8("new", m.chrbank).End()
	}

	prevprg := m.prgbank
	m.prgbank = (val >> 4) & 0x3
	if prevprg != m.prgbank {
		m.selectPRGPage32KB(int(m.prgbank))
		modMapper.DebugZ("PRGROM bank switch").String("mapper", m.desc.Name).Uint8("prev", prevprg).Uint8("new", m.prgbank).End()
	}
}

func (m *gxrom) SaveState(s *snapshot.Mapper) {
	m.base.SaveState(s)
	s.Regs["chrbank"] = int64(m.chrbank)
	s.Regs["prgbank"] = int64(m.prgbank)
}

func (m *gxrom) LoadState(s *snapshot.Mapper) error {
	if err := m.base.LoadState(s); err != nil {
		return err
	}
	m.chrbank = uint8(s.Regs["chrbank"])
	m.prgbank = uint8(s.Regs["prgbank"])
	m.selectCHRPage8KB(int(m.chrbank))
	m.selectPRGPage32KB(int(m.prgbank))
	return nil
}

func loadGxROM(b *base) (hw.Cartridge, error) {
	gxrom := &gxrom{base: b}
	b.init(gxrom.WritePRGROM)

	b.selectPRGPage32KB(0)
	b.setNTMirroring(b.rom.Mirroring())
	b.selectCHRPage8KB(0)
	return gxrom, nil
}
