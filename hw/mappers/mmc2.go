package mappers

import (
	"fmt"

	"nesppu/hw"
	"nesppu/hw/snapshot"
	"nesppu/ines"
)

// MMC2 (PxROM) and MMC4 (FxROM) have the same CHR latches, they differ in
// PRG banking and in the way the first latch is triggered.
var (
	MMC2 = MapperDesc{
		Name: "MMC2",
		Load: func(b *base) (hw.Cartridge, error) { return loadMMC2(b, false) },
	}
	MMC4 = MapperDesc{
		Name: "MMC4",
		Load: func(b *base) (hw.Cartridge, error) { return loadMMC2(b, true) },
	}
)

const (
	latchFD = 0
	latchFE = 1
)

type mmc2 struct {
	*base

	mmc4 bool

	prgbank uint8
	chrregs [2][2]uint8 // [pattern table][latch]
	latches [2]uint8

	// latch change applied after the current fetch.
	pending [2]int8
}

func (m *mmc2) WritePRGROM(addr uint16, val uint8) {
	switch addr & 0xF000 {
	case 0xA000:
		m.prgbank = val & 0x0F
		m.remapPRG()
	case 0xB000:
		m.chrregs[0][latchFD] = val & 0x1F
		m.remapCHR()
	case 0xC000:
		m.chrregs[0][latchFE] = val & 0x1F
		m.remapCHR()
	case 0xD000:
		m.chrregs[1][latchFD] = val & 0x1F
		m.remapCHR()
	case 0xE000:
		m.chrregs[1][latchFE] = val & 0x1F
		m.remapCHR()
	case 0xF000:
		ntm := ines.VertMirroring
		if val&1 != 0 {
			ntm = ines.HorzMirroring
		}
		if ntm != m.ntm {
			m.setNTMirroring(ntm)
		}
	}
}

func (m *mmc2) remapPRG() {
	if m.mmc4 {
		m.selectPRGPage16KB(0, int(m.prgbank))
		m.selectPRGPage16KB(1, -1)
		return
	}
	m.selectPRGPage8KB(0, int(m.prgbank))
	m.selectPRGPage8KB(1, -3)
	m.selectPRGPage8KB(2, -2)
	m.selectPRGPage8KB(3, -1)
}

func (m *mmc2) remapCHR() {
	m.selectCHRPage4KB(0, int(m.chrregs[0][m.latches[0]]))
	m.selectCHRPage4KB(1, int(m.chrregs[1][m.latches[1]]))
}

// WatchPPUBus implements hw.BusWatcher. Reading tiles $FD or $FE switches the
// corresponding latch, after the fetch.
func (m *mmc2) WatchPPUBus(addr uint16, _ hw.FetchKind) {
	if m.pending != [2]int8{-1, -1} {
		for i, l := range m.pending {
			if l >= 0 {
				m.latches[i] = uint8(l)
			}
		}
		m.pending = [2]int8{-1, -1}
		m.remapCHR()
	}

	if addr >= 0x2000 {
		return
	}
	switch {
	case addr == 0x0FD8 || (m.mmc4 && addr >= 0x0FD8 && addr <= 0x0FDF):
		m.pending[0] = latchFD
	case addr == 0x0FE8 || (m.mmc4 && addr >= 0x0FE8 && addr <= 0x0FEF):
		m.pending[0] = latchFE
	case addr >= 0x1FD8 && addr <= 0x1FDF:
		m.pending[1] = latchFD
	case addr >= 0x1FE8 && addr <= 0x1FEF:
		m.pending[1] = latchFE
	}
}

func (m *mmc2) SaveState(s *snapshot.Mapper) {
	m.base.SaveState(s)
	s.Regs["prgbank"] = int64(m.prgbank)
	s.Regs["chr0fd"] = int64(m.chrregs[0][latchFD])
	s.Regs["chr0fe"] = int64(m.chrregs[0][latchFE])
	s.Regs["chr1fd"] = int64(m.chrregs[1][latchFD])
	s.Regs["chr1fe"] = int64(m.chrregs[1][latchFE])
	s.Regs["latch0"] = int64(m.latches[0])
	s.Regs["latch1"] = int64(m.latches[1])
	s.Regs["pending0"] = int64(m.pending[0])
	s.Regs["pending1"] = int64(m.pending[1])
}

func (m *mmc2) LoadState(s *snapshot.Mapper) error {
	for _, k := range []string{"pending0", "pending1"} {
		if p := s.Regs[k]; p != -1 && p != latchFD && p != latchFE {
			return fmt.Errorf("invalid %s latch %d", k, p)
		}
	}
	if err := m.base.LoadState(s); err != nil {
		return err
	}
	m.prgbank = uint8(s.Regs["prgbank"])
	m.chrregs[0][latchFD] = uint8(s.Regs["chr0fd"])
	m.chrregs[0][latchFE] = uint8(s.Regs["chr0fe"])
	m.chrregs[1][latchFD] = uint8(s.Regs["chr1fd"])
	m.chrregs[1][latchFE] = uint8(s.Regs["chr1fe"])
	m.latches[0] = uint8(s.Regs["latch0"]) & 1
	m.latches[1] = uint8(s.Regs["latch1"]) & 1
	m.pending[0] = int8(s.Regs["pending0"])
	m.pending[1] = int8(s.Regs["pending1"])
	m.remapPRG()
	m.remapCHR()
	return nil
}

func loadMMC2(b *base, mmc4 bool) (hw.Cartridge, error) {
	m := &mmc2{
		base:    b,
		mmc4:    mmc4,
		latches: [2]uint8{latchFE, latchFE},
		pending: [2]int8{-1, -1},
	}
	b.init(m.WritePRGROM)

	b.setNTMirroring(ines.VertMirroring)
	m.remapPRG()
	m.remapCHR()
	return m, nil
}
