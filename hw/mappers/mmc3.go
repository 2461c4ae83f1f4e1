package mappers

import (
	"strconv"

	"nesppu/hw"
	"nesppu/hw/hwdefs"
	"nesppu/hw/hwio"
	"nesppu/hw/snapshot"
	"nesppu/ines"
)

var MMC3 = MapperDesc{
	Name: "MMC3",
	Load: loadMMC3,
}

// The MMC3 ignores A12 rising edges if A12 was low for less than ~3 M2
// cycles. Expressed in PPU dots.
const mmc3A12Filter = 10

type mmc3 struct {
	*base

	PRGRAM hwio.Device

	// $8000
	target  uint8
	prgmode uint8
	chrinv  uint8

	regs [8]uint8 // R0-R7

	ramEnabled bool
	ramProtect bool

	irqLatch   uint8
	irqCounter uint8
	irqReload  bool
	irqEnabled bool

	a12      bool
	a12LowAt uint64 // PPU clock at which A12 went low
}

func (m *mmc3) WritePRGROM(addr uint16, val uint8) {
	switch addr & 0xE001 {
	case 0x8000:
		// 7  bit  0
		// ---- ----
		// CPMx xRRR
		// |||   |||
		// |||   +++- Specify which bank register to update on next write to Bank Data register
		// ||+------- Nothing on the MMC3
		// |+-------- PRG ROM bank mode (0: $8000-$9FFF swappable,
		// |                                $C000-$DFFF fixed to second-last bank;
		// |                             1: $C000-$DFFF swappable,
		// |                                $8000-$9FFF fixed to second-last bank)
		// +--------- CHR A12 inversion (0: two 2 KB banks at $0000-$0FFF,
		//                                  four 1 KB banks at $1000-$1FFF;
		//                               1: two 2 KB banks at $1000-$1FFF,
		//                                  four 1 KB banks at $0000-$0FFF)
		m.target = val & 0x07
		m.prgmode = (val >> 6) & 1
		m.chrinv = (val >> 7) & 1
		m.remap()
	case 0x8001:
		m.regs[m.target] = val
		m.remap()
	case 0xA000:
		if m.rom.Mirroring() != ines.FourScreen {
			ntm := ines.VertMirroring
			if val&1 != 0 {
				ntm = ines.HorzMirroring
			}
			if ntm != m.ntm {
				m.setNTMirroring(ntm)
			}
		}
	case 0xA001:
		m.ramEnabled = val&0x80 != 0
		m.ramProtect = val&0x40 != 0
	case 0xC000:
		m.irqLatch = val
	case 0xC001:
		m.irqCounter = 0
		m.irqReload = true
	case 0xE000:
		m.irqEnabled = false
		m.cpu.ClearIRQSource(hwdefs.External)
	case 0xE001:
		m.irqEnabled = true
	}
}

func (m *mmc3) remap() {
	// CHR
	var inv int
	if m.chrinv == 1 {
		inv = 4
	}
	m.selectCHRPage1KB(0^inv, int(m.regs[0]&0xFE))
	m.selectCHRPage1KB(1^inv, int(m.regs[0]|0x01))
	m.selectCHRPage1KB(2^inv, int(m.regs[1]&0xFE))
	m.selectCHRPage1KB(3^inv, int(m.regs[1]|0x01))
	m.selectCHRPage1KB(4^inv, int(m.regs[2]))
	m.selectCHRPage1KB(5^inv, int(m.regs[3]))
	m.selectCHRPage1KB(6^inv, int(m.regs[4]))
	m.selectCHRPage1KB(7^inv, int(m.regs[5]))

	// PRG
	r6 := int(m.regs[6] & 0x3F)
	r7 := int(m.regs[7] & 0x3F)
	if m.prgmode == 0 {
		m.selectPRGPage8KB(0, r6)
		m.selectPRGPage8KB(2, -2)
	} else {
		m.selectPRGPage8KB(0, -2)
		m.selectPRGPage8KB(2, r6)
	}
	m.selectPRGPage8KB(1, r7)
	m.selectPRGPage8KB(3, -1)
}

func (m *mmc3) ReadPRGRAM(addr uint16) uint8 {
	if !m.ramEnabled {
		return m.cpu.OpenBus()
	}
	return m.prgram[addr&0x1FFF]
}

func (m *mmc3) WritePRGRAM(addr uint16, val uint8) {
	if !m.ramEnabled || m.ramProtect {
		return
	}
	m.prgram[addr&0x1FFF] = val
}

// WatchPPUBus implements hw.BusWatcher. The scanline counter is clocked on
// filtered rising edges of PPU A12.
func (m *mmc3) WatchPPUBus(addr uint16, _ hw.FetchKind) {
	if addr&0x1000 == 0 {
		if m.a12 {
			m.a12LowAt = m.ppu.Clock
		}
		m.a12 = false
		return
	}
	if !m.a12 && m.ppu.Clock-m.a12LowAt >= mmc3A12Filter {
		m.clockIRQ()
	}
	m.a12 = true
}

func (m *mmc3) clockIRQ() {
	if m.irqCounter == 0 || m.irqReload {
		m.irqCounter = m.irqLatch
		m.irqReload = false
	} else {
		m.irqCounter--
	}
	if m.irqCounter == 0 && m.irqEnabled {
		m.cpu.SetIRQSource(hwdefs.External)
	}
}

func (m *mmc3) Reset(soft bool) {
	m.irqEnabled = false
	m.cpu.ClearIRQSource(hwdefs.External)
}

func (m *mmc3) SaveState(s *snapshot.Mapper) {
	m.base.SaveState(s)
	s.Regs["target"] = int64(m.target)
	s.Regs["prgmode"] = int64(m.prgmode)
	s.Regs["chrinv"] = int64(m.chrinv)
	for i, r := range m.regs {
		s.Regs["r"+strconv.Itoa(i)] = int64(r)
	}
	s.Regs["ramenabled"] = btoi(m.ramEnabled)
	s.Regs["ramprotect"] = btoi(m.ramProtect)
	s.Regs["irqlatch"] = int64(m.irqLatch)
	s.Regs["irqcounter"] = int64(m.irqCounter)
	s.Regs["irqreload"] = btoi(m.irqReload)
	s.Regs["irqenabled"] = btoi(m.irqEnabled)
	s.Regs["a12"] = btoi(m.a12)
	s.Regs["a12lowat"] = int64(m.a12LowAt)
}

func (m *mmc3) LoadState(s *snapshot.Mapper) error {
	if err := m.base.LoadState(s); err != nil {
		return err
	}
	m.target = uint8(s.Regs["target"]) & 7
	m.prgmode = uint8(s.Regs["prgmode"]) & 1
	m.chrinv = uint8(s.Regs["chrinv"]) & 1
	for i := range m.regs {
		m.regs[i] = uint8(s.Regs["r"+strconv.Itoa(i)])
	}
	m.ramEnabled = s.Regs["ramenabled"] != 0
	m.ramProtect = s.Regs["ramprotect"] != 0
	m.irqLatch = uint8(s.Regs["irqlatch"])
	m.irqCounter = uint8(s.Regs["irqcounter"])
	m.irqReload = s.Regs["irqreload"] != 0
	m.irqEnabled = s.Regs["irqenabled"] != 0
	m.a12 = s.Regs["a12"] != 0
	m.a12LowAt = uint64(s.Regs["a12lowat"])
	m.remap()
	return nil
}

func loadMMC3(b *base) (hw.Cartridge, error) {
	mmc3 := &mmc3{base: b}
	b.init(mmc3.WritePRGROM)

	if b.prgram != nil {
		mmc3.PRGRAM = hwio.Device{
			Name:    "PRGRAM",
			Size:    0x2000,
			ReadCb:  mmc3.ReadPRGRAM,
			PeekCb:  mmc3.ReadPRGRAM,
			WriteCb: mmc3.WritePRGRAM,
		}
		b.cpu.Bus.MapDevice(0x6000, &mmc3.PRGRAM)
	}

	b.setNTMirroring(b.rom.Mirroring())
	mmc3.regs = [8]uint8{0, 2, 4, 5, 6, 7, 0, 1}
	mmc3.remap()
	return mmc3, nil
}
