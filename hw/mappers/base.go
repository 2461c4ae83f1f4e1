package mappers

import (
	"fmt"

	"nesppu/hw"
	"nesppu/hw/hwio"
	"nesppu/hw/snapshot"
	"nesppu/ines"
)

// base holds what's common to all boards: the rom, the memories allocated from
// the header and the bank switching helpers.
type base struct {
	desc MapperDesc

	rom *ines.Rom
	cpu *hw.CPUBus
	ppu *hw.PPU

	prgram []byte
	chrram []byte
	vram   []byte // extra nametables for four-screen boards

	chr   []byte // CHR-ROM or CHR-RAM
	chrRO bool

	ntm ines.NTMirroring

	// called on writes to $8000-$FFFF.
	writePRG func(addr uint16, val uint8)
}

func ispow2(n int) bool {
	return n&(n-1) == 0
}

func newbase(desc MapperDesc, rom *ines.Rom, cpu *hw.CPUBus, ppu *hw.PPU) (*base, error) {
	if !ispow2(len(rom.PRGROM)) || len(rom.PRGROM) < 0x2000 {
		return nil, fmt.Errorf("only support PRGROM with power of 2 size, got %d", len(rom.PRGROM))
	}
	if len(rom.CHRROM) != 0 && (!ispow2(len(rom.CHRROM)) || len(rom.CHRROM) < 0x2000) {
		return nil, fmt.Errorf("only support CHRROM with power of 2 size, got %d", len(rom.CHRROM))
	}

	b := &base{desc: desc, rom: rom, cpu: cpu, ppu: ppu}

	if sz := rom.PRGRAMSize(); sz > 0 {
		b.prgram = make([]byte, max(sz, 0x2000))
	}

	if len(rom.CHRROM) != 0 {
		b.chr = rom.CHRROM
		b.chrRO = true
	} else {
		b.chrram = make([]byte, max(rom.CHRRAMSize(), 0x2000))
		b.chr = b.chrram
	}

	if rom.Mirroring() == ines.FourScreen {
		b.vram = make([]byte, 0x800)
	}
	return b, nil
}

// init maps PRG-RAM, if present, at $6000-$7FFF and sets the callback for
// writes to $8000-$FFFF.
func (b *base) init(writePRG func(addr uint16, val uint8)) {
	b.writePRG = writePRG
	if b.prgram != nil {
		b.cpu.Bus.MapMemorySlice(0x6000, 0x7FFF, b.prgram[:0x2000], false)
	}
}

func (b *base) Name() string { return b.desc.Name }

func (b *base) Reset(soft bool) {}

// BatteryRAM implements hw.Cartridge.
func (b *base) BatteryRAM() []byte {
	if !b.rom.HasBattery() {
		return nil
	}
	return b.prgram
}

func (b *base) SaveState(s *snapshot.Mapper) {
	s.Name = b.desc.Name
	s.Regs = map[string]int64{
		"mirroring": int64(b.ntm),
	}
	s.PRGRAM = append([]byte(nil), b.prgram...)
	s.CHRRAM = append([]byte(nil), b.chrram...)
	s.VRAM = append([]byte(nil), b.vram...)
}

func (b *base) LoadState(s *snapshot.Mapper) error {
	if s.Name != b.desc.Name {
		return fmt.Errorf("state is for mapper %q, not %q", s.Name, b.desc.Name)
	}
	ntm := s.Regs["mirroring"]
	if ntm < 0 || ntm > int64(ines.FourScreen) {
		return fmt.Errorf("invalid mirroring %d", ntm)
	}
	mems := []struct {
		name     string
		dst, src []byte
	}{
		{"PRGRAM", b.prgram, s.PRGRAM},
		{"CHRRAM", b.chrram, s.CHRRAM},
		{"VRAM", b.vram, s.VRAM},
	}
	for _, m := range mems {
		if len(m.dst) != len(m.src) {
			return fmt.Errorf("%s size mismatch: got %d bytes, want %d", m.name, len(m.src), len(m.dst))
		}
	}
	for _, m := range mems {
		copy(m.dst, m.src)
	}
	b.setNTMirroring(ines.NTMirroring(ntm))
	return nil
}

// bankOffset returns the offset of the given bank in a memory of memsz bytes,
// split in banks of banksz bytes. Negative bank numbers count from the end,
// -1 being the last bank.
func bankOffset(memsz, banksz, bank int) int {
	nbanks := memsz / banksz
	if nbanks == 0 {
		return 0
	}
	if bank < 0 {
		bank += nbanks
	}
	bank %= nbanks
	if bank < 0 {
		bank += nbanks
	}
	return bank * banksz
}

func (b *base) selectPRGPage(slot, bank, size int) {
	data := b.rom.PRGROM
	if size <= len(data) {
		off := bankOffset(len(data), size, bank)
		data = data[off : off+size]
	}
	// Smaller ROMs are mirrored over the whole slot.
	b.cpu.Bus.MapMem(uint16(0x8000+slot*size), &hwio.Mem{
		Name:    "PRGROM",
		Data:    data,
		VSize:   size,
		Flags:   hwio.MemFlagReadOnly,
		WriteCb: b.writePRG,
	})
}

// selectPRGPage8KB maps an 8KB PRG bank in one of the 4 slots at $8000, $A000,
// $C000 and $E000.
func (b *base) selectPRGPage8KB(slot, bank int) {
	b.selectPRGPage(slot, bank, 0x2000)
}

// selectPRGPage16KB maps a 16KB PRG bank at $8000 (slot 0) or $C000 (slot 1).
func (b *base) selectPRGPage16KB(slot, bank int) {
	b.selectPRGPage(slot, bank, 0x4000)
}

// selectPRGPage32KB maps a 32KB PRG bank at $8000.
func (b *base) selectPRGPage32KB(bank int) {
	b.selectPRGPage(0, bank, 0x8000)
}

func (b *base) selectCHRPage(slot, bank, size int) {
	off := bankOffset(len(b.chr), size, bank)
	var flags hwio.MemFlags
	if b.chrRO {
		// Some games write to CHR-ROM, don't flood the logs.
		flags = hwio.MemFlagReadOnly | hwio.MemFlagNoROLog
	}
	b.ppu.Bus.MapMem(uint16(slot*size), &hwio.Mem{
		Name:  "CHR",
		Data:  b.chr[off : off+size],
		Flags: flags,
	})
}

func (b *base) selectCHRPage1KB(slot, bank int) { b.selectCHRPage(slot, bank, 0x400) }
func (b *base) selectCHRPage2KB(slot, bank int) { b.selectCHRPage(slot, bank, 0x800) }
func (b *base) selectCHRPage4KB(slot, bank int) { b.selectCHRPage(slot, bank, 0x1000) }
func (b *base) selectCHRPage8KB(bank int)       { b.selectCHRPage(0, bank, 0x2000) }

// setNTMirroring maps the nametables in $2000-$2FFF, and their mirrors in
// $3000-$3EFF, according to the given mirroring.
func (b *base) setNTMirroring(m ines.NTMirroring) {
	A := b.ppu.Nametables[:0x400]
	B := b.ppu.Nametables[0x400:0x800]

	var nt [4][]byte
	switch m {
	case ines.HorzMirroring:
		nt = [4][]byte{A, A, B, B}
	case ines.VertMirroring:
		nt = [4][]byte{A, B, A, B}
	case ines.OnlyAScreen:
		nt = [4][]byte{A, A, A, A}
	case ines.OnlyBScreen:
		nt = [4][]byte{B, B, B, B}
	case ines.FourScreen:
		if b.vram == nil {
			b.vram = make([]byte, 0x800)
		}
		nt = [4][]byte{A, B, b.vram[:0x400], b.vram[0x400:]}
	default:
		panic(fmt.Sprintf("unsupported mirroring %d", m))
	}
	b.ntm = m
	b.mapNametables(nt)
}

func (b *base) mapNametables(nt [4][]byte) {
	for i := range 4 {
		addr := uint16(0x2000 + i*0x400)
		b.ppu.Bus.MapMemorySlice(addr, addr+0x3FF, nt[i], false)
		// Mirrors
		mirror := addr + 0x1000
		end := min(mirror+0x3FF, 0x3EFF)
		b.ppu.Bus.MapMemorySlice(mirror, end, nt[i], false)
	}
}

// busConflict returns the value actually written when a board has bus
// conflicts: the ROM drives the bus at the same time as the CPU.
func (b *base) busConflict(addr uint16, val uint8) uint8 {
	return val & b.cpu.Peek8(addr)
}

func btoi(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
