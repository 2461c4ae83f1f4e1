package mappers

import (
	"errors"
	"fmt"

	"nesppu/emu/log"
	"nesppu/hw"
	"nesppu/ines"
)

var modMapper = log.NewModule("mapper")

// ErrUnsupportedMapper is returned by Load for roms using a board we don't
// emulate.
var ErrUnsupportedMapper = errors.New("unsupported mapper")

// Load creates the cartridge for rom, maps it on the CPU and PPU buses and
// plugs it to the PPU.
func Load(rom *ines.Rom, cpu *hw.CPUBus, ppu *hw.PPU) (hw.Cartridge, error) {
	desc, ok := All[rom.Mapper()]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrUnsupportedMapper, rom.Mapper())
	}
	base, err := newbase(desc, rom, cpu, ppu)
	if err != nil {
		return nil, fmt.Errorf("mapper initialization failed: %w", err)
	}
	cart, err := desc.Load(base)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapper %s: %w", desc.Name, err)
	}
	ppu.PlugCartridge(cart)

	modMapper.InfoZ("cartridge loaded").
		String("mapper", desc.Name).
		Int("prgrom", len(rom.PRGROM)).
		Int("chrrom", len(rom.CHRROM)).
		Int("prgram", len(base.prgram)).
		Int("chrram", len(base.chrram)).
		Stringer("mirroring", rom.Mirroring()).
		End()
	return cart, nil
}

type MapperDesc struct {
	Name string
	Load func(*base) (hw.Cartridge, error)
}

var All = map[uint16]MapperDesc{
	0:  NROM,
	1:  MMC1,
	2:  UxROM,
	3:  CNROM,
	4:  MMC3,
	5:  MMC5,
	7:  AxROM,
	9:  MMC2,
	10: MMC4,
	66: GxROM,
}
