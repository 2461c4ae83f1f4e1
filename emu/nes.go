package emu

import (
	"fmt"

	"nesppu/hw"
	"nesppu/hw/hwdefs"
	"nesppu/hw/mappers"
	"nesppu/hw/snapshot"
	"nesppu/ines"
)

// NES is the console: CPU bus, PPU and cartridge. There's no CPU core, the
// CPU bus is driven from the outside (see Scene).
type NES struct {
	CPU  *hw.CPUBus
	PPU  *hw.PPU
	Cart hw.Cartridge
	Rom  *ines.Rom
}

// PowerUp builds a console with rom inserted, in its power-up state.
func PowerUp(rom *ines.Rom) (*NES, error) {
	ppu := hw.NewPPU()
	ppu.InitBus()
	cpu := hw.NewCPUBus(ppu)
	cpu.InitBus()

	cpu.Reset(hwdefs.HardReset)
	ppu.PowerUp()

	cart, err := mappers.Load(rom, cpu, ppu)
	if err != nil {
		return nil, fmt.Errorf("power up failed: %w", err)
	}

	return &NES{
		CPU:  cpu,
		PPU:  ppu,
		Cart: cart,
		Rom:  rom,
	}, nil
}

func (nes *NES) Reset(soft bool) {
	nes.CPU.Reset(soft)
	nes.PPU.Reset(soft)
	nes.Cart.Reset(soft)
}

// Tick runs one CPU cycle.
func (nes *NES) Tick() {
	nes.CPU.Tick()
}

func (nes *NES) atVBlankStart() bool {
	return nes.PPU.Scanline == 241 && nes.PPU.Cycle >= 1
}

// RunFrame runs the console until the PPU enters the next vertical blank. The
// PPU frame then holds a complete picture.
func (nes *NES) RunFrame() {
	for nes.atVBlankStart() {
		nes.Tick()
	}
	for !nes.atVBlankStart() {
		nes.Tick()
	}
}

// Snapshot returns the current console state.
func (nes *NES) Snapshot() *snapshot.NES {
	s := &snapshot.NES{Version: snapshot.Version}
	nes.CPU.SaveState(s)
	nes.PPU.SaveState(&s.PPU)
	nes.Cart.SaveState(&s.Mapper)
	return s
}

// Restore sets the console in the state s. On error, the console is left in
// the state it was before the call.
func (nes *NES) Restore(s *snapshot.NES) error {
	if s.Version != snapshot.Version {
		return fmt.Errorf("%w: %d (want %d)", snapshot.ErrStateVersion, s.Version, snapshot.Version)
	}

	backup := nes.Snapshot()
	if err := nes.restore(s); err != nil {
		if berr := nes.restore(backup); berr != nil {
			panic(fmt.Sprintf("failed to restore backup state: %v (after %v)", berr, err))
		}
		return err
	}
	return nil
}

func (nes *NES) restore(s *snapshot.NES) error {
	if err := nes.Cart.LoadState(&s.Mapper); err != nil {
		return fmt.Errorf("mapper state: %w", err)
	}
	if err := nes.PPU.LoadState(&s.PPU); err != nil {
		return fmt.Errorf("PPU state: %w", err)
	}
	nes.CPU.LoadState(s)
	return nil
}
