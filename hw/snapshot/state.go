// Package snapshot defines the console state, as saved in save states, and its
// JSON encoding.
package snapshot

import "errors"

// Version of the snapshot format. Bump it when a change makes previous
// snapshots impossible to load.
const Version = 1

var ErrStateVersion = errors.New("unsupported state version")

type NES struct {
	Version int
	Cycles  int64
	RAM     [0x800]uint8

	NMIFlag     bool
	PrevNMIFlag bool
	IRQFlag     uint8
	OpenBus     uint8

	DMA    DMA
	PPU    PPU
	Mapper Mapper
}

type DMA struct {
	Page       uint8
	Addr       uint8
	Data       uint8
	InProgress bool
	Dummy      bool
}

type PPU struct {
	Nametables [0x800]uint8
	Palette    [0x20]uint8
	OAMMem     [0x100]uint8

	OAM        [8]Sprite
	NumSprites int

	OpenBus      uint8
	OpenBusDecay [8]uint32

	BusAddr    uint16
	OAMAddr    uint8
	VRAMAddr   uint16
	VRAMTemp   uint16
	WriteLatch bool
	PPUDataBuf uint8

	PPUBgRegs PPUBgRegs

	PPUCTRL   uint8
	PPUMASK   uint8
	PPUSTATUS uint8

	Clock      uint64
	Cycle      int
	Scanline   int
	FrameCount uint32

	OddFrame      bool
	PreventVBlank bool
}

type Sprite struct {
	ID    uint8
	X     uint8
	Y     uint8
	Tile  uint8
	Attr  uint8
	DataL uint8
	DataH uint8
}

type PPUBgRegs struct {
	Finex uint8
	NT    uint8
	AT    uint8
	BgLo  uint8
	BgHi  uint8

	// shift registers.
	BgShiftLo uint16
	BgShiftHi uint16
	ATShiftLo uint16
	ATShiftHi uint16
}

// Mapper holds the cartridge state. Registers are stored by name, so that each
// board can save what it needs.
type Mapper struct {
	Name   string
	Regs   map[string]int64
	PRGRAM []uint8
	CHRRAM []uint8
	VRAM   []uint8 // extra nametable RAM (four-screen boards)
	ExRAM  []uint8
}
