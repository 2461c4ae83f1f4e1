package hw

import "nesppu/hw/snapshot"

// A Cartridge is a game board plugged into the console. Cartridges map their
// PRG and CHR memories and registers on the CPU and PPU buses when loaded. They
// can also implement BusWatcher and ScanlineWatcher to follow the PPU.
type Cartridge interface {
	// Name returns the board (mapper) name.
	Name() string

	// Reset is called on console reset.
	Reset(soft bool)

	SaveState(*snapshot.Mapper)
	LoadState(*snapshot.Mapper) error

	// BatteryRAM returns the battery-backed RAM, if any. The slice aliases
	// the cartridge memory.
	BatteryRAM() []byte
}
