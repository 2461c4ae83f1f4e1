package hw

//go:generate go tool stringer -type=FetchKind -trimprefix=Fetch -output=fetchkind_string.go

// FetchKind describes the reason of a PPU bus access.
type FetchKind uint8

const (
	FetchCPU        FetchKind = iota // PPUADDR/PPUDATA access
	FetchNametable                   // background tile index
	FetchAttribute                   // background attribute byte
	FetchBgLow                       // background pattern, low plane
	FetchBgHigh                      // background pattern, high plane
	FetchSpriteLow                   // sprite pattern, low plane
	FetchSpriteHigh                  // sprite pattern, high plane
	FetchDummy                       // unused nametable fetches at dots 337 and 339
)

// A BusWatcher is notified of each address put on the PPU bus, right before the
// corresponding read or write. Cartridges implement it to snoop the PPU bus, as
// MMC3 does with A12, or MMC2 with its CHR latches.
type BusWatcher interface {
	WatchPPUBus(addr uint16, kind FetchKind)
}

// A ScanlineWatcher is notified at dot 1 of each scanline.
type ScanlineWatcher interface {
	Scanline(line int, rendering bool)
}

// NMILine is the CPU /NMI input the PPU drives.
type NMILine interface {
	SetNMIFlag()
	ClearNMIFlag()
}

type nopNMI struct{}

func (nopNMI) SetNMIFlag()   {}
func (nopNMI) ClearNMIFlag() {}

// fetch reads the PPU bus.
func (p *PPU) fetch(addr uint16, kind FetchKind) uint8 {
	addr &= 0x3FFF
	p.busAddr = addr
	if p.busWatcher != nil {
		p.busWatcher.WatchPPUBus(addr, kind)
	}
	return p.Bus.Read8(addr, false)
}

// store writes to the PPU bus.
func (p *PPU) store(addr uint16, val uint8) {
	addr &= 0x3FFF
	p.busAddr = addr
	if p.busWatcher != nil {
		p.busWatcher.WatchPPUBus(addr, FetchCPU)
	}
	p.Bus.Write8(addr, val)
}

// setBusAddr puts addr on the PPU bus, without reading nor writing.
func (p *PPU) setBusAddr(addr uint16) {
	p.busAddr = addr & 0x3FFF
	if p.busWatcher != nil {
		p.busWatcher.WatchPPUBus(p.busAddr, FetchCPU)
	}
}

// PlugCartridge connects the cartridge hooks to the PPU, if the cartridge
// implements BusWatcher and/or ScanlineWatcher.
func (p *PPU) PlugCartridge(cart any) {
	p.busWatcher, _ = cart.(BusWatcher)
	p.lineWatcher, _ = cart.(ScanlineWatcher)
}
