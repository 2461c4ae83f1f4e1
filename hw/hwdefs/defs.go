package hwdefs

import "strings"

// IRQSource identifies a device pulling the CPU /IRQ line low. Several sources
// can be active at the same time; the line is released when all are cleared.
type IRQSource uint8

const (
	External IRQSource = 1 << iota // cartridge mapper
	FrameCounter
	DMC

	numSources = 3
)

var irqSrcNames = [numSources]string{
	"ext",
	"fcnt",
	"dmc",
}

func (irq IRQSource) String() string {
	var names []string
	for i := range numSources {
		if irq&(1<<i) != 0 {
			names = append(names, irqSrcNames[i])
		}
	}
	return strings.Join(names, "|")
}

const (
	SoftReset = true
	HardReset = false
)

// NTSC timings.
const (
	NumScanlines   = 262 // Number of scanlines per frame.
	NumDots        = 341 // Number of PPU dots per scanline.
	DotsPerCycle   = 3   // PPU dots per CPU cycle.
	ScreenWidth    = 256
	ScreenHeight   = 240
	CyclesPerFrame = 29781
)
