package hw

import (
	"nesppu/emu/log"
	"nesppu/hw/hwio"
	"nesppu/hw/snapshot"
)

// oamDMA implements the OAMDMA register ($4014).
//
// Writing $XX copies the CPU page $XX00-$XXFF into OAM, one byte every 2 CPU
// cycles, through OAMDATA. Reads happen on even cycles and writes on odd ones,
// so after the initial halt cycle, a transfer started on an odd cycle waits
// one more cycle: it lasts 513 or 514 cycles, during which the CPU is halted.
type oamDMA struct {
	bus hwio.BankIO8

	OAMDMA hwio.Reg8 `hwio:"offset=0x00,writeonly,wcb"`

	page   uint8 // source page
	offset uint8 // offset of the next byte to copy
	latch  uint8 // last byte read, waiting to be written
	active bool
	align  bool // in halt/alignment cycles
}

func (dma *oamDMA) InitBus(bus hwio.BankIO8) {
	hwio.MustInitRegs(dma)
	dma.bus = bus
	dma.reset()
}

func (dma *oamDMA) reset() {
	dma.page, dma.offset, dma.latch = 0, 0, 0
	dma.active = false
	dma.align = true
}

func (dma *oamDMA) WriteOAMDMA(_, val uint8) {
	log.ModDMA.DebugZ("OAMDMA write").Hex8("page", val).End()
	dma.page = val
	dma.offset = 0
	dma.active = true
	dma.align = true
}

// InProgress reports whether a transfer is running.
func (dma *oamDMA) InProgress() bool { return dma.active }

func (dma *oamDMA) src() uint16 { return uint16(dma.page)<<8 | uint16(dma.offset) }

// tick runs the transfer for the given CPU cycle.
func (dma *oamDMA) tick(cycle int64) {
	if !dma.active {
		return
	}

	odd := cycle&1 == 1
	switch {
	case dma.align:
		if odd {
			dma.align = false
			log.ModDMA.DebugZ("OAM DMA start").Hex8("page", dma.page).Int64("cycle", cycle).End()
		}
	case !odd:
		dma.latch = dma.bus.Read8(dma.src(), false)
	default:
		dma.bus.Write8(0x2004, dma.latch)
		dma.offset++
		if dma.offset == 0 {
			log.ModDMA.DebugZ("OAM DMA end").Hex8("page", dma.page).Int64("cycle", cycle).End()
			dma.active = false
			dma.align = true
		}
	}
}

func (dma *oamDMA) saveState(s *snapshot.DMA) {
	*s = snapshot.DMA{
		Page:       dma.page,
		Addr:       dma.offset,
		Data:       dma.latch,
		InProgress: dma.active,
		Dummy:      dma.align,
	}
}

func (dma *oamDMA) loadState(s *snapshot.DMA) {
	dma.page = s.Page
	dma.offset = s.Addr
	dma.latch = s.Data
	dma.active = s.InProgress
	dma.align = s.Dummy
}
