package hw

import (
	"nesppu/emu/log"
	"nesppu/hw/hwdefs"
	"nesppu/hw/hwio"
)

// CPUBus is the CPU side of the console: the CPU address space, its internal
// RAM, interrupt lines and the cycle counter. It has no 6502 core, the host
// (CPU core, test or register script) drives it through Read8/Write8 and
// advances time with Tick.
type CPUBus struct {
	Bus *hwio.Table

	RAM hwio.Mem `hwio:"bank=0,offset=0x0,size=0x800,vsize=0x2000"`

	PPU    *PPU
	PPUDMA oamDMA

	Cycles int64 // CPU cycles

	// Last value seen on the data bus, returned by unmapped reads.
	openBus uint8

	// interrupt handling
	nmiFlag, prevNmiFlag bool
	irqFlag              hwdefs.IRQSource
}

// NewCPUBus creates the CPU bus and connects it to ppu.
func NewCPUBus(ppu *PPU) *CPUBus {
	b := &CPUBus{
		Bus: hwio.NewTable("cpu"),
		PPU: ppu,
	}
	ppu.NMI = b
	return b
}

func (b *CPUBus) InitBus() {
	hwio.MustInitRegs(b)
	b.Bus.Unmapped = openBusReader{b}

	// CPU internal RAM, mirrored.
	b.Bus.MapBank(0x0000, b, 0)

	// Map the 8 PPU registers (bank 1) from 0x2000 to 0x3FFF.
	for off := uint16(0x2000); off < 0x4000; off += 8 {
		b.Bus.MapBank(off, b.PPU, 1)
	}

	// Map PPU OAMDMA register.
	b.PPUDMA.InitBus(b)
	b.Bus.MapBank(0x4014, &b.PPUDMA, 0)
}

// Reset resets the bus state. RAM content is only cleared on power up.
func (b *CPUBus) Reset(soft bool) {
	if !soft {
		clear(b.RAM.Data)
		b.openBus = 0
		b.Cycles = 0
	}
	b.PPUDMA.reset()
	b.nmiFlag, b.prevNmiFlag = false, false
	b.irqFlag = 0
}

type openBusReader struct{ *CPUBus }

func (ob openBusReader) Read8(uint16, bool) uint8 { return ob.openBus }
func (ob openBusReader) Write8(uint16, uint8)     {}

// OpenBus returns the last value seen on the data bus.
func (b *CPUBus) OpenBus() uint8 { return b.openBus }

func (b *CPUBus) Read8(addr uint16, peek bool) uint8 {
	val := b.Bus.Read8(addr, peek)
	if !peek {
		b.openBus = val
	}
	return val
}

func (b *CPUBus) Peek8(addr uint16) uint8 {
	return b.Bus.Read8(addr, true)
}

func (b *CPUBus) Write8(addr uint16, val uint8) {
	b.openBus = val
	b.Bus.Write8(addr, val)
}

// Tick runs one CPU cycle: it advances the OAM DMA, if any, and runs the 3
// corresponding PPU dots.
func (b *CPUBus) Tick() {
	b.Cycles++
	b.PPUDMA.tick(b.Cycles)
	for range hwdefs.DotsPerCycle {
		b.PPU.Tick()
	}
}

// CurrentCycle returns the current CPU cycle.
func (b *CPUBus) CurrentCycle() int64 { return b.Cycles }

// Halted reports whether the CPU is halted by an OAM DMA transfer.
func (b *CPUBus) Halted() bool { return b.PPUDMA.InProgress() }

func (b *CPUBus) SetNMIFlag()   { b.nmiFlag = true }
func (b *CPUBus) ClearNMIFlag() { b.nmiFlag = false }
func (b *CPUBus) NMIFlag() bool { return b.nmiFlag }

// TakeNMI reports whether the NMI line went active since the last call. NMI is
// edge-triggered: holding the line doesn't trigger more interrupts.
func (b *CPUBus) TakeNMI() bool {
	edge := !b.prevNmiFlag && b.nmiFlag
	b.prevNmiFlag = b.nmiFlag
	return edge
}

func (b *CPUBus) SetIRQSource(src hwdefs.IRQSource) {
	if b.irqFlag&src == 0 {
		log.ModBus.DebugZ("IRQ raised").Stringer("src", src).End()
	}
	b.irqFlag |= src
}

func (b *CPUBus) ClearIRQSource(src hwdefs.IRQSource) { b.irqFlag &^= src }
func (b *CPUBus) HasIRQSource(src hwdefs.IRQSource) bool {
	return b.irqFlag&src != 0
}

// IRQPending reports whether the /IRQ line is held low by any source.
func (b *CPUBus) IRQPending() bool { return b.irqFlag != 0 }

// IRQFlag returns the current IRQ sources.
func (b *CPUBus) IRQFlag() hwdefs.IRQSource { return b.irqFlag }
