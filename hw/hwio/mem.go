package hwio

import (
	"nesppu/emu/log"
)

// mem is the main structure used for linear memory access.
//
// We use this structure by pointer rather than by value because it is stored as
// BankIO8 interface within Table, and checking if a concrete pointer type is
// behind the interface is faster than checking a non-pointer type.
type mem struct {
	name string
	buf  []byte
	mask uint16
	wcb  func(uint16, uint8)
	ro   MemFlags
}

func newMem(m *Mem) *mem {
	if len(m.Data) == 0 || len(m.Data)&(len(m.Data)-1) != 0 {
		panic("memory buffer size is not pow2")
	}
	return &mem{
		name: m.Name,
		buf:  m.Data,
		mask: uint16(len(m.Data) - 1),
		wcb:  m.WriteCb,
		ro:   m.Flags,
	}
}

func (m *mem) Read8(addr uint16, _ bool) uint8 {
	return m.buf[addr&m.mask]
}

func (m *mem) Write8(addr uint16, val uint8) {
	if m.wcb != nil {
		m.wcb(addr, val)
		return
	}

	switch {
	case m.ro&MemFlagReadOnly == 0:
		m.buf[addr&m.mask] = val
	case m.ro&MemFlagNoROLog != 0:
		return
	default:
		log.ModHwIo.ErrorZ("Write8 to readonly memory").
			String("name", m.name).
			Hex8("val", val).
			Hex16("addr", addr).
			End()
	}
}

type MemFlags int

const (
	MemFlagReadWrite MemFlags = 0
	MemFlagReadOnly  MemFlags = 1 << iota // read-only accesses
	MemFlagNoROLog                        // skip logging attempts to write when configured to readonly
)

// Linear memory area that can be mapped into a Table.
//
// Mem does not implement BankIO8 itself: mapping a Mem into a Table creates an
// adaptor with the current flags. Changing the flags of a mapped Mem has no
// effect until it's mapped again.
type Mem struct {
	Name    string              // name of the memory area (for debugging)
	Data    []byte              // actual memory buffer
	VSize   int                 // virtual size of the memory (can be bigger than physical size)
	Flags   MemFlags            // flags determining how the memory can be accessed
	WriteCb func(uint16, uint8) // optional write callback (if set, the callback is called instead of writing)
}

func (m *Mem) vsize() int {
	if m.VSize == 0 {
		return len(m.Data)
	}
	return m.VSize
}
