package hwio

import (
	"fmt"

	"nesppu/emu/log"
)

// log unmapped accesses (useful for debugging but verbose on NES since many
// games read from open bus)
const logUnmapped = false

// NumAddrs is the size of the 16-bit address space.
const NumAddrs = 0x10000

type BankIO8 interface {
	// Read8 reads a byte from the given address. If peek is true, the read
	// shouldn't have any side effects (debugging/tracing).
	Read8(addr uint16, peek bool) uint8
	Write8(addr uint16, val uint8)
}

func Write16(b BankIO8, addr uint16, val uint16) {
	b.Write8(addr, uint8(val))
	b.Write8(addr+1, uint8(val>>8))
}

func Read16(b BankIO8, addr uint16) uint16 {
	lo := b.Read8(addr, false)
	hi := b.Read8(addr+1, false)
	return uint16(hi)<<8 | uint16(lo)
}

// Table is an address space. Each address is routed to the BankIO8 that has
// been mapped last at that address. Remapping an address simply replaces the
// previous mapping, which is how mappers perform bank switching.
type Table struct {
	Name string

	// Unmapped, if set, handles accesses to unmapped addresses (open bus).
	Unmapped BankIO8

	table8 *[NumAddrs]BankIO8
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	t.Reset()
	return t
}

func (t *Table) Reset() {
	t.table8 = new([NumAddrs]BankIO8)
}

// Map a register bank (that is, a structure containing mulitple Reg8/Mem/Device
// fields). For this function to work, registers must have a struct tag "hwio",
// containing the following fields:
//
//	offset=0x12     Byte-offset within the register bank at which this
//	                register is mapped. There is no default value: if this
//	                option is missing, the register is assumed not to be
//	                part of the bank, and is ignored by this call.
//
//	bank=NN         Ordinal bank number (if not specified, default to zero).
//	                This option allows for a structure to expose multiple
//	                banks, as regs can be grouped by bank by specified the
//	                bank number.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Mem:
			t.MapMem(addr+reg.offset, r)
		case *Reg8:
			t.MapReg8(addr+reg.offset, r)
		case *Device:
			t.MapDevice(addr+reg.offset, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) UnmapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Mem:
			t.Unmap(addr+reg.offset, addr+reg.offset+uint16(r.vsize()-1))
		case *Reg8:
			t.Unmap(addr+reg.offset, addr+reg.offset)
		case *Device:
			t.Unmap(addr+reg.offset, addr+reg.offset+uint16(r.Size-1))
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) mapBus8(addr uint16, size int, io BankIO8) {
	end := int(addr) + size
	if size <= 0 || end > NumAddrs {
		panic(fmt.Errorf("%s: invalid mapping at %04X (size %d)", t.Name, addr, size))
	}
	for a := int(addr); a < end; a++ {
		t.table8[a] = io
	}
}

func (t *Table) MapReg8(addr uint16, io *Reg8) {
	t.mapBus8(addr, 1, io)
}

func (t *Table) MapDevice(addr uint16, io *Device) {
	t.mapBus8(addr, io.Size, io)
}

func (t *Table) MapMem(addr uint16, m *Mem) {
	log.ModHwIo.DebugZ("mapping mem").
		Hex16("addr", addr).
		Int("size", m.vsize()).
		String("area", m.Name).
		String("bus", t.Name).
		End()

	t.mapBus8(addr, m.vsize(), newMem(m))
}

// MapMemorySlice maps buf over [addr, end]. The buffer is mirrored if the
// range is bigger than the buffer.
func (t *Table) MapMemorySlice(addr, end uint16, buf []uint8, readonly bool) {
	var flags MemFlags
	if readonly {
		flags |= MemFlagReadOnly
	}
	t.MapMem(addr, &Mem{
		Data:  buf,
		Flags: flags,
		VSize: int(end) - int(addr) + 1,
	})
}

func (t *Table) Unmap(begin, end uint16) {
	for a := int(begin); a <= int(end); a++ {
		t.table8[a] = nil
	}
}

// Read8 searches in the table for the device mapped at the given address and
// forward the read to it. Accesses to unmapped addresses are forwarded to the
// Unmapped handler if any.
func (t *Table) Read8(addr uint16, peek bool) uint8 {
	io := t.table8[addr]
	if io == nil {
		if logUnmapped && !peek {
			log.ModHwIo.ErrorZ("unmapped Read8").
				String("name", t.Name).
				Hex16("addr", addr).
				End()
		}
		if t.Unmapped != nil {
			return t.Unmapped.Read8(addr, peek)
		}
		return 0
	}
	return io.Read8(addr, peek)
}

// Peek8 is a convenience function.
func (t *Table) Peek8(addr uint16) uint8 {
	return t.Read8(addr, true)
}

func (t *Table) Write8(addr uint16, val uint8) {
	io := t.table8[addr]
	if io == nil {
		if logUnmapped {
			log.ModHwIo.ErrorZ("unmapped Write8").
				String("name", t.Name).
				Hex16("addr", addr).
				Hex8("val", val).
				End()
		}
		if t.Unmapped != nil {
			t.Unmapped.Write8(addr, val)
		}
		return
	}
	io.Write8(addr, val)
}

// IsMapped reports whether something is mapped at addr.
func (t *Table) IsMapped(addr uint16) bool {
	return t.table8[addr] != nil
}
