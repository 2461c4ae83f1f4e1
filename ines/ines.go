// Package ines implements a reader for roms in the iNES and NES 2.0 file
// formats, used for the distribution of NES binary programs.
package ines

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"strings"
)

//go:generate go tool stringer -type=NTMirroring,TVSystem -output=ines_string.go

var ErrBadMagic = errors.New("invalid magic number")

const Magic = "NES\x1a"

const (
	headerSize  = 16
	trainerSize = 512
	prgUnit     = 16 * 1024
	chrUnit     = 8 * 1024
)

type Rom struct {
	header
	Trainer []byte // Trainer, 512 bytes if present, or empty.
	PRGROM  []byte // PRG ROM data (length is multiples of 16k)
	CHRROM  []byte // CHR ROM data (length is multiples of 8k), empty for CHR-RAM boards
	CRC32   uint32 // CRC32 of PRG and CHR ROM
}

// ReadRom loads a rom from file.
func ReadRom(path string) (*Rom, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rom := new(Rom)
	if _, err := rom.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rom, nil
}

// ReadFrom implements io.ReaderFrom interface
func (rom *Rom) ReadFrom(r io.Reader) (int64, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	// header
	if err := rom.decode(buf); err != nil {
		return 0, fmt.Errorf("failed to decode header: %w", err)
	}
	off := headerSize

	// trainer
	if rom.HasTrainer() {
		if len(buf) < off+trainerSize {
			return 0, fmt.Errorf("incomplete TRAINER section")
		}
		rom.Trainer = buf[off : off+trainerSize]
		off += trainerSize
	}

	// PRG rom data
	if len(buf) < off+rom.prgsz {
		return 0, fmt.Errorf("incomplete PRG section: want %d bytes, got %d", rom.prgsz, len(buf)-off)
	}
	rom.PRGROM = buf[off : off+rom.prgsz]
	off += rom.prgsz

	// CHR rom data
	if len(buf) < off+rom.chrsz {
		return 0, fmt.Errorf("incomplete CHR section: want %d bytes, got %d", rom.chrsz, len(buf)-off)
	}
	rom.CHRROM = buf[off : off+rom.chrsz]
	off += rom.chrsz

	crc := crc32.NewIEEE()
	crc.Write(rom.PRGROM)
	crc.Write(rom.CHRROM)
	rom.CRC32 = crc.Sum32()

	return int64(off), nil
}

// Bytes re-encodes the rom (header, trainer, PRG and CHR).
func (rom *Rom) Bytes() []byte {
	buf := make([]byte, 0, headerSize+len(rom.Trainer)+len(rom.PRGROM)+len(rom.CHRROM))
	buf = append(buf, rom.raw[:]...)
	buf = append(buf, rom.Trainer...)
	buf = append(buf, rom.PRGROM...)
	buf = append(buf, rom.CHRROM...)
	return buf
}

func (rom *Rom) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, " PRG ROM:   %3d x 16KiB\n", len(rom.PRGROM)/prgUnit)
	fmt.Fprintf(&sb, " CHR ROM:   %3d x  8KiB\n", len(rom.CHRROM)/chrUnit)
	fmt.Fprintf(&sb, " ROM CRC32:  0x%08x\n", rom.CRC32)
	fmt.Fprintf(&sb, " Mapper #:   %d\n", rom.Mapper())
	fmt.Fprintf(&sb, " Mirroring:  %s\n", rom.Mirroring())
	fmt.Fprintf(&sb, " Battery:    %t\n", rom.HasBattery())
	fmt.Fprintf(&sb, " Trained:    %t\n", rom.HasTrainer())
	if rom.IsNES2() {
		fmt.Fprintf(&sb, " NES2.0 Extensions\n")
		fmt.Fprintf(&sb, " Sub Mapper #: %d\n", rom.SubMapper())
		fmt.Fprintf(&sb, " TV System:    %s\n", rom.TVSystem())
	}
	fmt.Fprintf(&sb, " PRG RAM:    %d bytes\n", rom.PRGRAMSize())
	if len(rom.CHRROM) == 0 {
		fmt.Fprintf(&sb, " CHR RAM:    %d bytes\n", rom.CHRRAMSize())
	}
	return sb.String()
}

type header struct {
	raw   [headerSize]byte
	prgsz int
	chrsz int
}

func (hdr *header) decode(p []byte) error {
	if len(p) < headerSize {
		return fmt.Errorf("too small, needs %d bytes", headerSize)
	}
	if string(p[:4]) != Magic {
		return ErrBadMagic
	}
	copy(hdr.raw[:], p[:headerSize])

	if hdr.IsNES2() {
		var err error
		if hdr.prgsz, err = nes2RomSize(hdr.raw[4], hdr.raw[9]&0x0F, prgUnit); err != nil {
			return fmt.Errorf("PRG ROM: %w", err)
		}
		if hdr.chrsz, err = nes2RomSize(hdr.raw[5], hdr.raw[9]>>4, chrUnit); err != nil {
			return fmt.Errorf("CHR ROM: %w", err)
		}
	} else {
		hdr.prgsz = int(hdr.raw[4]) * prgUnit
		hdr.chrsz = int(hdr.raw[5]) * chrUnit
	}
	if hdr.prgsz == 0 {
		return fmt.Errorf("no PRG ROM")
	}
	return nil
}

// Largest PRG or CHR ROM size accepted.
const maxRomSize = 1 << 30

// nes2RomSize decodes a NES 2.0 rom size, either in units or, if the msb
// nibble is $F, in exponent-multiplier notation.
func nes2RomSize(lsb, msb uint8, unit int) (int, error) {
	sz := (int(msb)<<8 | int(lsb)) * unit
	if msb == 0x0F {
		exp := int(lsb >> 2)
		if exp > 30 {
			return 0, fmt.Errorf("size 2^%d is too large", exp)
		}
		sz = (1 << exp) * (int(lsb&0x03)*2 + 1)
	}
	if sz > maxRomSize {
		return 0, fmt.Errorf("size %d is too large", sz)
	}
	return sz, nil
}

// IsNES2 reports whether the header is in NES 2.0 format.
func (hdr *header) IsNES2() bool {
	return hdr.raw[7]&0x0C == 0x08
}

// HasTrainer indicates the presence of a trainer section in the rom.
func (hdr *header) HasTrainer() bool {
	return hdr.raw[6]&0x04 != 0
}

// HasBattery indicates the presence of battery-backed (persistent) memory.
func (hdr *header) HasBattery() bool {
	return hdr.raw[6]&0x02 != 0
}

// Mapper returns the mapper number.
func (hdr *header) Mapper() uint16 {
	lo := uint16(hdr.raw[6] >> 4)
	if hdr.IsNES2() {
		return uint16(hdr.raw[8]&0x0F)<<8 | uint16(hdr.raw[7]&0xF0) | lo
	}
	// Old dumping tools wrote garbage (e.g. "DiskDude!") in bytes 7-15, in
	// that case only the lower nibble is trustworthy.
	if hdr.raw[12] != 0 || hdr.raw[13] != 0 || hdr.raw[14] != 0 || hdr.raw[15] != 0 {
		return lo
	}
	return uint16(hdr.raw[7]&0xF0) | lo
}

// SubMapper returns the NES 2.0 submapper number (0 for iNES roms).
func (hdr *header) SubMapper() uint8 {
	if !hdr.IsNES2() {
		return 0
	}
	return hdr.raw[8] >> 4
}

// NTMirroring is the nametable mirroring arrangement.
type NTMirroring uint8

const (
	HorzMirroring NTMirroring = iota
	VertMirroring
	OnlyAScreen
	OnlyBScreen
	FourScreen
)

// Mirroring returns the hard-wired nametable mirroring.
func (hdr *header) Mirroring() NTMirroring {
	switch {
	case hdr.raw[6]&0x08 != 0:
		return FourScreen
	case hdr.raw[6]&0x01 != 0:
		return VertMirroring
	}
	return HorzMirroring
}

// PRGRAMSize returns the total size of PRG-RAM (volatile and battery-backed).
// iNES roms don't always report it, in that case 8KB is assumed.
func (hdr *header) PRGRAMSize() int {
	if hdr.IsNES2() {
		return shiftSize(hdr.raw[10]&0x0F) + shiftSize(hdr.raw[10]>>4)
	}
	if hdr.raw[8] == 0 {
		return 0x2000
	}
	return int(hdr.raw[8]) * 0x2000
}

// CHRRAMSize returns the size of CHR-RAM. For iNES roms without CHR-ROM, 8KB is
// assumed.
func (hdr *header) CHRRAMSize() int {
	if hdr.IsNES2() {
		return shiftSize(hdr.raw[11]&0x0F) + shiftSize(hdr.raw[11]>>4)
	}
	if hdr.chrsz == 0 {
		return 0x2000
	}
	return 0
}

func shiftSize(n uint8) int {
	if n == 0 {
		return 0
	}
	return 64 << n
}

type TVSystem uint8

const (
	NTSC TVSystem = iota
	PAL
	MultiRegion
	Dendy
)

// TVSystem returns the timing the rom expects.
func (hdr *header) TVSystem() TVSystem {
	if hdr.IsNES2() {
		return TVSystem(hdr.raw[12] & 0x03)
	}
	if hdr.raw[9]&0x01 != 0 {
		return PAL
	}
	return NTSC
}
