package tests

import (
	"bytes"
	"testing"

	"nesppu/ines"
)

// RomSpec describes a synthetic rom.
type RomSpec struct {
	Mapper    uint16
	SubMapper uint8
	NES2      bool
	PRGBanks  int // 16KB units
	CHRBanks  int // 8KB units, 0 for CHR-RAM
	Vertical  bool
	FourScr   bool
	Battery   bool
	PRGRAM    uint8 // NES 2.0 PRG-RAM shift count (volatile)
	CHRRAM    uint8 // NES 2.0 CHR-RAM shift count (volatile)
}

// PRGBankTag and CHRBankTag return the byte found at the first address of each
// bank of a rom built with NewRom: 8KB PRG banks are filled with their index,
// 1KB CHR banks start with their index | 0x80.
func PRGBankTag(bank8k int) uint8 { return uint8(bank8k) }
func CHRBankTag(bank1k int) uint8 { return uint8(bank1k) | 0x80 }

// EncodeRom creates the raw bytes of a rom following spec, with PRG and CHR
// banks tagged as described by PRGBankTag and CHRBankTag.
func EncodeRom(spec RomSpec) []byte {
	hdr := make([]byte, 16)
	copy(hdr, ines.Magic)
	hdr[4] = uint8(spec.PRGBanks)
	hdr[5] = uint8(spec.CHRBanks)
	hdr[6] = uint8(spec.Mapper&0x0F) << 4
	if spec.Vertical {
		hdr[6] |= 0x01
	}
	if spec.Battery {
		hdr[6] |= 0x02
	}
	if spec.FourScr {
		hdr[6] |= 0x08
	}
	hdr[7] = uint8(spec.Mapper & 0xF0)
	if spec.NES2 {
		hdr[7] |= 0x08
		hdr[8] = uint8(spec.Mapper>>8)&0x0F | spec.SubMapper<<4
		hdr[10] = spec.PRGRAM & 0x0F
		hdr[11] = spec.CHRRAM & 0x0F
	}

	prg := make([]byte, spec.PRGBanks*0x4000)
	for i := range prg {
		prg[i] = PRGBankTag(i / 0x2000)
	}
	chr := make([]byte, spec.CHRBanks*0x2000)
	for i := 0; i < len(chr); i += 0x400 {
		chr[i] = CHRBankTag(i / 0x400)
	}

	var buf bytes.Buffer
	buf.Write(hdr)
	buf.Write(prg)
	buf.Write(chr)
	return buf.Bytes()
}

// NewRom creates a synthetic rom following spec.
func NewRom(tb testing.TB, spec RomSpec) *ines.Rom {
	tb.Helper()

	rom := new(ines.Rom)
	if _, err := rom.ReadFrom(bytes.NewReader(EncodeRom(spec))); err != nil {
		tb.Fatalf("failed to build rom: %v", err)
	}
	return rom
}
