package snapshot

import (
	"fmt"
	"maps"
	"slices"

	"github.com/go-faster/jx"
)

// MarshalJSON implements json.Marshaler.
func (s *NES) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	s.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *NES) UnmarshalJSON(buf []byte) error {
	return s.Decode(jx.DecodeBytes(buf))
}

func (s *NES) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("Version")
	e.Int(s.Version)
	e.FieldStart("Cycles")
	e.Int64(s.Cycles)
	e.FieldStart("RAM")
	e.Base64(s.RAM[:])
	e.FieldStart("NMIFlag")
	e.Bool(s.NMIFlag)
	e.FieldStart("PrevNMIFlag")
	e.Bool(s.PrevNMIFlag)
	e.FieldStart("IRQFlag")
	e.UInt8(s.IRQFlag)
	e.FieldStart("OpenBus")
	e.UInt8(s.OpenBus)
	e.FieldStart("DMA")
	s.DMA.Encode(e)
	e.FieldStart("PPU")
	s.PPU.Encode(e)
	e.FieldStart("Mapper")
	s.Mapper.Encode(e)
	e.ObjEnd()
}

func (s *NES) Decode(d *jx.Decoder) error {
	s.Version = 0
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "Version":
			s.Version, err = d.Int()
		case "Cycles":
			s.Cycles, err = d.Int64()
		case "RAM":
			err = decodeBytes(d, s.RAM[:])
		case "NMIFlag":
			s.NMIFlag, err = d.Bool()
		case "PrevNMIFlag":
			s.PrevNMIFlag, err = d.Bool()
		case "IRQFlag":
			s.IRQFlag, err = d.UInt8()
		case "OpenBus":
			s.OpenBus, err = d.UInt8()
		case "DMA":
			err = s.DMA.Decode(d)
		case "PPU":
			err = s.PPU.Decode(d)
		case "Mapper":
			err = s.Mapper.Decode(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.Version != Version {
		return fmt.Errorf("%w: %d (want %d)", ErrStateVersion, s.Version, Version)
	}
	return nil
}

func (s *DMA) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("Page")
	e.UInt8(s.Page)
	e.FieldStart("Addr")
	e.UInt8(s.Addr)
	e.FieldStart("Data")
	e.UInt8(s.Data)
	e.FieldStart("InProgress")
	e.Bool(s.InProgress)
	e.FieldStart("Dummy")
	e.Bool(s.Dummy)
	e.ObjEnd()
}

func (s *DMA) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "Page":
			s.Page, err = d.UInt8()
		case "Addr":
			s.Addr, err = d.UInt8()
		case "Data":
			s.Data, err = d.UInt8()
		case "InProgress":
			s.InProgress, err = d.Bool()
		case "Dummy":
			s.Dummy, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	})
}

func (s *PPU) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("Nametables")
	e.Base64(s.Nametables[:])
	e.FieldStart("Palette")
	e.Base64(s.Palette[:])
	e.FieldStart("OAMMem")
	e.Base64(s.OAMMem[:])
	e.FieldStart("OAM")
	e.ArrStart()
	for i := range s.OAM {
		s.OAM[i].Encode(e)
	}
	e.ArrEnd()
	e.FieldStart("NumSprites")
	e.Int(s.NumSprites)
	e.FieldStart("OpenBus")
	e.UInt8(s.OpenBus)
	e.FieldStart("OpenBusDecay")
	e.ArrStart()
	for _, v := range s.OpenBusDecay {
		e.UInt32(v)
	}
	e.ArrEnd()
	e.FieldStart("BusAddr")
	e.UInt16(s.BusAddr)
	e.FieldStart("OAMAddr")
	e.UInt8(s.OAMAddr)
	e.FieldStart("VRAMAddr")
	e.UInt16(s.VRAMAddr)
	e.FieldStart("VRAMTemp")
	e.UInt16(s.VRAMTemp)
	e.FieldStart("WriteLatch")
	e.Bool(s.WriteLatch)
	e.FieldStart("PPUDataBuf")
	e.UInt8(s.PPUDataBuf)
	e.FieldStart("PPUBgRegs")
	s.PPUBgRegs.Encode(e)
	e.FieldStart("PPUCTRL")
	e.UInt8(s.PPUCTRL)
	e.FieldStart("PPUMASK")
	e.UInt8(s.PPUMASK)
	e.FieldStart("PPUSTATUS")
	e.UInt8(s.PPUSTATUS)
	e.FieldStart("Clock")
	e.UInt64(s.Clock)
	e.FieldStart("Cycle")
	e.Int(s.Cycle)
	e.FieldStart("Scanline")
	e.Int(s.Scanline)
	e.FieldStart("FrameCount")
	e.UInt32(s.FrameCount)
	e.FieldStart("OddFrame")
	e.Bool(s.OddFrame)
	e.FieldStart("PreventVBlank")
	e.Bool(s.PreventVBlank)
	e.ObjEnd()
}

func (s *PPU) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "Nametables":
			err = decodeBytes(d, s.Nametables[:])
		case "Palette":
			err = decodeBytes(d, s.Palette[:])
		case "OAMMem":
			err = decodeBytes(d, s.OAMMem[:])
		case "OAM":
			i := 0
			err = d.Arr(func(d *jx.Decoder) error {
				if i >= len(s.OAM) {
					return fmt.Errorf("too many sprites")
				}
				i++
				return s.OAM[i-1].Decode(d)
			})
		case "NumSprites":
			s.NumSprites, err = d.Int()
		case "OpenBus":
			s.OpenBus, err = d.UInt8()
		case "OpenBusDecay":
			i := 0
			err = d.Arr(func(d *jx.Decoder) error {
				if i >= len(s.OpenBusDecay) {
					return fmt.Errorf("too many values")
				}
				v, err := d.UInt32()
				s.OpenBusDecay[i] = v
				i++
				return err
			})
		case "BusAddr":
			s.BusAddr, err = d.UInt16()
		case "OAMAddr":
			s.OAMAddr, err = d.UInt8()
		case "VRAMAddr":
			s.VRAMAddr, err = d.UInt16()
		case "VRAMTemp":
			s.VRAMTemp, err = d.UInt16()
		case "WriteLatch":
			s.WriteLatch, err = d.Bool()
		case "PPUDataBuf":
			s.PPUDataBuf, err = d.UInt8()
		case "PPUBgRegs":
			err = s.PPUBgRegs.Decode(d)
		case "PPUCTRL":
			s.PPUCTRL, err = d.UInt8()
		case "PPUMASK":
			s.PPUMASK, err = d.UInt8()
		case "PPUSTATUS":
			s.PPUSTATUS, err = d.UInt8()
		case "Clock":
			s.Clock, err = d.UInt64()
		case "Cycle":
			s.Cycle, err = d.Int()
		case "Scanline":
			s.Scanline, err = d.Int()
		case "FrameCount":
			s.FrameCount, err = d.UInt32()
		case "OddFrame":
			s.OddFrame, err = d.Bool()
		case "PreventVBlank":
			s.PreventVBlank, err = d.Bool()
		default:
			err = d.Skip()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
}

func (s *Sprite) Encode(e *jx.Encoder) {
	e.ArrStart()
	for _, v := range [...]uint8{s.ID, s.X, s.Y, s.Tile, s.Attr, s.DataL, s.DataH} {
		e.UInt8(v)
	}
	e.ArrEnd()
}

// Decode decodes a sprite, stored as an array of 7 bytes.
func (s *Sprite) Decode(d *jx.Decoder) error {
	fields := [...]*uint8{&s.ID, &s.X, &s.Y, &s.Tile, &s.Attr, &s.DataL, &s.DataH}
	i := 0
	return d.Arr(func(d *jx.Decoder) error {
		if i >= len(fields) {
			return fmt.Errorf("invalid sprite")
		}
		v, err := d.UInt8()
		*fields[i] = v
		i++
		return err
	})
}

func (s *PPUBgRegs) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("Finex")
	e.UInt8(s.Finex)
	e.FieldStart("NT")
	e.UInt8(s.NT)
	e.FieldStart("AT")
	e.UInt8(s.AT)
	e.FieldStart("BgLo")
	e.UInt8(s.BgLo)
	e.FieldStart("BgHi")
	e.UInt8(s.BgHi)
	e.FieldStart("BgShiftLo")
	e.UInt16(s.BgShiftLo)
	e.FieldStart("BgShiftHi")
	e.UInt16(s.BgShiftHi)
	e.FieldStart("ATShiftLo")
	e.UInt16(s.ATShiftLo)
	e.FieldStart("ATShiftHi")
	e.UInt16(s.ATShiftHi)
	e.ObjEnd()
}

func (s *PPUBgRegs) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "Finex":
			s.Finex, err = d.UInt8()
		case "NT":
			s.NT, err = d.UInt8()
		case "AT":
			s.AT, err = d.UInt8()
		case "BgLo":
			s.BgLo, err = d.UInt8()
		case "BgHi":
			s.BgHi, err = d.UInt8()
		case "BgShiftLo":
			s.BgShiftLo, err = d.UInt16()
		case "BgShiftHi":
			s.BgShiftHi, err = d.UInt16()
		case "ATShiftLo":
			s.ATShiftLo, err = d.UInt16()
		case "ATShiftHi":
			s.ATShiftHi, err = d.UInt16()
		default:
			err = d.Skip()
		}
		return err
	})
}

func (s *Mapper) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("Name")
	e.Str(s.Name)
	e.FieldStart("Regs")
	e.ObjStart()
	for _, k := range slices.Sorted(maps.Keys(s.Regs)) {
		e.FieldStart(k)
		e.Int64(s.Regs[k])
	}
	e.ObjEnd()
	for _, f := range []struct {
		name string
		buf  []uint8
	}{
		{"PRGRAM", s.PRGRAM},
		{"CHRRAM", s.CHRRAM},
		{"VRAM", s.VRAM},
		{"ExRAM", s.ExRAM},
	} {
		if len(f.buf) == 0 {
			continue
		}
		e.FieldStart(f.name)
		e.Base64(f.buf)
	}
	e.ObjEnd()
}

func (s *Mapper) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "Name":
			s.Name, err = d.Str()
		case "Regs":
			s.Regs = make(map[string]int64)
			err = d.Obj(func(d *jx.Decoder, key string) error {
				v, err := d.Int64()
				s.Regs[key] = v
				return err
			})
		case "PRGRAM":
			s.PRGRAM, err = d.Base64()
		case "CHRRAM":
			s.CHRRAM, err = d.Base64()
		case "VRAM":
			s.VRAM, err = d.Base64()
		case "ExRAM":
			s.ExRAM, err = d.Base64()
		default:
			err = d.Skip()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	})
}

// decodeBytes decodes a base64 string into dst, which must have the exact
// decoded size.
func decodeBytes(d *jx.Decoder, dst []byte) error {
	buf, err := d.Base64()
	if err != nil {
		return err
	}
	if len(buf) != len(dst) {
		return fmt.Errorf("got %d bytes, want %d", len(buf), len(dst))
	}
	copy(dst, buf)
	return nil
}
