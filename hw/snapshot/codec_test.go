package snapshot

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testState() *NES {
	s := &NES{
		Version:     Version,
		Cycles:      123456789,
		NMIFlag:     true,
		IRQFlag:     0x02,
		OpenBus:     0x4C,
		DMA:         DMA{Page: 2, Addr: 0x80, Data: 0x11, InProgress: true},
		PrevNMIFlag: true,
	}
	for i := range s.RAM {
		s.RAM[i] = uint8(i * 7)
	}
	for i := range s.PPU.Nametables {
		s.PPU.Nametables[i] = uint8(i)
	}
	s.PPU.Palette[3] = 0x2C
	s.PPU.OAMMem[0x10] = 0x55
	s.PPU.OAM[2] = Sprite{ID: 4, X: 10, Y: 20, Tile: 0x33, Attr: 0x41, DataL: 0xF0, DataH: 0x0F}
	s.PPU.NumSprites = 3
	s.PPU.OpenBusDecay = [8]uint32{1, 2, 3, 4, 5, 6, 7, 8}
	s.PPU.VRAMAddr = 0x2C12
	s.PPU.VRAMTemp = 0x7FFF
	s.PPU.PPUBgRegs = PPUBgRegs{Finex: 3, BgShiftLo: 0xABCD, ATShiftHi: 0xFF00}
	s.PPU.PPUCTRL = 0x90
	s.PPU.PPUMASK = 0x1E
	s.PPU.Clock = 1 << 40
	s.PPU.Cycle = 340
	s.PPU.Scanline = 261
	s.PPU.FrameCount = 1000
	s.PPU.OddFrame = true
	s.Mapper = Mapper{
		Name:   "MMC3",
		Regs:   map[string]int64{"r0": 4, "irqcounter": -1, "mirroring": 1},
		PRGRAM: []uint8{1, 2, 3, 4},
		ExRAM:  []uint8{0xFF},
	}
	return s
}

func TestRoundtrip(t *testing.T) {
	want := testState()

	buf, err := want.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}

	got := new(NES)
	if err := got.UnmarshalJSON(buf); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
		isErr   error
	}{
		{
			name:    "wrong version",
			json:    `{"Version": 999}`,
			wantErr: "unsupported state version",
			isErr:   ErrStateVersion,
		},
		{
			name:    "missing version",
			json:    `{}`,
			wantErr: "unsupported state version",
			isErr:   ErrStateVersion,
		},
		{
			name:    "truncated RAM",
			json:    `{"Version": 1, "RAM": "AAAA"}`,
			wantErr: "RAM: got 3 bytes, want 2048",
		},
		{
			name:    "bad type",
			json:    `{"Version": 1, "PPU": {"Scanline": "foo"}}`,
			wantErr: "Scanline",
		},
		{
			name: "unknown keys",
			json: `{"Version": 1, "Foo": [1, 2], "PPU": {"Bar": {}}, "Mapper": {"Name": "NROM", "Baz": null}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s NES
			err := s.UnmarshalJSON([]byte(tt.json))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
			if tt.isErr != nil && !errors.Is(err, tt.isErr) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.isErr)
			}
		})
	}
}

func TestMapperRegsSorted(t *testing.T) {
	s := testState()
	buf, err := s.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	str := string(buf)
	i1 := strings.Index(str, `"irqcounter"`)
	i2 := strings.Index(str, `"mirroring"`)
	i3 := strings.Index(str, `"r0"`)
	if !(i1 < i2 && i2 < i3) || i1 < 0 {
		t.Errorf("mapper registers are not sorted: %s", str)
	}
	// Empty RAMs are omitted.
	if strings.Contains(str, `"CHRRAM"`) {
		t.Errorf("empty CHRRAM should be omitted")
	}
}
