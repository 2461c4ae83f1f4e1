package emu

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nesppu/tests"
)

func TestParseScene(t *testing.T) {
	sc, err := ParseScene(`
[[write]]
frame = 2
addr = 0x2001
val = 0x1E

[[write]]
frame = 0
addr = 0x2006
data = [0x3F, 0x00]

[[write]]
frame = 2
addr = 0x2000
val = 0x80
`)
	if err != nil {
		t.Fatal(err)
	}

	type write struct {
		Frame int
		Addr  uint16
		Data  []uint8
	}
	var got []write
	for _, w := range sc.Writes {
		got = append(got, write{w.Frame, w.Addr, w.bytes()})
	}
	want := []write{
		{0, 0x2006, []uint8{0x3F, 0x00}},
		{2, 0x2001, []uint8{0x1E}},
		{2, 0x2000, []uint8{0x80}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
	if got := sc.NumFrames(); got != 3 {
		t.Errorf("NumFrames() = %d, want 3", got)
	}
}

func TestParseSceneErrors(t *testing.T) {
	cases := []struct {
		name    string
		scene   string
		wantErr string
	}{
		{
			name:    "val and data",
			scene:   "[[write]]\naddr = 0x2000\nval = 1\ndata = [1]",
			wantErr: "exactly one of",
		},
		{
			name:    "no value",
			scene:   "[[write]]\naddr = 0x2000",
			wantErr: "exactly one of",
		},
		{
			name:    "out of range",
			scene:   "[[write]]\naddr = 0x2007\ndata = [1, 256]",
			wantErr: "out of range",
		},
		{
			name:    "negative frame",
			scene:   "[[write]]\nframe = -1\naddr = 0x2007\nval = 1",
			wantErr: "negative frame",
		},
		{
			name:    "unknown key",
			scene:   "[[write]]\naddr = 0x2007\nval = 1\nvalue = 2",
			wantErr: "unknown keys: write.value",
		},
		{
			name:    "syntax",
			scene:   "[[write]\n",
			wantErr: "toml",
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScene(tt.scene)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestScenePlayDMA(t *testing.T) {
	e := newTestEmulator(t, tests.RomSpec{PRGBanks: 1}, testConfig(t))
	for i := range 256 {
		e.NES.CPU.Write8(0x0300+uint16(i), uint8(255-i))
	}

	path := filepath.Join(t.TempDir(), "dma.toml")
	const scene = "[[write]]\naddr = 0x4014\nval = 3\n"
	if err := os.WriteFile(path, []byte(scene), 0644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadScene(path)
	if err != nil {
		t.Fatal(err)
	}

	before := e.NES.CPU.Cycles
	if err := sc.Play(e.NES, 0); err != nil {
		t.Fatal(err)
	}
	if e.NES.CPU.Halted() {
		t.Fatalf("DMA still in progress after Play")
	}
	if got := e.NES.CPU.Cycles - before; got != 513 {
		t.Errorf("DMA took %d cycles, want 513", got)
	}

	oam := e.NES.Snapshot().PPU.OAMMem
	for i, v := range oam {
		if want := uint8(255 - i); v != want {
			t.Fatalf("OAM[%d] = %d, want %d", i, v, want)
		}
	}

	// Writes of other frames are ignored.
	if err := sc.Play(e.NES, 1); err != nil {
		t.Fatal(err)
	}
	if e.NES.CPU.Halted() || e.NES.CPU.Cycles-before != 513 {
		t.Errorf("write replayed on the wrong frame")
	}
}
