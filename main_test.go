package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nesppu/emu"
	"nesppu/emu/log"
	"nesppu/hw"
	"nesppu/tests"
)

func writeRom(t *testing.T, name string, spec tests.RomSpec) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, tests.EncodeRom(spec), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseArgs(t *testing.T) {
	rom := writeRom(t, "game.nes", tests.RomSpec{PRGBanks: 1})

	cases := []struct {
		args []string
		want mode
	}{
		{[]string{"rom-infos", rom, rom}, romInfosMode},
		{[]string{"chr", rom, "--palette", "3"}, chrMode},
		{[]string{"render", rom, "--frames", "10"}, renderMode},
		{[]string{"state-infos", rom}, stateInfosMode},
		{[]string{"version"}, versionMode},
	}
	for _, tt := range cases {
		if got := parseArgs(tt.args).mode; got != tt.want {
			t.Errorf("parseArgs(%q).mode = %d, want %d", tt.args, got, tt.want)
		}
	}

	cli := parseArgs([]string{"render", rom})
	if cli.Render.State != -1 || cli.Render.SaveState != -1 || filepath.Base(cli.Render.Out) != "frame.png" {
		t.Errorf("unexpected render defaults: %+v", cli.Render)
	}
}

func TestRomInfos(t *testing.T) {
	paths := []string{
		writeRom(t, "a.nes", tests.RomSpec{Mapper: 4, PRGBanks: 8, CHRBanks: 8, Battery: true}),
		writeRom(t, "b.nes", tests.RomSpec{Mapper: 99, PRGBanks: 2, CHRBanks: 1}),
		writeRom(t, "c.nes", tests.RomSpec{Mapper: 5, NES2: true, PRGBanks: 4, PRGRAM: 9}),
	}

	var buf bytes.Buffer
	if err := romInfosMain(&buf, RomInfos{RomPaths: paths}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	prev := -1
	for _, want := range []string{
		paths[0], "Battery:    true", "Board:      MMC3",
		paths[1], "Board:      unsupported",
		paths[2], "NES2.0 Extensions", "PRG RAM:    32768 bytes", "Board:      MMC5",
	} {
		idx := strings.Index(out, want)
		if idx < 0 || idx < prev {
			t.Fatalf("output is missing %q (or out of order):\n%s", want, out)
		}
		prev = idx
	}

	paths = append(paths, filepath.Join(t.TempDir(), "missing.nes"))
	if err := romInfosMain(&buf, RomInfos{RomPaths: paths}); err == nil {
		t.Errorf("expected an error for a missing rom")
	}
}

func TestRenderCHR(t *testing.T) {
	chr := make([]byte, 17*16)
	chr[0] = 0x80    // tile 0, (0,0): color 1
	chr[16+8] = 0x01 // tile 1, (7,0): color 2
	chr[16*16+15] = 0xFF
	chr[16*16+7] = 0xFF // tile 16, row 7: color 3

	pal := hw.DefaultPalette()
	img, err := renderCHR(chr, 1, pal)
	if err != nil {
		t.Fatal(err)
	}

	if got := img.Bounds().Size(); got.X != 128 || got.Y != 16 {
		t.Fatalf("image size = %v, want 128x16", got)
	}

	colors := chrPalettes[1]
	checks := []struct {
		x, y int
		px   int
	}{
		{0, 0, 1},
		{1, 0, 0},
		{15, 0, 2},
		{8, 0, 0},
		{3, 15, 3},
		{3, 14, 0},
	}
	for _, c := range checks {
		if got, want := img.RGBAAt(c.x, c.y), pal[colors[c.px]]; got != want {
			t.Errorf("pixel (%d,%d) = %v, want %v (color %d)", c.x, c.y, got, want, c.px)
		}
	}

	if _, err := renderCHR(nil, 0, pal); err == nil {
		t.Errorf("expected an error for a rom without CHR ROM")
	}
	if _, err := renderCHR(chr, len(chrPalettes), pal); err == nil {
		t.Errorf("expected an error for an invalid palette")
	}
}

func TestStateInfos(t *testing.T) {
	log.Disable()

	cfg := emu.DefaultConfig(t.TempDir())
	e, err := emu.New(tests.NewRom(t, tests.RomSpec{Mapper: 1, PRGBanks: 16}), "game", cfg)
	if err != nil {
		t.Fatal(err)
	}
	e.NES.CPU.Write8(0x2000, 0x90)
	if err := e.SaveState(2); err != nil {
		t.Fatal(err)
	}
	path, err := e.StatePath(2)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := stateInfosMain(&buf, StateInfos{StatePath: path}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Version:    1",
		"PPUCTRL:    $90",
		"Mapper:     MMC1",
		"mirroring:",
		"PRG-RAM:    8192 bytes",
		"CHR-RAM:    8192 bytes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}
