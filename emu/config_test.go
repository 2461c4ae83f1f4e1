package emu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nesppu/hw"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	const cfgfile = `
[video]
disable_emphasis = true

[paths]
state_dir = "/tmp/states"

[general]
uncompressed_states = true
`
	if err := os.WriteFile(path, []byte(cfgfile), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		Video: VideoConfig{DisableEmphasis: true},
		Paths: PathsConfig{
			SaveDir:  filepath.Join(dir, "saves"),
			StateDir: "/tmp/states",
		},
		General: GeneralConfig{UncompressedStates: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Errorf("LoadConfig should fail on a missing file")
	}
}

func TestLoadPalette(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		var vcfg VideoConfig
		pal, err := vcfg.LoadPalette()
		if err != nil {
			t.Fatal(err)
		}
		if pal != hw.DefaultPalette() {
			t.Errorf("expected the default palette")
		}
	})
	t.Run("disable emphasis", func(t *testing.T) {
		vcfg := VideoConfig{DisableEmphasis: true}
		pal, err := vcfg.LoadPalette()
		if err != nil {
			t.Fatal(err)
		}
		if pal[0x1C1] != pal[0x01] {
			t.Errorf("emphasized color = %v, want %v", pal[0x1C1], pal[0x01])
		}
		if def := hw.DefaultPalette(); def[0x1C1] == def[0x01] {
			t.Errorf("default palette has been modified")
		}
	})
	t.Run("file", func(t *testing.T) {
		buf := make([]byte, 64*3)
		for i := range buf {
			buf[i] = uint8(i)
		}
		path := filepath.Join(t.TempDir(), "pal.pal")
		if err := os.WriteFile(path, buf, 0644); err != nil {
			t.Fatal(err)
		}

		vcfg := VideoConfig{Palette: path}
		pal, err := vcfg.LoadPalette()
		if err != nil {
			t.Fatal(err)
		}
		if got := pal[2]; got.R != 6 || got.G != 7 || got.B != 8 {
			t.Errorf("color 2 = %v, want {6 7 8}", got)
		}
	})
	t.Run("bad file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pal.pal")
		if err := os.WriteFile(path, []byte{1, 2, 3}, 0644); err != nil {
			t.Fatal(err)
		}
		vcfg := VideoConfig{Palette: path}
		if _, err := vcfg.LoadPalette(); err == nil {
			t.Errorf("expected an error")
		}
	})
}
