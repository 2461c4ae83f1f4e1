package emu

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"nesppu/emu/log"
	"nesppu/hw"
	"nesppu/ines"
)

// FrameFunc is called before each emulated frame, with the index of the frame
// about to be run. It's the place to drive the PPU registers.
type FrameFunc func(nes *NES, frame int) error

type Emulator struct {
	NES *NES
	cfg Config
	pal *hw.Palette
	out *hw.Output // nil unless frames are streamed

	// rom file name without extension, used to name save and state files.
	name string
}

// Launch loads the rom at path, powers up the console and restores battery
// backed RAM, if any. Call Close when done to flush it.
func Launch(path string, cfg Config) (*Emulator, error) {
	rom, err := ines.ReadRom(path)
	if err != nil {
		return nil, err
	}
	e, err := New(rom, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), cfg)
	if err != nil {
		return nil, err
	}
	if err := e.loadBattery(); err != nil {
		return nil, err
	}
	return e, nil
}

// New creates an emulator for rom. name is used to name save and state files.
func New(rom *ines.Rom, name string, cfg Config) (*Emulator, error) {
	pal, err := cfg.Video.LoadPalette()
	if err != nil {
		return nil, err
	}
	nes, err := PowerUp(rom)
	if err != nil {
		return nil, err
	}
	log.ModEmu.InfoZ("rom loaded").
		String("name", name).
		String("mapper", nes.Cart.Name()).
		Hex32("crc32", rom.CRC32).
		End()

	return &Emulator{
		NES:  nes,
		cfg:  cfg,
		pal:  pal,
		name: name,
	}, nil
}

// StreamFrames makes the emulator send every frame it runs on ch, converted
// to RGBA. It must be called before RunFrames.
func (e *Emulator) StreamFrames(ch chan *image.RGBA) {
	e.out = hw.NewOutput(hw.OutputConfig{
		Palette:    e.pal,
		FrameOutCh: ch,
	})
}

// RunFrames runs n frames, or until ctx is cancelled. fn, if not nil, is
// called before each frame.
func (e *Emulator) RunFrames(ctx context.Context, n int, fn FrameFunc) error {
	for i := range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		if fn != nil {
			if err := fn(e.NES, i); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
		}
		e.NES.RunFrame()
		if e.out != nil {
			e.out.EndFrame(e.NES.PPU.Frame())
		}
	}
	return nil
}

// Screenshot renders the last frame.
func (e *Emulator) Screenshot() *image.RGBA {
	return e.pal.Render(e.NES.PPU.Frame())
}

// Close stops frame streaming and writes battery-backed RAM to disk.
func (e *Emulator) Close() error {
	if e.out != nil {
		e.out.Close()
		e.out = nil
	}
	return e.saveBattery()
}

func (e *Emulator) batteryPath() string {
	return filepath.Join(e.cfg.Paths.SaveDir, e.name+".sav")
}

func (e *Emulator) loadBattery() error {
	ram := e.NES.Cart.BatteryRAM()
	if ram == nil {
		return nil
	}

	path := e.batteryPath()
	buf, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("battery ram: %w", err)
	}
	if len(buf) != len(ram) {
		log.ModEmu.WarnZ("ignoring battery ram file with unexpected size").
			String("path", path).
			Int("size", len(buf)).
			Int("want", len(ram)).
			End()
		return nil
	}
	copy(ram, buf)
	log.ModEmu.InfoZ("battery ram loaded").String("path", path).End()
	return nil
}

func (e *Emulator) saveBattery() error {
	ram := e.NES.Cart.BatteryRAM()
	if ram == nil {
		return nil
	}

	path := e.batteryPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("battery ram: %w", err)
	}
	if err := os.WriteFile(path, ram, 0644); err != nil {
		return fmt.Errorf("battery ram: %w", err)
	}
	log.ModEmu.InfoZ("battery ram saved").String("path", path).End()
	return nil
}
