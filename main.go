package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"slices"

	"golang.org/x/sync/errgroup"

	"nesppu/emu"
	"nesppu/emu/log"
	"nesppu/hw"
	"nesppu/hw/mappers"
	"nesppu/ines"
)

func main() {
	cfg := parseArgs(os.Args[1:])

	switch cfg.mode {
	case romInfosMode:
		checkf(romInfosMain(os.Stdout, cfg.RomInfos), "failed to read roms")
	case chrMode:
		checkf(chrMain(cfg.CHR), "failed to dump CHR")
	case renderMode:
		checkf(renderMain(cfg.Render), "failed to render")
	case stateInfosMode:
		checkf(stateInfosMain(os.Stdout, cfg.StateInfos), "failed to read state")
	case versionMode:
		printVersion(os.Stdout)
	}
}

// romInfosMain reads all roms concurrently, then prints their infos in order.
func romInfosMain(w io.Writer, args RomInfos) error {
	roms := make([]*ines.Rom, len(args.RomPaths))

	var g errgroup.Group
	for i, path := range args.RomPaths {
		g.Go(func() error {
			rom, err := ines.ReadRom(path)
			roms[i] = rom
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, rom := range roms {
		board := "unsupported"
		if desc, ok := mappers.All[rom.Mapper()]; ok {
			board = desc.Name
		}
		fmt.Fprintf(w, "%s\n", args.RomPaths[i])
		fmt.Fprint(w, rom.String())
		fmt.Fprintf(w, " Board:      %s\n\n", board)
	}
	return nil
}

func chrMain(args CHR) error {
	rom, err := ines.ReadRom(args.RomPath)
	if err != nil {
		return err
	}
	img, err := renderCHR(rom.CHRROM, args.Palette, hw.DefaultPalette())
	if err != nil {
		return err
	}
	return hw.SaveAsPNG(img, args.Out)
}

func renderMain(args Render) error {
	e, err := emu.Launch(args.RomPath, emu.LoadConfigOrDefault())
	if err != nil {
		return err
	}
	log.AddContext(e.NES.PPU)
	defer log.RemoveContext(e.NES.PPU)

	var fn emu.FrameFunc
	nframes := args.Frames
	if args.Scene != "" {
		sc, err := emu.LoadScene(args.Scene)
		if err != nil {
			return errors.Join(err, e.Close())
		}
		fn = sc.Play
		if nframes == 0 {
			nframes = sc.NumFrames()
		}
	}
	nframes = max(nframes, 1)

	if args.State >= 0 {
		if err := e.LoadState(args.State); err != nil {
			return errors.Join(err, e.Close())
		}
	}

	var (
		g      errgroup.Group
		frames chan *image.RGBA
	)
	if args.DumpDir != "" {
		if err := os.MkdirAll(args.DumpDir, 0755); err != nil {
			return errors.Join(err, e.Close())
		}
		frames = make(chan *image.RGBA)
		e.StreamFrames(frames)
		g.Go(func() error { return dumpFrames(args.DumpDir, frames) })
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runErr := e.RunFrames(ctx, nframes, fn)
	if runErr == nil && args.SaveState >= 0 {
		runErr = e.SaveState(args.SaveState)
	}

	img := e.Screenshot()
	closeErr := e.Close()
	if frames != nil {
		close(frames)
	}
	dumpErr := g.Wait()

	return errors.Join(runErr, closeErr, dumpErr, hw.SaveAsPNG(img, args.Out))
}

// dumpFrames writes the images received on frames in dir, until the channel
// is closed.
func dumpFrames(dir string, frames <-chan *image.RGBA) error {
	var err error
	i := 0
	for img := range frames {
		// Keep on receiving after an error, not to block the sender.
		if err == nil {
			err = hw.SaveAsPNG(img, filepath.Join(dir, fmt.Sprintf("frame%05d.png", i)))
		}
		i++
	}
	return err
}

func stateInfosMain(w io.Writer, args StateInfos) error {
	s, err := emu.ReadStateFile(args.StatePath)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, " Version:    %d\n", s.Version)
	fmt.Fprintf(w, " CPU cycles: %d\n", s.Cycles)
	fmt.Fprintf(w, " PPU:        frame %d, scanline %d, dot %d\n", s.PPU.FrameCount, s.PPU.Scanline, s.PPU.Cycle)
	fmt.Fprintf(w, " PPUCTRL:    $%02X\n", s.PPU.PPUCTRL)
	fmt.Fprintf(w, " PPUMASK:    $%02X\n", s.PPU.PPUMASK)
	fmt.Fprintf(w, " PPUSTATUS:  $%02X\n", s.PPU.PPUSTATUS)
	fmt.Fprintf(w, " VRAM addr:  $%04X\n", s.PPU.VRAMAddr)
	fmt.Fprintf(w, " Mapper:     %s\n", s.Mapper.Name)
	for _, k := range slices.Sorted(maps.Keys(s.Mapper.Regs)) {
		fmt.Fprintf(w, "   %-12s %d\n", k+":", s.Mapper.Regs[k])
	}
	for _, m := range []struct {
		name string
		buf  []byte
	}{
		{"PRG-RAM", s.Mapper.PRGRAM},
		{"CHR-RAM", s.Mapper.CHRRAM},
		{"VRAM", s.Mapper.VRAM},
		{"ExRAM", s.Mapper.ExRAM},
	} {
		if len(m.buf) > 0 {
			fmt.Fprintf(w, " %-11s %d bytes\n", m.name+":", len(m.buf))
		}
	}
	return nil
}

func printVersion(w io.Writer) {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Fprintf(w, "nesppu %s\n", version)
}
