package emu

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"nesppu/emu/log"
	"nesppu/hw/mappers"
	"nesppu/ines"
	"nesppu/tests"
)

// TestRomsStateRoundtrip powers up every rom of the test rom collection
// using a supported mapper, and checks that a console restored from a save
// state renders the same frames as the original.
func TestRomsStateRoundtrip(t *testing.T) {
	log.Disable()
	roms := tests.ListRoms(t, tests.RomsPath(t))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	ntested := 0
	results := make([]error, len(roms))
	for i, path := range roms {
		rom, err := ines.ReadRom(path)
		if err != nil {
			t.Logf("skipping %s: %v", path, err)
			continue
		}
		if _, ok := mappers.All[rom.Mapper()]; !ok {
			continue
		}
		ntested++

		g.Go(func() error {
			results[i] = checkStateRoundtrip(rom)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range results {
		if err != nil {
			t.Errorf("%s: %v", roms[i], err)
		}
	}
	if ntested == 0 {
		t.Fatal("no rom tested")
	}
	t.Logf("tested %d roms", ntested)
}

func checkStateRoundtrip(rom *ines.Rom) error {
	e, err := New(rom, "rom", Config{})
	if err != nil {
		return err
	}

	// Enable rendering and let the mapper state evolve a bit. Without a CPU,
	// the game program doesn't run.
	enable := func(nes *NES, frame int) error {
		if frame == 0 {
			nes.CPU.Write8(0x2001, 0x1E)
		}
		return nil
	}
	ctx := context.Background()
	if err := e.RunFrames(ctx, 5, enable); err != nil {
		return err
	}

	s := e.NES.Snapshot()
	run := func(e *Emulator) ([][]uint16, error) {
		var frames [][]uint16
		for range 3 {
			if err := e.RunFrames(ctx, 1, nil); err != nil {
				return nil, err
			}
			frames = append(frames, slices.Clone(e.NES.PPU.Frame()))
		}
		return frames, nil
	}
	want, err := run(e)
	if err != nil {
		return err
	}

	e2, err := New(rom, "rom", Config{})
	if err != nil {
		return err
	}
	if err := e2.NES.Restore(s); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	got, err := run(e2)
	if err != nil {
		return err
	}
	if diff := cmp.Diff(want, got); diff != "" {
		return errors.New("frames differ after restore")
	}
	return nil
}
