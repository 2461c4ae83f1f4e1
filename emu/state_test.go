package emu

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nesppu/hw/snapshot"
	"nesppu/tests"
)

func TestStateSlots(t *testing.T) {
	for _, uncompressed := range []bool{false, true} {
		name := "zlib"
		if uncompressed {
			name = "json"
		}
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.General.UncompressedStates = uncompressed
			e := newTestEmulator(t, tests.RomSpec{Mapper: 4, PRGBanks: 8, CHRBanks: 8}, cfg)

			e.NES.CPU.Write8(0x0010, 1)
			e.NES.CPU.Write8(0x8000, 6)
			e.NES.CPU.Write8(0x8001, 3)
			if err := e.SaveState(3); err != nil {
				t.Fatal(err)
			}
			first := e.NES.Snapshot()

			path, _ := e.StatePath(3)
			buf, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if isJSON := buf[0] == '{'; isJSON != uncompressed {
				t.Errorf("state file starts with %q, uncompressed = %t", buf[0], uncompressed)
			}

			if err := e.RunFrames(context.Background(), 2, nil); err != nil {
				t.Fatal(err)
			}
			e.NES.CPU.Write8(0x0010, 2)
			if err := e.SaveState(3); err != nil {
				t.Fatal(err)
			}
			second := e.NES.Snapshot()

			e.NES.CPU.Write8(0x0010, 3)
			if err := e.LoadState(3); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(second, e.NES.Snapshot()); diff != "" {
				t.Fatalf("state mismatch after load (-want +got):\n%s", diff)
			}

			// Undo restores the previous state of the slot, undoing twice is a
			// no-op.
			if err := e.UndoSaveState(3); err != nil {
				t.Fatal(err)
			}
			if err := e.LoadState(3); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(first, e.NES.Snapshot()); diff != "" {
				t.Fatalf("state mismatch after undo (-want +got):\n%s", diff)
			}
			if got := e.NES.CPU.Read8(0x0010, false); got != 1 {
				t.Errorf("RAM[$10] = %d, want 1", got)
			}

			if err := e.UndoSaveState(3); err != nil {
				t.Fatal(err)
			}
			if err := e.LoadState(3); err != nil {
				t.Fatal(err)
			}
			if got := e.NES.CPU.Read8(0x0010, false); got != 2 {
				t.Errorf("RAM[$10] = %d, want 2", got)
			}
		})
	}
}

func TestStateSlotErrors(t *testing.T) {
	e := newTestEmulator(t, tests.RomSpec{PRGBanks: 2}, testConfig(t))

	for _, slot := range []int{-1, NumStateSlots} {
		if err := e.SaveState(slot); !errors.Is(err, ErrInvalidSlot) {
			t.Errorf("SaveState(%d) = %v, want %v", slot, err, ErrInvalidSlot)
		}
	}
	if err := e.LoadState(0); err == nil {
		t.Errorf("LoadState on an empty slot should fail")
	}
	if err := e.SaveState(0); err != nil {
		t.Fatal(err)
	}
	if err := e.UndoSaveState(0); !errors.Is(err, ErrNoBackup) {
		t.Errorf("UndoSaveState = %v, want %v", err, ErrNoBackup)
	}
}

func TestUndoSaveStateRecovery(t *testing.T) {
	// saveTwice saves RAM[$10]=1 then RAM[$10]=2 into slot 0, so that the
	// backup holds the first state.
	saveTwice := func(t *testing.T) (*Emulator, string) {
		e := newTestEmulator(t, tests.RomSpec{PRGBanks: 2}, testConfig(t))
		for _, v := range []uint8{1, 2} {
			e.NES.CPU.Write8(0x0010, v)
			if err := e.SaveState(0); err != nil {
				t.Fatal(err)
			}
		}
		path, _ := e.StatePath(0)
		return e, path
	}

	t.Run("missing slot file", func(t *testing.T) {
		e, path := saveTwice(t)
		if err := os.Remove(path); err != nil {
			t.Fatal(err)
		}

		if err := e.UndoSaveState(0); err != nil {
			t.Fatalf("UndoSaveState: %v", err)
		}
		if err := e.LoadState(0); err != nil {
			t.Fatal(err)
		}
		if got := e.NES.CPU.Read8(0x0010, false); got != 1 {
			t.Errorf("RAM[$10] = %d, want 1", got)
		}
		if err := e.UndoSaveState(0); !errors.Is(err, ErrNoBackup) {
			t.Errorf("second UndoSaveState = %v, want %v", err, ErrNoBackup)
		}
	})

	t.Run("rename failure", func(t *testing.T) {
		e, path := saveTwice(t)
		bak := backupPath(path)
		wantSlot, _ := os.ReadFile(path)
		wantBak, _ := os.ReadFile(bak)

		// A non-empty directory where the temporary file goes.
		tmp := bak + "x"
		if err := os.Mkdir(tmp, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(tmp, "f"), nil, 0644); err != nil {
			t.Fatal(err)
		}

		if err := e.UndoSaveState(0); err == nil {
			t.Fatalf("UndoSaveState succeeded, want an error")
		}
		gotSlot, err := os.ReadFile(path)
		if err != nil || !bytes.Equal(gotSlot, wantSlot) {
			t.Errorf("slot file modified (err = %v)", err)
		}
		gotBak, err := os.ReadFile(bak)
		if err != nil || !bytes.Equal(gotBak, wantBak) {
			t.Errorf("backup file modified (err = %v)", err)
		}
	})
}

// TestStateDeterminism checks that running from a restored state produces the
// same frames as the original run.
func TestStateDeterminism(t *testing.T) {
	const scene = `
[[write]]
frame = 0
addr = 0x2006
data = [0x20, 0x00]

[[write]]
frame = 0
addr = 0x2007
data = [1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16]

[[write]]
frame = 0
addr = 0x2003
val = 0

[[write]]
frame = 0
addr = 0x2004
data = [40, 3, 0, 50, 100, 5, 0x43, 80]

[[write]]
frame = 1
addr = 0x2005
data = [3, 7]

[[write]]
frame = 1
addr = 0x2001
val = 0x1E
`
	sc, err := ParseScene(scene)
	if err != nil {
		t.Fatal(err)
	}

	e := newTestEmulator(t, tests.RomSpec{Mapper: 1, PRGBanks: 8, CHRBanks: 4}, testConfig(t))
	if err := e.RunFrames(context.Background(), 3, sc.Play); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteState(&buf, e.NES.Snapshot(), true); err != nil {
		t.Fatal(err)
	}

	runFrames := func(e *Emulator) [][]uint16 {
		var frames [][]uint16
		for range 3 {
			if err := e.RunFrames(context.Background(), 1, nil); err != nil {
				t.Fatal(err)
			}
			frames = append(frames, append([]uint16(nil), e.NES.PPU.Frame()...))
		}
		return frames
	}
	want := runFrames(e)

	s, err := ReadState(&buf)
	if err != nil {
		t.Fatal(err)
	}
	e2 := newTestEmulator(t, tests.RomSpec{Mapper: 1, PRGBanks: 8, CHRBanks: 4}, testConfig(t))
	if err := e2.NES.Restore(s); err != nil {
		t.Fatal(err)
	}
	got := runFrames(e2)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frames differ after restore (-want +got):\n%s", diff)
	}
}

func TestReadStateErrors(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		is   error
	}{
		{name: "empty", data: nil},
		{name: "garbage", data: []byte("garbage")},
		{name: "version", data: []byte(`{"Version": 42}`), is: snapshot.ErrStateVersion},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadState(bytes.NewReader(tt.data))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want %v", err, tt.is)
			}
		})
	}
}
