package emu

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/jx"

	"nesppu/emu/log"
	"nesppu/hw/snapshot"
)

const NumStateSlots = 10

var (
	ErrInvalidSlot = errors.New("invalid state slot")
	ErrNoBackup    = errors.New("no backup state")
)

// WriteState encodes s into w, zlib-compressed if compress is set.
func WriteState(w io.Writer, s *snapshot.NES, compress bool) error {
	var e jx.Encoder
	s.Encode(&e)

	if !compress {
		_, err := w.Write(e.Bytes())
		return err
	}

	zw := zlib.NewWriter(w)
	if _, err := zw.Write(e.Bytes()); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ReadState decodes a state written by WriteState, compressed or not.
func ReadState(r io.Reader) (*snapshot.NES, error) {
	br := bufio.NewReader(r)
	hdr, err := br.Peek(1)
	if err != nil {
		return nil, fmt.Errorf("empty state: %w", err)
	}

	var src io.Reader = br
	if hdr[0] != '{' {
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	}

	buf, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	s := new(snapshot.NES)
	if err := s.Decode(jx.DecodeBytes(buf)); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadStateFile reads a state file.
func ReadStateFile(path string) (*snapshot.NES, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := ReadState(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// StatePath returns the path of the state file for the given slot.
func (e *Emulator) StatePath(slot int) (string, error) {
	if slot < 0 || slot >= NumStateSlots {
		return "", fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return filepath.Join(e.cfg.Paths.StateDir, fmt.Sprintf("%s.st%d", e.name, slot)), nil
}

// backupPath returns the backup path of a state file: game.st0 becomes
// game-bak.st0.
func backupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-bak" + ext
}

// SaveState saves the console state into slot. The previous content of the
// slot, if any, is kept as a backup, see UndoSaveState.
func (e *Emulator) SaveState(slot int) error {
	path, err := e.StatePath(slot)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteState(&buf, e.NES.Snapshot(), !e.cfg.General.UncompressedStates); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, backupPath(path)); err != nil {
			return fmt.Errorf("save state backup: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	log.ModEmu.InfoZ("state saved").Int("slot", slot).Int("size", buf.Len()).End()
	return nil
}

// LoadState restores the console state from slot. On error, the console
// state is left untouched.
func (e *Emulator) LoadState(slot int) error {
	path, err := e.StatePath(slot)
	if err != nil {
		return err
	}

	s, err := ReadStateFile(path)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if err := e.NES.Restore(s); err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	log.ModEmu.InfoZ("state loaded").Int("slot", slot).End()
	return nil
}

// UndoSaveState swaps the state in slot with its backup, so that calling it
// twice is a no-op. If the slot file is missing, the backup is moved back in
// place. On error, the slot and its backup are left as they were.
func (e *Emulator) UndoSaveState(slot int) error {
	path, err := e.StatePath(slot)
	if err != nil {
		return err
	}

	bak := backupPath(path)
	if _, err := os.Stat(bak); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w for slot %d", ErrNoBackup, slot)
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := os.Rename(bak, path); err != nil {
			return fmt.Errorf("undo save state: %w", err)
		}
		log.ModEmu.InfoZ("save state undone").Int("slot", slot).Bool("empty", true).End()
		return nil
	}

	tmp := bak + "x"
	if err := os.Rename(bak, tmp); err != nil {
		return fmt.Errorf("undo save state: %w", err)
	}
	if err := os.Rename(path, bak); err != nil {
		return errors.Join(fmt.Errorf("undo save state: %w", err), os.Rename(tmp, bak))
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Join(fmt.Errorf("undo save state: %w", err), os.Rename(bak, path), os.Rename(tmp, bak))
	}

	log.ModEmu.InfoZ("save state undone").Int("slot", slot).End()
	return nil
}
