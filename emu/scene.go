package emu

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"nesppu/emu/log"
)

// A Scene is a script of CPU bus writes, replayed at the start of given
// frames. It replaces the game program to drive the PPU and the mapper.
//
//	[[write]]
//	frame = 0
//	addr = 0x2006
//	data = [0x3F, 0x00]
//
//	[[write]]
//	frame = 0
//	addr = 0x2001
//	val = 0x1E
type Scene struct {
	Writes []SceneWrite `toml:"write"`
}

// SceneWrite writes val, or each byte of data in turn, at addr.
type SceneWrite struct {
	Frame int    `toml:"frame"`
	Addr  uint16 `toml:"addr"`
	Val   *int   `toml:"val"`
	Data  []int  `toml:"data"`
}

func (w *SceneWrite) bytes() []uint8 {
	if w.Val != nil {
		return []uint8{uint8(*w.Val)}
	}
	buf := make([]uint8, len(w.Data))
	for i, v := range w.Data {
		buf[i] = uint8(v)
	}
	return buf
}

func (w *SceneWrite) check() error {
	if (w.Val == nil) == (len(w.Data) == 0) {
		return fmt.Errorf("exactly one of 'val' and 'data' must be set")
	}
	if w.Frame < 0 {
		return fmt.Errorf("negative frame %d", w.Frame)
	}
	vals := w.Data
	if w.Val != nil {
		vals = []int{*w.Val}
	}
	for _, v := range vals {
		if v < 0 || v > 0xFF {
			return fmt.Errorf("value %d out of range", v)
		}
	}
	return nil
}

// ParseScene decodes a scene from its toml description.
func ParseScene(data string) (*Scene, error) {
	var sc Scene
	md, err := toml.Decode(data, &sc)
	if err != nil {
		return nil, err
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	for i := range sc.Writes {
		if err := sc.Writes[i].check(); err != nil {
			return nil, fmt.Errorf("write #%d: %w", i, err)
		}
	}

	// Keep the file order for writes of the same frame.
	slices.SortStableFunc(sc.Writes, func(a, b SceneWrite) int { return a.Frame - b.Frame })
	return &sc, nil
}

// LoadScene loads a scene file.
func LoadScene(path string) (*Scene, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := ParseScene(string(buf))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// NumFrames returns the number of frames needed to play the whole scene.
func (sc *Scene) NumFrames() int {
	if len(sc.Writes) == 0 {
		return 1
	}
	return sc.Writes[len(sc.Writes)-1].Frame + 1
}

// Play performs the writes of the given frame. It has the FrameFunc
// signature.
func (sc *Scene) Play(nes *NES, frame int) error {
	for i := range sc.Writes {
		w := &sc.Writes[i]
		if w.Frame != frame {
			continue
		}
		for _, v := range w.bytes() {
			nes.CPU.Write8(w.Addr, v)
		}
		log.ModEmu.DebugZ("scene write").Int("frame", frame).Hex16("addr", w.Addr).Int("len", len(w.bytes())).End()

		// Let an OAM DMA complete before the next write.
		for nes.CPU.Halted() {
			nes.Tick()
		}
	}
	return nil
}
