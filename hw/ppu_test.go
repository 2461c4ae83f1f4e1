package hw

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"nesppu/hw/hwdefs"
	"nesppu/hw/snapshot"
)

// newTestPPU creates a PPU connected to a CPU bus, with 8KB of CHR-RAM and the
// nametables vertically mirrored.
func newTestPPU(t *testing.T) (*PPU, *CPUBus, []byte) {
	t.Helper()

	ppu := NewPPU()
	ppu.InitBus()
	cpu := NewCPUBus(ppu)
	cpu.InitBus()
	cpu.Reset(hwdefs.HardReset)
	ppu.PowerUp()

	chr := make([]byte, 0x2000)
	ppu.Bus.MapMemorySlice(0x0000, 0x1FFF, chr, false)
	ppu.Bus.MapMemorySlice(0x2000, 0x3EFF, ppu.Nametables[:], false)
	return ppu, cpu, chr
}

// runTo ticks the PPU until it reaches the given scanline and dot.
func runTo(ppu *PPU, line, dot int) {
	for ppu.Scanline != line || ppu.Cycle != dot {
		ppu.Tick()
	}
}

func setVRAMAddr(cpu *CPUBus, addr uint16) {
	cpu.Write8(0x2006, uint8(addr>>8))
	cpu.Write8(0x2006, uint8(addr))
}

func TestPPUScroll(t *testing.T) {
	ppu, cpu, _ := newTestPPU(t)

	ppu.vramTmp = 0xffff

	// Write to PPUCTRL
	cpu.Write8(0x2000, 0)
	if got := ppu.vramTmp.nametable(); got != 0b00 {
		t.Errorf("t.nametable = 0b%08b, want 0b00", got)
	}

	// Read from PPUSTATUS
	_ = cpu.Read8(0x2002, false)
	if ppu.writeLatch {
		t.Errorf("writeLatch = %t, want false", ppu.writeLatch)
	}

	// First write to PPUSCROLL
	cpu.Write8(0x2005, 0b01111_101)
	if got := ppu.vramTmp.coarsex(); got != 0b01111 {
		t.Errorf("t.coarsex = 0b%08b, want 0b01111", got)
	}
	if ppu.bg.finex != 0b101 {
		t.Errorf("finex = 0b%08b, want 0b101", ppu.bg.finex)
	}
	if !ppu.writeLatch {
		t.Errorf("writeLatch = %t, want true", ppu.writeLatch)
	}

	// Second write to PPUSCROLL
	cpu.Write8(0x2005, 0b01_011_110)
	if got := ppu.vramTmp.coarsey(); got != 0b01011 {
		t.Errorf("t.coarsey = 0b%08b, want 0b01011", got)
	}
	if got := ppu.vramTmp.finey(); got != 0b110 {
		t.Errorf("t.finey = 0b%08b, want 0b110", got)
	}
	if ppu.writeLatch {
		t.Errorf("writeLatch = %t, want false", ppu.writeLatch)
	}

	// First write to PPUADDR
	cpu.Write8(0x2006, 0b00_111101)
	if got := ppu.vramTmp.high(); got != 0b111101 {
		t.Errorf("t.high = %08b, want 0b111101", got)
	}
	// Bit 14 (15th bit) of t gets set to zero
	if ppu.vramTmp.val() != 0b0111101_01101111 {
		t.Errorf("t.val = %015b, want 0b0111101_01101111", ppu.vramTmp.val())
	}

	// Second write to PPUADDR
	cpu.Write8(0x2006, 0b11110000)
	if got := ppu.vramTmp.low(); got != 0b11110000 {
		t.Errorf("t.low = %08b, want 0b11110000", got)
	}
	if ppu.vramTmp.val() != 0b0111101_11110000 {
		t.Errorf("t.val = %015b, want 0b0111101_11110000", ppu.vramTmp.val())
	}
	// After t is updated, contents of t copied into v
	if ppu.vramTmp.val() != ppu.vramAddr.val() {
		t.Errorf("v != t")
	}
}

func TestPaletteMirrors(t *testing.T) {
	tests := []struct {
		write, read uint16
		want        uint8
	}{
		{write: 0x3F10, read: 0x3F00, want: 0x2A},
		{write: 0x3F04, read: 0x3F14, want: 0x2A},
		{write: 0x3F2C, read: 0x3F1C, want: 0x2A},
		{write: 0x3F08, read: 0x3FE8, want: 0x2A},
		{write: 0x3F11, read: 0x3F01, want: 0x01}, // power-up value
	}

	for _, tt := range tests {
		_, cpu, _ := newTestPPU(t)
		setVRAMAddr(cpu, tt.write)
		cpu.Write8(0x2007, 0xEA)

		setVRAMAddr(cpu, tt.read)
		if got := cpu.Read8(0x2007, false) & 0x3F; got != tt.want {
			t.Errorf("write $%04X, read $%04X = $%02X, want $%02X", tt.write, tt.read, got, tt.want)
		}
	}
}

func TestPPUDATA(t *testing.T) {
	ppu, cpu, _ := newTestPPU(t)

	setVRAMAddr(cpu, 0x2005)
	cpu.Write8(0x2007, 0x12)
	cpu.Write8(0x2007, 0x34)
	if ppu.Nametables[5] != 0x12 || ppu.Nametables[6] != 0x34 {
		t.Fatalf("nametable = % X, want 12 34", ppu.Nametables[5:7])
	}

	// Reads are delayed by one.
	setVRAMAddr(cpu, 0x2005)
	cpu.Read8(0x2007, false)
	if got := cpu.Read8(0x2007, false); got != 0x12 {
		t.Errorf("read = $%02X, want $12", got)
	}
	if got := cpu.Read8(0x2007, false); got != 0x34 {
		t.Errorf("read = $%02X, want $34", got)
	}

	// Increment by 32.
	cpu.Write8(0x2000, 0x04)
	setVRAMAddr(cpu, 0x2400)
	cpu.Write8(0x2007, 1)
	cpu.Write8(0x2007, 2)
	if ppu.Nametables[0x400] != 1 || ppu.Nametables[0x420] != 2 {
		t.Errorf("increment by 32: got %d %d, want 1 2", ppu.Nametables[0x400], ppu.Nametables[0x420])
	}
	cpu.Write8(0x2000, 0)

	// Palette reads are immediate but refill the buffer with the nametable
	// byte underneath.
	ppu.Nametables[0x700] = 0x5A
	setVRAMAddr(cpu, 0x3F00)
	cpu.Read8(0x2007, false)
	setVRAMAddr(cpu, 0x2000)
	if got := cpu.Read8(0x2007, false); got != 0x5A {
		t.Errorf("read buffer = $%02X, want $5A", got)
	}
}

func TestVBlank(t *testing.T) {
	ppu, cpu, _ := newTestPPU(t)
	cpu.Write8(0x2000, 0x80)

	runTo(ppu, 241, 0)
	if cpu.Peek8(0x2002)&0x80 != 0 {
		t.Fatalf("vblank set too early")
	}
	ppu.Tick()
	if cpu.Peek8(0x2002)&0x80 == 0 {
		t.Fatalf("vblank not set at line 241 dot 1")
	}
	if !cpu.TakeNMI() {
		t.Fatalf("NMI not raised")
	}
	if cpu.TakeNMI() {
		t.Fatalf("NMI is edge triggered")
	}

	// Reading PPUSTATUS clears vblank and NMI.
	if got := cpu.Read8(0x2002, false); got&0x80 == 0 {
		t.Errorf("PPUSTATUS = $%02X, want vblank set", got)
	}
	if cpu.Peek8(0x2002)&0x80 != 0 || cpu.NMIFlag() {
		t.Errorf("vblank/NMI not cleared by PPUSTATUS read")
	}

	// Toggling NMI enable while in vblank.
	ppu.status.setVblank(true)
	cpu.Write8(0x2000, 0)
	cpu.Write8(0x2000, 0x80)
	if !cpu.NMIFlag() {
		t.Errorf("NMI not raised when enabled during vblank")
	}

	runTo(ppu, 261, 1)
	if cpu.Peek8(0x2002)&0xE0 != 0 {
		t.Errorf("status flags not cleared on pre-render line")
	}
}

func TestPreventVBlank(t *testing.T) {
	ppu, cpu, _ := newTestPPU(t)
	cpu.Write8(0x2000, 0x80)

	runTo(ppu, 241, 0)
	if got := cpu.Read8(0x2002, false); got&0x80 != 0 {
		t.Errorf("PPUSTATUS = $%02X, want vblank clear", got)
	}
	ppu.Tick()
	if cpu.Peek8(0x2002)&0x80 != 0 || cpu.NMIFlag() {
		t.Errorf("vblank should be suppressed")
	}

	// Next frame is fine.
	ppu.Tick()
	runTo(ppu, 241, 1)
	if cpu.Peek8(0x2002)&0x80 == 0 {
		t.Errorf("vblank not set on next frame")
	}
}

func TestFrameLength(t *testing.T) {
	frameDots := func(ppu *PPU) int {
		start := ppu.FrameCount
		n := 0
		for ppu.FrameCount == start {
			ppu.Tick()
			n++
		}
		return n
	}

	const full = hwdefs.NumDots * hwdefs.NumScanlines

	t.Run("rendering", func(t *testing.T) {
		ppu, cpu, _ := newTestPPU(t)
		cpu.Write8(0x2001, 0x08)
		got := []int{frameDots(ppu), frameDots(ppu), frameDots(ppu)}
		if diff := cmp.Diff([]int{full, full - 1, full}, got); diff != "" {
			t.Errorf("frame lengths mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("no rendering", func(t *testing.T) {
		ppu, _, _ := newTestPPU(t)
		got := []int{frameDots(ppu), frameDots(ppu)}
		if diff := cmp.Diff([]int{full, full}, got); diff != "" {
			t.Errorf("frame lengths mismatch (-want +got):\n%s", diff)
		}
	})
}

// solidScene fills both nametables with tile 1, an opaque tile.
func solidScene(ppu *PPU, chr []byte) {
	for i := range 8 {
		chr[0x10+i] = 0xFF
	}
	for i := range ppu.Nametables {
		ppu.Nametables[i] = 1
	}
	for i := range ppu.oamMem {
		ppu.oamMem[i] = 0xFF
	}
}

func TestSprite0Hit(t *testing.T) {
	tests := []struct {
		name string
		x    uint8
		mask uint8
		hit  bool
	}{
		{name: "overlap", x: 40, mask: 0x1E, hit: true},
		{name: "x=255", x: 255, mask: 0x1E, hit: false},
		{name: "left clipped", x: 0, mask: 0x18, hit: false},
		{name: "left not clipped", x: 0, mask: 0x1E, hit: true},
		{name: "sprites disabled", x: 40, mask: 0x0A, hit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ppu, cpu, chr := newTestPPU(t)
			solidScene(ppu, chr)
			copy(ppu.oamMem[:4], []byte{30, 1, 0, tt.x})
			cpu.Write8(0x2001, tt.mask)

			runTo(ppu, 31, int(tt.x))
			if tt.x < 255 && ppu.status.spriteHit() {
				t.Fatalf("sprite 0 hit before the sprite is drawn")
			}
			runTo(ppu, 40, 0)
			if got := ppu.status.spriteHit(); got != tt.hit {
				t.Errorf("sprite 0 hit = %t, want %t", got, tt.hit)
			}
		})
	}
}

func TestSpriteOverflow(t *testing.T) {
	tests := []struct {
		name     string
		oam      map[int]uint8 // OAM byte offset -> value
		overflow bool
	}{
		{
			name:     "8 sprites",
			oam:      map[int]uint8{0: 50, 4: 50, 8: 50, 12: 50, 16: 50, 20: 50, 24: 50, 28: 50},
			overflow: false,
		},
		{
			name:     "9 sprites",
			oam:      map[int]uint8{0: 50, 4: 50, 8: 50, 12: 50, 16: 50, 20: 50, 24: 50, 28: 50, 32: 50},
			overflow: true,
		},
		{
			// After 8 sprites, the PPU reads sprite 9 tile as a Y coordinate.
			name:     "diagonal false positive",
			oam:      map[int]uint8{0: 50, 4: 50, 8: 50, 12: 50, 16: 50, 20: 50, 24: 50, 28: 50, 37: 50},
			overflow: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ppu, cpu, chr := newTestPPU(t)
			solidScene(ppu, chr)
			for off, v := range tt.oam {
				ppu.oamMem[off] = v
			}
			cpu.Write8(0x2001, 0x18)

			runTo(ppu, 60, 0)
			if got := ppu.status.spriteOverflow(); got != tt.overflow {
				t.Errorf("sprite overflow = %t, want %t", got, tt.overflow)
			}
		})
	}
}

func TestOAMDMA(t *testing.T) {
	ppu, cpu, _ := newTestPPU(t)
	for i := range 256 {
		cpu.Write8(0x0200+uint16(i), uint8(i))
	}

	dma := func() int {
		cpu.Write8(0x2003, 0)
		cpu.Write8(0x4014, 0x02)
		n := 0
		for cpu.Halted() {
			cpu.Tick()
			n++
		}
		return n
	}

	if cpu.Cycles%2 != 0 {
		t.Fatalf("unexpected odd cycle count")
	}
	if got := dma(); got != 513 {
		t.Errorf("DMA took %d cycles on an even cycle, want 513", got)
	}
	if cpu.Cycles%2 == 0 {
		cpu.Tick()
	}
	if got := dma(); got != 514 {
		t.Errorf("DMA took %d cycles on an odd cycle, want 514", got)
	}

	var want [256]byte
	for i := range want {
		want[i] = uint8(i)
	}
	if diff := cmp.Diff(want, ppu.oamMem); diff != "" {
		t.Errorf("OAM mismatch (-want +got):\n%s", diff)
	}
}

func TestOAMDATA(t *testing.T) {
	_, cpu, _ := newTestPPU(t)
	cpu.Write8(0x2003, 2)
	cpu.Write8(0x2004, 0xFF)
	cpu.Write8(0x2003, 2)
	if got := cpu.Read8(0x2004, false); got != 0xE3 {
		t.Errorf("OAM attribute = $%02X, want $E3", got)
	}
}

func TestOpenBus(t *testing.T) {
	ppu, cpu, _ := newTestPPU(t)

	cpu.Write8(0x2003, 0xAB)
	if got := cpu.Read8(0x2000, false); got != 0xAB {
		t.Errorf("write-only register read = $%02X, want $AB", got)
	}
	if got := cpu.Read8(0x2002, false) & 0x1F; got != 0x0B {
		t.Errorf("PPUSTATUS low bits = $%02X, want $0B", got)
	}

	// Bits decay after a while.
	ppu.FrameCount = 100
	runTo(ppu, 261, 1)
	if got := cpu.Read8(0x2000, false); got != 0 {
		t.Errorf("open bus after decay = $%02X, want 0", got)
	}

	// CPU open bus, nothing is mapped at $5000.
	cpu.Write8(0x0000, 0x42)
	if got := cpu.Read8(0x5000, false); got != 0x42 {
		t.Errorf("CPU open bus = $%02X, want $42", got)
	}
}

func TestBackdrop(t *testing.T) {
	t.Run("rendering", func(t *testing.T) {
		ppu, cpu, _ := newTestPPU(t)
		setVRAMAddr(cpu, 0x3F00)
		cpu.Write8(0x2007, 0x21)
		setVRAMAddr(cpu, 0x0000)
		// Background on, red emphasis.
		cpu.Write8(0x2001, 0x28)

		ppu.Tick()
		runTo(ppu, 0, 0)
		for i, px := range ppu.Frame() {
			if px != 0x21|1<<6 {
				t.Fatalf("pixel %d = $%03X, want $061", i, px)
			}
		}

		img := DefaultPalette().Render(ppu.Frame())
		if got, want := img.RGBAAt(10, 10), DefaultPalette()[0x61]; got != want {
			t.Errorf("rendered color = %v, want %v", got, want)
		}
	})
	t.Run("palette address", func(t *testing.T) {
		ppu, cpu, _ := newTestPPU(t)
		setVRAMAddr(cpu, 0x3F05)
		cpu.Write8(0x2007, 0x16)
		setVRAMAddr(cpu, 0x3F05)

		ppu.Tick()
		runTo(ppu, 0, 0)
		if got := ppu.Frame()[1000]; got != 0x16 {
			t.Errorf("pixel = $%02X, want $16", got)
		}
	})
}

// TestStateRoundtrip checks that a restored PPU renders the same frames as
// the original one.
func TestStateRoundtrip(t *testing.T) {
	ppu, cpu, chr := newTestPPU(t)
	solidScene(ppu, chr)
	for i := range 8 {
		chr[0x20+i] = 0x55
		chr[0x28+i] = 0xF0
	}
	for i := range 0x100 {
		ppu.Nametables[i] = uint8(i % 3)
	}
	copy(ppu.oamMem[:8], []byte{30, 2, 0x41, 40, 100, 1, 0x82, 128})
	cpu.Write8(0x2001, 0x1E)

	runTo(ppu, 120, 77)

	var s snapshot.NES
	cpu.SaveState(&s)
	ppu.SaveState(&s.PPU)

	ppu2, cpu2, chr2 := newTestPPU(t)
	copy(chr2, chr)
	cpu2.LoadState(&s)
	if err := ppu2.LoadState(&s.PPU); err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	for range 2 * hwdefs.CyclesPerFrame {
		cpu.Tick()
		cpu2.Tick()
	}
	if diff := cmp.Diff(ppu.Frame(), ppu2.Frame()); diff != "" {
		t.Errorf("frames differ after restore (-want +got):\n%s", diff)
	}

	var s1, s2 snapshot.NES
	cpu.SaveState(&s1)
	ppu.SaveState(&s1.PPU)
	cpu2.SaveState(&s2)
	ppu2.SaveState(&s2.PPU)
	if diff := cmp.Diff(s1, s2); diff != "" {
		t.Errorf("states differ (-want +got):\n%s", diff)
	}
}

func TestLoadStateInvalid(t *testing.T) {
	tcases := []struct {
		name   string
		modify func(s *snapshot.PPU)
	}{
		{"negative scanline", func(s *snapshot.PPU) { s.Scanline = -5 }},
		{"scanline too large", func(s *snapshot.PPU) { s.Scanline = hwdefs.NumScanlines }},
		{"negative dot", func(s *snapshot.PPU) { s.Cycle = -1 }},
		{"dot too large", func(s *snapshot.PPU) { s.Cycle = 400 }},
		{"negative sprite count", func(s *snapshot.PPU) { s.NumSprites = -2 }},
		{"too many sprites", func(s *snapshot.PPU) { s.NumSprites = 9 }},
	}

	for _, tt := range tcases {
		t.Run(tt.name, func(t *testing.T) {
			ppu, _, _ := newTestPPU(t)
			runTo(ppu, 100, 20)

			var want, s snapshot.PPU
			ppu.SaveState(&want)
			ppu.SaveState(&s)
			s.Nametables[0] = 0x42
			tt.modify(&s)

			if err := ppu.LoadState(&s); err == nil {
				t.Fatalf("LoadState succeeded, want an error")
			}
			var got snapshot.PPU
			ppu.SaveState(&got)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("failed LoadState modified the PPU (-want +got):\n%s", diff)
			}

			// The PPU still runs.
			runTo(ppu, 10, 0)
		})
	}
}

func TestPeekHelpers(t *testing.T) {
	ppu, cpu, chr := newTestPPU(t)

	setVRAMAddr(cpu, 0x2405)
	cpu.Write8(0x2007, 0x77)
	setVRAMAddr(cpu, 0x3F00)
	cpu.Write8(0x2007, 0x0F)
	setVRAMAddr(cpu, 0x3F05)
	cpu.Write8(0x2007, 0x16)

	cpu.Write8(0x2003, 0x10)
	cpu.Write8(0x2004, 0xAB)

	if got := ppu.PeekNametable(1)[5]; got != 0x77 {
		t.Errorf("PeekNametable(1)[5] = $%02X, want $77", got)
	}
	if got := ppu.PeekOAM()[0x10]; got != 0xAB {
		t.Errorf("PeekOAM()[$10] = $%02X, want $AB", got)
	}

	// Tile 1 of the left pattern table: leftmost pixel of row 0 uses color 1.
	chr[16] = 0x80
	pal := DefaultPalette()
	img := ppu.PatternTable(0, 1, pal)
	if got := img.Bounds().Size(); got.X != 128 || got.Y != 128 {
		t.Fatalf("pattern table size = %v, want 128x128", got)
	}
	if got, want := img.RGBAAt(8, 0), pal[0x16]; got != want {
		t.Errorf("pattern pixel (8,0) = %v, want %v", got, want)
	}
	if got, want := img.RGBAAt(9, 0), pal[0x0F]; got != want {
		t.Errorf("pattern pixel (9,0) = %v, want %v", got, want)
	}

	if got := ppu.Image(pal).Bounds().Size(); got.X != hwdefs.ScreenWidth || got.Y != hwdefs.ScreenHeight {
		t.Errorf("image size = %v, want %dx%d", got, hwdefs.ScreenWidth, hwdefs.ScreenHeight)
	}
}

func TestGreyscale(t *testing.T) {
	tests := []struct {
		name string
		mask uint8
		want uint16
	}{
		{name: "color", mask: 0x0A, want: 0x2A},
		{name: "greyscale", mask: 0x0B, want: 0x20},
		{name: "greyscale with emphasis", mask: 0xEB, want: 0x20 | 7<<6},
		{name: "rendering disabled", mask: 0x01, want: 0x20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ppu, cpu, chr := newTestPPU(t)
			solidScene(ppu, chr)
			for i := range ppu.Palettes.Data {
				ppu.Palettes.Data[i] = 0x2A
			}
			cpu.Write8(0x2001, tt.mask)

			runTo(ppu, 240, 0)
			if got := ppu.Frame()[100*hwdefs.ScreenWidth+100]; got != tt.want {
				t.Errorf("pixel = $%03X, want $%03X", got, tt.want)
			}
		})
	}
}

func TestSpriteRendering(t *testing.T) {
	tests := []struct {
		name string
		ctrl uint8
		tile uint8
		attr uint8
		want [][2]int // lit pixels (x, y)
	}{
		{name: "8x8", tile: 2, want: [][2]int{{40, 31}}},
		{name: "hflip", tile: 2, attr: 0x40, want: [][2]int{{47, 31}}},
		{name: "vflip", tile: 2, attr: 0x80, want: [][2]int{{40, 38}}},
		{name: "hvflip", tile: 2, attr: 0xC0, want: [][2]int{{47, 38}}},
		{name: "8x8 table $1000", ctrl: 0x08, tile: 2, want: [][2]int{{47, 31}}},
		{name: "8x16", ctrl: 0x20, tile: 2, want: [][2]int{{40, 31}, {40, 39}}},
		{name: "8x16 vflip", ctrl: 0x20, tile: 2, attr: 0x80, want: [][2]int{{40, 38}, {40, 46}}},
		{name: "8x16 odd tile", ctrl: 0x20, tile: 3, want: [][2]int{{47, 31}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ppu, cpu, chr := newTestPPU(t)

			// First row of tiles 2 and 3 in table $0000 have their leftmost
			// pixel set, tile 2 in table $1000 has its rightmost one.
			chr[0x20] = 0x80
			chr[0x30] = 0x80
			chr[0x1020] = 0x01

			for i := range ppu.oamMem {
				ppu.oamMem[i] = 0xFF
			}
			copy(ppu.oamMem[:4], []byte{30, tt.tile, tt.attr, 40})
			for i := range ppu.Palettes.Data {
				ppu.Palettes.Data[i] = 0x0F
			}
			ppu.Palettes.Data[0x11] = 0x01

			cpu.Write8(0x2000, tt.ctrl)
			cpu.Write8(0x2001, 0x14)
			runTo(ppu, 240, 0)

			var lit [][2]int
			for i, c := range ppu.Frame() {
				if c != 0x0F {
					lit = append(lit, [2]int{i % hwdefs.ScreenWidth, i / hwdefs.ScreenWidth})
				}
			}
			if diff := cmp.Diff(tt.want, lit); diff != "" {
				t.Errorf("lit pixels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPPUDATARendering(t *testing.T) {
	tests := []struct {
		name  string
		mask  uint8
		vaddr uint16
		want  uint16
	}{
		{name: "coarse x and fine y", mask: 0x08, vaddr: 0x2005, want: 0x3006},
		{name: "coarse x wraps", mask: 0x08, vaddr: 0x201F, want: 0x3400},
		{name: "coarse y wraps", mask: 0x08, vaddr: 0x73A0, want: 0x0801},
		{name: "rendering disabled", mask: 0x00, vaddr: 0x2005, want: 0x2025},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ppu, cpu, _ := newTestPPU(t)
			cpu.Write8(0x2000, 0x04) // increment by 32, ignored while rendering
			cpu.Write8(0x2001, tt.mask)
			runTo(ppu, 100, 100)

			ppu.vramAddr.setVal(tt.vaddr)
			cpu.Read8(0x2007, false)
			if got := ppu.vramAddr.val(); got != tt.want {
				t.Errorf("v = $%04X, want $%04X", got, tt.want)
			}
		})
	}
}

func TestOAMADDRReset(t *testing.T) {
	tests := []struct {
		name string
		line int
		mask uint8
		want uint8
	}{
		{name: "visible line", line: 100, mask: 0x18, want: 0},
		{name: "pre-render line", line: 261, mask: 0x18, want: 0},
		{name: "rendering disabled", line: 100, mask: 0x00, want: 0x40},
		{name: "vblank", line: 245, mask: 0x18, want: 0x40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ppu, cpu, _ := newTestPPU(t)
			cpu.Write8(0x2001, tt.mask)
			runTo(ppu, tt.line, 250)

			cpu.Write8(0x2003, 0x40)
			runTo(ppu, tt.line, 300)
			if ppu.oamAddr != tt.want {
				t.Errorf("OAMADDR = $%02X, want $%02X", ppu.oamAddr, tt.want)
			}
		})
	}
}

func TestReset(t *testing.T) {
	setup := func(t *testing.T) (*PPU, *CPUBus) {
		ppu, cpu, _ := newTestPPU(t)
		setVRAMAddr(cpu, 0x2010)
		cpu.Write8(0x2007, 0x42)
		setVRAMAddr(cpu, 0x3F01)
		cpu.Write8(0x2007, 0x2C)
		cpu.Write8(0x2003, 0x08)
		cpu.Write8(0x2004, 0x99)
		cpu.Write8(0x2000, 0x90)
		cpu.Write8(0x2001, 0x1E)
		cpu.Write8(0x2005, 0x10) // first write, sets the latch
		return ppu, cpu
	}

	t.Run("soft", func(t *testing.T) {
		ppu, _ := setup(t)
		v := ppu.vramAddr
		ppu.Reset(hwdefs.SoftReset)

		if ppu.ctrl != 0 || ppu.mask != 0 || ppu.writeLatch {
			t.Errorf("ctrl = $%02X, mask = $%02X, latch = %t, want cleared", ppu.ctrl.val(), ppu.mask.val(), ppu.writeLatch)
		}
		if ppu.Nametables[0x10] != 0x42 {
			t.Errorf("nametable byte = $%02X, want $42", ppu.Nametables[0x10])
		}
		if ppu.Palettes.Data[1] != 0x2C {
			t.Errorf("palette[1] = $%02X, want $2C", ppu.Palettes.Data[1])
		}
		if ppu.oamMem[8] != 0x99 {
			t.Errorf("OAM[8] = $%02X, want $99", ppu.oamMem[8])
		}
		if ppu.vramAddr != v {
			t.Errorf("v = $%04X, want $%04X", ppu.vramAddr.val(), v.val())
		}
	})
	t.Run("power up", func(t *testing.T) {
		ppu, _ := setup(t)
		ppu.PowerUp()

		if ppu.ctrl != 0 || ppu.mask != 0 || ppu.writeLatch {
			t.Errorf("ctrl = $%02X, mask = $%02X, latch = %t, want cleared", ppu.ctrl.val(), ppu.mask.val(), ppu.writeLatch)
		}
		if ppu.Nametables != [0x800]byte{} {
			t.Errorf("nametables not cleared")
		}
		if ppu.oamMem != [0x100]byte{} || ppu.oamAddr != 0 {
			t.Errorf("OAM not cleared")
		}
		if diff := cmp.Diff(powerUpPalette[:], ppu.Palettes.Data); diff != "" {
			t.Errorf("palette mismatch (-want +got):\n%s", diff)
		}
		if ppu.vramAddr != 0 || ppu.Scanline != 0 || ppu.Cycle != 0 {
			t.Errorf("v = $%04X, position = %d,%d, want 0", ppu.vramAddr.val(), ppu.Scanline, ppu.Cycle)
		}
	})
}
