package hw

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"nesppu/hw/hwdefs"
)

// Palette maps 9-bit pixels (6-bit color index, 3 emphasis bits) to RGB.
type Palette [512]color.RGBA

// 2C02 colors, without emphasis.
var ntscColors = [64]uint32{
	0x666666, 0x002A88, 0x1412A7, 0x3B00A4, 0x5C007E, 0x6E0040, 0x6C0600, 0x561D00,
	0x333500, 0x0B4800, 0x005200, 0x004F08, 0x00404D, 0x000000, 0x000000, 0x000000,
	0xADADAD, 0x155FD9, 0x4240FF, 0x7527FE, 0xA01ACC, 0xB71E7B, 0xB53120, 0x994E00,
	0x6B6D00, 0x388700, 0x0C9300, 0x008F32, 0x007C8D, 0x000000, 0x000000, 0x000000,
	0xFFFEFF, 0x64B0FF, 0x9290FF, 0xC676FF, 0xF36AFF, 0xFE6ECC, 0xFE8170, 0xEA9E22,
	0xBCBE00, 0x88D800, 0x5CE430, 0x45E082, 0x48CDDE, 0x4F4F4F, 0x000000, 0x000000,
	0xFFFEFF, 0xC0DFFF, 0xD3D2FF, 0xE8C8FF, 0xFBC2FF, 0xFEC4EA, 0xFECCC5, 0xF7D8A5,
	0xE4E594, 0xCFEF96, 0xBDF4AB, 0xB3F3CC, 0xB5EBF2, 0xB8B8B8, 0x000000, 0x000000,
}

var defaultPalette = sync.OnceValue(func() *Palette {
	var base [64]color.RGBA
	for i, c := range ntscColors {
		base[i] = color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 0xFF}
	}
	pal := new(Palette)
	pal.fill(base[:])
	return pal
})

// DefaultPalette returns the builtin 2C02 palette.
func DefaultPalette() *Palette {
	return defaultPalette()
}

// fill fills the palette from 64 base colors, computing the emphasized ones.
func (pal *Palette) fill(base []color.RGBA) {
	const attenuate = 0.816
	for emph := range 8 {
		r, g, b := 1.0, 1.0, 1.0
		if emph&1 != 0 { // red
			g, b = g*attenuate, b*attenuate
		}
		if emph&2 != 0 { // green
			r, b = r*attenuate, b*attenuate
		}
		if emph&4 != 0 { // blue
			r, g = r*attenuate, g*attenuate
		}
		for i, c := range base {
			pal[emph<<6|i] = color.RGBA{
				R: uint8(float64(c.R) * r),
				G: uint8(float64(c.G) * g),
				B: uint8(float64(c.B) * b),
				A: 0xFF,
			}
		}
	}
}

// ReadPalette reads a palette file, made of 64 or 512 RGB triplets.
func ReadPalette(r io.Reader) (*Palette, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var ncolors int
	switch len(buf) {
	case 64 * 3:
		ncolors = 64
	case 512 * 3:
		ncolors = 512
	default:
		return nil, fmt.Errorf("invalid palette file size: %d bytes", len(buf))
	}

	colors := make([]color.RGBA, ncolors)
	for i := range colors {
		colors[i] = color.RGBA{R: buf[i*3], G: buf[i*3+1], B: buf[i*3+2], A: 0xFF}
	}

	pal := new(Palette)
	if ncolors == 64 {
		pal.fill(colors)
	} else {
		copy(pal[:], colors)
	}
	return pal, nil
}

// Render converts a frame of 9-bit pixels into an RGBA image.
func (pal *Palette) Render(frame []uint16) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, hwdefs.ScreenWidth, hwdefs.ScreenHeight))
	pal.RenderTo(img, frame)
	return img
}

// RenderTo is like Render, but writes into an existing image.
func (pal *Palette) RenderTo(img *image.RGBA, frame []uint16) {
	for i, px := range frame {
		c := pal[px&0x1FF]
		pix := img.Pix[i*4 : i*4+4 : i*4+4]
		pix[0], pix[1], pix[2], pix[3] = c.R, c.G, c.B, c.A
	}
}
