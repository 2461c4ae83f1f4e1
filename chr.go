package main

import (
	"errors"
	"fmt"
	"image"

	"nesppu/hw"
)

// Sets of 4 palette indexes used to color CHR tiles.
var chrPalettes = [...][4]uint8{
	{0x0F, 0x00, 0x10, 0x30}, // grays
	{0x0F, 0x06, 0x16, 0x27}, // reds
	{0x0F, 0x09, 0x1A, 0x2A}, // greens
	{0x0F, 0x01, 0x12, 0x21}, // blues
	{0x0F, 0x17, 0x28, 0x38}, // browns
	{0x0F, 0x04, 0x14, 0x24}, // purples
	{0x0F, 0x0C, 0x1C, 0x2C}, // cyans
	{0x0F, 0x16, 0x27, 0x18}, // mario
}

const tilesPerRow = 16

// renderCHR renders all the 8x8 tiles of chr into an image, 16 tiles per row,
// so that each 4KB pattern table is a 128x128 square.
func renderCHR(chr []byte, palette int, pal *hw.Palette) (*image.RGBA, error) {
	if len(chr) == 0 {
		return nil, errors.New("rom has no CHR ROM")
	}
	if palette < 0 || palette >= len(chrPalettes) {
		return nil, fmt.Errorf("invalid palette %d (0-%d)", palette, len(chrPalettes)-1)
	}
	colors := chrPalettes[palette]

	ntiles := len(chr) / 16
	nrows := (ntiles + tilesPerRow - 1) / tilesPerRow
	img := image.NewRGBA(image.Rect(0, 0, tilesPerRow*8, nrows*8))

	for tile := range ntiles {
		tx := (tile % tilesPerRow) * 8
		ty := (tile / tilesPerRow) * 8
		data := chr[tile*16 : tile*16+16]
		for row := range 8 {
			lo, hi := data[row], data[row+8]
			for col := range 8 {
				shift := 7 - col
				px := (hi>>shift)&1<<1 | (lo>>shift)&1
				img.SetRGBA(tx+col, ty+row, pal[colors[px]])
			}
		}
	}
	return img, nil
}
