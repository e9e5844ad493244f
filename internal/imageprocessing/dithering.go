package imageprocessing

import (
	"image"
	"image/color"

	"github.com/makeworld-the-better-one/dither/v2"
)

// DitherWithPalette applies Floyd-Steinberg error diffusion against pal.
// It returns nil when pal is too small to dither with.
func DitherWithPalette(img image.Image, pal color.Palette) image.Image {
	if img == nil || len(pal) < 2 {
		return nil
	}

	opaque := make([]color.Color, len(pal))
	for i, c := range pal {
		r, g, b, _ := c.RGBA()
		opaque[i] = color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0xff}
	}

	ditherer := dither.NewDitherer(opaque)
	if ditherer == nil {
		return nil
	}
	ditherer.Matrix = dither.FloydSteinberg

	return ditherer.Dither(img)
}
