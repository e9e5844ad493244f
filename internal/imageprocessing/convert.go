package imageprocessing

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// ToOpaqueNRGBA converts any image to NRGBA and discards the alpha channel,
// keeping the stored color values of transparent pixels. Grayscale and
// paletted inputs are expanded to three channels.
func ToOpaqueNRGBA(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

// ToRGBA converts any image to RGBA format for easier processing. Without
// forceCopy an *image.RGBA input is returned as is.
func ToRGBA(img image.Image, forceCopy bool) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && !forceCopy {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// CountColors returns the number of distinct opaque colors in img.
func CountColors(img *image.RGBA) int {
	seen := make(map[[3]uint8]struct{})
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			seen[[3]uint8{row[i], row[i+1], row[i+2]}] = struct{}{}
		}
	}
	return len(seen)
}
