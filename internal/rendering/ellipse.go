package rendering

import (
	"image"
	"image/draw"

	"golang.org/x/image/vector"
)

// kappa places cubic Bézier control points for a quarter ellipse.
const kappa = 0.5522847498

// ellipseMask rasterizes an anti-aliased ellipse inscribed in a size x size
// square, shrunk by inset pixels on every side. It returns nil when nothing
// would remain.
func ellipseMask(size int, inset float32) *image.Alpha {
	r := float32(size)/2 - inset
	if size <= 0 || r <= 0 {
		return nil
	}
	c := float32(size) / 2
	k := kappa * r

	z := vector.NewRasterizer(size, size)
	z.MoveTo(c+r, c)
	z.CubeTo(c+r, c+k, c+k, c+r, c, c+r)
	z.CubeTo(c-k, c+r, c-r, c+k, c-r, c)
	z.CubeTo(c-r, c-k, c-k, c-r, c, c-r)
	z.CubeTo(c+k, c-r, c+r, c-k, c+r, c)
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, size, size))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// marker holds the two masks of a bead: the full disc drawn in the
// outline color and the disc inset by one pixel drawn in the fill color.
type marker struct {
	outline *image.Alpha
	fill    *image.Alpha
}

func newMarker(cellSize int) marker {
	return marker{
		outline: ellipseMask(cellSize, 0),
		fill:    ellipseMask(cellSize, 1),
	}
}

// draw paints the marker for the cell whose unclipped square starts at
// origin. Only pixels inside clip change.
func (m marker) draw(dst draw.Image, origin image.Point, clip image.Rectangle, outline, fill image.Image) {
	mp := clip.Min.Sub(origin)
	if m.outline != nil {
		draw.DrawMask(dst, clip, outline, image.Point{}, m.outline, mp, draw.Over)
	}
	if m.fill != nil {
		draw.DrawMask(dst, clip, fill, image.Point{}, m.fill, mp, draw.Over)
	}
}
