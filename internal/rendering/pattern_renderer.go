package rendering

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
	"github.com/rmitchellscott/diamondperls/internal/config"
	"github.com/rmitchellscott/diamondperls/internal/legend"
	"github.com/rmitchellscott/diamondperls/internal/logging"
	"github.com/rmitchellscott/diamondperls/internal/matcher"
	"github.com/rmitchellscott/diamondperls/internal/palette"
)

// OutlineColor is the ring drawn around every bead.
var OutlineColor = color.Black

// CellSize converts a bead diameter in millimeters to whole pixels at dpi.
// A result of zero would never advance the scan and is rejected.
func CellSize(dpi int, beadMM float64) (int, error) {
	if dpi <= 0 || beadMM <= 0 || math.IsNaN(beadMM) || math.IsInf(beadMM, 0) {
		return 0, apperr.DataFormat("cell size", "dpi %d and bead size %gmm must be positive", dpi, beadMM)
	}
	size := config.MMToPixels(beadMM, dpi)
	if size < 1 {
		return 0, apperr.DataFormat("cell size", "bead size %gmm at %d dpi is smaller than one pixel", beadMM, dpi)
	}
	return size, nil
}

// Renderer turns a prepared image into a bead pattern.
type Renderer struct {
	matcher *matcher.Matcher
	fonts   *FontResolver
}

// NewRenderer creates a renderer resolving cell colors through m. A nil
// fonts uses the built-in font only.
func NewRenderer(m *matcher.Matcher, fonts *FontResolver) *Renderer {
	if fonts == nil {
		fonts = NewFontResolver("")
	}
	return &Renderer{matcher: m, fonts: fonts}
}

// Render scans img in columns of cellSize-wide cells, top to bottom within
// each column, and replaces every cell with a numbered bead in its nearest
// palette color. The matcher cache is reset first. The returned legend
// numbers colors in order of first appearance.
//
// Drawing for a cell never leaves that cell, so every cell is sampled from
// prepared pixels.
func (r *Renderer) Render(img *image.RGBA, cellSize int, useAverage bool) (*legend.Legend, error) {
	if img == nil {
		return nil, apperr.DataFormat("render pattern", "no image")
	}
	if cellSize <= 0 {
		return nil, apperr.DataFormat("render pattern", "cell size %d must be positive", cellSize)
	}
	if r.matcher == nil {
		return nil, apperr.DataFormat("render pattern", "no palette matcher")
	}

	r.matcher.Reset()
	l := legend.New()
	bounds := img.Bounds()

	face, tier := r.fonts.Face(FontSize(cellSize))
	defer face.Close()
	bead := newMarker(cellSize)
	outline := image.NewUniform(OutlineColor)

	for x := bounds.Min.X; x < bounds.Max.X; x += cellSize {
		for y := bounds.Min.Y; y < bounds.Max.Y; y += cellSize {
			cell := image.Rect(x, y, x+cellSize, y+cellSize)
			box := cell.Intersect(bounds)

			var sample palette.RGB
			if useAverage {
				sample = AverageColor(img, box)
			} else {
				sample = CenterColor(img, box, cellSize)
			}

			entry := r.matcher.Nearest(sample)
			number := l.Record(entry)

			bead.draw(img, cell.Min, box, outline, image.NewUniform(entry.RGB.RGBA()))

			drawNumber(img.SubImage(box).(*image.RGBA), face, cell, strconv.Itoa(number), NumberColor(entry.RGB))
		}
	}

	stats := r.matcher.Stats()
	logging.InfoWithComponent(logging.ComponentRenderer, "Pattern rendered",
		"width", bounds.Dx(), "height", bounds.Dy(), "cell_size", cellSize,
		"cells", l.Cells(), "colors", l.Len(), "average", useAverage,
		"font", tier.String(), "cache_hits", stats.Hits, "cache_misses", stats.Misses)

	return l, nil
}

// AverageColor returns the per-channel mean of img over box, truncated.
func AverageColor(img *image.RGBA, box image.Rectangle) palette.RGB {
	box = box.Intersect(img.Bounds())
	n := box.Dx() * box.Dy()
	if n == 0 {
		return palette.RGB{}
	}
	var sr, sg, sb int
	for y := box.Min.Y; y < box.Max.Y; y++ {
		row := img.Pix[img.PixOffset(box.Min.X, y):img.PixOffset(box.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			sr += int(row[i])
			sg += int(row[i+1])
			sb += int(row[i+2])
		}
	}
	return palette.RGB{R: uint8(sr / n), G: uint8(sg / n), B: uint8(sb / n)}
}

// CenterColor samples the pixel half a cell into box, clamped to the last
// row and column of box for clipped edge cells.
func CenterColor(img *image.RGBA, box image.Rectangle, cellSize int) palette.RGB {
	half := cellSize / 2
	dx := min(half, box.Dx()-1)
	dy := min(half, box.Dy()-1)
	c := img.RGBAAt(box.Min.X+max(dx, 0), box.Min.Y+max(dy, 0))
	return palette.RGB{R: c.R, G: c.G, B: c.B}
}

// NumberColor picks black text on light beads and white text on dark ones.
func NumberColor(c palette.RGB) *image.Uniform {
	if c.IsLight() {
		return image.Black
	}
	return image.White
}

// drawNumber centers text on cell. Glyphs are clipped to dst's bounds.
func drawNumber(dst *image.RGBA, face font.Face, cell image.Rectangle, text string, src image.Image) {
	metrics := face.Metrics()
	advance := font.MeasureString(face, text)

	cx := fixed.I(cell.Min.X) + fixed.Int26_6(cell.Dx()*32)
	cy := fixed.I(cell.Min.Y) + fixed.Int26_6(cell.Dy()*32)

	d := &font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: face,
		Dot: fixed.Point26_6{
			X: cx - advance/2,
			Y: cy + (metrics.Ascent-metrics.Descent)/2,
		},
	}
	d.DrawString(text)
}
