package imageprocessing

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/soniakeys/quant/mean"
	"github.com/soniakeys/quant/median"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
)

// Quantizer names an adaptive palette algorithm.
type Quantizer string

const (
	// QuantizerMedianCut is median cut with mode aggregation.
	QuantizerMedianCut Quantizer = "mediancut"
	// QuantizerMedian is median cut splitting on the most populated box.
	QuantizerMedian Quantizer = "median"
	// QuantizerMean splits boxes at the channel mean.
	QuantizerMean Quantizer = "mean"
)

// Quantizers lists the supported algorithms, default first.
func Quantizers() []Quantizer {
	return []Quantizer{QuantizerMedianCut, QuantizerMedian, QuantizerMean}
}

// ParseQuantizer resolves a quantizer name. Empty selects the default.
func ParseQuantizer(name string) (Quantizer, error) {
	switch q := Quantizer(strings.ToLower(strings.TrimSpace(name))); q {
	case "":
		return QuantizerMedianCut, nil
	case QuantizerMedianCut, QuantizerMedian, QuantizerMean:
		return q, nil
	}
	return "", apperr.DataFormat("parse quantizer", "unknown quantizer %q", name)
}

func (q Quantizer) drawQuantizer(colors int) draw.Quantizer {
	switch q {
	case QuantizerMedian:
		return median.Quantizer(colors)
	case QuantizerMean:
		return mean.Quantizer(colors)
	default:
		return quantize.MedianCutQuantizer{Aggregation: quantize.Mode}
	}
}

// AdaptivePalette computes at most colors representative colors of img.
func AdaptivePalette(img image.Image, colors int, q Quantizer) color.Palette {
	pal := q.drawQuantizer(colors).Quantize(make(color.Palette, 0, colors), img)
	if len(pal) > colors {
		pal = pal[:colors]
	}
	return pal
}

// MapToPalette replaces every pixel of img by its nearest palette color
// without dithering and returns the result in RGB form.
func MapToPalette(img image.Image, pal color.Palette) *image.RGBA {
	bounds := img.Bounds()
	paletted := image.NewPaletted(bounds, pal)
	draw.Draw(paletted, bounds, img, bounds.Min, draw.Src)
	return ToRGBA(paletted, true)
}

// ReduceColors bounds the color variety of img to at most colors using an
// adaptive palette. Palette indices are not kept: the result is plain RGB.
func ReduceColors(img image.Image, colors int, opts PrepareOptions) *image.RGBA {
	pal := AdaptivePalette(img, colors, opts.Quantizer)
	if len(pal) == 0 {
		return ToRGBA(img, true)
	}
	if opts.Dither {
		if dithered := DitherWithPalette(img, pal); dithered != nil {
			return ToRGBA(dithered, true)
		}
	}
	return MapToPalette(img, pal)
}
