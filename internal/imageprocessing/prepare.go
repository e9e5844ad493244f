package imageprocessing

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
	"github.com/rmitchellscott/diamondperls/internal/logging"
)

// Background fills canvas areas not covered by the scaled source.
var Background = color.White

// PrepareOptions tunes the global color reduction step.
type PrepareOptions struct {
	Quantizer Quantizer
	Dither    bool
}

// DefaultPrepareOptions returns median cut without dithering.
func DefaultPrepareOptions() PrepareOptions {
	return PrepareOptions{Quantizer: QuantizerMedianCut}
}

// PreparedImage is the working canvas of one run: exactly the target size,
// opaque RGB, with a bounded number of distinct colors. The renderer draws
// into it in place.
type PreparedImage struct {
	*image.RGBA
	Format  imaging.Format
	Rotated bool
	// Placement is the area covered by the scaled source.
	Placement image.Rectangle
}

// Width returns the canvas width in pixels.
func (p *PreparedImage) Width() int { return p.Bounds().Dx() }

// Height returns the canvas height in pixels.
func (p *PreparedImage) Height() int { return p.Bounds().Dy() }

// PrepareFile loads the image at path and prepares it; the source format is
// remembered so the result can be written back in kind.
func PrepareFile(path string, targetWidth, targetHeight, colors int, opts PrepareOptions) (*PreparedImage, error) {
	src, format, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	prepared, err := Prepare(src, targetWidth, targetHeight, colors, opts)
	if err != nil {
		return nil, err
	}
	prepared.Format = format
	return prepared, nil
}

// Prepare rotates src to the target orientation if needed, scales it to fit,
// centers it on a white canvas of exactly targetWidth x targetHeight and
// reduces it to at most colors colors.
func Prepare(src image.Image, targetWidth, targetHeight, colors int, opts PrepareOptions) (*PreparedImage, error) {
	if targetWidth <= 0 || targetHeight <= 0 {
		return nil, apperr.DataFormat("prepare image", "target size %dx%d must be positive", targetWidth, targetHeight)
	}
	if colors < 1 {
		return nil, apperr.DataFormat("prepare image", "color count %d must be at least 1", colors)
	}
	sb := src.Bounds()
	if sb.Empty() {
		return nil, apperr.New(apperr.KindUnsupportedImage, "prepare image", "", errEmptyImage)
	}

	opaque := ToOpaqueNRGBA(src)
	canvas, rotated := OrientAndFit(opaque, targetWidth, targetHeight, Background)

	w, h := sb.Dx(), sb.Dy()
	if rotated {
		w, h = h, w
	}
	newW, newH := GetScaledDimensions(w, h, targetWidth, targetHeight)
	offX, offY := (targetWidth-newW)/2, (targetHeight-newH)/2

	reduced := ReduceColors(canvas, colors, opts)

	logging.DebugWithComponent(logging.ComponentPrepare, "Image prepared",
		"source_width", sb.Dx(), "source_height", sb.Dy(),
		"target_width", targetWidth, "target_height", targetHeight,
		"scaled_width", newW, "scaled_height", newH,
		"rotated", rotated, "colors", colors, "quantizer", opts.Quantizer, "dither", opts.Dither)

	return &PreparedImage{
		RGBA:      reduced,
		Rotated:   rotated,
		Placement: image.Rect(offX, offY, offX+newW, offY+newH),
	}, nil
}

type imageError string

func (e imageError) Error() string { return string(e) }

const errEmptyImage = imageError("image has no pixels")
