package imageprocessing

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// NeedsRotation reports whether a source of srcW x srcH has the opposite
// orientation (portrait vs. landscape) to the target. Square sides never
// trigger a rotation.
func NeedsRotation(srcW, srcH, targetW, targetH int) bool {
	return (srcW < srcH && targetW > targetH) || (srcW > srcH && targetW < targetH)
}

// GetScaledDimensions calculates the scaled dimensions that fit within the target while preserving aspect ratio
func GetScaledDimensions(srcWidth, srcHeight, targetWidth, targetHeight int) (int, int) {
	scaleX := float64(targetWidth) / float64(srcWidth)
	scaleY := float64(targetHeight) / float64(srcHeight)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	newWidth := int(float64(srcWidth) * scale)
	newHeight := int(float64(srcHeight) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}
	return newWidth, newHeight
}

// ResizeToFit scales img with Lanczos resampling to fit within the target while
// preserving aspect ratio, and centers it on a target-sized canvas filled with
// background. Sources smaller than the target are scaled up.
func ResizeToFit(img image.Image, targetWidth, targetHeight int, background color.Color) *image.NRGBA {
	bounds := img.Bounds()
	newWidth, newHeight := GetScaledDimensions(bounds.Dx(), bounds.Dy(), targetWidth, targetHeight)

	resized := imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)

	canvas := imaging.New(targetWidth, targetHeight, background)
	offsetX := (targetWidth - newWidth) / 2
	offsetY := (targetHeight - newHeight) / 2
	return imaging.Paste(canvas, resized, image.Pt(offsetX, offsetY))
}

// OrientAndFit rotates img by 90 degrees counter-clockwise when its orientation
// opposes the target's, then applies ResizeToFit.
func OrientAndFit(img image.Image, targetWidth, targetHeight int, background color.Color) (*image.NRGBA, bool) {
	b := img.Bounds()
	rotated := NeedsRotation(b.Dx(), b.Dy(), targetWidth, targetHeight)
	if rotated {
		img = imaging.Rotate90(img)
	}
	return ResizeToFit(img, targetWidth, targetHeight, background), rotated
}
