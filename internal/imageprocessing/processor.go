package imageprocessing

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
)

// FormatFromPath returns the image format implied by path's extension
// (case-insensitive). Unknown extensions are an UnsupportedImage error.
func FormatFromPath(path string) (imaging.Format, error) {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return 0, apperr.New(apperr.KindUnsupportedImage, "detect image format", path, err)
	}
	return format, nil
}

// LoadImage opens and decodes the image at path.
func LoadImage(path string) (image.Image, imaging.Format, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, apperr.New(apperr.KindResourceNotFound, "load image", path, err)
		}
		return nil, 0, apperr.New(apperr.KindIO, "load image", path, err)
	}
	defer f.Close()

	img, err := DecodeImage(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return img, format, nil
}

// DecodeImage decodes an image stream of any registered format.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, apperr.New(apperr.KindUnsupportedImage, "decode image", "", err)
	}
	return img, nil
}

// EncodeImage writes img in the given format.
func EncodeImage(w io.Writer, img image.Image, format imaging.Format) error {
	if err := imaging.Encode(w, img, format, imaging.JPEGQuality(95)); err != nil {
		return apperr.New(apperr.KindIO, "encode image", "", err)
	}
	return nil
}
