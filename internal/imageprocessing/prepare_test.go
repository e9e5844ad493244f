package imageprocessing

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x + y) % 256), A: 0xff})
		}
	}
	return img
}

func isWhite(c color.RGBA) bool {
	return c.R == 0xff && c.G == 0xff && c.B == 0xff
}

func TestPrepareOutputSize(t *testing.T) {
	tests := []struct {
		name          string
		srcW, srcH    int
		targetW, tgtH int
		wantRotated   bool
		wantPlacement image.Rectangle
	}{
		{"portrait into portrait", 40, 80, 100, 150, false, image.Rect(12, 0, 87, 150)},
		{"landscape into portrait rotates", 80, 40, 100, 150, true, image.Rect(12, 0, 87, 150)},
		{"portrait into landscape rotates", 30, 60, 120, 80, true, image.Rect(0, 10, 120, 70)},
		{"square never rotates", 50, 50, 60, 90, false, image.Rect(0, 15, 60, 75)},
		{"odd aspect", 7, 3, 50, 20, false, image.Rect(2, 0, 48, 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Prepare(gradientImage(tt.srcW, tt.srcH), tt.targetW, tt.tgtH, 16, DefaultPrepareOptions())
			if err != nil {
				t.Fatalf("Prepare failed: %v", err)
			}
			if p.Width() != tt.targetW || p.Height() != tt.tgtH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.targetW, tt.tgtH, p.Width(), p.Height())
			}
			if p.Rotated != tt.wantRotated {
				t.Errorf("Expected rotated=%v, got %v", tt.wantRotated, p.Rotated)
			}
			if p.Placement != tt.wantPlacement {
				t.Errorf("Expected placement %v, got %v", tt.wantPlacement, p.Placement)
			}
			if !p.Placement.In(p.Bounds()) {
				t.Errorf("Placement %v exceeds canvas %v", p.Placement, p.Bounds())
			}
		})
	}
}

func TestPrepareAspectRatioPreserved(t *testing.T) {
	sizes := [][2]int{{640, 480}, {480, 640}, {1000, 333}, {17, 91}, {300, 300}}
	for _, s := range sizes {
		p, err := Prepare(gradientImage(s[0], s[1]), 248, 350, 8, DefaultPrepareOptions())
		if err != nil {
			t.Fatalf("Prepare(%v) failed: %v", s, err)
		}
		srcW, srcH := float64(s[0]), float64(s[1])
		if p.Rotated {
			srcW, srcH = srcH, srcW
		}
		pw, ph := float64(p.Placement.Dx()), float64(p.Placement.Dy())
		// Integer truncation may shave at most one pixel off either side.
		if diff := pw*srcH - ph*srcW; diff > srcW+srcH || diff < -(srcW+srcH) {
			t.Errorf("Aspect ratio drift for %v: placed %vx%v", s, pw, ph)
		}
	}
}

func TestPrepareSmallImageCenteredWithWhitePadding(t *testing.T) {
	red := color.RGBA{R: 200, G: 10, B: 10, A: 0xff}
	p, err := Prepare(solidImage(10, 10, red), 100, 50, 4, DefaultPrepareOptions())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if p.Width() != 100 || p.Height() != 50 {
		t.Fatalf("Expected 100x50, got %dx%d", p.Width(), p.Height())
	}
	if want := image.Rect(25, 0, 75, 50); p.Placement != want {
		t.Errorf("Expected placement %v, got %v", want, p.Placement)
	}

	for _, pt := range []image.Point{{0, 0}, {24, 25}, {75, 10}, {99, 49}} {
		if c := p.RGBAAt(pt.X, pt.Y); !isWhite(c) {
			t.Errorf("Expected white padding at %v, got %v", pt, c)
		}
	}
	if c := p.RGBAAt(50, 25); c.R < 150 || c.G > 60 {
		t.Errorf("Expected red content at center, got %v", c)
	}
}

func TestPrepareBoundsColorCount(t *testing.T) {
	for _, q := range Quantizers() {
		for _, n := range []int{1, 4, 32} {
			opts := PrepareOptions{Quantizer: q}
			p, err := Prepare(gradientImage(64, 96), 64, 96, n, opts)
			if err != nil {
				t.Fatalf("%s/%d: Prepare failed: %v", q, n, err)
			}
			if got := CountColors(p.RGBA); got > n {
				t.Errorf("%s/%d: expected at most %d colors, got %d", q, n, n, got)
			}
		}
	}
}

func TestPrepareWithDither(t *testing.T) {
	opts := PrepareOptions{Quantizer: QuantizerMedianCut, Dither: true}
	p, err := Prepare(gradientImage(40, 60), 40, 60, 8, opts)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if got := CountColors(p.RGBA); got > 8 {
		t.Errorf("Expected at most 8 colors with dithering, got %d", got)
	}
}

func TestPrepareDiscardsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 20, 30))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 10, 120, 200, 0
	}
	p, err := Prepare(src, 20, 30, 2, DefaultPrepareOptions())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	c := p.RGBAAt(10, 15)
	if c.A != 0xff {
		t.Errorf("Expected opaque output, got alpha %d", c.A)
	}
	if c.B < 150 {
		t.Errorf("Expected stored color to survive alpha removal, got %v", c)
	}
}

func TestPrepareRejectsBadArguments(t *testing.T) {
	src := solidImage(4, 4, color.Black)
	cases := []struct {
		w, h, n int
	}{
		{0, 10, 4},
		{10, -1, 4},
		{10, 10, 0},
	}
	for _, c := range cases {
		if _, err := Prepare(src, c.w, c.h, c.n, DefaultPrepareOptions()); !errors.Is(err, apperr.ErrDataFormat) {
			t.Errorf("Prepare(%d,%d,%d): expected ErrDataFormat, got %v", c.w, c.h, c.n, err)
		}
	}
	if _, err := Prepare(image.NewRGBA(image.Rect(0, 0, 0, 0)), 10, 10, 4, DefaultPrepareOptions()); !errors.Is(err, apperr.ErrUnsupportedImage) {
		t.Errorf("Expected ErrUnsupportedImage for empty image, got %v", err)
	}
}

func TestPrepareFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Photo.PNG")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if err := png.Encode(f, gradientImage(30, 20)); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	f.Close()

	p, err := PrepareFile(path, 60, 40, 8, DefaultPrepareOptions())
	if err != nil {
		t.Fatalf("PrepareFile failed: %v", err)
	}
	if p.Format != imaging.PNG {
		t.Errorf("Expected PNG format from upper-case extension, got %v", p.Format)
	}
}

func TestLoadImageErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := LoadImage(filepath.Join(dir, "missing.jpg"))
	if !errors.Is(err, apperr.ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound, got %v", err)
	}

	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	_, _, err = LoadImage(garbage)
	if !errors.Is(err, apperr.ErrUnsupportedImage) {
		t.Errorf("Expected ErrUnsupportedImage for undecodable file, got %v", err)
	}

	_, _, err = LoadImage(filepath.Join(dir, "notes.txt"))
	if !errors.Is(err, apperr.ErrUnsupportedImage) {
		t.Errorf("Expected ErrUnsupportedImage for unknown extension, got %v", err)
	}
}

func TestNeedsRotation(t *testing.T) {
	tests := []struct {
		sw, sh, tw, th int
		want           bool
	}{
		{100, 200, 300, 400, false},
		{200, 100, 300, 400, true},
		{100, 200, 400, 300, true},
		{200, 100, 400, 300, false},
		{100, 100, 300, 400, false},
		{100, 200, 300, 300, false},
	}
	for _, tt := range tests {
		if got := NeedsRotation(tt.sw, tt.sh, tt.tw, tt.th); got != tt.want {
			t.Errorf("NeedsRotation(%d,%d,%d,%d) = %v, want %v", tt.sw, tt.sh, tt.tw, tt.th, got, tt.want)
		}
	}
}

func TestParseQuantizer(t *testing.T) {
	if q, err := ParseQuantizer(""); err != nil || q != QuantizerMedianCut {
		t.Errorf("ParseQuantizer(\"\") = %v, %v", q, err)
	}
	if q, err := ParseQuantizer("MEAN"); err != nil || q != QuantizerMean {
		t.Errorf("ParseQuantizer(MEAN) = %v, %v", q, err)
	}
	if _, err := ParseQuantizer("octree"); !errors.Is(err, apperr.ErrDataFormat) {
		t.Errorf("Expected ErrDataFormat, got %v", err)
	}
}
