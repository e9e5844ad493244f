package rendering

import (
	"errors"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
	"github.com/rmitchellscott/diamondperls/internal/matcher"
	"github.com/rmitchellscott/diamondperls/internal/palette"
)

var (
	red   = palette.Entry{ID: "R", Name: "Red", RGB: palette.RGB{R: 255}}
	green = palette.Entry{ID: "G", Name: "Green", RGB: palette.RGB{G: 255}}
	blue  = palette.Entry{ID: "B", Name: "Blue", RGB: palette.RGB{B: 255}}
	white = palette.Entry{ID: "W", Name: "White", RGB: palette.RGB{R: 255, G: 255, B: 255}}
	black = palette.Entry{ID: "K", Name: "Black", RGB: palette.RGB{}}
)

func newTestRenderer(t *testing.T, entries ...palette.Entry) *Renderer {
	t.Helper()
	m, err := matcher.New(palette.New(entries...))
	if err != nil {
		t.Fatalf("matcher.New failed: %v", err)
	}
	return NewRenderer(m, nil)
}

func fill(img *image.RGBA, r image.Rectangle, c palette.RGB) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c.RGBA())
		}
	}
}

func TestCellSize(t *testing.T) {
	tests := []struct {
		dpi    int
		beadMM float64
		want   int
	}{
		{300, 2.5, 30},
		{300, 2.8, 33},
		{72, 2.5, 7},
		{600, 2.5, 59},
		{100, 0.254, 1},
	}
	for _, tt := range tests {
		got, err := CellSize(tt.dpi, tt.beadMM)
		if err != nil {
			t.Errorf("CellSize(%d, %g) failed: %v", tt.dpi, tt.beadMM, err)
			continue
		}
		if got != tt.want {
			t.Errorf("CellSize(%d, %g) = %d, want %d", tt.dpi, tt.beadMM, got, tt.want)
		}
	}
}

func TestCellSizeRejectsZero(t *testing.T) {
	cases := []struct {
		dpi    int
		beadMM float64
	}{
		{72, 0.1},
		{300, 0},
		{0, 2.5},
		{-300, 2.5},
		{300, -1},
	}
	for _, c := range cases {
		if _, err := CellSize(c.dpi, c.beadMM); !errors.Is(err, apperr.ErrDataFormat) {
			t.Errorf("CellSize(%d, %g): expected ErrDataFormat, got %v", c.dpi, c.beadMM, err)
		}
	}
}

func TestRenderRejectsBadInput(t *testing.T) {
	r := newTestRenderer(t, white)
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))

	for _, size := range []int{0, -5} {
		if _, err := r.Render(img, size, true); !errors.Is(err, apperr.ErrDataFormat) {
			t.Errorf("Render with cell size %d: expected ErrDataFormat, got %v", size, err)
		}
	}
	if _, err := r.Render(nil, 10, true); !errors.Is(err, apperr.ErrDataFormat) {
		t.Errorf("Render with nil image: expected ErrDataFormat, got %v", err)
	}
}

func TestRenderNumbersColumnMajor(t *testing.T) {
	// red   | green
	// ------+------
	// blue  | white
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	fill(img, image.Rect(0, 0, 10, 10), red.RGB)
	fill(img, image.Rect(10, 0, 20, 10), green.RGB)
	fill(img, image.Rect(0, 10, 10, 20), blue.RGB)
	fill(img, image.Rect(10, 10, 20, 20), white.RGB)

	for _, useAverage := range []bool{true, false} {
		r := newTestRenderer(t, black, white, red, green, blue)
		src := image.NewRGBA(img.Bounds())
		copy(src.Pix, img.Pix)

		l, err := r.Render(src, 10, useAverage)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}

		var ids []string
		var numbers []int
		for _, e := range l.Entries() {
			ids = append(ids, e.ID)
			numbers = append(numbers, e.Number)
		}
		if diff := cmp.Diff([]string{"R", "B", "G", "W"}, ids); diff != "" {
			t.Errorf("average=%v: legend order mismatch (-want +got):\n%s", useAverage, diff)
		}
		if diff := cmp.Diff([]int{1, 2, 3, 4}, numbers); diff != "" {
			t.Errorf("average=%v: legend numbers mismatch (-want +got):\n%s", useAverage, diff)
		}
	}
}

func TestRenderCenterSampleClampsEdgeCells(t *testing.T) {
	tests := []struct {
		name   string
		bounds image.Rectangle
		marked image.Point
	}{
		// The right column is 5px wide; its center would be x=15.
		{"right edge", image.Rect(0, 0, 15, 10), image.Pt(14, 5)},
		// The bottom row is 5px tall; its center would be y=15.
		{"bottom edge", image.Rect(0, 0, 10, 15), image.Pt(5, 14)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewRGBA(tt.bounds)
			fill(img, tt.bounds, white.RGB)
			img.SetRGBA(tt.marked.X, tt.marked.Y, red.RGB.RGBA())

			r := newTestRenderer(t, white, red, black)
			l, err := r.Render(img, 10, false)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}

			var ids []string
			for _, e := range l.Entries() {
				ids = append(ids, e.ID)
			}
			if diff := cmp.Diff([]string{"W", "R"}, ids); diff != "" {
				t.Errorf("Legend mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAverageColorTruncates(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 11, G: 21, B: 31, A: 255})
	img.SetRGBA(0, 1, color.RGBA{R: 10, G: 20, B: 31, A: 255})
	img.SetRGBA(1, 1, color.RGBA{R: 10, G: 20, B: 31, A: 255})

	// Means are 10.25, 20.25 and 30.75.
	want := palette.RGB{R: 10, G: 20, B: 30}
	if got := AverageColor(img, img.Bounds()); got != want {
		t.Errorf("AverageColor = %v, want %v", got, want)
	}

	if got := AverageColor(img, image.Rect(5, 5, 8, 8)); got != (palette.RGB{}) {
		t.Errorf("AverageColor outside image = %v, want zero", got)
	}
}

func TestRenderDrawsBeads(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 80, 40))
	fill(img, image.Rect(0, 0, 40, 40), palette.RGB{R: 250, G: 250, B: 250})
	fill(img, image.Rect(40, 0, 80, 40), palette.RGB{R: 5, G: 5, B: 5})

	r := newTestRenderer(t, white, black)
	if _, err := r.Render(img, 40, true); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// Corners lie outside the inscribed ellipse and keep prepared pixels.
	if c := img.RGBAAt(0, 0); c != (color.RGBA{R: 250, G: 250, B: 250, A: 255}) {
		t.Errorf("Corner pixel changed: %v", c)
	}
	if c := img.RGBAAt(79, 39); c != (color.RGBA{R: 5, G: 5, B: 5, A: 255}) {
		t.Errorf("Corner pixel changed: %v", c)
	}

	// Well inside the ellipse, above the number: palette fill.
	if c := img.RGBAAt(20, 4); c != white.RGB.RGBA() {
		t.Errorf("Expected white bead fill, got %v", c)
	}
	if c := img.RGBAAt(60, 4); c != black.RGB.RGBA() {
		t.Errorf("Expected black bead fill, got %v", c)
	}

	// The number changes pixels around the cell center.
	changed := 0
	for y := 12; y < 28; y++ {
		for x := 12; x < 28; x++ {
			if img.RGBAAt(x, y) != white.RGB.RGBA() {
				changed++
			}
		}
	}
	if changed == 0 {
		t.Error("Expected the number to be drawn on the white bead")
	}
}

func TestRenderDenseNumbering(t *testing.T) {
	entries := []palette.Entry{black, white, red, green, blue,
		{ID: "Y", Name: "Yellow", RGB: palette.RGB{R: 255, G: 255}},
		{ID: "C", Name: "Cyan", RGB: palette.RGB{G: 255, B: 255}},
	}
	rng := rand.New(rand.NewSource(7))
	img := image.NewRGBA(image.Rect(0, 0, 53, 47))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	const cellSize = 7

	// Expected order from an independent column-major scan of the source.
	m, _ := matcher.New(palette.New(entries...))
	var wantIDs []string
	seen := map[string]bool{}
	for x := 0; x < 53; x += cellSize {
		for y := 0; y < 47; y += cellSize {
			box := image.Rect(x, y, x+cellSize, y+cellSize).Intersect(img.Bounds())
			e := m.Nearest(AverageColor(img, box))
			if !seen[e.ID] {
				seen[e.ID] = true
				wantIDs = append(wantIDs, e.ID)
			}
		}
	}

	r := newTestRenderer(t, entries...)
	l, err := r.Render(img, cellSize, true)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var gotIDs []string
	for i, e := range l.Entries() {
		if e.Number != i+1 {
			t.Errorf("Entry %d has number %d", i, e.Number)
		}
		gotIDs = append(gotIDs, e.ID)
	}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Errorf("Legend order mismatch (-want +got):\n%s", diff)
	}
	if want := 8 * 7; l.Cells() != want {
		t.Errorf("Expected %d cells, got %d", want, l.Cells())
	}
}

func TestNumberColor(t *testing.T) {
	if NumberColor(white.RGB) != image.Black {
		t.Error("Expected black text on white")
	}
	if NumberColor(palette.RGB{R: 0, G: 0, B: 139}) != image.White {
		t.Error("Expected white text on dark blue")
	}
	if NumberColor(palette.RGB{R: 255, G: 255, B: 0}) != image.Black {
		t.Error("Expected black text on yellow")
	}
}

func TestFontSize(t *testing.T) {
	tests := map[int]int{1: 10, 20: 10, 21: 10, 22: 11, 30: 15, 59: 29}
	for cell, want := range tests {
		if got := FontSize(cell); got != want {
			t.Errorf("FontSize(%d) = %d, want %d", cell, got, want)
		}
	}
}

func TestFontResolverTiers(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "regular.ttf")
	if err := os.WriteFile(valid, goregular.TTF, 0644); err != nil {
		t.Fatalf("Failed to write font: %v", err)
	}
	broken := filepath.Join(dir, "broken.ttf")
	if err := os.WriteFile(broken, []byte("not a font"), 0644); err != nil {
		t.Fatalf("Failed to write font: %v", err)
	}

	tests := []struct {
		name string
		path string
		want FontTier
	}{
		{"configured", valid, TierConfigured},
		{"empty path", "", TierBuiltin},
		{"missing file", filepath.Join(dir, "missing.ttf"), TierBuiltin},
		{"unparseable file", broken, TierBuiltin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			face, tier := NewFontResolver(tt.path).Face(15)
			if face == nil {
				t.Fatal("Expected a face")
			}
			defer face.Close()
			if tier != tt.want {
				t.Errorf("Expected tier %v, got %v", tt.want, tier)
			}
		})
	}
}

func TestEllipseMask(t *testing.T) {
	if ellipseMask(0, 0) != nil {
		t.Error("Expected nil mask for empty cell")
	}
	if ellipseMask(2, 1) != nil {
		t.Error("Expected nil inset mask when nothing remains")
	}

	m := ellipseMask(30, 0)
	if m.AlphaAt(15, 15).A != 0xff {
		t.Errorf("Expected opaque center, got %d", m.AlphaAt(15, 15).A)
	}
	if m.AlphaAt(0, 0).A != 0 {
		t.Errorf("Expected transparent corner, got %d", m.AlphaAt(0, 0).A)
	}
}
