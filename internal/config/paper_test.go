package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
)

func TestPaperSizePixels(t *testing.T) {
	tests := []struct {
		format string
		dpi    int
		wantW  int
		wantH  int
	}{
		{"A4", 300, 2480, 3508},
		{"a4", 72, 595, 842},
		{"A6", 300, 1240, 1748},
		{"A3", 150, 1754, 2480},
	}

	formats := DefaultPaperFormats()
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			size, err := formats.Lookup(tt.format)
			if err != nil {
				t.Fatalf("Lookup(%q) failed: %v", tt.format, err)
			}
			w, h := size.Pixels(tt.dpi)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Pixels(%d) = %dx%d, want %dx%d", tt.dpi, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestLookupUnknownFormat(t *testing.T) {
	_, err := DefaultPaperFormats().Lookup("B5")
	if !errors.Is(err, apperr.ErrDataFormat) {
		t.Errorf("Expected ErrDataFormat, got %v", err)
	}
}

func TestMergeYAML(t *testing.T) {
	formats := DefaultPaperFormats()
	err := formats.MergeYAML([]byte("poster: [500, 700]\nA4: [211, 298]\n"))
	if err != nil {
		t.Fatalf("MergeYAML failed: %v", err)
	}

	got, _ := formats.Lookup("Poster")
	want := PaperSize{Name: "POSTER", WidthMM: 500, HeightMM: 700}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Poster mismatch (-want +got):\n%s", diff)
	}
	a4, _ := formats.Lookup("A4")
	if a4.WidthMM != 211 {
		t.Errorf("Expected A4 override to width 211, got %v", a4.WidthMM)
	}
}

func TestMergeYAMLRejectsBadDimensions(t *testing.T) {
	for _, doc := range []string{"x: [1]\n", "x: [0, 10]\n", "::not yaml"} {
		if err := DefaultPaperFormats().MergeYAML([]byte(doc)); !errors.Is(err, apperr.ErrDataFormat) {
			t.Errorf("MergeYAML(%q): expected ErrDataFormat, got %v", doc, err)
		}
	}
}

func TestLoadPaperFormatsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formats.yml")
	if err := os.WriteFile(path, []byte("square: [200, 200]\n"), 0644); err != nil {
		t.Fatalf("Failed to write formats file: %v", err)
	}
	t.Setenv("PAPER_FORMATS_FILE", path)

	formats, err := LoadPaperFormats()
	if err != nil {
		t.Fatalf("LoadPaperFormats failed: %v", err)
	}
	if _, err := formats.Lookup("SQUARE"); err != nil {
		t.Errorf("Expected SQUARE format, got %v", err)
	}
	if _, err := formats.Lookup("A4"); err != nil {
		t.Errorf("Built-in formats should survive merge: %v", err)
	}

	t.Setenv("PAPER_FORMATS_FILE", filepath.Join(t.TempDir(), "missing.yml"))
	if _, err := LoadPaperFormats(); !errors.Is(err, apperr.ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound for missing file, got %v", err)
	}
}
