package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
)

// MillimetersPerInch converts physical sizes to pixels together with a DPI.
const MillimetersPerInch = 25.4

// PaperSize is a portrait paper format in millimeters.
type PaperSize struct {
	Name     string  `json:"name"`
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
}

// Pixels returns the canvas size for the format at dpi, rounded to the nearest pixel.
func (p PaperSize) Pixels(dpi int) (int, int) {
	return MMToPixels(p.WidthMM, dpi), MMToPixels(p.HeightMM, dpi)
}

// MMToPixels converts a length in millimeters to pixels at dpi.
func MMToPixels(mm float64, dpi int) int {
	return int(math.Round(mm * float64(dpi) / MillimetersPerInch))
}

// PaperFormats maps upper-case format keys to sizes.
type PaperFormats map[string]PaperSize

// DefaultPaperFormats returns the ISO 216 A series.
func DefaultPaperFormats() PaperFormats {
	return PaperFormats{
		"A0": {Name: "A0", WidthMM: 841, HeightMM: 1189},
		"A1": {Name: "A1", WidthMM: 594, HeightMM: 841},
		"A2": {Name: "A2", WidthMM: 420, HeightMM: 594},
		"A3": {Name: "A3", WidthMM: 297, HeightMM: 420},
		"A4": {Name: "A4", WidthMM: 210, HeightMM: 297},
		"A5": {Name: "A5", WidthMM: 148, HeightMM: 210},
		"A6": {Name: "A6", WidthMM: 105, HeightMM: 148},
	}
}

// Lookup resolves a format key case-insensitively.
func (f PaperFormats) Lookup(key string) (PaperSize, error) {
	size, ok := f[strings.ToUpper(strings.TrimSpace(key))]
	if !ok {
		return PaperSize{}, apperr.DataFormat("resolve paper format", "unknown paper format %q (known: %s)",
			key, strings.Join(f.Names(), ", "))
	}
	return size, nil
}

// Names returns the format keys in sorted order.
func (f PaperFormats) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MergeYAML adds or overrides formats from a YAML document of the form
//
//	A4: [210, 297]
//	Poster: [500, 700]
func (f PaperFormats) MergeYAML(data []byte) error {
	var raw map[string][]float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return apperr.New(apperr.KindDataFormat, "parse paper formats", "", err)
	}
	for name, dims := range raw {
		if len(dims) != 2 || dims[0] <= 0 || dims[1] <= 0 {
			return apperr.DataFormat("parse paper formats", "format %q needs two positive dimensions, got %v", name, dims)
		}
		key := strings.ToUpper(strings.TrimSpace(name))
		f[key] = PaperSize{Name: key, WidthMM: dims[0], HeightMM: dims[1]}
	}
	return nil
}

// LoadPaperFormats returns the built-in table extended by PAPER_FORMATS_FILE, if set.
func LoadPaperFormats() (PaperFormats, error) {
	formats := DefaultPaperFormats()
	path := Get("PAPER_FORMATS_FILE", "")
	if path == "" {
		return formats, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.New(apperr.KindResourceNotFound, "load paper formats", path, err)
		}
		return nil, apperr.New(apperr.KindIO, "load paper formats", path, err)
	}
	if err := formats.MergeYAML(data); err != nil {
		return nil, fmt.Errorf("paper formats file %s: %w", path, err)
	}
	return formats, nil
}
