package rendering

import (
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/rmitchellscott/diamondperls/internal/logging"
)

// FontTier identifies which source produced a face.
type FontTier int

const (
	// TierConfigured is the TrueType/OpenType file named in the config.
	TierConfigured FontTier = iota
	// TierBuiltin is the embedded Go Regular font.
	TierBuiltin
	// TierFallback is the fixed-size bitmap face, used when nothing scalable loads.
	TierFallback
)

func (t FontTier) String() string {
	switch t {
	case TierConfigured:
		return "configured"
	case TierBuiltin:
		return "builtin"
	default:
		return "fallback"
	}
}

// FontResolver produces faces for cell numbers. Parsed fonts are shared;
// every Face call returns a new face that belongs to the caller. Loading
// problems never surface as errors.
type FontResolver struct {
	path string

	once       sync.Once
	configured *opentype.Font
	builtin    *opentype.Font
}

// NewFontResolver returns a resolver that prefers the font file at path.
// An empty path goes straight to the built-in font.
func NewFontResolver(path string) *FontResolver {
	return &FontResolver{path: path}
}

func (r *FontResolver) load() {
	if r.path != "" {
		if data, err := os.ReadFile(r.path); err != nil {
			logging.DebugWithComponent(logging.ComponentRenderer, "Pattern font unavailable, using built-in font", "path", r.path, "error", err)
		} else if f, err := opentype.Parse(data); err != nil {
			logging.DebugWithComponent(logging.ComponentRenderer, "Pattern font unreadable, using built-in font", "path", r.path, "error", err)
		} else {
			r.configured = f
		}
	}

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		logging.DebugWithComponent(logging.ComponentRenderer, "Built-in font unreadable, using bitmap font", "error", err)
		return
	}
	r.builtin = f
}

// Face returns a face of the given pixel size and the tier it came from.
func (r *FontResolver) Face(size int) (font.Face, FontTier) {
	r.once.Do(r.load)

	opts := &opentype.FaceOptions{Size: float64(size), DPI: 72, Hinting: font.HintingFull}
	if r.configured != nil {
		face, err := opentype.NewFace(r.configured, opts)
		if err == nil {
			return face, TierConfigured
		}
		logging.DebugWithComponent(logging.ComponentRenderer, "Pattern font face failed", "size", size, "error", err)
	}
	if r.builtin != nil {
		face, err := opentype.NewFace(r.builtin, opts)
		if err == nil {
			return face, TierBuiltin
		}
		logging.DebugWithComponent(logging.ComponentRenderer, "Built-in font face failed", "size", size, "error", err)
	}
	return basicfont.Face7x13, TierFallback
}

// FontSize is the number size for a cell: half the cell, at least 10px.
func FontSize(cellSize int) int {
	if s := cellSize / 2; s > 10 {
		return s
	}
	return 10
}
