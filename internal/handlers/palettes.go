package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/rmitchellscott/diamondperls/internal/matcher"
	"github.com/rmitchellscott/diamondperls/internal/palette"
)

// PaletteHandler exposes the reference color tables
type PaletteHandler struct {
	palettes map[palette.Family]*palette.Palette
	active   palette.Family
	loc      *Localizer
}

// NewPaletteHandler serves active for its family and the built-in tables for
// the other families.
func NewPaletteHandler(active *palette.Palette, family palette.Family, loc *Localizer) (*PaletteHandler, error) {
	h := &PaletteHandler{
		palettes: map[palette.Family]*palette.Palette{family: active},
		active:   family,
		loc:      loc,
	}
	for _, f := range palette.Families() {
		if _, ok := h.palettes[f]; ok {
			continue
		}
		p, err := palette.LoadBuiltin(f)
		if err != nil {
			return nil, err
		}
		h.palettes[f] = p
	}
	return h, nil
}

type paletteColor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Hex  string `json:"hex"`
	RGB  [3]int `json:"rgb"`
}

func newPaletteColor(e palette.Entry) paletteColor {
	return paletteColor{
		ID:   e.ID,
		Name: e.Name,
		Hex:  hexOf(e.RGB),
		RGB:  [3]int{int(e.RGB.R), int(e.RGB.G), int(e.RGB.B)},
	}
}

func (h *PaletteHandler) lookup(c *gin.Context) (palette.Family, *palette.Palette, bool) {
	family, err := palette.ParseFamily(c.Param("family"))
	if err != nil {
		h.loc.respondKey(c, http.StatusNotFound, "api.not_found")
		return "", nil, false
	}
	return family, h.palettes[family], true
}

// ListPalettes returns the available families
func (h *PaletteHandler) ListPalettes(c *gin.Context) {
	locale := h.loc.RequestLocale(c)
	out := make([]gin.H, 0, len(h.palettes))
	for _, f := range palette.Families() {
		out = append(out, gin.H{
			"family":  f,
			"name":    h.loc.lm.T(locale, "palettes."+string(f)),
			"entries": h.palettes[f].Len(),
			"active":  f == h.active,
		})
	}
	c.JSON(http.StatusOK, gin.H{"palettes": out})
}

// GetPalette returns every color of one family in load order
func (h *PaletteHandler) GetPalette(c *gin.Context) {
	family, p, ok := h.lookup(c)
	if !ok {
		return
	}
	colors := make([]paletteColor, 0, p.Len())
	for _, e := range p.Entries() {
		colors = append(colors, newPaletteColor(e))
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, gin.H{"family": family, "count": len(colors), "colors": colors})
}

// MatchColor returns the palette color nearest to the color query parameter,
// given as a hex string like #a0b1c2
func (h *PaletteHandler) MatchColor(c *gin.Context) {
	family, p, ok := h.lookup(c)
	if !ok {
		return
	}

	query, err := colorful.Hex(c.Query("color"))
	if err != nil {
		h.loc.respondKey(c, http.StatusBadRequest, "api.invalid_request")
		return
	}
	r, g, b := query.RGB255()
	rgb := palette.RGB{R: r, G: g, B: b}

	m, err := matcher.New(p)
	if err != nil {
		h.loc.respondError(c, err)
		return
	}
	nearest := m.Nearest(rgb)

	c.JSON(http.StatusOK, gin.H{
		"family":   family,
		"query":    hexOf(rgb),
		"match":    newPaletteColor(nearest),
		"distance": matcher.Distance(rgb, nearest.RGB),
	})
}

// RegisterPaletteRoutes registers the palette API
func RegisterPaletteRoutes(r *gin.Engine, h *PaletteHandler) {
	group := r.Group("/api/palettes")
	{
		group.GET("", h.ListPalettes)
		group.GET("/:family", h.GetPalette)
		group.GET("/:family/match", h.MatchColor)
	}
}
