package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/diamondperls/internal/config"
	"github.com/rmitchellscott/diamondperls/internal/jobs"
	"github.com/rmitchellscott/diamondperls/internal/pipeline"
	"github.com/rmitchellscott/diamondperls/internal/version"
)

// ConfigHandler returns the pattern settings the server runs with
func ConfigHandler(cfg pipeline.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, cfg)
	}
}

// VersionHandler returns build information
func VersionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}

// HealthHandler reports liveness and worker pool load
func HealthHandler(pool *jobs.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version.String(),
			"jobs":    pool.GetMetrics(),
		})
	}
}

type paperFormat struct {
	Name     string  `json:"name"`
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
	WidthPx  int     `json:"width_px"`
	HeightPx int     `json:"height_px"`
}

// PaperFormatsHandler lists the known paper formats with their pixel size at
// the configured resolution
func PaperFormatsHandler(papers config.PaperFormats, dpi int) gin.HandlerFunc {
	return func(c *gin.Context) {
		names := papers.Names()
		out := make([]paperFormat, 0, len(names))
		for _, name := range names {
			p := papers[name]
			w, h := p.Pixels(dpi)
			out = append(out, paperFormat{Name: name, WidthMM: p.WidthMM, HeightMM: p.HeightMM, WidthPx: w, HeightPx: h})
		}
		c.JSON(http.StatusOK, gin.H{"dpi": dpi, "formats": out})
	}
}
