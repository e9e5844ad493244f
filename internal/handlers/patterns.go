package handlers

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
	"github.com/rmitchellscott/diamondperls/internal/config"
	"github.com/rmitchellscott/diamondperls/internal/jobs"
	"github.com/rmitchellscott/diamondperls/internal/legend"
	"github.com/rmitchellscott/diamondperls/internal/logging"
	"github.com/rmitchellscott/diamondperls/internal/palette"
	"github.com/rmitchellscott/diamondperls/internal/pipeline"
	"github.com/rmitchellscott/diamondperls/internal/storage"
)

// PatternHandler accepts uploads and serves the generated files
type PatternHandler struct {
	pool        *jobs.Pool
	store       storage.Backend
	loc         *Localizer
	waitTimeout time.Duration
}

// NewPatternHandler creates a pattern handler. Synchronous uploads wait at
// most waitTimeout before answering with the job id instead.
func NewPatternHandler(pool *jobs.Pool, store storage.Backend, loc *Localizer, waitTimeout time.Duration) *PatternHandler {
	if waitTimeout <= 0 {
		waitTimeout = 2 * time.Minute
	}
	return &PatternHandler{pool: pool, store: store, loc: loc, waitTimeout: waitTimeout}
}

type colorResponse struct {
	Number int    `json:"number"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Hex    string `json:"hex"`
	RGB    [3]int `json:"rgb"`
	Count  int    `json:"count"`
}

type fileLinks struct {
	Image string `json:"image"`
	Text  string `json:"text"`
	PDF   string `json:"pdf"`
}

type patternResponse struct {
	ID         uuid.UUID         `json:"id"`
	Status     jobs.Status       `json:"status"`
	Source     string            `json:"source"`
	Error      string            `json:"error,omitempty"`
	CellSize   int               `json:"cell_size_px,omitempty"`
	Width      int               `json:"width_px,omitempty"`
	Height     int               `json:"height_px,omitempty"`
	Rotated    bool              `json:"rotated,omitempty"`
	Paper      *config.PaperSize `json:"paper,omitempty"`
	Cells      int               `json:"cells,omitempty"`
	Colors     []colorResponse   `json:"colors,omitempty"`
	Files      *fileLinks        `json:"files,omitempty"`
	DurationMs int               `json:"duration_ms,omitempty"`
}

// hexOf formats an RGB value as #rrggbb.
func hexOf(rgb palette.RGB) string {
	c, _ := colorful.MakeColor(rgb.RGBA())
	return c.Hex()
}

func colorsOf(l *legend.Legend) []colorResponse {
	entries := l.Entries()
	out := make([]colorResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, colorResponse{
			Number: e.Number,
			ID:     e.ID,
			Name:   e.Name,
			Hex:    hexOf(e.RGB),
			RGB:    [3]int{int(e.RGB.R), int(e.RGB.G), int(e.RGB.B)},
			Count:  e.Count,
		})
	}
	return out
}

func newPatternResponse(s jobs.State) patternResponse {
	resp := patternResponse{
		ID:         s.ID,
		Status:     s.Status,
		Source:     s.Source,
		Error:      s.Error,
		DurationMs: s.DurationMs,
	}
	if r := s.Result; r != nil {
		paper := r.Paper
		resp.CellSize = r.CellSize
		resp.Width = r.Width
		resp.Height = r.Height
		resp.Rotated = r.Rotated
		resp.Paper = &paper
		base := "/api/patterns/" + s.ID.String() + "/files/"
		resp.Files = &fileLinks{
			Image: base + path.Base(r.Files.Image),
			Text:  base + path.Base(r.Files.Text),
			PDF:   base + path.Base(r.Files.PDF),
		}
		if r.Legend != nil {
			resp.Cells = r.Legend.Cells()
			resp.Colors = colorsOf(r.Legend)
		}
	}
	return resp
}

// CreatePattern decodes the uploaded image field and queues a pattern run.
// With async=true it answers 202 right away; otherwise it waits for the run.
func (h *PatternHandler) CreatePattern(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.loc.respondKey(c, http.StatusRequestEntityTooLarge, "api.too_large")
			return
		}
		h.loc.respondKey(c, http.StatusBadRequest, "api.invalid_request")
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.loc.respondError(c, apperr.New(apperr.KindIO, "open upload", fh.Filename, err))
		return
	}
	defer f.Close()

	src, err := pipeline.DecodeSource(fh.Filename, f)
	if err != nil {
		h.loc.respondError(c, err)
		return
	}

	id, err := h.pool.Submit(src)
	if err != nil {
		h.loc.respondError(c, err)
		return
	}
	logging.InfoWithComponent(logging.ComponentServer, "Pattern upload accepted", "job_id", id, "source", src.Name, "ip", c.ClientIP())

	if c.Query("async") == "true" {
		s, _ := h.pool.Get(id)
		c.Header("Location", "/api/patterns/"+id.String())
		c.JSON(http.StatusAccepted, newPatternResponse(s))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.waitTimeout)
	defer cancel()

	s, err := h.pool.Wait(ctx, id)
	if err != nil {
		c.Header("Location", "/api/patterns/"+id.String())
		c.JSON(http.StatusAccepted, newPatternResponse(s))
		return
	}
	if s.Status == jobs.StatusFailed {
		h.loc.respondError(c, s.Err)
		return
	}
	c.JSON(http.StatusCreated, newPatternResponse(s))
}

func (h *PatternHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.loc.respondKey(c, http.StatusBadRequest, "api.invalid_request")
		return uuid.Nil, false
	}
	return id, true
}

// GetPattern returns the state of a pattern job
func (h *PatternHandler) GetPattern(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if s, found := h.pool.Get(id); found {
		c.JSON(http.StatusOK, newPatternResponse(s))
		return
	}

	// Jobs are forgotten after a while; their files may still be stored.
	files, err := h.store.ListWithInfo(c.Request.Context(), id.String())
	if err != nil {
		h.loc.respondError(c, err)
		return
	}
	links, ok := storedLinks(id, files)
	if !ok {
		h.loc.respondKey(c, http.StatusNotFound, "api.not_found")
		return
	}
	c.JSON(http.StatusOK, patternResponse{ID: id, Status: jobs.StatusCompleted, Files: links})
}

// storedLinks rebuilds the file links of a finished job from its stored keys.
func storedLinks(id uuid.UUID, files []storage.FileInfo) (*fileLinks, bool) {
	base := "/api/patterns/" + id.String() + "/files/"
	links := &fileLinks{}
	for _, f := range files {
		name := path.Base(f.Key)
		stem := strings.TrimSuffix(name, path.Ext(name))
		switch {
		case strings.HasSuffix(stem, pipeline.PatternSuffix):
			links.Image = base + name
		case strings.HasSuffix(name, pipeline.LegendSuffix+".txt"):
			links.Text = base + name
		case strings.HasSuffix(name, pipeline.LegendSuffix+".pdf"):
			links.PDF = base + name
		}
	}
	return links, links.Image != "" || links.Text != "" || links.PDF != ""
}

// GetPatternFile streams one generated file of a pattern
func (h *PatternHandler) GetPatternFile(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	name := c.Param("file")
	if name == "" || name != path.Base(name) || name[0] == '.' {
		h.loc.respondKey(c, http.StatusBadRequest, "api.invalid_request")
		return
	}

	rc, err := h.store.Get(c.Request.Context(), id.String()+"/"+name)
	if err != nil {
		h.loc.respondError(c, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": name}),
	})
}

// DeletePattern removes a pattern's files
func (h *PatternHandler) DeletePattern(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if s, found := h.pool.Get(id); found && !s.Status.Done() {
		h.loc.respondKey(c, http.StatusConflict, "api.invalid_request")
		return
	}
	if err := h.store.DeleteAll(c.Request.Context(), id.String()); err != nil {
		h.loc.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterPatternRoutes registers the pattern API. Uploads pass through the
// given middlewares first.
func RegisterPatternRoutes(r *gin.Engine, h *PatternHandler, uploadMiddleware ...gin.HandlerFunc) {
	group := r.Group("/api/patterns")
	{
		group.POST("", append(uploadMiddleware, h.CreatePattern)...)
		group.GET("/:id", h.GetPattern)
		group.GET("/:id/files/:file", h.GetPatternFile)
		group.DELETE("/:id", h.DeletePattern)
	}
}
