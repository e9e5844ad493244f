// Package pipeline turns a photo into a bead pattern image, a text legend
// and a PDF legend in one synchronous run.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"github.com/rmitchellscott/diamondperls/internal/config"
	"github.com/rmitchellscott/diamondperls/internal/imageprocessing"
	"github.com/rmitchellscott/diamondperls/internal/legend"
	"github.com/rmitchellscott/diamondperls/internal/logging"
	"github.com/rmitchellscott/diamondperls/internal/matcher"
	"github.com/rmitchellscott/diamondperls/internal/palette"
	"github.com/rmitchellscott/diamondperls/internal/rendering"
	"github.com/rmitchellscott/diamondperls/internal/storage"
)

// Source is a decoded input image.
type Source struct {
	Name   string
	Image  image.Image
	Format imaging.Format
}

// OpenSource loads the image at path.
func OpenSource(path string) (Source, error) {
	img, format, err := imageprocessing.LoadImage(path)
	if err != nil {
		return Source{}, err
	}
	return Source{Name: filepath.Base(path), Image: img, Format: format}, nil
}

// DecodeSource decodes an image stream; name supplies the format by extension.
func DecodeSource(name string, r io.Reader) (Source, error) {
	format, err := imageprocessing.FormatFromPath(name)
	if err != nil {
		return Source{}, err
	}
	img, err := imageprocessing.DecodeImage(r)
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", name, err)
	}
	return Source{Name: filepath.Base(name), Image: img, Format: format}, nil
}

// Result describes a finished run.
type Result struct {
	CellSize   int              `json:"cell_size_px"`
	Width      int              `json:"width_px"`
	Height     int              `json:"height_px"`
	Rotated    bool             `json:"rotated"`
	Paper      config.PaperSize `json:"paper"`
	Legend     *legend.Legend   `json:"-"`
	Files      OutputFiles      `json:"files"`
	MatchStats matcher.Stats    `json:"-"`
	Duration   time.Duration    `json:"-"`
	Pattern    *image.RGBA      `json:"-"`
}

// Pipeline holds what runs share: the validated config, the paper table,
// the loaded palette and the font resolver. All of it is read-only, so
// concurrent runs are safe.
type Pipeline struct {
	cfg     Config
	paper   config.PaperSize
	palette *palette.Palette
	fonts   *rendering.FontResolver
}

// New validates cfg, resolves its paper format and loads its palette.
func New(cfg Config, papers config.PaperFormats) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if papers == nil {
		papers = config.DefaultPaperFormats()
	}
	paper, err := papers.Lookup(cfg.PaperFormat)
	if err != nil {
		return nil, err
	}
	if _, err := rendering.CellSize(cfg.DPI, cfg.PearlSizeMM); err != nil {
		return nil, err
	}

	pal, err := palette.Load(cfg.PaletteFamily, cfg.PaletteFile, palette.Options{Policy: cfg.PalettePolicy})
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:     cfg,
		paper:   paper,
		palette: pal,
		fonts:   rendering.NewFontResolver(cfg.FontPath),
	}, nil
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Palette returns the loaded palette.
func (p *Pipeline) Palette() *palette.Palette { return p.palette }

// RunFile loads the image at path and runs it, writing the outputs into
// store below prefix.
func (p *Pipeline) RunFile(ctx context.Context, path string, store storage.Backend, prefix string) (*Result, error) {
	src, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, src, store, prefix)
}

// Run prepares src, renders the pattern and writes the pattern image, the
// text legend and the PDF legend. The pattern is encoded in the source's
// format.
func (p *Pipeline) Run(ctx context.Context, src Source, store storage.Backend, prefix string) (*Result, error) {
	start := time.Now()
	files := OutputNames(src.Name).WithPrefix(prefix)

	width, height := p.paper.Pixels(p.cfg.DPI)
	cellSize, err := rendering.CellSize(p.cfg.DPI, p.cfg.PearlSizeMM)
	if err != nil {
		return nil, err
	}

	logging.InfoWithComponent(logging.ComponentPipeline, "Starting pattern run",
		"source", src.Name, "paper", p.paper.Name, "dpi", p.cfg.DPI,
		"width", width, "height", height, "cell_size", cellSize, "colors", p.cfg.ColorCount)

	prepared, err := imageprocessing.Prepare(src.Image, width, height, p.cfg.ColorCount, imageprocessing.PrepareOptions{
		Quantizer: p.cfg.Quantizer,
		Dither:    p.cfg.Dither,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := matcher.New(p.palette)
	if err != nil {
		return nil, err
	}
	l, err := rendering.NewRenderer(m, p.fonts).Render(prepared.RGBA, cellSize, p.cfg.AverageColor)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imageprocessing.EncodeImage(&buf, prepared.RGBA, src.Format); err != nil {
		return nil, err
	}
	if err := store.Put(ctx, files.Image, &buf); err != nil {
		return nil, err
	}

	buf.Reset()
	if err := legend.WriteText(&buf, l); err != nil {
		return nil, err
	}
	if err := store.Put(ctx, files.Text, &buf); err != nil {
		return nil, err
	}

	buf.Reset()
	pdfOpts := legend.PDFOptions{Locale: p.cfg.Locale, Source: src.Name, Created: start}
	if err := legend.WritePDF(&buf, l, pdfOpts); err != nil {
		return nil, err
	}
	if err := store.Put(ctx, files.PDF, &buf); err != nil {
		return nil, err
	}

	result := &Result{
		CellSize:   cellSize,
		Width:      width,
		Height:     height,
		Rotated:    prepared.Rotated,
		Paper:      p.paper,
		Legend:     l,
		Files:      files,
		MatchStats: m.Stats(),
		Duration:   time.Since(start),
		Pattern:    prepared.RGBA,
	}

	logging.InfoWithComponent(logging.ComponentPipeline, "Pattern run complete",
		"source", src.Name, "colors", l.Len(), "cells", l.Cells(),
		"rotated", prepared.Rotated, "duration", result.Duration.String())

	return result, nil
}
