package main

import (
	// standard library
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	// third-party
	"github.com/joho/godotenv"
	"gopkg.in/alecthomas/kingpin.v2"

	// internal
	"github.com/rmitchellscott/diamondperls/internal/config"
	"github.com/rmitchellscott/diamondperls/internal/imageprocessing"
	"github.com/rmitchellscott/diamondperls/internal/legend"
	"github.com/rmitchellscott/diamondperls/internal/logging"
	"github.com/rmitchellscott/diamondperls/internal/palette"
	"github.com/rmitchellscott/diamondperls/internal/pipeline"
	"github.com/rmitchellscott/diamondperls/internal/storage"
	"github.com/rmitchellscott/diamondperls/internal/version"
)

var (
	app = kingpin.New("diamondperls", "Turns photos into diamond painting patterns with a numbered color legend.")

	envFile   = app.Flag("env-file", "Load environment variables from this file.").Default(".env").String()
	logLevel  = app.Flag("log-level", "Log level (debug, info, warn, error).").Envar("LOG_LEVEL").Default("info").String()
	logFormat = app.Flag("log-format", "Log format (text, json).").Envar("LOG_FORMAT").Default("text").Enum("text", "json")

	// Run parameters. Unset flags keep the environment value.
	dpiFlag       = app.Flag("dpi", "Output resolution in dots per inch.").Int()
	pearlFlag     = app.Flag("pearl-size", "Drill diameter in millimeters.").Float64()
	colorsFlag    = app.Flag("colors", "Number of colors after reduction.").Int()
	paperFlag     = app.Flag("paper", "Paper format, e.g. A4.").String()
	samplingFlag  = app.Flag("sampling", "Cell color sampling: average or center.").Enum("average", "center")
	familyFlag    = app.Flag("palette", "Palette family: ral or dmc.").String()
	paletteFile   = app.Flag("palette-file", "Color table CSV instead of the built-in one.").String()
	policyFlag    = app.Flag("palette-policy", "Malformed palette rows: strict or lenient.").String()
	quantizerFlag = app.Flag("quantizer", "Color reduction: mediancut, median or mean.").String()
	ditherFlag    = app.Flag("dither", "Apply Floyd-Steinberg dithering during color reduction.").Bool()
	fontFlag      = app.Flag("font", "TrueType or OpenType font for the cell numbers.").String()
	localeFlag    = app.Flag("locale", "Language of the PDF legend.").String()

	generateCmd    = app.Command("generate", "Generate patterns for one or more images.").Default()
	generateImages = generateCmd.Arg("images", "Input images (JPEG, PNG, GIF, TIFF, BMP).").Required().ExistingFiles()
	generateOut    = generateCmd.Flag("output", "Directory for the generated files. Defaults to each image's directory.").Short('o').String()

	serveCmd = app.Command("serve", "Run the HTTP API.")

	formatsCmd = app.Command("formats", "List the known paper formats.")

	palettesCmd    = app.Command("palettes", "List the colors of a palette.")
	palettesFamily = palettesCmd.Arg("family", "Palette family: ral or dmc.").Default("ral").String()

	legendCmd  = app.Command("legend", "Rebuild the PDF legend from a text legend.")
	legendText = legendCmd.Arg("text", "Text legend written by generate.").Required().ExistingFile()
)

func main() {
	app.Version(version.Full())
	app.HelpFlag.Short('h')

	// The env file has to be loaded before kingpin resolves Envar defaults.
	if path := envFileArg(os.Args[1:]); path != "" {
		_ = godotenv.Load(path)
	} else {
		_ = godotenv.Load()
	}

	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	logging.Configure(os.Stderr, *logLevel, *logFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case generateCmd.FullCommand():
		err = runGenerate(ctx)
	case serveCmd.FullCommand():
		err = runServe(ctx)
	case formatsCmd.FullCommand():
		err = runFormats()
	case palettesCmd.FullCommand():
		err = runPalettes()
	case legendCmd.FullCommand():
		err = runLegend()
	}
	if err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

// envFileArg finds --env-file ahead of the real parse.
func envFileArg(args []string) string {
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, "--env-file="); ok {
			return v
		}
		if a == "--env-file" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// runConfig reads the environment and applies the flags given on the command line.
func runConfig() (pipeline.Config, error) {
	cfg, err := pipeline.ConfigFromEnv()
	if err != nil {
		return cfg, err
	}

	if *dpiFlag != 0 {
		cfg.DPI = *dpiFlag
	}
	if *pearlFlag != 0 {
		cfg.PearlSizeMM = *pearlFlag
	}
	if *colorsFlag != 0 {
		cfg.ColorCount = *colorsFlag
	}
	if *paperFlag != "" {
		cfg.PaperFormat = *paperFlag
	}
	if *samplingFlag != "" {
		cfg.AverageColor = *samplingFlag == "average"
	}
	if *familyFlag != "" {
		if cfg.PaletteFamily, err = palette.ParseFamily(*familyFlag); err != nil {
			return cfg, err
		}
	}
	if *paletteFile != "" {
		cfg.PaletteFile = *paletteFile
	}
	if *policyFlag != "" {
		if cfg.PalettePolicy, err = palette.ParsePolicy(*policyFlag); err != nil {
			return cfg, err
		}
	}
	if *quantizerFlag != "" {
		if cfg.Quantizer, err = imageprocessing.ParseQuantizer(*quantizerFlag); err != nil {
			return cfg, err
		}
	}
	if *ditherFlag {
		cfg.Dither = true
	}
	if *fontFlag != "" {
		cfg.FontPath = *fontFlag
	}
	if *localeFlag != "" {
		cfg.Locale = *localeFlag
	}
	return cfg, nil
}

func newPipeline() (*pipeline.Pipeline, error) {
	cfg, err := runConfig()
	if err != nil {
		return nil, err
	}
	papers, err := config.LoadPaperFormats()
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, papers)
}

func runGenerate(ctx context.Context) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range *generateImages {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := *generateOut
		if dir == "" {
			dir = filepath.Dir(path)
		}
		res, err := p.RunFile(ctx, path, storage.NewFilesystemBackend(dir), "")
		if err != nil {
			failed++
			logging.ErrorWithComponent(logging.ComponentPipeline, "Pattern generation failed", "image", path, "error", err)
			continue
		}
		fmt.Fprintf(os.Stdout, "%s: %d colors, %d cells\n", path, res.Legend.Len(), res.Legend.Cells())
		for _, key := range res.Files.Keys() {
			fmt.Fprintf(os.Stdout, "  %s\n", filepath.Join(dir, filepath.FromSlash(key)))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(*generateImages))
	}
	return nil
}

func runFormats() error {
	papers, err := config.LoadPaperFormats()
	if err != nil {
		return err
	}
	dpi := *dpiFlag
	if dpi == 0 {
		dpi = config.GetInt("DPI", pipeline.DefaultDPI)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "FORMAT\tMM\tPIXELS @ %d DPI\n", dpi)
	for _, name := range papers.Names() {
		p := papers[name]
		w, h := p.Pixels(dpi)
		fmt.Fprintf(tw, "%s\t%gx%g\t%dx%d\n", name, p.WidthMM, p.HeightMM, w, h)
	}
	return tw.Flush()
}

func runPalettes() error {
	family, err := palette.ParseFamily(*palettesFamily)
	if err != nil {
		return err
	}
	opts := palette.Options{}
	if *policyFlag != "" {
		if opts.Policy, err = palette.ParsePolicy(*policyFlag); err != nil {
			return err
		}
	}
	p, err := palette.Load(family, *paletteFile, opts)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRGB\tNAME")
	for _, e := range p.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.RGB, e.Name)
	}
	return tw.Flush()
}

func runLegend() error {
	f, err := os.Open(*legendText)
	if err != nil {
		return err
	}
	defer f.Close()

	l, err := legend.ParseText(f)
	if err != nil {
		return err
	}

	cfg, err := runConfig()
	if err != nil {
		return err
	}

	out := strings.TrimSuffix(*legendText, filepath.Ext(*legendText)) + ".pdf"
	source := strings.TrimSuffix(filepath.Base(*legendText), pipeline.LegendSuffix+".txt")
	var w *os.File
	if w, err = os.Create(out); err != nil {
		return err
	}
	if err := legend.WritePDF(w, l, legend.PDFOptions{Locale: cfg.Locale, Source: source, Created: time.Now()}); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s: %d colors\n", out, l.Len())
	return nil
}
