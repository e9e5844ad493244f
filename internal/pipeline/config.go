package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
	"github.com/rmitchellscott/diamondperls/internal/config"
	"github.com/rmitchellscott/diamondperls/internal/imageprocessing"
	"github.com/rmitchellscott/diamondperls/internal/palette"
)

// Defaults for a run.
const (
	DefaultDPI         = 300
	DefaultPearlSizeMM = 2.5
	DefaultColorCount  = 64
	DefaultPaperFormat = "A4"
	DefaultLocale      = "de"
)

// Config is the immutable parameter set of a pipeline. It is built once
// from the environment and flags and never changed while runs use it.
type Config struct {
	DPI           int                       `json:"dpi" validate:"min=72,max=600"`
	PearlSizeMM   float64                   `json:"pearl_size_mm" validate:"gt=0,lte=25"`
	ColorCount    int                       `json:"color_count" validate:"min=1,max=200"`
	PaperFormat   string                    `json:"paper_format" validate:"required"`
	AverageColor  bool                      `json:"average_color"`
	PaletteFamily palette.Family            `json:"palette_family" validate:"oneof=ral dmc"`
	PaletteFile   string                    `json:"-"`
	PalettePolicy palette.Policy            `json:"-"`
	Quantizer     imageprocessing.Quantizer `json:"quantizer" validate:"oneof=mediancut median mean"`
	Dither        bool                      `json:"dither"`
	FontPath      string                    `json:"-"`
	Locale        string                    `json:"locale" validate:"required,min=2,max=16"`
}

// DefaultConfig returns the canonical defaults.
func DefaultConfig() Config {
	return Config{
		DPI:           DefaultDPI,
		PearlSizeMM:   DefaultPearlSizeMM,
		ColorCount:    DefaultColorCount,
		PaperFormat:   DefaultPaperFormat,
		AverageColor:  true,
		PaletteFamily: palette.FamilyRAL,
		PalettePolicy: palette.Strict,
		Quantizer:     imageprocessing.QuantizerMedianCut,
		Locale:        DefaultLocale,
	}
}

// ConfigFromEnv reads the run parameters from the environment on top of
// DefaultConfig.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	cfg.DPI = config.GetInt("DPI", cfg.DPI)
	cfg.PearlSizeMM = config.GetFloat("PEARL_SIZE_MM", cfg.PearlSizeMM)
	cfg.ColorCount = config.GetInt("COLOR_COUNT", cfg.ColorCount)
	cfg.PaperFormat = config.Get("PAPER_FORMAT", cfg.PaperFormat)
	cfg.AverageColor = config.GetBool("AVERAGE_COLOR", cfg.AverageColor)
	cfg.PaletteFile = config.Get("PALETTE_FILE", "")
	cfg.Dither = config.GetBool("DITHER", cfg.Dither)
	cfg.FontPath = config.Get("PATTERN_FONT", "")
	cfg.Locale = config.Get("LEGEND_LOCALE", cfg.Locale)

	var err error
	if cfg.PaletteFamily, err = palette.ParseFamily(config.Get("PALETTE_FAMILY", string(cfg.PaletteFamily))); err != nil {
		return cfg, err
	}
	if cfg.PalettePolicy, err = palette.ParsePolicy(config.Get("PALETTE_POLICY", "strict")); err != nil {
		return cfg, err
	}
	if cfg.Quantizer, err = imageprocessing.ParseQuantizer(config.Get("QUANTIZER", string(cfg.Quantizer))); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks every field range and reports all violations at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.DataFormat("validate config", "%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		msgs = append(msgs, validationMessage(ve))
	}
	return apperr.DataFormat("validate config", "%s", strings.Join(msgs, "; "))
}

func validationMessage(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", ve.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", ve.Field(), ve.Param(), ve.Value())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s, got %v", ve.Field(), ve.Param(), ve.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", ve.Field(), ve.Param(), ve.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", ve.Field(), ve.Param(), ve.Value())
	}
	return fmt.Sprintf("%s failed %s validation", ve.Field(), ve.Tag())
}
