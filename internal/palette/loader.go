package palette

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
	"github.com/rmitchellscott/diamondperls/internal/logging"
)

//go:embed data/*.csv
var builtinTables embed.FS

// Family selects the row layout of a color table.
type Family string

const (
	// FamilyRAL rows: id, "R-G-B", ..., name in column 6.
	FamilyRAL Family = "ral"
	// FamilyDMC rows: id, name, R, G, B.
	FamilyDMC Family = "dmc"
)

// Column layout of the RAL table.
const (
	ralIDColumn   = 0
	ralRGBColumn  = 1
	ralNameColumn = 6
)

// Column layout of the DMC table.
const (
	dmcIDColumn   = 0
	dmcNameColumn = 1
	dmcRColumn    = 2
)

var builtinFiles = map[Family]string{
	FamilyRAL: "data/ral_classic.csv",
	FamilyDMC: "data/dmc.csv",
}

// Families returns the supported palette families.
func Families() []Family {
	return []Family{FamilyRAL, FamilyDMC}
}

// ParseFamily resolves a family name case-insensitively.
func ParseFamily(name string) (Family, error) {
	switch f := Family(strings.ToLower(strings.TrimSpace(name))); f {
	case FamilyRAL, FamilyDMC:
		return f, nil
	}
	return "", apperr.DataFormat("parse palette family", "unknown palette family %q", name)
}

// Policy decides what happens to a row whose color fields do not parse.
type Policy int

const (
	// Strict aborts the load on the first malformed row.
	Strict Policy = iota
	// Lenient logs a warning and skips the row.
	Lenient
)

// ParsePolicy maps "strict"/"lenient" to a Policy. Empty means Strict.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "strict":
		return Strict, nil
	case "lenient", "skip":
		return Lenient, nil
	}
	return Strict, apperr.DataFormat("parse palette policy", "unknown palette policy %q", name)
}

// Options configures a palette load.
type Options struct {
	Policy Policy
}

type rowParser func(row []string) (Entry, error)

// Read parses a table of the given family from r.
func Read(family Family, r io.Reader, opts Options) (*Palette, error) {
	switch family {
	case FamilyRAL:
		return ReadRAL(r, opts)
	case FamilyDMC:
		return ReadDMC(r, opts)
	}
	return nil, apperr.DataFormat("read palette", "unknown palette family %q", family)
}

// ReadRAL parses a RAL table.
func ReadRAL(r io.Reader, opts Options) (*Palette, error) {
	return readTable(r, opts, parseRALRow)
}

// ReadDMC parses a DMC table.
func ReadDMC(r io.Reader, opts Options) (*Palette, error) {
	return readTable(r, opts, parseDMCRow)
}

// LoadFile reads a table of the given family from path.
func LoadFile(family Family, path string, opts Options) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.New(apperr.KindResourceNotFound, "load palette", path, err)
		}
		return nil, apperr.New(apperr.KindIO, "load palette", path, err)
	}
	defer f.Close()

	p, err := Read(family, f, opts)
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	logging.InfoWithComponent(logging.ComponentPalette, "Palette loaded",
		"family", family, "path", path, "entries", p.Len())
	return p, nil
}

// LoadRAL reads a RAL table from path.
func LoadRAL(path string, opts Options) (*Palette, error) {
	return LoadFile(FamilyRAL, path, opts)
}

// LoadDMC reads a DMC table from path.
func LoadDMC(path string, opts Options) (*Palette, error) {
	return LoadFile(FamilyDMC, path, opts)
}

// LoadBuiltin reads the embedded table for family.
func LoadBuiltin(family Family) (*Palette, error) {
	name, ok := builtinFiles[family]
	if !ok {
		return nil, apperr.DataFormat("load palette", "no built-in table for family %q", family)
	}
	f, err := builtinTables.Open(name)
	if err != nil {
		return nil, apperr.New(apperr.KindResourceNotFound, "load palette", name, err)
	}
	defer f.Close()

	p, err := Read(family, f, Options{Policy: Strict})
	if err != nil {
		return nil, fmt.Errorf("built-in palette %s: %w", name, err)
	}
	logging.DebugWithComponent(logging.ComponentPalette, "Built-in palette loaded",
		"family", family, "entries", p.Len())
	return p, nil
}

// Load reads path, or the built-in table for family when path is empty.
func Load(family Family, path string, opts Options) (*Palette, error) {
	if path == "" {
		return LoadBuiltin(family)
	}
	return LoadFile(family, path, opts)
}

func readTable(r io.Reader, opts Options, parse rowParser) (*Palette, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// Header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, apperr.DataFormat("read palette", "table is empty, expected a header row")
		}
		return nil, classifyReadError(err)
	}

	p := New()
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, classifyReadError(err)
		}
		line, _ := reader.FieldPos(0)

		entry, err := parse(row)
		if err != nil {
			if opts.Policy == Lenient {
				logging.WarnWithComponent(logging.ComponentPalette, "Skipping malformed palette row",
					"line", line, "row", strings.Join(row, ","), "error", err)
				continue
			}
			return nil, apperr.New(apperr.KindDataFormat, "read palette", "", fmt.Errorf("line %d: %w", line, err))
		}
		p.Add(entry)
	}

	if p.Len() == 0 {
		return nil, apperr.DataFormat("read palette", "table contains no usable colors")
	}
	return p, nil
}

func classifyReadError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return apperr.New(apperr.KindDataFormat, "read palette", "", err)
	}
	return apperr.New(apperr.KindIO, "read palette", "", err)
}

func parseRALRow(row []string) (Entry, error) {
	if len(row) <= ralNameColumn {
		return Entry{}, fmt.Errorf("expected at least %d columns, got %d", ralNameColumn+1, len(row))
	}
	parts := strings.Split(row[ralRGBColumn], "-")
	if len(parts) != 3 {
		return Entry{}, fmt.Errorf("rgb field %q is not R-G-B", row[ralRGBColumn])
	}
	rgb, err := parseChannels(parts)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:   strings.TrimSpace(row[ralIDColumn]),
		RGB:  rgb,
		Name: strings.TrimSpace(row[ralNameColumn]),
	}, nil
}

func parseDMCRow(row []string) (Entry, error) {
	if len(row) < dmcRColumn+3 {
		return Entry{}, fmt.Errorf("expected at least %d columns, got %d", dmcRColumn+3, len(row))
	}
	rgb, err := parseChannels(row[dmcRColumn : dmcRColumn+3])
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:   strings.TrimSpace(row[dmcIDColumn]),
		RGB:  rgb,
		Name: strings.TrimSpace(row[dmcNameColumn]),
	}, nil
}

func parseChannels(fields []string) (RGB, error) {
	var ch [3]uint8
	for i, field := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return RGB{}, fmt.Errorf("channel %q is not an integer", field)
		}
		if v < 0 || v > 255 {
			return RGB{}, fmt.Errorf("channel %d out of range 0-255", v)
		}
		ch[i] = uint8(v)
	}
	return RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
}
