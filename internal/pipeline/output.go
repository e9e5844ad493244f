package pipeline

import (
	"path"
	"path/filepath"
	"strings"
)

// Output name suffixes.
const (
	PatternSuffix = "_diamond_perls"
	LegendSuffix  = "_verwendete_farben"
)

// OutputFiles holds the storage keys written by one run.
type OutputFiles struct {
	Image string `json:"image"`
	Text  string `json:"text"`
	PDF   string `json:"pdf"`
}

// Keys returns the keys in write order.
func (o OutputFiles) Keys() []string {
	return []string{o.Image, o.Text, o.PDF}
}

// OutputNames derives the output file names from the input file name by
// replacing its extension: photo.jpg gives photo_diamond_perls.jpg,
// photo_verwendete_farben.txt and photo_verwendete_farben.pdf.
func OutputNames(input string) OutputFiles {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if name == "" {
		name = base
		ext = ""
	}
	return OutputFiles{
		Image: name + PatternSuffix + ext,
		Text:  name + LegendSuffix + ".txt",
		PDF:   name + LegendSuffix + ".pdf",
	}
}

// WithPrefix places every file below prefix.
func (o OutputFiles) WithPrefix(prefix string) OutputFiles {
	if prefix == "" {
		return o
	}
	return OutputFiles{
		Image: path.Join(prefix, o.Image),
		Text:  path.Join(prefix, o.Text),
		PDF:   path.Join(prefix, o.PDF),
	}
}
