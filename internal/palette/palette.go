// Package palette loads flat reference color tables (RAL, DMC) and keeps them
// in load order, which the nearest-color search relies on for tie-breaking.
package palette

import (
	"fmt"
	"image/color"
)

// RGB is an 8-bit opaque color.
type RGB struct {
	R, G, B uint8
}

// RGBA returns the color as an opaque color.RGBA.
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// Luminance returns 0.299R + 0.587G + 0.114B.
func (c RGB) Luminance() float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// IsLight reports whether dark text reads better on c than light text.
func (c RGB) IsLight() bool {
	return c.Luminance() > 128
}

func (c RGB) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

// Entry is one reference color.
type Entry struct {
	ID   string
	RGB  RGB
	Name string
}

// Palette is an ordered, id-unique set of entries.
type Palette struct {
	entries []Entry
	index   map[string]int
}

// New builds a palette from entries in order.
func New(entries ...Entry) *Palette {
	p := &Palette{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		p.Add(e)
	}
	return p
}

// Add appends e. A repeated id overwrites the earlier values in place and
// keeps the original position.
func (p *Palette) Add(e Entry) {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[e.ID]; ok {
		p.entries[i] = e
		return
	}
	p.index[e.ID] = len(p.entries)
	p.entries = append(p.entries, e)
}

// Len returns the number of entries.
func (p *Palette) Len() int {
	return len(p.entries)
}

// At returns the i-th entry in load order.
func (p *Palette) At(i int) Entry {
	return p.entries[i]
}

// Get looks up an entry by id.
func (p *Palette) Get(id string) (Entry, bool) {
	i, ok := p.index[id]
	if !ok {
		return Entry{}, false
	}
	return p.entries[i], true
}

// Entries returns a copy of the entries in load order.
func (p *Palette) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}
