// Package legend keeps the numbered list of palette colors used by a pattern
// and exports it as text or PDF.
package legend

import (
	"github.com/rmitchellscott/diamondperls/internal/palette"
)

// Entry is one used color. Numbers start at 1 in order of first use.
type Entry struct {
	Number int         `json:"number"`
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	RGB    palette.RGB `json:"-"`
	Count  int         `json:"count"`
}

// Legend maps palette ids to their pattern numbers. Numbers are dense and
// never reassigned.
type Legend struct {
	entries []Entry
	index   map[string]int
}

// New returns an empty legend.
func New() *Legend {
	return &Legend{index: make(map[string]int)}
}

// Record notes one cell of color e and returns its number, assigning the
// next free number on first sight.
func (l *Legend) Record(e palette.Entry) int {
	if i, ok := l.index[e.ID]; ok {
		l.entries[i].Count++
		return l.entries[i].Number
	}
	n := len(l.entries) + 1
	l.index[e.ID] = len(l.entries)
	l.entries = append(l.entries, Entry{Number: n, ID: e.ID, Name: e.Name, RGB: e.RGB, Count: 1})
	return n
}

// Lookup returns the entry for a palette id.
func (l *Legend) Lookup(id string) (Entry, bool) {
	i, ok := l.index[id]
	if !ok {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Entries returns a copy of the entries in ascending number order.
func (l *Legend) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of distinct colors.
func (l *Legend) Len() int {
	return len(l.entries)
}

// Cells returns the total number of recorded cells.
func (l *Legend) Cells() int {
	total := 0
	for _, e := range l.entries {
		total += e.Count
	}
	return total
}
