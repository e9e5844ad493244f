// Package matcher finds the nearest palette color to an RGB value.
package matcher

import (
	"github.com/rmitchellscott/diamondperls/internal/apperr"
	"github.com/rmitchellscott/diamondperls/internal/palette"
)

// Stats reports cache effectiveness for one run.
type Stats struct {
	Hits   int
	Misses int
}

// DefaultCacheLimit bounds the memoized colors of one run.
const DefaultCacheLimit = 1 << 16

// Matcher resolves colors against a palette by squared Euclidean RGB
// distance. Results are memoized until Reset. A Matcher is not safe for
// concurrent use; each run owns its own.
type Matcher struct {
	entries []palette.Entry
	cache   map[palette.RGB]int
	limit   int
	stats   Stats
}

// New creates a matcher over p. The palette must not be empty.
func New(p *palette.Palette) (*Matcher, error) {
	if p == nil || p.Len() == 0 {
		return nil, apperr.DataFormat("create matcher", "palette has no colors")
	}
	return &Matcher{
		entries: p.Entries(),
		cache:   make(map[palette.RGB]int),
		limit:   DefaultCacheLimit,
	}, nil
}

// SetCacheLimit changes the number of colors kept before the cache is
// flushed. Values below 1 disable memoization.
func (m *Matcher) SetCacheLimit(n int) {
	m.limit = n
	if len(m.cache) > n {
		m.cache = make(map[palette.RGB]int)
	}
}

// Nearest returns the palette entry closest to c. Equidistant entries
// resolve to the one loaded first.
func (m *Matcher) Nearest(c palette.RGB) palette.Entry {
	if i, ok := m.cache[c]; ok {
		m.stats.Hits++
		return m.entries[i]
	}
	m.stats.Misses++

	best := 0
	bestDist := distance(c, m.entries[0].RGB)
	for i := 1; i < len(m.entries) && bestDist > 0; i++ {
		if d := distance(c, m.entries[i].RGB); d < bestDist {
			best, bestDist = i, d
		}
	}
	if m.limit > 0 {
		if len(m.cache) >= m.limit {
			m.cache = make(map[palette.RGB]int)
		}
		m.cache[c] = best
	}
	return m.entries[best]
}

// Reset clears the memoized results and statistics.
func (m *Matcher) Reset() {
	m.cache = make(map[palette.RGB]int)
	m.stats = Stats{}
}

// Len returns the number of memoized colors.
func (m *Matcher) Len() int {
	return len(m.cache)
}

// Stats returns hit/miss counts since the last Reset.
func (m *Matcher) Stats() Stats {
	return m.stats
}

// Distance returns the squared Euclidean distance between a and b.
func Distance(a, b palette.RGB) int {
	return distance(a, b)
}

func distance(a, b palette.RGB) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}
