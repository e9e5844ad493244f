package legend

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
	"github.com/rmitchellscott/diamondperls/internal/palette"
)

// FormatLine renders one entry as "{n}. {id} - {name} (RGB: {r}, {g}, {b})".
func FormatLine(e Entry) string {
	return fmt.Sprintf("%d. %s - %s (RGB: %d, %d, %d)", e.Number, e.ID, e.Name, e.RGB.R, e.RGB.G, e.RGB.B)
}

// WriteText writes one line per entry in ascending number order. An empty
// legend produces an empty file.
func WriteText(w io.Writer, l *Legend) error {
	bw := bufio.NewWriter(w)
	for _, e := range l.entries {
		if _, err := bw.WriteString(FormatLine(e) + "\n"); err != nil {
			return apperr.New(apperr.KindIO, "write legend text", "", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return apperr.New(apperr.KindIO, "write legend text", "", err)
	}
	return nil
}

var lineRe = regexp.MustCompile(`^(\d+)\. (.+?) - (.*) \(RGB: (\d{1,3}), (\d{1,3}), (\d{1,3})\)$`)

// ParseText reads a legend written by WriteText. Cell counts are not part
// of the text form and come back as zero. Blank lines are ignored; numbers
// must run 1..N in order.
func ParseText(r io.Reader) (*Legend, error) {
	l := New()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, apperr.DataFormat("parse legend text", "line %d: malformed entry %q", lineNo, line)
		}
		n, _ := strconv.Atoi(m[1])
		if n != l.Len()+1 {
			return nil, apperr.DataFormat("parse legend text", "line %d: expected number %d, got %d", lineNo, l.Len()+1, n)
		}
		var ch [3]uint8
		for i := range ch {
			v, _ := strconv.Atoi(m[4+i])
			if v > 255 {
				return nil, apperr.DataFormat("parse legend text", "line %d: channel value %d out of range", lineNo, v)
			}
			ch[i] = uint8(v)
		}
		id := m[2]
		if _, dup := l.index[id]; dup {
			return nil, apperr.DataFormat("parse legend text", "line %d: duplicate id %q", lineNo, id)
		}
		l.index[id] = len(l.entries)
		l.entries = append(l.entries, Entry{
			Number: n,
			ID:     id,
			Name:   m[3],
			RGB:    palette.RGB{R: ch[0], G: ch[1], B: ch[2]},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, apperr.New(apperr.KindIO, "parse legend text", "", err)
	}
	return l, nil
}
