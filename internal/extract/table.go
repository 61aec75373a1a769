package extract

import (
	"math"
	"sort"
	"strings"
)

// Glyph is one piece of text placed on a page, in PDF user space (origin at
// the bottom left).
type Glyph struct {
	X, Y float64
	W    float64
	Size float64
	S    string
}

// Some producers scale text through the matrix and leave the size at zero.
const fallbackSize = 10

func (g Glyph) size() float64 {
	if g.Size <= 0 {
		return fallbackSize
	}
	return g.Size
}

// Table is a grid of cell texts, row 0 at the top of the page.
type Table struct {
	Rows [][]string
}

// Cell returns the trimmed text at (row, col) and whether the address exists.
func (t Table) Cell(row, col int) (string, bool) {
	if row < 0 || row >= len(t.Rows) {
		return "", false
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return "", false
	}
	return strings.TrimSpace(r[col]), true
}

func (t Table) NumCols() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// StreamOptions tune the whitespace based table detection. Every value is a
// multiple of the glyph font size.
type StreamOptions struct {
	LineTolerance float64 // max baseline distance inside one line
	WordGap       float64 // gap that becomes a space inside a cell
	ColumnGap     float64 // gap that starts a new cell
}

func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		LineTolerance: 0.4,
		WordGap:       0.15,
		ColumnGap:     1.5,
	}
}

type segment struct {
	x0, x1 float64
	text   strings.Builder
}

type line struct {
	y    float64
	segs []*segment
}

// DetectTables finds column structure from text alignment alone, without
// ruling lines. A page yields at most one table; nil means no table with at
// least two rows and two columns was found.
func DetectTables(glyphs []Glyph, opt StreamOptions) []Table {
	lines := groupLines(glyphs, opt)
	if len(lines) < 2 {
		return nil
	}
	cols := columns(lines)
	if len(cols) < 2 {
		return nil
	}

	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		row := make([]string, len(cols))
		for _, s := range l.segs {
			c := assign(cols, s)
			text := strings.TrimSpace(s.text.String())
			if row[c] != "" && text != "" {
				row[c] += " "
			}
			row[c] += text
		}
		rows = append(rows, row)
	}
	return []Table{{Rows: rows}}
}

func groupLines(glyphs []Glyph, opt StreamOptions) []*line {
	gs := make([]Glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S != "" {
			gs = append(gs, g)
		}
	}
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].Y > gs[j].Y })

	var lines []*line
	var members [][]Glyph
	for _, g := range gs {
		tol := math.Max(opt.LineTolerance*g.size(), 1)
		n := len(lines)
		if n > 0 && math.Abs(lines[n-1].y-g.Y) <= tol {
			members[n-1] = append(members[n-1], g)
			continue
		}
		lines = append(lines, &line{y: g.Y})
		members = append(members, []Glyph{g})
	}

	out := lines[:0]
	for i, l := range lines {
		l.segs = segments(members[i], opt)
		if len(l.segs) > 0 {
			out = append(out, l)
		}
	}
	return out
}

func segments(gs []Glyph, opt StreamOptions) []*segment {
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].X < gs[j].X })

	var segs []*segment
	var cur *segment
	for _, g := range gs {
		gap := 0.0
		if cur != nil {
			gap = g.X - cur.x1
		}
		if cur == nil || gap > opt.ColumnGap*g.size() {
			if strings.TrimSpace(g.S) == "" {
				continue
			}
			cur = &segment{x0: g.X, x1: g.X + g.W}
			cur.text.WriteString(g.S)
			segs = append(segs, cur)
			continue
		}
		if gap > opt.WordGap*g.size() {
			cur.text.WriteByte(' ')
		}
		cur.text.WriteString(g.S)
		cur.x1 = math.Max(cur.x1, g.X+g.W)
	}
	return segs
}

type span struct{ x0, x1 float64 }

// columns derives column boundaries from the lines holding the most common
// number of cells, preferring the larger count on a tie. When most lines hold
// a single cell, the spans of every line are merged instead.
func columns(lines []*line) []span {
	count := map[int]int{}
	for _, l := range lines {
		count[len(l.segs)]++
	}
	mode, best := 0, 0
	for n, c := range count {
		if c > best || (c == best && n > mode) {
			mode, best = n, c
		}
	}

	var spans []span
	for _, l := range lines {
		if mode >= 2 && len(l.segs) != mode {
			continue
		}
		for _, s := range l.segs {
			spans = append(spans, span{s.x0, s.x1})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].x0 < spans[j].x0 })

	var merged []span
	for _, s := range spans {
		n := len(merged)
		if n > 0 && s.x0 <= merged[n-1].x1 {
			merged[n-1].x1 = math.Max(merged[n-1].x1, s.x1)
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// assign picks the column a segment overlaps most, or the nearest one.
func assign(cols []span, s *segment) int {
	best, bestOverlap := -1, -1.0
	for i, c := range cols {
		overlap := math.Min(c.x1, s.x1) - math.Max(c.x0, s.x0)
		if overlap >= 0 && overlap > bestOverlap {
			best, bestOverlap = i, overlap
		}
	}
	if best >= 0 {
		return best
	}

	mid := (s.x0 + s.x1) / 2
	best, dist := 0, math.Inf(1)
	for i, c := range cols {
		d := math.Abs((c.x0+c.x1)/2 - mid)
		if d < dist {
			best, dist = i, d
		}
	}
	return best
}
