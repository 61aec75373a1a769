package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// word lays s out as one glyph per rune, 6 units wide each.
func word(x, y float64, s string) []Glyph {
	var gs []Glyph
	for _, r := range s {
		gs = append(gs, Glyph{X: x, Y: y, W: 6, Size: 10, S: string(r)})
		x += 6
	}
	return gs
}

func TestDetectTablesTwoColumns(t *testing.T) {
	var gs []Glyph
	gs = append(gs, word(40, 800, "Name")...)
	gs = append(gs, word(300, 800, "Ahmed Dido")...)
	gs = append(gs, word(40, 780, "Sex")...)
	gs = append(gs, word(300, 780, "Male")...)
	gs = append(gs, word(40, 760, "Phone")...)

	tables := DetectTables(gs, DefaultStreamOptions())
	require.Len(t, tables, 1)
	tb := tables[0]
	require.Len(t, tb.Rows, 3)
	assert.Equal(t, 2, tb.NumCols())

	v, ok := tb.Cell(0, 1)
	assert.True(t, ok)
	assert.Equal(t, "Ahmed Dido", v)
	v, _ = tb.Cell(1, 0)
	assert.Equal(t, "Sex", v)
	v, ok = tb.Cell(2, 1)
	assert.True(t, ok)
	assert.Equal(t, "", v)
	_, ok = tb.Cell(3, 0)
	assert.False(t, ok)
}

func TestDetectTablesWordGapWithoutSpaceGlyphs(t *testing.T) {
	var gs []Glyph
	gs = append(gs, word(40, 800, "Given")...)
	gs = append(gs, word(40+5*6+4, 800, "Name")...)
	gs = append(gs, word(300, 800, "X")...)
	gs = append(gs, word(40, 780, "A")...)
	gs = append(gs, word(300, 780, "B")...)

	tables := DetectTables(gs, DefaultStreamOptions())
	require.Len(t, tables, 1)
	v, _ := tables[0].Cell(0, 0)
	assert.Equal(t, "Given Name", v)
}

func TestDetectTablesZeroWidthGlyphs(t *testing.T) {
	// Producers without a widths array report every glyph of a string at
	// the string's origin.
	flat := func(x, y float64, s string) []Glyph {
		var gs []Glyph
		for _, r := range s {
			gs = append(gs, Glyph{X: x, Y: y, Size: 10, S: string(r)})
		}
		return gs
	}
	var gs []Glyph
	gs = append(gs, flat(40, 800, "left one")...)
	gs = append(gs, flat(300, 800, "right one")...)
	gs = append(gs, flat(40, 780, "left two")...)
	gs = append(gs, flat(300, 780, "right two")...)

	tables := DetectTables(gs, DefaultStreamOptions())
	require.Len(t, tables, 1)
	assert.Equal(t, [][]string{{"left one", "right one"}, {"left two", "right two"}}, tables[0].Rows)
}

func TestDetectTablesRowOrderTopDown(t *testing.T) {
	var gs []Glyph
	gs = append(gs, word(40, 700, "bottom")...)
	gs = append(gs, word(300, 700, "b")...)
	gs = append(gs, word(40, 750, "top")...)
	gs = append(gs, word(300, 750, "t")...)

	tables := DetectTables(gs, DefaultStreamOptions())
	require.Len(t, tables, 1)
	v, _ := tables[0].Cell(0, 0)
	assert.Equal(t, "top", v)
}

func TestDetectTablesBaselineJitter(t *testing.T) {
	var gs []Glyph
	gs = append(gs, word(40, 800, "a")...)
	gs = append(gs, word(300, 799.2, "b")...)
	gs = append(gs, word(40, 780, "c")...)
	gs = append(gs, word(300, 780.5, "d")...)

	tables := DetectTables(gs, DefaultStreamOptions())
	require.Len(t, tables, 1)
	assert.Len(t, tables[0].Rows, 2)
}

func TestDetectTablesSparseSecondColumn(t *testing.T) {
	var gs []Glyph
	filled := map[int]string{1: "Ahmed", 4: "Oromia", 7: "Borana"}
	for r := 0; r < 10; r++ {
		y := 800 - float64(r)*20
		gs = append(gs, word(40, y, "label")...)
		if v, ok := filled[r]; ok {
			gs = append(gs, word(300, y, v)...)
		}
	}

	tables := DetectTables(gs, DefaultStreamOptions())
	require.Len(t, tables, 1)
	tb := tables[0]
	require.Len(t, tb.Rows, 10)
	assert.Equal(t, 2, tb.NumCols())
	for r := 0; r < 10; r++ {
		v, ok := tb.Cell(r, 1)
		assert.True(t, ok)
		assert.Equal(t, filled[r], v, "row %d", r)
	}
}

func TestDetectTablesNoTable(t *testing.T) {
	assert.Nil(t, DetectTables(nil, DefaultStreamOptions()))

	single := append(word(40, 800, "only"), word(40, 780, "one column")...)
	assert.Nil(t, DetectTables(single, DefaultStreamOptions()))

	oneLine := append(word(40, 800, "a"), word(300, 800, "b")...)
	assert.Nil(t, DetectTables(oneLine, DefaultStreamOptions()))
}

func TestSchemaApply(t *testing.T) {
	tb := Table{Rows: [][]string{
		{"", " John "},
		{"1990/05/17", "   "},
	}}
	s := Schema{
		"name":    {Row: 0, Col: 1},
		"dob":     {Row: 1, Col: 0},
		"blank":   {Row: 1, Col: 1},
		"missing": {Row: 9, Col: 0},
	}
	got := s.Apply(tb)
	assert.Equal(t, "John", got["name"])
	assert.Equal(t, "1990/05/17", got["dob"])
	assert.NotContains(t, got, "blank")
	assert.NotContains(t, got, "missing")
}

func TestSchemaValidate(t *testing.T) {
	assert.NoError(t, DefaultSchema().Validate())
	assert.Error(t, Schema{"x": {Row: -1}}.Validate())
}
