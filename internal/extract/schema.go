package extract

import (
	"fmt"
	"sort"

	"github.com/youruser/idcardapp/internal/card"
)

// Cell addresses one table cell, row 0 being the top line of the table.
type Cell struct {
	Row int
	Col int
}

// Schema maps field keys to the table cell holding their value. It is the
// contract with one document layout; another layout needs another schema.
type Schema map[string]Cell

// DefaultSchema is the layout of the national ID print-out.
func DefaultSchema() Schema {
	return Schema{
		card.KeyNameEn:       {Row: 1, Col: 1},
		card.KeyDOBEthiopian: {Row: 4, Col: 0},
		card.KeyDOBGregorian: {Row: 5, Col: 0},
		card.KeySexAm:        {Row: 7, Col: 0},
		card.KeySexEn:        {Row: 8, Col: 0},
		"phone_number":       {Row: 13, Col: 0},
		"region_am":          {Row: 4, Col: 1},
		"region_en":          {Row: 5, Col: 1},
		"zone_am":            {Row: 7, Col: 1},
		"zone_en":            {Row: 8, Col: 1},
		"woreda_am":          {Row: 10, Col: 1},
		"woreda_en":          {Row: 11, Col: 1},
	}
}

// Keys returns the schema keys in sorted order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate rejects negative addresses.
func (s Schema) Validate() error {
	for _, k := range s.Keys() {
		c := s[k]
		if c.Row < 0 || c.Col < 0 {
			return fmt.Errorf("extract: schema field %q has negative cell (%d,%d)", k, c.Row, c.Col)
		}
	}
	return nil
}

// Apply reads every schema cell out of t. Cells that do not exist or hold only
// whitespace leave their key out of the result.
func (s Schema) Apply(t Table) card.Fields {
	out := card.Fields{}
	for k, c := range s {
		v, ok := t.Cell(c.Row, c.Col)
		if !ok || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
