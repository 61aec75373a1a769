// Package extract pulls the identity fields out of the text layer of a
// one-page ID print-out.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/youruser/idcardapp/internal/card"
	"github.com/youruser/idcardapp/internal/translit"
)

// Transliterator renders a Latin-script name in the local script.
type Transliterator interface {
	Transliterate(text string) (string, error)
}

// Extractor turns PDF bytes into card fields.
type Extractor struct {
	Schema   Schema
	Stream   StreamOptions
	Translit Transliterator
}

// New returns an extractor for the default document layout.
func New() *Extractor {
	return &Extractor{
		Schema:   DefaultSchema(),
		Stream:   DefaultStreamOptions(),
		Translit: translit.Ethiopic{},
	}
}

// Extract reads the first table of page 1 and maps it through the schema.
// The name_am field is derived from name_en; if that conversion fails the
// field is set to "" and the failure is only logged.
func (e *Extractor) Extract(ctx context.Context, data []byte) (card.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := e.ReadTable(data)
	if err != nil {
		return nil, err
	}

	fields := e.Schema.Apply(t)
	if name, ok := fields[card.KeyNameEn]; ok && e.Translit != nil {
		am, err := e.Translit.Transliterate(strings.ToLower(name))
		if err != nil {
			log.Warn().Err(err).Str("component", "EXTRACTOR").Str("name", name).
				Msg("transliteration failed, leaving name_am empty")
			am = ""
		}
		fields[card.KeyNameAm] = am
	}

	log.Debug().Str("component", "EXTRACTOR").Int("rows", len(t.Rows)).Int("cols", t.NumCols()).
		Int("fields", len(fields)).Msg("fields extracted")
	return fields, nil
}

// ReadTable returns the first table detected on page 1.
func (e *Extractor) ReadTable(data []byte) (Table, error) {
	glyphs, err := PageGlyphs(data, 1)
	if err != nil {
		return Table{}, card.Wrap("extract", card.ErrDocument, err)
	}
	tables := DetectTables(glyphs, e.Stream)
	if len(tables) == 0 {
		return Table{}, card.Wrap("extract", card.ErrExtraction, nil)
	}
	return tables[0], nil
}

// PageGlyphs returns the positioned text of one page (1-based).
func PageGlyphs(data []byte, page int) (glyphs []Glyph, err error) {
	// The reader panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			glyphs, err = nil, fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	if n := r.NumPage(); n < page {
		return nil, fmt.Errorf("pdf has %d pages, want page %d", n, page)
	}
	p := r.Page(page)
	if p.V.IsNull() {
		return nil, errors.New("page object is missing")
	}

	for _, t := range p.Content().Text {
		glyphs = append(glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
	}
	return glyphs, nil
}

// PageCount opens the document and counts its pages.
func PageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("read pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	return r.NumPage(), nil
}
