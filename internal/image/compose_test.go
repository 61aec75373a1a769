package imagepkg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/youruser/idcardapp/internal/card"
	"github.com/youruser/idcardapp/internal/extract"
)

var (
	white = color.NRGBA{0xff, 0xff, 0xff, 0xff}
	red   = color.NRGBA{0xff, 0, 0, 0xff}
	blue  = color.NRGBA{0, 0, 0xff, 0xff}
)

type fakeRaster struct {
	img image.Image
}

func (f fakeRaster) Rasterize(ctx context.Context, pdfPath, outDir string) (*Page, error) {
	return &Page{Image: f.img, DPI: card.SourceDPI}, nil
}

type fakeFields struct {
	fields card.Fields
	err    error
}

func (f fakeFields) Extract(ctx context.Context, data []byte) (card.Fields, error) {
	return f.fields, f.err
}

func testFontPath(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "goregular.ttf")
	require.NoError(t, os.WriteFile(p, goregular.TTF, 0o644))
	return p
}

func testFonts(t *testing.T) *Fonts {
	p := testFontPath(t)
	return LoadFonts(FontConfig{AmharicPath: p, LatinPath: p, Size: 24, Boldness: 1})
}

// testPage is a white A4 raster at 72 DPI with the photo region painted red
// and the QR region painted blue.
func testPage() *image.NRGBA {
	page := imaging.New(595, 842, white)
	photo := card.SourceRegions[card.RegionPhoto]
	page = imaging.Paste(page, imaging.New(photo.Dx(), photo.Dy(), red), image.Pt(photo.X1, photo.Y1))
	qr := card.SourceRegions[card.RegionQRCode]
	return imaging.Paste(page, imaging.New(qr.Dx(), qr.Dy(), blue), image.Pt(qr.X1, qr.Y1))
}

func testFieldValues() card.Fields {
	return card.Fields{
		card.KeyNameEn:       "Ahmed Gelgelu Dido",
		card.KeyNameAm:       "Ahmed",
		card.KeyDOBEthiopian: "1982/09/05",
		card.KeyDOBGregorian: "1990/05/13",
		card.KeySexAm:        "M",
		card.KeySexEn:        "Male",
		"phone_number":       "0911223344",
	}
}

func testComposer(t *testing.T, page image.Image, fields FieldSource) (*Composer, image.Image) {
	template := imaging.New(1700, 700, white)
	c := NewComposer(template, testFonts(t))
	c.Rasterizer = fakeRaster{img: page}
	c.Fields = fields
	c.Now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }
	return c, template
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func changed(a, b image.Image, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if nrgbaAt(a, x, y) != nrgbaAt(b, x, y) {
				return true
			}
		}
	}
	return false
}

func TestComposeEndToEnd(t *testing.T) {
	c, template := testComposer(t, testPage(), fakeFields{fields: testFieldValues()})

	out, err := c.Compose(context.Background(), []byte("%PDF-1.4"), t.TempDir())
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, template.Bounds(), img.Bounds())

	for _, key := range []string{card.KeyNameEn, card.KeyNameAm, card.KeyDOBEthiopian, card.KeySexAm, "phone_number", card.KeyExpiryDate} {
		spec, ok := card.Lookup(key)
		require.True(t, ok)
		area := image.Rect(spec.Pos.X, spec.Pos.Y, spec.Pos.X+60, spec.Pos.Y+30)
		assert.True(t, changed(template, img, area), "no text drawn for %s", key)
	}

	// The 51x67 photo crop fits both photo slots unscaled and is centred.
	for _, key := range []string{"photo", "small_photo"} {
		spec, _ := card.Lookup(key)
		cx := spec.Rect.X1 + spec.Rect.Dx()/2
		cy := spec.Rect.Y1 + spec.Rect.Dy()/2
		assert.Equal(t, red, nrgbaAt(img, cx, cy), key)
		assert.Equal(t, white, nrgbaAt(img, spec.Rect.X1, spec.Rect.Y1), key)
	}

	// The 95x92 QR crop fits the 128x120 slot unscaled.
	spec, _ := card.Lookup("qr_code")
	assert.Equal(t, blue, nrgbaAt(img, spec.Rect.X1+17, spec.Rect.Y1+14))
	assert.Equal(t, white, nrgbaAt(img, spec.Rect.X1+15, spec.Rect.Y1+13))

	// The template itself is never drawn on.
	assert.Equal(t, white, nrgbaAt(template, 570, 265))
}

// tableDocument renders a one-page two-column table with values at the
// default schema cells and placeholders elsewhere.
func tableDocument(t *testing.T, values map[extract.Cell]string) []byte {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 10)
	for r := 0; r < 14; r++ {
		for c, x := range []float64{40, 300} {
			text, ok := values[extract.Cell{Row: r, Col: c}]
			if !ok {
				text = fmt.Sprintf("r%dc%d", r, c)
			}
			doc.Text(x, 60+float64(r)*22, text)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestComposeFromTableDocument(t *testing.T) {
	pdf := tableDocument(t, map[extract.Cell]string{
		{Row: 1, Col: 1}:  "Ahmed Gelgelu Dido",
		{Row: 4, Col: 0}:  "1982/09/05",
		{Row: 5, Col: 0}:  "1990/05/13",
		{Row: 8, Col: 0}:  "Male",
		{Row: 13, Col: 0}: "0911223344",
		{Row: 5, Col: 1}:  "Oromia",
	})
	c, template := testComposer(t, testPage(), extract.New())

	out, err := c.Compose(context.Background(), pdf, t.TempDir())
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	for _, key := range []string{card.KeyNameEn, card.KeyNameAm, card.KeyDOBEthiopian, card.KeySexAm, "phone_number", "region_en", card.KeyExpiryDate} {
		spec, ok := card.Lookup(key)
		require.True(t, ok)
		area := image.Rect(spec.Pos.X, spec.Pos.Y, spec.Pos.X+60, spec.Pos.Y+30)
		assert.True(t, changed(template, img, area), "no text drawn for %s", key)
	}
	photo, _ := card.Lookup("photo")
	assert.Equal(t, red, nrgbaAt(img, photo.Rect.X1+photo.Rect.Dx()/2, photo.Rect.Y1+photo.Rect.Dy()/2))
}

func TestComposerTakesBoldnessFromFonts(t *testing.T) {
	p := testFontPath(t)
	template := imaging.New(1700, 700, white)

	thin := NewComposer(template, LoadFonts(FontConfig{AmharicPath: p, LatinPath: p, Boldness: -2}))
	thick := NewComposer(template, LoadFonts(FontConfig{AmharicPath: p, LatinPath: p, Boldness: 3}))
	assert.Equal(t, 0, thin.boldness)
	assert.Equal(t, 3, thick.boldness)

	fields := card.Fields{card.KeyNameEn: "Ahmed"}
	a := thin.Render(fields, nil)
	b := thick.Render(fields, nil)
	spec, _ := card.Lookup(card.KeyNameEn)
	assert.True(t, changed(a, b, image.Rect(spec.Pos.X, spec.Pos.Y, spec.Pos.X+120, spec.Pos.Y+40)))
}

func TestComposeIsIdempotent(t *testing.T) {
	c, _ := testComposer(t, testPage(), fakeFields{fields: testFieldValues()})

	a, err := c.Compose(context.Background(), []byte("%PDF-1.4"), t.TempDir())
	require.NoError(t, err)
	b, err := c.Compose(context.Background(), []byte("%PDF-1.4"), t.TempDir())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestComposeDoesNotMutateExtractedFields(t *testing.T) {
	values := testFieldValues()
	c, _ := testComposer(t, testPage(), fakeFields{fields: values})

	_, err := c.Compose(context.Background(), nil, t.TempDir())
	require.NoError(t, err)
	assert.NotContains(t, values, card.KeyExpiryDate)
	assert.Equal(t, testFieldValues(), values)
}

func TestComposeRegionOutOfBounds(t *testing.T) {
	c, _ := testComposer(t, imaging.New(100, 100, white), fakeFields{fields: testFieldValues()})

	_, err := c.Compose(context.Background(), nil, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, card.ErrRegionOutOfBounds))
	var oob *card.RegionOutOfBoundsError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, 100, oob.Width)
}

func TestComposeExtractionErrorAborts(t *testing.T) {
	fail := card.Wrap("extract", card.ErrExtraction, nil)
	c, _ := testComposer(t, testPage(), fakeFields{err: fail})

	_, err := c.Compose(context.Background(), nil, t.TempDir())
	assert.ErrorIs(t, err, card.ErrExtraction)
}

func TestComposeAnnotateWritesCrops(t *testing.T) {
	c, _ := testComposer(t, testPage(), fakeFields{fields: testFieldValues()})
	c.Annotate = true
	dir := t.TempDir()

	_, err := c.Compose(context.Background(), nil, dir)
	require.NoError(t, err)
	for _, name := range []string{"input.pdf", "photo_crop.png", "barcode_crop.png", "qr_code_crop.png", "marked_image.png"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestComposeRegeneratesBlankCodes(t *testing.T) {
	values := testFieldValues()
	values[card.KeyFAN] = "1234567890123456"
	c, template := testComposer(t, imaging.New(595, 842, white), fakeFields{fields: values})

	out, err := c.Compose(context.Background(), nil, t.TempDir())
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	qr, _ := card.Lookup("qr_code")
	assert.True(t, changed(template, img, qr.Rect.Image()))
	fin, _ := card.Lookup("fin_code")
	assert.True(t, changed(template, img, fin.Rect.Image()))
}

func TestRenderSkipsEmptyCrops(t *testing.T) {
	c, template := testComposer(t, testPage(), nil)
	crops := map[string]image.Image{
		card.RegionPhoto:  &image.NRGBA{},
		card.RegionQRCode: nil,
	}

	img := c.Render(card.Fields{}, crops)
	spec, _ := card.Lookup("photo")
	assert.False(t, changed(template, img, spec.Rect.Image()))
}

func TestRenderUpscale(t *testing.T) {
	c, _ := testComposer(t, testPage(), nil)
	c.Upscale = true
	crops := map[string]image.Image{card.RegionPhoto: imaging.New(10, 10, red)}

	img := c.Render(card.Fields{}, crops)
	spec, _ := card.Lookup("photo")
	// 68x88 slot, the square grows to 68x68 and sits 10px below the top.
	assert.Equal(t, red, nrgbaAt(img, spec.Rect.X1+1, spec.Rect.Y1+11))
	assert.Equal(t, white, nrgbaAt(img, spec.Rect.X1+1, spec.Rect.Y1+5))
}

func TestAddDates(t *testing.T) {
	fields := card.Fields{}
	addDates(fields, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2019/02/07", fields[card.KeyIssueEthiopian])
	assert.Equal(t, "2026/Oct/17", fields[card.KeyIssueGregorian])
	assert.Equal(t, "2027/02/07 | 2034/Oct/17", fields[card.KeyExpiryDate])
}
