package imagepkg

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/rs/zerolog/log"

	"github.com/youruser/idcardapp/internal/card"
	"github.com/youruser/idcardapp/internal/ethcal"
	"github.com/youruser/idcardapp/internal/util"
)

// validityYears is how long a card is valid after issue.
const validityYears = 8

// gregorianLayout formats Gregorian dates on the card, e.g. 2026/Oct/17.
const gregorianLayout = "2006/Jan/02"

// PageRasterizer renders page 1 of the PDF at pdfPath into outDir.
type PageRasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) (*Page, error)
}

// FieldSource reads the text fields of a document.
type FieldSource interface {
	Extract(ctx context.Context, data []byte) (card.Fields, error)
}

// Composer fills the card template from one PDF per call. A Composer is safe
// for concurrent use: the template and fonts are only read.
type Composer struct {
	template image.Image
	fonts    *Fonts
	boldness int

	Rasterizer PageRasterizer
	Fields     FieldSource

	Regions   map[string]card.Rect // at card.SourceDPI
	Layout    []card.FieldSpec
	Labels    []card.VerticalLabel
	TextColor color.Color

	// Now gives the issue date.
	Now func() time.Time
	// Upscale lets small crops grow to fill their slot; by default they
	// are only ever shrunk.
	Upscale bool
	// Annotate writes the crops and an outlined page into the scratch dir.
	Annotate bool
}

// NewComposer returns a Composer with the default layout, drawing text with
// the boldness of fonts. The rasterizer and field source must be set before
// use.
func NewComposer(template image.Image, fonts *Fonts) *Composer {
	return &Composer{
		template:  template,
		fonts:     fonts,
		boldness:  fonts.Boldness(),
		Regions:   card.SourceRegions,
		Layout:    card.TemplateFields,
		Labels:    card.VerticalLabels,
		TextColor: color.Black,
		Now:       time.Now,
	}
}

// FontChoices reports the font source chosen for each script.
func (c *Composer) FontChoices() map[card.Script]string {
	return c.fonts.Choices()
}

// Compose renders the card for one document and returns it PNG encoded.
// Reading, rasterizing, cropping and table extraction failures abort;
// font and per-field problems fall back and are logged; encoding failures
// are returned as card.ErrEncode.
func (c *Composer) Compose(ctx context.Context, pdf []byte, scratchDir string) ([]byte, error) {
	pdfPath, err := util.WriteFile(scratchDir, "input.pdf", pdf)
	if err != nil {
		return nil, card.Wrap("compose", card.ErrDocument, err)
	}

	page, err := c.Rasterizer.Rasterize(ctx, pdfPath, scratchDir)
	if err != nil {
		return nil, err
	}
	regions := ScaleRegions(c.Regions, page.DPI)
	crops, err := Crop(page.Image, regions)
	if err != nil {
		return nil, &card.Error{Op: "crop", Err: err}
	}
	if c.Annotate {
		if err := SaveCrops(scratchDir, crops, Annotate(page.Image, regions)); err != nil {
			log.Warn().Err(err).Str("component", "COMPOSER").Msg("saving crops failed")
		}
	}

	extracted, err := c.Fields.Extract(ctx, pdf)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields := extracted.Clone()
	addDates(fields, c.Now())
	c.fillFAN(fields, crops)

	canvas := c.Render(fields, crops)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, card.Wrap("encode", card.ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// addDates sets the issue dates and the combined expiry date.
func addDates(fields card.Fields, issue time.Time) {
	expiry := issue.AddDate(validityYears, 0, 0)
	fields[card.KeyIssueEthiopian] = ethcal.FromTime(issue).String()
	fields[card.KeyIssueGregorian] = issue.Format(gregorianLayout)
	fields[card.KeyExpiryDate] = ethcal.FromTime(expiry).String() + " | " + expiry.Format(gregorianLayout)
}

// fillFAN reads the FAN from the barcode crop when the table had none, and
// regenerates the barcode and QR crops from a known FAN when they came out
// blank.
func (c *Composer) fillFAN(fields card.Fields, crops map[string]image.Image) {
	if _, ok := fields[card.KeyFAN]; !ok {
		if text, err := DecodeBarcode(crops[card.RegionBarcode]); err == nil {
			fields[card.KeyFAN] = text
		} else {
			log.Debug().Err(err).Str("component", "COMPOSER").Msg("no FAN in barcode crop")
		}
	}
	fan, ok := fields[card.KeyFAN]
	if !ok || fan == "" {
		return
	}

	if crop, ok := crops[card.RegionQRCode]; ok && isBlank(crop) {
		b := crop.Bounds()
		if q, err := GenerateQRImage(fan, max(b.Dx(), b.Dy(), 64)); err == nil {
			crops[card.RegionQRCode] = q
		} else {
			log.Warn().Err(err).Str("component", "COMPOSER").Msg("QR regeneration failed")
		}
	}
	if crop, ok := crops[card.RegionBarcode]; ok && isBlank(crop) {
		if bc, err := GenerateCode128(fan, 2, 60); err == nil {
			crops[card.RegionBarcode] = bc
		} else {
			log.Warn().Err(err).Str("component", "COMPOSER").Msg("barcode regeneration failed")
		}
	}
}

// Render draws fields and crops onto a copy of the template.
func (c *Composer) Render(fields card.Fields, crops map[string]image.Image) *image.NRGBA {
	amharic, latin := c.fonts.Faces()

	dc := gg.NewContextForImage(c.template)
	dc.SetColor(c.TextColor)
	for _, op := range layoutText(fields, c.Layout, amharic, latin) {
		drawBold(dc, op.face, op.text, op.x, op.y, c.boldness)
	}
	canvas := imaging.Clone(dc.Image())

	for _, spec := range c.Layout {
		if spec.Kind != card.KindImage {
			continue
		}
		crop, ok := crops[spec.Source]
		if !ok || isEmpty(crop) {
			continue
		}
		fitted := fit(crop, spec.Rect.Dx(), spec.Rect.Dy(), c.Upscale)
		if isEmpty(fitted) {
			continue
		}
		at := image.Pt(
			spec.Rect.X1+(spec.Rect.Dx()-fitted.Bounds().Dx())/2,
			spec.Rect.Y1+(spec.Rect.Dy()-fitted.Bounds().Dy())/2,
		)
		canvas = imaging.Paste(canvas, fitted, at)
	}

	for _, l := range c.Labels {
		text, ok := fields[l.Key]
		if !ok || text == "" {
			continue
		}
		canvas = imaging.Overlay(canvas, verticalLabel(text, latin, c.boldness, c.TextColor), l.Pos, 1.0)
	}
	return canvas
}

// fit scales img to fit inside w x h keeping its aspect ratio.
func fit(img image.Image, w, h int, upscale bool) image.Image {
	if !upscale {
		return imaging.Fit(img, w, h, imaging.Lanczos)
	}
	b := img.Bounds()
	scale := math.Min(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	nw := max(int(float64(b.Dx())*scale), 1)
	nh := max(int(float64(b.Dy())*scale), 1)
	return imaging.Resize(img, nw, nh, imaging.Lanczos)
}
