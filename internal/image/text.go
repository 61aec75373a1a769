package imagepkg

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/youruser/idcardapp/internal/card"
)

// sexGap separates the Amharic and Latin halves of the sex line.
const sexGap = 5

type textOp struct {
	key  string
	text string
	x, y float64
	face font.Face
}

func textWidth(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}

// layoutText resolves the text, font and anchor of every text slot present
// in fields. It never writes to specs.
func layoutText(fields card.Fields, specs []card.FieldSpec, amharic, latin font.Face) []textOp {
	var ops []textOp
	for _, spec := range specs {
		if spec.Kind != card.KindText {
			continue
		}
		value, ok := fields[spec.Key]
		if !ok {
			continue
		}
		// Only ever drawn merged into the Ethiopian date of birth.
		if spec.Key == card.KeyDOBGregorian {
			continue
		}

		face := latin
		if spec.Script == card.ScriptAmharic {
			face = amharic
		}
		op := textOp{key: spec.Key, text: value, x: float64(spec.Pos.X), y: float64(spec.Pos.Y), face: face}

		switch spec.Key {
		case card.KeySexEn:
			if am, ok := findSpec(specs, card.KeySexAm); ok {
				op.x = float64(am.Pos.X) + textWidth(amharic, fields[card.KeySexAm]) + sexGap
			}
			op.text = "| " + value
		case card.KeyDOBEthiopian:
			if greg, ok := fields[card.KeyDOBGregorian]; ok {
				op.text = value + " | " + greg
				// Digits and the separator need the Latin face.
				op.face = latin
			}
		}
		ops = append(ops, op)
	}
	return ops
}

func findSpec(specs []card.FieldSpec, key string) (card.FieldSpec, bool) {
	for _, s := range specs {
		if s.Key == key {
			return s, true
		}
	}
	return card.FieldSpec{}, false
}

// drawBold draws text with its top-left corner at (x, y) once for every
// offset in [0, boldness] x [0, boldness].
func drawBold(dc *gg.Context, face font.Face, text string, x, y float64, boldness int) {
	dc.SetFontFace(face)
	ascent := float64(face.Metrics().Ascent) / 64
	for dx := 0; dx <= boldness; dx++ {
		for dy := 0; dy <= boldness; dy++ {
			dc.DrawString(text, x+float64(dx), y+float64(dy)+ascent)
		}
	}
}

// verticalLabel renders text horizontally on a transparent surface and
// rotates it 90° counter-clockwise, so it reads bottom to top.
func verticalLabel(text string, face font.Face, boldness int, c color.Color) image.Image {
	m := face.Metrics()
	w := int(math.Ceil(textWidth(face, text))) + boldness + 2
	h := (m.Ascent + m.Descent).Ceil() + boldness + 2
	dc := gg.NewContext(w, h)
	dc.SetColor(c)
	drawBold(dc, face, text, 1, 1, boldness)
	return imaging.Rotate90(dc.Image())
}
