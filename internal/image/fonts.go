package imagepkg

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/youruser/idcardapp/internal/card"
)

// FontConfig names the two script fonts and how text is drawn with them.
type FontConfig struct {
	AmharicPath string
	LatinPath   string
	Size        float64
	Boldness    int
}

// Sources a font can end up being resolved from.
const (
	SourceBuiltin = "builtin"
	SourceAmharic = "amharic"
)

// resolved is a parsed font; a nil ttf stands for the built-in bitmap face.
type resolved struct {
	source string
	ttf    *truetype.Font
}

type fontStrategy struct {
	name string
	load func() (resolved, error)
}

// Fonts holds the parsed script fonts. It is read-only after LoadFonts and
// safe to share; faces are created per caller by Faces.
type Fonts struct {
	size     float64
	boldness int
	amharic  resolved
	latin    resolved
}

// LoadFonts resolves both scripts through their fallback chains. It never
// fails: the Amharic chain ends in the built-in glyph set, the Latin chain
// in whatever the Amharic chain chose.
func LoadFonts(cfg FontConfig) *Fonts {
	size := cfg.Size
	if size <= 0 {
		size = 24
	}
	f := &Fonts{size: size, boldness: max(cfg.Boldness, 0)}
	f.amharic = resolve(card.ScriptAmharic, []fontStrategy{
		fileStrategy(cfg.AmharicPath),
		{name: SourceBuiltin, load: func() (resolved, error) { return resolved{source: SourceBuiltin}, nil }},
	})
	f.latin = resolve(card.ScriptLatin, []fontStrategy{
		fileStrategy(cfg.LatinPath),
		{name: SourceAmharic, load: func() (resolved, error) {
			return resolved{source: SourceAmharic, ttf: f.amharic.ttf}, nil
		}},
	})
	return f
}

func fileStrategy(path string) fontStrategy {
	return fontStrategy{
		name: "file " + path,
		load: func() (resolved, error) {
			if path == "" {
				return resolved{}, fmt.Errorf("no font path configured")
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return resolved{}, err
			}
			ttf, err := truetype.Parse(b)
			if err != nil {
				return resolved{}, fmt.Errorf("parse %s: %w", path, err)
			}
			return resolved{source: path, ttf: ttf}, nil
		},
	}
}

func resolve(script card.Script, chain []fontStrategy) resolved {
	for _, s := range chain {
		r, err := s.load()
		if err != nil {
			log.Warn().Err(err).Str("component", "FONTS").Str("script", string(script)).
				Str("strategy", s.name).Msg("font strategy failed, trying next")
			continue
		}
		log.Info().Str("component", "FONTS").Str("script", string(script)).
			Str("source", r.source).Msg("font resolved")
		return r
	}
	return resolved{source: SourceBuiltin}
}

// Choices reports where each script font came from: a file path,
// SourceBuiltin or SourceAmharic.
func (f *Fonts) Choices() map[card.Script]string {
	return map[card.Script]string{
		card.ScriptAmharic: f.amharic.source,
		card.ScriptLatin:   f.latin.source,
	}
}

// Boldness is the stroke offset text is drawn with, never negative.
func (f *Fonts) Boldness() int {
	return f.boldness
}

// Faces returns fresh faces for both scripts. Faces keep glyph caches and
// must not be shared between goroutines.
func (f *Fonts) Faces() (amharic, latin font.Face) {
	return f.face(f.amharic), f.face(f.latin)
}

func (f *Fonts) face(r resolved) font.Face {
	if r.ttf == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(r.ttf, &truetype.Options{
		Size:    f.size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}
