// Package translit renders Latin-script personal names in Ethiopic script.
package translit

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUnsupported is returned for input containing characters with no mapping.
var ErrUnsupported = errors.New("translit: unsupported character")

// Vowel orders of an Ethiopic syllable row, as offsets from the first form.
const (
	orderA  = 0 // ä
	orderU  = 1
	orderI  = 2
	orderAA = 3 // a
	orderE  = 4
	orderN  = 5 // no vowel
	orderO  = 6
)

// consonants maps a Latin consonant (or digraph) to the first form of its row.
var consonants = map[string]rune{
	"h": 'ሀ', "l": 'ለ', "m": 'መ', "r": 'ረ', "s": 'ሰ',
	"sh": 'ሸ', "q": 'ቀ', "b": 'በ', "v": 'ቨ', "t": 'ተ',
	"ch": 'ቸ', "n": 'ነ', "ny": 'ኘ', "gn": 'ኘ', "k": 'ከ',
	"c": 'ከ', "kh": 'ኸ', "w": 'ወ', "z": 'ዘ', "zh": 'ዠ',
	"y": 'የ', "d": 'ደ', "j": 'ጀ', "g": 'ገ', "ts": 'ጸ',
	"f": 'ፈ', "ph": 'ፈ', "p": 'ፐ',
}

var vowels = map[byte]int{
	'e': orderA,
	'u': orderU,
	'i': orderI,
	'a': orderAA,
	'o': orderO,
}

// Standalone vowels are written on the glottal row.
var standalone = map[byte]int{
	'a': orderA,
	'e': orderE,
	'i': orderI,
	'o': orderO,
	'u': orderU,
}

const glottal = 'አ'

// Ethiopic is a rule-based Latin to Ethiopic transliterator for names.
type Ethiopic struct{}

// normalize spells x as ks and drops apostrophes.
var normalize = strings.NewReplacer("x", "ks", "'", "", "’", "", "`", "")

// Transliterate converts text word by word. Whitespace runs collapse to one
// space and apostrophes are dropped. Any other character outside ASCII
// letters, whitespace, '-' and '.' fails the whole conversion.
func (Ethiopic) Transliterate(text string) (string, error) {
	words := strings.Fields(normalize.Replace(strings.ToLower(text)))
	out := make([]string, 0, len(words))
	for _, w := range words {
		s, err := word(w)
		if err != nil {
			return "", err
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, " "), nil
}

func word(w string) (string, error) {
	var b strings.Builder
	var prevVowel byte
	for i := 0; i < len(w); {
		c := w[i]
		switch {
		case c == '-' || c == '.':
			prevVowel = 0
			i++
			continue
		case c >= utf8.RuneSelf || !unicode.IsLetter(rune(c)):
			return "", fmt.Errorf("%w: %q in %q", ErrUnsupported, c, w)
		}

		if order, ok := standalone[c]; ok {
			switch {
			case prevVowel == c:
				// long vowel, already written
			case prevVowel == 'i':
				b.WriteRune(consonants["y"] + rune(vowels[c]))
			case prevVowel == 'u' || prevVowel == 'o':
				b.WriteRune(consonants["w"] + rune(vowels[c]))
			default:
				b.WriteRune(glottal + rune(order))
			}
			prevVowel = c
			i++
			continue
		}

		cons, n := consonantAt(w, i)
		if n == 0 {
			return "", fmt.Errorf("%w: %q in %q", ErrUnsupported, c, w)
		}
		i += n
		// Gemination is not written.
		if next, _ := consonantAt(w, i); next == cons {
			continue
		}

		order := orderN
		prevVowel = 0
		if i < len(w) && isVowel(w[i]) {
			order = vowels[w[i]]
			prevVowel = w[i]
			i++
		}
		b.WriteRune(consonants[cons] + rune(order))
	}
	return b.String(), nil
}

func consonantAt(w string, i int) (string, int) {
	if i+1 < len(w) {
		if _, ok := consonants[w[i:i+2]]; ok {
			return w[i : i+2], 2
		}
	}
	if i < len(w) {
		if _, ok := consonants[w[i:i+1]]; ok {
			return w[i : i+1], 1
		}
	}
	return "", 0
}

func isVowel(c byte) bool {
	_, ok := vowels[c]
	return ok
}
