package card

import (
	"fmt"
	"image"
)

// Kind says whether a template slot is filled with text or with a cropped image.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Script selects the font a text field is drawn with.
type Script string

const (
	ScriptAmharic Script = "am"
	ScriptLatin   Script = "en"
	ScriptNone    Script = ""
)

// Rect is an (x1, y1, x2, y2) rectangle in pixel space, x2 and y2 exclusive.
type Rect struct {
	X1, Y1, X2, Y2 int
}

func (r Rect) Dx() int { return r.X2 - r.X1 }
func (r Rect) Dy() int { return r.Y2 - r.Y1 }

func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Valid reports whether the corners are ordered and non-negative.
func (r Rect) Valid() bool {
	return r.X1 >= 0 && r.Y1 >= 0 && r.X1 < r.X2 && r.Y1 < r.Y2
}

// Scale multiplies every coordinate by f, rounding to the nearest pixel.
func (r Rect) Scale(f float64) Rect {
	if f == 1 {
		return r
	}
	round := func(v int) int { return int(float64(v)*f + 0.5) }
	return Rect{round(r.X1), round(r.Y1), round(r.X2), round(r.Y2)}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// FieldSpec describes one slot of the card template.
type FieldSpec struct {
	Key    string
	Kind   Kind
	Pos    image.Point // top-left anchor of text fields
	Rect   Rect        // destination box of image fields
	Script Script
	Source string // crop region an image field is filled from
}

// Fields holds the text values pulled from one document. A missing key means
// the value is absent and the slot stays empty.
type Fields map[string]string

// Clone returns a copy that can be extended without touching the original.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f)+2)
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Field keys used outside the registry.
const (
	KeyNameAm       = "name_am"
	KeyNameEn       = "name_en"
	KeyDOBEthiopian = "date_of_birth_et"
	KeyDOBGregorian = "date_of_birth_greg"
	KeySexAm        = "sex_am"
	KeySexEn        = "sex_en"
	KeyExpiryDate   = "expiry_date"
	KeyFAN          = "fan_code"

	RegionPhoto   = "photo"
	RegionBarcode = "barcode"
	RegionQRCode  = "qr_code"
)

// TemplateFields is the layout of the card template, in drawing order.
var TemplateFields = []FieldSpec{
	{Key: KeyNameAm, Kind: KindText, Pos: image.Pt(565, 210), Script: ScriptAmharic},
	{Key: KeyDOBEthiopian, Kind: KindText, Pos: image.Pt(565, 342), Script: ScriptAmharic},
	{Key: KeySexAm, Kind: KindText, Pos: image.Pt(565, 413), Script: ScriptAmharic},
	{Key: "region_am", Kind: KindText, Pos: image.Pt(1315, 270), Script: ScriptAmharic},
	{Key: "zone_am", Kind: KindText, Pos: image.Pt(1315, 340), Script: ScriptAmharic},
	{Key: "woreda_am", Kind: KindText, Pos: image.Pt(1315, 420), Script: ScriptAmharic},

	{Key: KeyNameEn, Kind: KindText, Pos: image.Pt(565, 260), Script: ScriptLatin},
	{Key: KeyDOBGregorian, Kind: KindText, Pos: image.Pt(565, 372), Script: ScriptLatin},
	{Key: KeySexEn, Kind: KindText, Pos: image.Pt(680, 413), Script: ScriptLatin},
	{Key: KeyExpiryDate, Kind: KindText, Pos: image.Pt(565, 495), Script: ScriptLatin},
	{Key: "phone_number", Kind: KindText, Pos: image.Pt(1315, 110), Script: ScriptLatin},
	{Key: "region_en", Kind: KindText, Pos: image.Pt(1315, 305), Script: ScriptLatin},
	{Key: "zone_en", Kind: KindText, Pos: image.Pt(1315, 380), Script: ScriptLatin},
	{Key: "woreda_en", Kind: KindText, Pos: image.Pt(1315, 455), Script: ScriptLatin},
	{Key: KeyFAN, Kind: KindText, Pos: image.Pt(626, 534), Script: ScriptLatin},

	{Key: "photo", Kind: KindImage, Rect: Rect{440, 120, 508, 208}, Source: RegionPhoto},
	{Key: "qr_code", Kind: KindImage, Rect: Rect{410, 363, 538, 483}, Source: RegionQRCode},
	{Key: "fin_code", Kind: KindImage, Rect: Rect{470, 492, 542, 502}, Source: RegionBarcode},
	{Key: "small_photo", Kind: KindImage, Rect: Rect{1027, 507, 1112, 625}, Source: RegionPhoto},
}

// SourceDPI is the resolution the source regions are expressed in.
const SourceDPI = 72

// SourceRegions are the crop areas on the rasterized document page.
var SourceRegions = map[string]Rect{
	RegionPhoto:   {345, 93, 396, 160},
	RegionBarcode: {340, 225, 400, 245},
	RegionQRCode:  {325, 285, 420, 377},
}

// VerticalLabel is a text annotation drawn rotated 90° counter-clockwise.
type VerticalLabel struct {
	Key string
	Pos image.Point // top-left of the rotated bounding box
}

// Keys of the issue date values, only ever drawn as vertical labels.
const (
	KeyIssueEthiopian = "issue_date_et"
	KeyIssueGregorian = "issue_date_greg"
)

// VerticalLabels run along the left edge of the card front.
var VerticalLabels = []VerticalLabel{
	{Key: KeyIssueEthiopian, Pos: image.Pt(22, 200)},
	{Key: KeyIssueGregorian, Pos: image.Pt(22, 440)},
}

// Lookup returns the registry entry for key.
func Lookup(key string) (FieldSpec, bool) {
	for _, f := range TemplateFields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldSpec{}, false
}
