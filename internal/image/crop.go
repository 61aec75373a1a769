package imagepkg

import (
	"image"
	"image/color"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/youruser/idcardapp/internal/card"
)

// ScaleRegions converts regions declared at card.SourceDPI to dpi.
func ScaleRegions(regions map[string]card.Rect, dpi int) map[string]card.Rect {
	f := 1.0
	if dpi > 0 {
		f = float64(dpi) / card.SourceDPI
	}
	out := make(map[string]card.Rect, len(regions))
	for k, r := range regions {
		out[k] = r.Scale(f)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Crop slices every region out of img. All rectangles are checked against the
// raster first; one that does not fit fails the whole call with a
// *card.RegionOutOfBoundsError.
func Crop(img image.Image, regions map[string]card.Rect) (map[string]image.Image, error) {
	b := img.Bounds()
	for _, k := range sortedKeys(regions) {
		r := regions[k]
		if !r.Valid() || r.X2 > b.Dx() || r.Y2 > b.Dy() {
			return nil, &card.RegionOutOfBoundsError{Key: k, Rect: r, Width: b.Dx(), Height: b.Dy()}
		}
	}

	out := make(map[string]image.Image, len(regions))
	for k, r := range regions {
		out[k] = imaging.Crop(img, r.Image().Add(b.Min))
	}
	return out, nil
}

var outline = color.NRGBA{R: 0xff, A: 0xff}

// Annotate returns a copy of img with every region outlined.
func Annotate(img image.Image, regions map[string]card.Rect) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetColor(outline)
	dc.SetLineWidth(1)
	b := img.Bounds()
	for _, k := range sortedKeys(regions) {
		r := regions[k]
		dc.DrawRectangle(float64(r.X1-b.Min.X)+0.5, float64(r.Y1-b.Min.Y)+0.5, float64(r.Dx()-1), float64(r.Dy()-1))
		dc.Stroke()
	}
	return dc.Image()
}

// SaveCrops writes <key>_crop.png for every crop and, when marked is not nil,
// marked_image.png into dir.
func SaveCrops(dir string, crops map[string]image.Image, marked image.Image) error {
	for _, k := range sortedKeys(crops) {
		if err := imaging.Save(crops[k], filepath.Join(dir, k+"_crop.png")); err != nil {
			return err
		}
	}
	if marked != nil {
		return imaging.Save(marked, filepath.Join(dir, "marked_image.png"))
	}
	return nil
}

// isEmpty reports a crop with no pixels.
func isEmpty(img image.Image) bool {
	if img == nil {
		return true
	}
	b := img.Bounds()
	return b.Dx() <= 0 || b.Dy() <= 0
}

// blankSpread is the largest luma range still counted as a uniform image.
const blankSpread = 24

// isBlank reports an empty crop or one without visible content.
func isBlank(img image.Image) bool {
	if isEmpty(img) {
		return true
	}
	b := img.Bounds()
	lo, hi := uint8(0xff), uint8(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			l := color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			if l < lo {
				lo = l
			}
			if l > hi {
				hi = l
			}
		}
	}
	return int(hi)-int(lo) <= blankSpread
}
