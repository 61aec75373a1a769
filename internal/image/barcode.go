package imagepkg

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
)

// ErrNoBarcode is returned when none of the readers recognises the image.
var ErrNoBarcode = errors.New("imagepkg: no barcode found")

// GenerateCode128 renders text as a Code 128 barcode, moduleWidth pixels per
// bar module, with a quiet zone of ten modules on each side.
func GenerateCode128(text string, moduleWidth, height int) (image.Image, error) {
	bc, err := code128.Encode(text)
	if err != nil {
		return nil, err
	}
	if moduleWidth < 1 {
		moduleWidth = 1
	}
	w := bc.Bounds().Dx()
	scaled, err := barcode.Scale(bc, (w+20)*moduleWidth, height)
	if err != nil {
		return nil, fmt.Errorf("scale barcode: %w", err)
	}
	return scaled, nil
}

// DecodeBarcode reads a one-dimensional barcode, trying Code 128, Code 39
// and ITF in that order.
func DecodeBarcode(img image.Image) (string, error) {
	if isEmpty(img) {
		return "", ErrNoBarcode
	}
	// Crops are cut tight around the bars; readers want a quiet zone.
	b := img.Bounds()
	pad := b.Dx()/10 + 8
	canvas := imaging.New(b.Dx()+2*pad, b.Dy()+2*pad, color.White)
	padded := imaging.Paste(canvas, img, image.Pt(pad, pad))

	bmp, err := gozxing.NewBinaryBitmapFromImage(padded)
	if err != nil {
		return "", fmt.Errorf("bitmap: %w", err)
	}
	readers := []gozxing.Reader{
		oned.NewCode128Reader(),
		oned.NewCode39Reader(),
		oned.NewITFReader(),
	}
	for _, r := range readers {
		res, err := r.Decode(bmp, nil)
		if err == nil {
			return res.GetText(), nil
		}
	}
	return "", ErrNoBarcode
}
