package imagepkg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/youruser/idcardapp/internal/card"
	"github.com/youruser/idcardapp/internal/extract"
)

// Page is the raster of page 1 of a document.
type Page struct {
	Image image.Image
	Path  string
	DPI   int
}

// RasterStrategy is one external renderer tried by the Rasterizer.
type RasterStrategy struct {
	Name string
	Bin  string
	Args func(pdfPath, outBase string, dpi int) []string
}

// Pdftoppm renders with poppler.
var Pdftoppm = RasterStrategy{
	Name: "pdftoppm",
	Bin:  "pdftoppm",
	Args: func(pdfPath, outBase string, dpi int) []string {
		return []string{"-png", "-singlefile", "-f", "1", "-l", "1", "-r", strconv.Itoa(dpi), pdfPath, outBase}
	},
}

// Ghostscript renders with gs.
var Ghostscript = RasterStrategy{
	Name: "ghostscript",
	Bin:  "gs",
	Args: func(pdfPath, outBase string, dpi int) []string {
		return []string{
			"-dQUIET", "-dNOPAUSE", "-dBATCH", "-dSAFER",
			"-sDEVICE=png16m",
			"-dFirstPage=1", "-dLastPage=1",
			"-r" + strconv.Itoa(dpi),
			"-sOutputFile=" + outBase + ".png",
			pdfPath,
		}
	},
}

// Rasterizer renders page 1 of a PDF through the first strategy that works.
type Rasterizer struct {
	DPI        int
	Strategies []RasterStrategy
}

func NewRasterizer(dpi int) *Rasterizer {
	if dpi <= 0 {
		dpi = card.SourceDPI
	}
	return &Rasterizer{DPI: dpi, Strategies: []RasterStrategy{Pdftoppm, Ghostscript}}
}

// Rasterize writes <stem>_page1.png into outDir and returns the decoded page.
// A document that cannot be opened, has no pages or that no strategy can
// render is reported as card.ErrDocument.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) (*Page, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, card.Wrap("rasterize", card.ErrDocument, err)
	}
	n, err := extract.PageCount(data)
	if err != nil {
		return nil, card.Wrap("rasterize", card.ErrDocument, err)
	}
	if n == 0 {
		return nil, card.Wrap("rasterize", card.ErrDocument, errors.New("document has no pages"))
	}

	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	outBase := filepath.Join(outDir, stem+"_page1")

	var errs []error
	for _, s := range r.Strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bin, err := exec.LookPath(s.Bin)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		out, err := exec.CommandContext(ctx, bin, s.Args(pdfPath, outBase, r.DPI)...).CombinedOutput()
		if err != nil {
			log.Warn().Err(err).Str("component", "RASTERIZER").Str("strategy", s.Name).
				Msg(strings.TrimSpace(string(out)))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		img, err := imaging.Open(outBase + ".png")
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		log.Debug().Str("component", "RASTERIZER").Str("strategy", s.Name).Int("dpi", r.DPI).
			Str("path", outBase+".png").Msg("page rasterized")
		return &Page{Image: img, Path: outBase + ".png", DPI: r.DPI}, nil
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no raster strategy configured"))
	}
	return nil, card.Wrap("rasterize", card.ErrDocument, errors.Join(errs...))
}
