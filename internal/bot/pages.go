package bot

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/youruser/idcardapp/internal/card"
)

func init() {
	api.DisableConfigDir()
}

// PageCountError reports a document that is not exactly one page long.
type PageCountError struct {
	Pages int
}

func (e *PageCountError) Error() string {
	return fmt.Sprintf("document has %d pages, want 1", e.Pages)
}

func (e *PageCountError) Is(target error) bool {
	return target == card.ErrDocument
}

// PageCount reads the page count with pdfcpu in relaxed validation mode.
func PageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdfcpu: %v", r)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

// CheckSinglePage returns nil for a readable one-page document.
func CheckSinglePage(data []byte) error {
	n, err := PageCount(data)
	if err != nil {
		return card.Wrap("pagecount", card.ErrDocument, err)
	}
	if n != 1 {
		return &PageCountError{Pages: n}
	}
	return nil
}

// pageCountOf returns the page count from err, if err is a PageCountError.
func pageCountOf(err error) (int, bool) {
	var pce *PageCountError
	if errors.As(err, &pce) {
		return pce.Pages, true
	}
	return 0, false
}
