package card

import (
	"errors"
	"fmt"
)

// Sentinel errors for the structural failures of the card pipeline.
var (
	ErrDocument          = errors.New("card: document cannot be opened or rasterized")
	ErrExtraction        = errors.New("card: no table found in document")
	ErrRegionOutOfBounds = errors.New("card: region outside raster")
	ErrEncode            = errors.New("card: encoding failed")
)

// Error records the pipeline stage that failed.
type Error struct {
	Op  string // "rasterize", "extract", "crop", "encode"
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("card.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("card.%s: unknown error", e.Op)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap ties err to op and to the sentinel kind, so that both errors.Is(err,
// kind) and errors.Is(err, cause) hold.
func Wrap(op string, kind, cause error) *Error {
	if cause == nil {
		return &Error{Op: op, Err: kind}
	}
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", kind, cause)}
}

// RegionOutOfBoundsError reports a crop rectangle that does not fit the raster.
type RegionOutOfBoundsError struct {
	Key    string
	Rect   Rect
	Width  int
	Height int
}

func (e *RegionOutOfBoundsError) Error() string {
	return fmt.Sprintf("card: region %q %s outside %dx%d raster", e.Key, e.Rect, e.Width, e.Height)
}

func (e *RegionOutOfBoundsError) Is(target error) bool {
	return target == ErrRegionOutOfBounds
}
