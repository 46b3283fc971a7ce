package footprint

import "errors"

var (
	// ErrInvalidRange reports a span whose starting column is past its
	// ending column.
	ErrInvalidRange = errors.New("footprint: invalid span range")

	// ErrDimensionMismatch reports an extraction that references pixels
	// outside the source image. Extraction requires full coverage; it is
	// never clipped.
	ErrDimensionMismatch = errors.New("footprint: footprint not contained in image")

	// ErrShapeMismatch reports a merge or dot product whose operands are
	// not in a comparable state (missing pixel data, or spans that were
	// never normalized).
	ErrShapeMismatch = errors.New("footprint: footprints are not comparable")
)
