package footprint

import "fmt"

// Span is a contiguous run of pixels on one image row: columns X0 through X1
// inclusive on row Y. Spans are immutable values once built; X0 <= X1 holds
// for every span accepted by AddSpan.
type Span struct {
	Y  int
	X0 int
	X1 int
}

// Width returns the number of pixels covered by the span.
func (s Span) Width() int {
	return s.X1 - s.X0 + 1
}

// Contains reports whether the pixel (x, y) lies on the span.
func (s Span) Contains(x, y int) bool {
	return y == s.Y && x >= s.X0 && x <= s.X1
}

func (s Span) String() string {
	return fmt.Sprintf("%d: %d..%d", s.Y, s.X0, s.X1)
}

// less orders spans row-major, then by starting column, then by ending
// column. This is the canonical order every per-pixel array is laid out in.
func (s Span) less(t Span) bool {
	if s.Y != t.Y {
		return s.Y < t.Y
	}
	if s.X0 != t.X0 {
		return s.X0 < t.X0
	}
	return s.X1 < t.X1
}
