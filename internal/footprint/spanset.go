package footprint

import (
	"sort"

	"github.com/ivlev/img2footprint/internal/masked"
)

// SpanSet is an ordered collection of spans forming a footprint's shape.
// Spans may be appended in any order; Normalize sorts them row-major and
// merges same-row spans that touch or overlap. The per-pixel operations in
// this package all assume a normalized set.
type SpanSet struct {
	spans      []Span
	normalized bool
}

// Add appends a span. It returns ErrInvalidRange when x0 > x1. Overlap with
// existing spans is allowed until Normalize.
func (ss *SpanSet) Add(y, x0, x1 int) error {
	if x0 > x1 {
		return ErrInvalidRange
	}
	ss.spans = append(ss.spans, Span{Y: y, X0: x0, X1: x1})
	ss.normalized = len(ss.spans) == 1
	return nil
}

// Spans returns the underlying span slice. Callers must not modify it.
func (ss *SpanSet) Spans() []Span {
	return ss.spans
}

// Len returns the number of spans.
func (ss *SpanSet) Len() int {
	return len(ss.spans)
}

// Normalized reports whether the set is known to be in canonical order with
// no same-row overlap.
func (ss *SpanSet) Normalized() bool {
	return ss.normalized || len(ss.spans) == 0
}

// Normalize sorts the spans by (y, x0) and merges spans on the same row
// whose ranges touch or overlap (b.X0 <= a.X1+1). Idempotent.
func (ss *SpanSet) Normalize() {
	if ss.Normalized() {
		ss.normalized = true
		return
	}
	sort.Slice(ss.spans, func(i, j int) bool {
		return ss.spans[i].less(ss.spans[j])
	})

	merged := ss.spans[:1]
	for _, s := range ss.spans[1:] {
		last := &merged[len(merged)-1]
		if s.Y == last.Y && s.X0 <= last.X1+1 {
			if s.X1 > last.X1 {
				last.X1 = s.X1
			}
			continue
		}
		merged = append(merged, s)
	}
	ss.spans = merged
	ss.normalized = true
}

// Area returns the total number of pixels covered. Meaningful for counting
// only after Normalize; overlapping spans are counted as stored.
func (ss *SpanSet) Area() int {
	area := 0
	for _, s := range ss.spans {
		area += s.Width()
	}
	return area
}

// BBox returns the smallest box containing every span. The box is empty iff
// the set has no spans.
func (ss *SpanSet) BBox() masked.Box {
	var box masked.Box
	for _, s := range ss.spans {
		box = box.Include(s.X0, s.Y)
		box = box.Include(s.X1, s.Y)
	}
	return box
}

// Shift translates every span by (dx, dy). Canonical order is preserved.
func (ss *SpanSet) Shift(dx, dy int) {
	for i := range ss.spans {
		ss.spans[i].Y += dy
		ss.spans[i].X0 += dx
		ss.spans[i].X1 += dx
	}
}

// Contains reports whether the pixel (x, y) is covered by any span.
func (ss *SpanSet) Contains(x, y int) bool {
	for _, s := range ss.spans {
		if s.Contains(x, y) {
			return true
		}
	}
	return false
}

// ClipTo removes pixels outside the box, trimming spans that straddle its
// edges and dropping spans fully outside. The result is re-normalized.
func (ss *SpanSet) ClipTo(box masked.Box) {
	kept := ss.spans[:0]
	for _, s := range ss.spans {
		if s.Y < box.Y0 || s.Y > box.Y1 || s.X1 < box.X0 || s.X0 > box.X1 {
			continue
		}
		if s.X0 < box.X0 {
			s.X0 = box.X0
		}
		if s.X1 > box.X1 {
			s.X1 = box.X1
		}
		kept = append(kept, s)
	}
	ss.spans = kept
	ss.normalized = false
	ss.Normalize()
}

// clone returns a deep copy of the set.
func (ss *SpanSet) clone() SpanSet {
	out := SpanSet{normalized: ss.normalized}
	out.spans = make([]Span, len(ss.spans))
	copy(out.spans, ss.spans)
	return out
}

// addInSeries appends a span known to come after every stored span in
// canonical order, merging it into the last span when contiguous. Used by
// the union walk in MergeHeavy.
func (ss *SpanSet) addInSeries(y, x0, x1 int) {
	if n := len(ss.spans); n > 0 {
		last := &ss.spans[n-1]
		if y == last.Y && x0 == last.X1+1 {
			last.X1 = x1
			return
		}
	}
	ss.spans = append(ss.spans, Span{Y: y, X0: x0, X1: x1})
	ss.normalized = true
}
