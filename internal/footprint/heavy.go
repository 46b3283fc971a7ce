package footprint

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ivlev/img2footprint/internal/masked"
)

// HeavyPixels is the per-pixel payload of a heavy footprint: image, mask and
// variance values in canonical span order. Index i of every array belongs to
// the i-th pixel visited when walking the spans row-major, x0-ascending.
// All three arrays always have length Area().
type HeavyPixels struct {
	Image    []float32
	Mask     []uint16
	Variance []float32
}

func newHeavyPixels(area int) *HeavyPixels {
	return &HeavyPixels{
		Image:    make([]float32, area),
		Mask:     make([]uint16, area),
		Variance: make([]float32, area),
	}
}

// ModifySource selects what MakeHeavy does to the source image after
// extraction.
type ModifySource int

const (
	// ModifyNone leaves the source image untouched.
	ModifyNone ModifySource = iota
	// ModifySet zeroes all three planes under the footprint, lifting the
	// object out of the source.
	ModifySet
)

// HeavyCtrl carries extraction options. MaskVal is reserved: the historical
// interface threads a mask bit through, but clearing has always zeroed all
// three planes unconditionally, so the value is stored and never branched
// on.
type HeavyCtrl struct {
	ModifySource ModifySource
	MaskVal      uint16
}

// MakeHeavy extracts the pixels under the footprint's spans from src into a
// new heavy footprint. The spans are walked in stored order, so callers
// wanting the canonical array layout must Normalize first. Returns
// ErrDimensionMismatch when any span leaves the source extent; extraction is
// never clipped.
//
// ctrl may be nil, meaning ModifyNone.
func MakeHeavy(f *Footprint, src *masked.Image, ctrl *HeavyCtrl) (*Footprint, error) {
	if ctrl == nil {
		ctrl = &HeavyCtrl{}
	}

	for _, s := range f.Spans() {
		if !src.Contains(s.X0, s.Y) || !src.Contains(s.X1, s.Y) {
			return nil, fmt.Errorf("span %s outside source %v: %w", s, src.Bounds(), ErrDimensionMismatch)
		}
	}

	out := f.clone()
	h := newHeavyPixels(f.Area())
	i := 0
	for _, s := range f.Spans() {
		for x := s.X0; x <= s.X1; x++ {
			h.Image[i], h.Mask[i], h.Variance[i] = src.At(x, s.Y)
			i++
		}
	}
	out.heavy = h

	if ctrl.ModifySource == ModifySet {
		for _, s := range f.Spans() {
			for x := s.X0; x <= s.X1; x++ {
				src.Set(x, s.Y, 0, 0, 0)
			}
		}
	}
	return out, nil
}

// Insert writes the heavy footprint's pixels into dst at their absolute
// coordinates. Pixels falling outside dst are skipped silently, so a heavy
// footprint can be inserted into a sub-window; for each in-range pixel all
// three planes are written together.
func (f *Footprint) Insert(dst *masked.Image) error {
	h, ok := f.HeavyPixels()
	if !ok {
		return fmt.Errorf("insert needs pixel data: %w", ErrShapeMismatch)
	}
	i := 0
	for _, s := range f.Spans() {
		for x := s.X0; x <= s.X1; x++ {
			if dst.Contains(x, s.Y) {
				dst.Set(x, s.Y, h.Image[i], h.Mask[i], h.Variance[i])
			}
			i++
		}
	}
	return nil
}

// MergeHeavy combines two heavy footprints into a new one covering the
// span-wise union of their shapes. Pixels covered by one input keep that
// input's values; where the inputs overlap, image and variance are summed
// and the masks are OR-ed. Peaks are concatenated. Both inputs must be
// normalized heavy footprints.
func MergeHeavy(a, b *Footprint) (*Footprint, error) {
	ha, aok := a.HeavyPixels()
	hb, bok := b.HeavyPixels()
	if !aok || !bok {
		return nil, fmt.Errorf("merge needs pixel data on both inputs: %w", ErrShapeMismatch)
	}
	if !a.Normalized() || !b.Normalized() {
		return nil, fmt.Errorf("merge requires normalized spans: %w", ErrShapeMismatch)
	}

	out := &Footprint{ID: uuid.New()}
	unionSpans(&out.spans, a.spans.spans, b.spans.spans)
	out.peaks = make([]Peak, 0, len(a.peaks)+len(b.peaks))
	out.peaks = append(out.peaks, a.peaks...)
	out.peaks = append(out.peaks, b.peaks...)

	h := newHeavyPixels(out.Area())
	idx := newSpanIndex(out.spans.spans)
	accumulate(h, idx, a.spans.spans, ha)
	accumulate(h, idx, b.spans.spans, hb)
	out.heavy = h
	return out, nil
}

// unionSpans walks two normalized span lists in parallel and appends their
// row-by-row union to dst, chaining runs from either side that touch or
// overlap into single spans.
func unionSpans(dst *SpanSet, a, b []Span) {
	ai, bi := 0, 0
	for ai < len(a) && bi < len(b) {
		sa, sb := a[ai], b[bi]

		if sa.Y < sb.Y || (sa.Y == sb.Y && sa.X1 < sb.X0-1) {
			dst.addInSeries(sa.Y, sa.X0, sa.X1)
			ai++
			continue
		}
		if sb.Y < sa.Y || (sa.Y == sb.Y && sb.X1 < sa.X0-1) {
			dst.addInSeries(sb.Y, sb.X0, sb.X1)
			bi++
			continue
		}

		// Overlapping or touching runs on one row: extend with every
		// span from either side that continues the chain.
		y := sa.Y
		x0 := min(sa.X0, sb.X0)
		x1 := max(sa.X1, sb.X1)
		ai++
		bi++
		for {
			if ai < len(a) && a[ai].Y == y && a[ai].X0 <= x1+1 {
				x1 = max(x1, a[ai].X1)
				ai++
				continue
			}
			if bi < len(b) && b[bi].Y == y && b[bi].X0 <= x1+1 {
				x1 = max(x1, b[bi].X1)
				bi++
				continue
			}
			break
		}
		dst.addInSeries(y, x0, x1)
	}
	for ; ai < len(a); ai++ {
		dst.addInSeries(a[ai].Y, a[ai].X0, a[ai].X1)
	}
	for ; bi < len(b); bi++ {
		dst.addInSeries(b[bi].Y, b[bi].X0, b[bi].X1)
	}
}

// spanIndex maps absolute pixel coordinates to flat array indices for a
// normalized span list.
type spanIndex struct {
	rows map[int][]indexedSpan
}

type indexedSpan struct {
	span Span
	base int
}

func newSpanIndex(spans []Span) *spanIndex {
	idx := &spanIndex{rows: make(map[int][]indexedSpan)}
	base := 0
	for _, s := range spans {
		idx.rows[s.Y] = append(idx.rows[s.Y], indexedSpan{span: s, base: base})
		base += s.Width()
	}
	return idx
}

// at returns the flat index of pixel (x, y), which must be covered.
func (idx *spanIndex) at(x, y int) int {
	for _, is := range idx.rows[y] {
		if x >= is.span.X0 && x <= is.span.X1 {
			return is.base + x - is.span.X0
		}
	}
	panic(fmt.Sprintf("footprint: pixel (%d, %d) not covered by union", x, y))
}

// accumulate adds src's per-pixel values into dst at the union indices:
// image and variance sum, mask ORs.
func accumulate(dst *HeavyPixels, idx *spanIndex, spans []Span, src *HeavyPixels) {
	i := 0
	for _, s := range spans {
		for x := s.X0; x <= s.X1; x++ {
			j := idx.at(x, s.Y)
			dst.Image[j] += src.Image[i]
			dst.Mask[j] |= src.Mask[i]
			dst.Variance[j] += src.Variance[i]
			i++
		}
	}
}

// Dot returns the inner product of two heavy footprints over the pixels
// their spans have in common: sum of a.image[p] * b.image[p] over the
// geometric intersection. Pixels covered by only one footprint contribute
// nothing. Symmetric. Both inputs must be normalized heavy footprints.
func Dot(a, b *Footprint) (float64, error) {
	ha, aok := a.HeavyPixels()
	hb, bok := b.HeavyPixels()
	if !aok || !bok {
		return 0, fmt.Errorf("dot needs pixel data on both inputs: %w", ErrShapeMismatch)
	}
	if !a.Normalized() || !b.Normalized() {
		return 0, fmt.Errorf("dot requires normalized spans: %w", ErrShapeMismatch)
	}

	as, bs := a.Spans(), b.Spans()
	sum := 0.0
	abase, bbase := 0, 0
	ai, bi := 0, 0
	for ai < len(as) && bi < len(bs) {
		sa, sb := as[ai], bs[bi]
		if sa.Y < sb.Y || (sa.Y == sb.Y && sa.X1 < sb.X0) {
			abase += sa.Width()
			ai++
			continue
		}
		if sb.Y < sa.Y || (sa.Y == sb.Y && sb.X1 < sa.X0) {
			bbase += sb.Width()
			bi++
			continue
		}

		lo := max(sa.X0, sb.X0)
		hi := min(sa.X1, sb.X1)
		for x := lo; x <= hi; x++ {
			sum += float64(ha.Image[abase+x-sa.X0]) * float64(hb.Image[bbase+x-sb.X0])
		}

		// Advance whichever span ends first; on a tie both are spent.
		if sa.X1 <= sb.X1 {
			abase += sa.Width()
			ai++
		}
		if sb.X1 <= sa.X1 {
			bbase += sb.Width()
			bi++
		}
	}
	return sum, nil
}
