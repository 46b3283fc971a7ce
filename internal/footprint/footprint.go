package footprint

import (
	"github.com/google/uuid"

	"github.com/ivlev/img2footprint/internal/masked"
)

// Footprint is an irregular shape on an integer pixel grid: a set of spans
// plus the peaks found inside it. A footprint may additionally carry "heavy"
// per-pixel data (image, mask and variance sampled from a source image);
// plain footprints are shape-only. HeavyPixels reports which kind this is —
// there is one Footprint type, not a type hierarchy.
type Footprint struct {
	ID uuid.UUID

	spans SpanSet
	peaks []Peak
	heavy *HeavyPixels
}

// New creates an empty shape-only footprint with a fresh identity.
func New() *Footprint {
	return &Footprint{ID: uuid.New()}
}

// AddSpan appends the run [x0, x1] on row y. It returns ErrInvalidRange when
// x0 > x1. Spans may overlap until Normalize. Adding a span to a heavy
// footprint would desynchronize the pixel arrays, so the heavy payload is
// dropped.
func (f *Footprint) AddSpan(y, x0, x1 int) error {
	if err := f.spans.Add(y, x0, x1); err != nil {
		return err
	}
	f.heavy = nil
	return nil
}

// AddPeak records a peak location and value.
func (f *Footprint) AddPeak(x, y int, value float32) {
	f.peaks = append(f.peaks, Peak{X: x, Y: y, Value: value})
}

// Spans returns the footprint's spans in stored order. Callers must not
// modify the slice.
func (f *Footprint) Spans() []Span {
	return f.spans.Spans()
}

// Peaks returns the footprint's peaks in insertion order. Callers must not
// modify the slice.
func (f *Footprint) Peaks() []Peak {
	return f.peaks
}

// Normalize puts the spans into canonical order (row-major, ascending x0,
// same-row runs merged). Idempotent. Heavy operations require it. A heavy
// payload is laid out in the stored span order, so reordering the spans
// would desynchronize it; like AddSpan, Normalize drops the payload when it
// actually changes the order. Normalize first, extract after.
func (f *Footprint) Normalize() {
	if f.spans.Normalized() {
		return
	}
	f.spans.Normalize()
	f.heavy = nil
}

// Normalized reports whether the spans are in canonical order.
func (f *Footprint) Normalized() bool {
	return f.spans.Normalized()
}

// Area returns the number of pixels covered by the footprint.
func (f *Footprint) Area() int {
	return f.spans.Area()
}

// BBox returns the smallest box containing every span; empty for an empty
// footprint.
func (f *Footprint) BBox() masked.Box {
	return f.spans.BBox()
}

// Contains reports whether the pixel (x, y) is covered by the footprint.
func (f *Footprint) Contains(x, y int) bool {
	return f.spans.Contains(x, y)
}

// Shift translates the footprint, its peaks and nothing else by (dx, dy).
// Used to align footprints defined against differently-offset buffers.
func (f *Footprint) Shift(dx, dy int) {
	f.spans.Shift(dx, dy)
	for i := range f.peaks {
		f.peaks[i].X += dx
		f.peaks[i].Y += dy
	}
}

// ClipTo trims the footprint to the box, dropping peaks that fall outside.
// The heavy payload, if any, no longer matches the clipped shape and is
// dropped.
func (f *Footprint) ClipTo(box masked.Box) {
	f.spans.ClipTo(box)
	kept := f.peaks[:0]
	for _, p := range f.peaks {
		if box.Contains(p.X, p.Y) {
			kept = append(kept, p)
		}
	}
	f.peaks = kept
	f.heavy = nil
}

// Centroid returns the unweighted center of the covered pixels. ok is false
// for an empty footprint.
func (f *Footprint) Centroid() (cx, cy float64, ok bool) {
	n := 0
	for _, s := range f.spans.Spans() {
		w := s.Width()
		n += w
		cx += float64(w) * 0.5 * float64(s.X0+s.X1)
		cy += float64(w) * float64(s.Y)
	}
	if n == 0 {
		return 0, 0, false
	}
	return cx / float64(n), cy / float64(n), true
}

// HeavyPixels returns the per-pixel payload and whether the footprint
// carries one.
func (f *Footprint) HeavyPixels() (*HeavyPixels, bool) {
	return f.heavy, f.heavy != nil
}

// IsHeavy reports whether the footprint carries per-pixel data.
func (f *Footprint) IsHeavy() bool {
	return f.heavy != nil
}

// SetHeavyPixels attaches a payload whose arrays must already be laid out in
// canonical span order with length Area(). Used by the persistence codec and
// by callers that fill arrays directly; MakeHeavy is the usual constructor.
func (f *Footprint) SetHeavyPixels(h *HeavyPixels) error {
	if h != nil && (len(h.Image) != f.Area() || len(h.Mask) != f.Area() || len(h.Variance) != f.Area()) {
		return ErrShapeMismatch
	}
	f.heavy = h
	return nil
}

// clone returns a deep copy of the footprint's shape and peaks, sharing the
// identity but not the heavy payload.
func (f *Footprint) clone() *Footprint {
	out := &Footprint{ID: f.ID, spans: f.spans.clone()}
	out.peaks = make([]Peak, len(f.peaks))
	copy(out.peaks, f.peaks)
	return out
}
