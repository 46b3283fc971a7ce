package analyzer

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ivlev/img2footprint/internal/footprint"
	"github.com/ivlev/img2footprint/internal/masked"
)

// ThresholdDetector finds connected regions of pixels above a threshold.
// The threshold is either absolute or derived from the image statistics
// (mean + NSigma * stddev).
type ThresholdDetector struct {
	AbsThreshold float64 // Used directly when > 0
	NSigma       float64 // Sigma multiplier for the statistical threshold
	MinArea      int     // Minimum footprint area in pixels
}

// NewThresholdDetector creates a threshold detector with default settings
func NewThresholdDetector() *ThresholdDetector {
	return &ThresholdDetector{
		NSigma:  5.0,
		MinArea: 4,
	}
}

// run is one above-threshold pixel run during the row scan, tagged with the
// component it currently belongs to.
type run struct {
	span footprint.Span
	comp int
}

// Detect scans the image row by row, collecting above-threshold runs and
// joining runs on adjacent rows whose columns overlap (4-connectivity).
// Each resulting component becomes one normalized footprint carrying a
// single peak at its brightest pixel.
func (d *ThresholdDetector) Detect(mi *masked.Image) ([]*footprint.Footprint, error) {
	threshold := d.threshold(mi)

	// parent is a union-find forest over component ids.
	var parent []int
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) int {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
		return ra
	}

	var prev, cur []run
	var all []run
	for y := mi.Y0; y < mi.Y0+mi.H; y++ {
		cur = cur[:0]
		x := mi.X0
		for x < mi.X0+mi.W {
			pix, _, _ := mi.At(x, y)
			if float64(pix) < threshold {
				x++
				continue
			}
			x0 := x
			for x < mi.X0+mi.W {
				pix, _, _ = mi.At(x, y)
				if float64(pix) < threshold {
					break
				}
				x++
			}
			r := run{span: footprint.Span{Y: y, X0: x0, X1: x - 1}, comp: -1}

			// Join with every overlapping run on the previous row.
			for _, p := range prev {
				if p.span.X1 >= r.span.X0 && p.span.X0 <= r.span.X1 {
					if r.comp < 0 {
						r.comp = find(p.comp)
					} else {
						r.comp = union(r.comp, p.comp)
					}
				}
			}
			if r.comp < 0 {
				r.comp = len(parent)
				parent = append(parent, r.comp)
			}
			cur = append(cur, r)
			all = append(all, r)
		}
		prev, cur = cur, prev
	}

	// Group spans by component root.
	groups := make(map[int]*footprint.Footprint)
	var order []int
	for _, r := range all {
		root := find(r.comp)
		f, ok := groups[root]
		if !ok {
			f = footprint.New()
			groups[root] = f
			order = append(order, root)
		}
		if err := f.AddSpan(r.span.Y, r.span.X0, r.span.X1); err != nil {
			return nil, err
		}
	}

	var feet []*footprint.Footprint
	for _, root := range order {
		f := groups[root]
		f.Normalize()
		if f.Area() < d.MinArea {
			continue
		}
		px, py, pv := brightestPixel(mi, f)
		f.AddPeak(px, py, pv)
		feet = append(feet, f)
	}
	return feet, nil
}

// threshold picks the detection threshold for the image.
func (d *ThresholdDetector) threshold(mi *masked.Image) float64 {
	if d.AbsThreshold > 0 {
		return d.AbsThreshold
	}
	values := make([]float64, len(mi.Pix))
	for i, v := range mi.Pix {
		values[i] = float64(v)
	}
	mean, std := stat.MeanStdDev(values, nil)
	return mean + d.NSigma*std
}

// brightestPixel walks the footprint and returns the location and value of
// its maximum image pixel.
func brightestPixel(mi *masked.Image, f *footprint.Footprint) (int, int, float32) {
	first := true
	var bx, by int
	var bv float32
	for _, s := range f.Spans() {
		for x := s.X0; x <= s.X1; x++ {
			pix, _, _ := mi.At(x, s.Y)
			if first || pix > bv {
				bx, by, bv = x, s.Y, pix
				first = false
			}
		}
	}
	return bx, by, bv
}
