package footprint

import "sort"

// Peak is a recorded local maximum associated with a footprint. Peaks are
// opaque payload: they are not required to lie on the footprint's spans and
// merges concatenate them without deduplication.
type Peak struct {
	X     int
	Y     int
	Value float32
}

// SortPeaksByValue orders peaks brightest-first, breaking ties in reading
// order so the result is stable across runs.
func SortPeaksByValue(peaks []Peak) {
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].Value != peaks[j].Value {
			return peaks[i].Value > peaks[j].Value
		}
		if peaks[i].Y != peaks[j].Y {
			return peaks[i].Y < peaks[j].Y
		}
		return peaks[i].X < peaks[j].X
	})
}
