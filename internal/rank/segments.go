// Package rank turns raw engagement counts into a stable 1-10 popularity rank
// using decile buckets per metric and again over the composite score.
package rank

import (
	"math"
	"slices"
)

// Buckets is the number of decile boundaries produced per metric.
const Buckets = 10

// StandardizedSegments returns Buckets ascending boundaries for values. Short
// inputs are left-padded with zeros. The walk over the sorted values advances
// by a bucket width of len/Buckets; when that width is fractional every
// boundary is scaled up by a tenth.
func StandardizedSegments(values []float64) []float64 {
	sorted := make([]float64, 0, max(len(values), Buckets))
	for range Buckets - len(values) {
		sorted = append(sorted, 0)
	}
	sorted = append(sorted, values...)
	slices.Sort(sorted)

	width := float64(len(sorted)) / Buckets
	fractional := width != math.Trunc(width)
	last := len(sorted) - 1

	segments := make([]float64, 0, Buckets)
	pos := width - 1
	for range Buckets {
		idx := min(max(int(math.Floor(pos)), 0), last)
		v := sorted[idx]
		if fractional {
			v += v / 10
		}
		segments = append(segments, v)
		pos += width
	}
	return segments
}

// SegmentPosition returns the index of the first boundary value does not
// exceed, or the last index when it exceeds them all.
func SegmentPosition(value float64, segments []float64) int {
	for i, boundary := range segments {
		if value <= boundary {
			return i
		}
	}
	return max(len(segments)-1, 0)
}
