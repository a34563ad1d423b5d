package mathx

import "sort"

// Point is one knot of a piecewise-linear curve.
type Point struct {
	X, Y int64
}

// Interp evaluates the piecewise-linear curve through pts at x. pts must
// be sorted by ascending X. Inputs outside [pts[0].X, pts[n-1].X] take the
// end values; an exact knot input returns its Y unchanged. An empty slice
// yields 0.
func Interp(x int64, pts []Point) int64 {
	n := len(pts)
	if n == 0 {
		return 0
	}
	if x <= pts[0].X {
		return pts[0].Y
	}
	if x >= pts[n-1].X {
		return pts[n-1].Y
	}
	// First knot with X >= x; 0 < i < n here.
	i := sort.Search(n, func(i int) bool { return pts[i].X >= x })
	hi := pts[i]
	if hi.X == x {
		return hi.Y
	}
	lo := pts[i-1]
	return Lerp(lo.Y, hi.Y, x-lo.X, hi.X-lo.X)
}
