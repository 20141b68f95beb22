package spline

import (
	"sort"

	"github.com/san-kum/splinempc/internal/dynamo"
)

// FindInterval locates the pair of knot indices bracketing t in the first n
// entries of times. The lookup saturates: queries before the first knot or
// after the last return that boundary index for both bounds, so callers can
// index without further checks. times[0:n] must be non-decreasing.
func FindInterval(times []float64, t float64, n int) (int, int) {
	if n <= 0 {
		return 0, 0
	}

	upper := sort.Search(n, func(i int) bool { return times[i] > t })
	lower := upper - 1

	if lower < 0 {
		return 0, 0
	}
	if upper > n-1 {
		return n - 1, n - 1
	}
	return lower, upper
}

// Hold writes the knot at or before t into out (zero-order hold).
func Hold(out []float64, t float64, times, params []float64, dim, n int) {
	i0, _ := FindInterval(times, t, n)
	copy(out, params[i0*dim:(i0+1)*dim])
}

// Linear writes the piecewise-linear reconstruction at t into out. A
// collapsed bracket degenerates to hold.
func Linear(out []float64, t float64, times, params []float64, dim, n int) {
	i0, i1 := FindInterval(times, t, n)
	if i0 == i1 || times[i1] <= times[i0] {
		copy(out, params[i0*dim:(i0+1)*dim])
		return
	}

	q := (t - times[i0]) / (times[i1] - times[i0])
	p0 := params[i0*dim:]
	p1 := params[i1*dim:]
	for d := 0; d < dim; d++ {
		out[d] = (1-q)*p0[d] + q*p1[d]
	}
}

// Smooth writes a C1-continuous cubic Hermite reconstruction at t into out.
// Knot slopes come from Slope, so interior segments blend the two adjacent
// secants while boundary segments fall back to the linear rule.
func Smooth(out []float64, t float64, times, params []float64, dim, n int) {
	i0, i1 := FindInterval(times, t, n)
	if i0 == i1 || times[i1] <= times[i0] {
		copy(out, params[i0*dim:(i0+1)*dim])
		return
	}

	dt := times[i1] - times[i0]
	q := (t - times[i0]) / dt

	// Hermite basis
	q2 := q * q
	q3 := q2 * q
	a := 2*q3 - 3*q2 + 1
	b := (q3 - 2*q2 + q) * dt
	c := -2*q3 + 3*q2
	e := (q3 - q2) * dt

	p0 := params[i0*dim:]
	p1 := params[i1*dim:]
	for d := 0; d < dim; d++ {
		m0 := Slope(i0, times, params, dim, n, d)
		m1 := Slope(i1, times, params, dim, n, d)
		out[d] = a*p0[d] + b*m0 + c*p1[d] + e*m1
	}
}

// Slope estimates the time derivative of dimension d at knot i by finite
// differences: the mean of the adjacent segment secants for interior knots,
// the single available secant at the ends. With two active knots both
// endpoint slopes equal the segment secant, which makes the Hermite curve
// reproduce linear interpolation exactly.
func Slope(i int, times, params []float64, dim, n, d int) float64 {
	var left, right float64
	var hasLeft, hasRight bool

	if i > 0 && times[i] > times[i-1] {
		left = (params[i*dim+d] - params[(i-1)*dim+d]) / (times[i] - times[i-1])
		hasLeft = true
	}
	if i < n-1 && times[i+1] > times[i] {
		right = (params[(i+1)*dim+d] - params[i*dim+d]) / (times[i+1] - times[i])
		hasRight = true
	}

	switch {
	case hasLeft && hasRight:
		return 0.5 * (left + right)
	case hasLeft:
		return left
	case hasRight:
		return right
	default:
		return 0
	}
}

// Clamp saturates each dimension of buf into its actuator range.
func Clamp(buf []float64, ranges []dynamo.Range, dim int) {
	for d := 0; d < dim; d++ {
		if buf[d] < ranges[d].Lo {
			buf[d] = ranges[d].Lo
		} else if buf[d] > ranges[d].Hi {
			buf[d] = ranges[d].Hi
		}
	}
}
