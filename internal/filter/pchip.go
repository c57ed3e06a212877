package filter

import (
	"math"

	"github.com/rotisserie/eris"
)

// PCHIPSlopes returns the Fritsch-Carlson derivatives at each knot. Interior
// slopes are zero at local extrema and a weighted harmonic mean of the
// neighbouring secants elsewhere; end slopes use the shape-preserving
// three-point formula.
func PCHIPSlopes(x, y []float64) []float64 {
	n := len(x)
	d := make([]float64, n)
	if n < 2 {
		return d
	}
	h := make([]float64, n-1)
	delta := make([]float64, n-1)
	for k := 0; k < n-1; k++ {
		h[k] = x[k+1] - x[k]
		delta[k] = (y[k+1] - y[k]) / h[k]
	}
	if n == 2 {
		d[0], d[1] = delta[0], delta[0]
		return d
	}

	for k := 1; k < n-1; k++ {
		if delta[k-1]*delta[k] <= 0 {
			continue
		}
		w1 := 2*h[k] + h[k-1]
		w2 := h[k] + 2*h[k-1]
		d[k] = (w1 + w2) / (w1/delta[k-1] + w2/delta[k])
	}
	d[0] = endSlope(h[0], h[1], delta[0], delta[1])
	d[n-1] = endSlope(h[n-2], h[n-3], delta[n-2], delta[n-3])
	return d
}

func endSlope(h0, h1, del0, del1 float64) float64 {
	d := ((2*h0+h1)*del0 - h0*del1) / (h0 + h1)
	switch {
	case math.Signbit(d) != math.Signbit(del0) || d == 0 || del0 == 0:
		return 0
	case math.Signbit(del0) != math.Signbit(del1) && math.Abs(d) > 3*math.Abs(del0):
		return 3 * del0
	}
	return d
}

// PCHIP evaluates the piecewise cubic Hermite interpolant through (x, y) at
// each point of xi. x must be strictly increasing. Query points beyond the
// last knot return the last y; points before the first knot return the first y.
func PCHIP(x, y, xi []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, eris.Wrapf(ErrLengthMismatch, "pchip %d x vs %d y", len(x), len(y))
	}
	if len(x) == 0 {
		return nil, eris.Wrap(ErrInsufficientData, "pchip: no knots")
	}
	for k := 1; k < len(x); k++ {
		if !(x[k] > x[k-1]) {
			return nil, eris.Wrapf(ErrNotIncreasing, "pchip knot %d", k)
		}
	}

	d := PCHIPSlopes(x, y)
	n := len(x)
	out := make([]float64, len(xi))
	for i, q := range xi {
		switch {
		case math.IsNaN(q):
			out[i] = math.NaN()
			continue
		case q >= x[n-1]:
			out[i] = y[n-1]
			continue
		case q <= x[0]:
			out[i] = y[0]
			continue
		}
		k := 0
		for k < n-2 && q > x[k+1] {
			k++
		}
		h := x[k+1] - x[k]
		t := (q - x[k]) / h
		t2, t3 := t*t, t*t*t
		h00 := 2*t3 - 3*t2 + 1
		h10 := t3 - 2*t2 + t
		h01 := -2*t3 + 3*t2
		h11 := t3 - t2
		out[i] = h00*y[k] + h10*h*d[k] + h01*y[k+1] + h11*h*d[k+1]
	}
	return out, nil
}

// Linear evaluates piecewise-linear interpolation with the same clamping
// rules as PCHIP.
func Linear(x, y, xi []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, eris.Wrapf(ErrLengthMismatch, "linear %d x vs %d y", len(x), len(y))
	}
	if len(x) == 0 {
		return nil, eris.Wrap(ErrInsufficientData, "linear: no knots")
	}
	n := len(x)
	out := make([]float64, len(xi))
	for i, q := range xi {
		switch {
		case math.IsNaN(q):
			out[i] = math.NaN()
			continue
		case q >= x[n-1]:
			out[i] = y[n-1]
			continue
		case q <= x[0]:
			out[i] = y[0]
			continue
		}
		k := 0
		for k < n-2 && q > x[k+1] {
			k++
		}
		t := (q - x[k]) / (x[k+1] - x[k])
		out[i] = y[k] + t*(y[k+1]-y[k])
	}
	return out, nil
}

// FillGaps fills interior runs of null samples no longer than maxGap
// (maxGap <= 0 means any length) by PCHIP interpolation over depth. Leading
// and trailing nulls are left alone. It returns the filled sequence and the
// number of samples filled.
func FillGaps(depth, values []float64, maxGap int) ([]float64, int, error) {
	if len(depth) != len(values) {
		return nil, 0, eris.Wrapf(ErrLengthMismatch, "fill gaps %d depths vs %d values", len(depth), len(values))
	}
	var kx, ky []float64
	for i, v := range values {
		if !IsNull(v) && !math.IsNaN(depth[i]) {
			kx = append(kx, depth[i])
			ky = append(ky, v)
		}
	}
	if len(kx) < 2 {
		return nil, 0, eris.Wrapf(ErrInsufficientData, "fill gaps: %d knots", len(kx))
	}

	var targets []int
	for i := 0; i < len(values); {
		if !IsNull(values[i]) {
			i++
			continue
		}
		start := i
		for i < len(values) && IsNull(values[i]) {
			i++
		}
		interior := start > 0 && i < len(values)
		if interior && (maxGap <= 0 || i-start <= maxGap) {
			for k := start; k < i; k++ {
				targets = append(targets, k)
			}
		}
	}

	out := clone(values)
	if len(targets) == 0 {
		return out, 0, nil
	}
	xi := make([]float64, len(targets))
	for j, k := range targets {
		xi[j] = depth[k]
	}
	yi, err := PCHIP(kx, ky, xi)
	if err != nil {
		return nil, 0, err
	}
	for j, k := range targets {
		out[k] = yi[j]
	}
	return out, len(targets), nil
}
