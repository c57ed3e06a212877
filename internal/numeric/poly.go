package numeric

import "github.com/rotisserie/eris"

// Vandermonde builds the len(x) x (order+1) matrix with entries x[i]^j.
func Vandermonde(x []float64, order int) Matrix {
	m := NewMatrix(len(x), order+1)
	for i, xi := range x {
		p := 1.0
		for j := 0; j <= order; j++ {
			m[i][j] = p
			p *= xi
		}
	}
	return m
}

// PolyFit returns the least-squares polynomial coefficients c[0..order]
// (lowest power first) for the points (x[i], y[i]).
func PolyFit(x, y []float64, order int) ([]float64, error) {
	if len(x) != len(y) {
		return nil, eris.Wrapf(ErrDimensionMismatch, "%d x values vs %d y values", len(x), len(y))
	}
	if order < 0 || len(x) < order+1 {
		return nil, eris.Wrapf(ErrUnderdetermined, "%d points for order %d", len(x), order)
	}
	return SolveNormal(Vandermonde(x, order), y)
}

// PolyEval evaluates the polynomial with coefficients c (lowest power first)
// at x using Horner's scheme.
func PolyEval(c []float64, x float64) float64 {
	var v float64
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
