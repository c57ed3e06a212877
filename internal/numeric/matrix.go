package numeric

import (
	"math"

	"github.com/rotisserie/eris"
)

// SingularTolerance is the smallest pivot magnitude Inverse accepts.
const SingularTolerance = 1e-12

// Matrix is a dense row-major matrix stored as a slice of rows.
type Matrix [][]float64

// NewMatrix allocates a zero matrix with the given shape.
func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// Identity returns the n x n identity matrix.
func Identity(n int) Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m[i][i] = 1
	}
	return m
}

// Rows returns the number of rows.
func (m Matrix) Rows() int { return len(m) }

// Cols returns the number of columns of the first row, or 0 for an empty matrix.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// shape validates that m is non-empty and rectangular.
func shape(m Matrix) (int, int, error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return 0, 0, ErrEmpty
	}
	cols := len(m[0])
	for i, row := range m {
		if len(row) != cols {
			return 0, 0, eris.Wrapf(ErrRagged, "row %d has %d columns, want %d", i, len(row), cols)
		}
	}
	return len(m), cols, nil
}

// Transpose returns the transpose of m.
func Transpose(m Matrix) (Matrix, error) {
	r, c, err := shape(m)
	if err != nil {
		return nil, err
	}
	out := NewMatrix(c, r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[j][i] = m[i][j]
		}
	}
	return out, nil
}

// Multiply returns the product a*b.
func Multiply(a, b Matrix) (Matrix, error) {
	ar, ac, err := shape(a)
	if err != nil {
		return nil, err
	}
	br, bc, err := shape(b)
	if err != nil {
		return nil, err
	}
	if ac != br {
		return nil, eris.Wrapf(ErrDimensionMismatch, "%dx%d * %dx%d", ar, ac, br, bc)
	}
	out := NewMatrix(ar, bc)
	for i := 0; i < ar; i++ {
		for k := 0; k < ac; k++ {
			aik := a[i][k]
			if aik == 0 {
				continue
			}
			for j := 0; j < bc; j++ {
				out[i][j] += aik * b[k][j]
			}
		}
	}
	return out, nil
}

// MultiplyVec returns the matrix-vector product a*v.
func MultiplyVec(a Matrix, v []float64) ([]float64, error) {
	ar, ac, err := shape(a)
	if err != nil {
		return nil, err
	}
	if ac != len(v) {
		return nil, eris.Wrapf(ErrDimensionMismatch, "%dx%d * %d", ar, ac, len(v))
	}
	out := make([]float64, ar)
	for i := 0; i < ar; i++ {
		var sum float64
		for j := 0; j < ac; j++ {
			sum += a[i][j] * v[j]
		}
		out[i] = sum
	}
	return out, nil
}

// Inverse computes the inverse of a square matrix by Gauss-Jordan elimination
// with partial pivoting. The input is not modified.
func Inverse(m Matrix) (Matrix, error) {
	r, c, err := shape(m)
	if err != nil {
		return nil, err
	}
	if r != c {
		return nil, eris.Wrapf(ErrNotSquare, "%dx%d", r, c)
	}
	n := r

	// Augmented [m | I].
	aug := NewMatrix(n, 2*n)
	for i := 0; i < n; i++ {
		copy(aug[i], m[i])
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		pivot := col
		best := math.Abs(aug[col][col])
		for i := col + 1; i < n; i++ {
			if v := math.Abs(aug[i][col]); v > best {
				best, pivot = v, i
			}
		}
		if best < SingularTolerance || math.IsNaN(best) {
			return nil, eris.Wrapf(ErrSingular, "pivot %g in column %d", best, col)
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		p := aug[col][col]
		for j := range aug[col] {
			aug[col][j] /= p
		}
		for i := 0; i < n; i++ {
			if i == col {
				continue
			}
			f := aug[i][col]
			if f == 0 {
				continue
			}
			for j := range aug[i] {
				aug[i][j] -= f * aug[col][j]
			}
		}
	}

	out := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		copy(out[i], aug[i][n:])
	}
	return out, nil
}

// PseudoInverse returns (AᵗA)⁻¹Aᵗ, the left pseudo-inverse of a full
// column-rank matrix.
func PseudoInverse(a Matrix) (Matrix, error) {
	at, err := Transpose(a)
	if err != nil {
		return nil, err
	}
	ata, err := Multiply(at, a)
	if err != nil {
		return nil, err
	}
	inv, err := Inverse(ata)
	if err != nil {
		return nil, err
	}
	return Multiply(inv, at)
}

// SolveNormal solves the least-squares problem min |Ax - b| through the
// normal equations (AᵗA)x = Aᵗb.
func SolveNormal(a Matrix, b []float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, eris.Wrapf(ErrDimensionMismatch, "%d rows vs %d targets", len(a), len(b))
	}
	at, err := Transpose(a)
	if err != nil {
		return nil, err
	}
	ata, err := Multiply(at, a)
	if err != nil {
		return nil, err
	}
	atb, err := MultiplyVec(at, b)
	if err != nil {
		return nil, err
	}
	inv, err := Inverse(ata)
	if err != nil {
		return nil, err
	}
	return MultiplyVec(inv, atb)
}
