package numeric

import "github.com/rotisserie/eris"

var (
	// ErrEmpty is returned when a matrix or vector has no elements.
	ErrEmpty = eris.New("numeric: empty matrix")

	// ErrRagged is returned when the rows of a matrix differ in length.
	ErrRagged = eris.New("numeric: ragged matrix")

	// ErrDimensionMismatch is returned when operand shapes are incompatible,
	// e.g. Multiply with a.Cols != b.Rows.
	ErrDimensionMismatch = eris.New("numeric: dimension mismatch")

	// ErrNotSquare is returned by Inverse for non-square input.
	ErrNotSquare = eris.New("numeric: matrix is not square")

	// ErrSingular is returned when a pivot magnitude falls below SingularTolerance.
	ErrSingular = eris.New("numeric: singular matrix")

	// ErrUnderdetermined is returned by PolyFit when there are fewer points
	// than coefficients.
	ErrUnderdetermined = eris.New("numeric: not enough points for polynomial order")
)
