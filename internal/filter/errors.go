package filter

import "github.com/rotisserie/eris"

var (
	// ErrEvenWindow is returned when a window size is not odd.
	ErrEvenWindow = eris.New("window size must be odd")

	// ErrWindowTooSmall is returned when a window size is below 3.
	ErrWindowTooSmall = eris.New("window size must be at least 3")

	// ErrOrderTooHigh is returned when the polynomial order is not below the window size.
	ErrOrderTooHigh = eris.New("polynomial order must be less than window size")

	// ErrNegativeOrder is returned for polynomial orders below zero.
	ErrNegativeOrder = eris.New("polynomial order must not be negative")

	// ErrBadThreshold is returned when a detector threshold is not positive.
	ErrBadThreshold = eris.New("threshold must be positive")

	// ErrInsufficientData is returned when a curve has too few valid samples.
	ErrInsufficientData = eris.New("insufficient valid data points")

	// ErrNotIncreasing is returned when interpolation knots are not strictly increasing.
	ErrNotIncreasing = eris.New("x values must be strictly increasing")

	// ErrLengthMismatch is returned when paired slices differ in length.
	ErrLengthMismatch = eris.New("length mismatch")

	// ErrUnknownMethod is returned by the strategy lookups.
	ErrUnknownMethod = eris.New("unknown method")
)
