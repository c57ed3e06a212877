package filter

import (
	"math"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lasqc/internal/numeric"
)

type sgKey struct{ window, order int }

var sgCache sync.Map // sgKey -> []float64

// ValidateWindow checks that window is odd and at least 3.
func ValidateWindow(window int) error {
	if window%2 == 0 {
		return eris.Wrapf(ErrEvenWindow, "window %d", window)
	}
	if window < 3 {
		return eris.Wrapf(ErrWindowTooSmall, "window %d", window)
	}
	return nil
}

// SavGolCoefficients returns the smoothing coefficients for a centered window
// of the given odd size and polynomial order. They are the first row of the
// pseudo-inverse of the window's Vandermonde matrix, and are computed once per
// (window, order) pair.
func SavGolCoefficients(window, order int) ([]float64, error) {
	if err := ValidateWindow(window); err != nil {
		return nil, err
	}
	if order < 0 {
		return nil, eris.Wrapf(ErrNegativeOrder, "order %d", order)
	}
	if order >= window {
		return nil, eris.Wrapf(ErrOrderTooHigh, "order %d, window %d", order, window)
	}

	key := sgKey{window, order}
	if c, ok := sgCache.Load(key); ok {
		return c.([]float64), nil
	}

	half := window / 2
	offsets := make([]float64, window)
	for i := range offsets {
		offsets[i] = float64(i - half)
	}
	pinv, err := numeric.PseudoInverse(numeric.Vandermonde(offsets, order))
	if err != nil {
		return nil, eris.Wrapf(err, "savitzky-golay window %d order %d", window, order)
	}
	coeffs := append([]float64(nil), pinv[0]...)
	sgCache.Store(key, coeffs)
	return coeffs, nil
}

// SavitzkyGolay smooths values with a Savitzky-Golay filter. Taps that fall
// outside the sequence or on null samples are dropped and the remaining
// coefficients renormalized; when they sum to zero the input sample passes
// through unchanged. Null samples stay null.
func SavitzkyGolay(values []float64, window, order int) ([]float64, error) {
	coeffs, err := SavGolCoefficients(window, order)
	if err != nil {
		return nil, err
	}
	return convolve(values, coeffs), nil
}

// convolve applies a centered, renormalized convolution kernel.
func convolve(values, kernel []float64) []float64 {
	half := len(kernel) / 2
	out := make([]float64, len(values))
	for i, v := range values {
		if IsNull(v) {
			out[i] = v
			continue
		}
		var acc, norm float64
		for j, c := range kernel {
			k := i + j - half
			if k < 0 || k >= len(values) || IsNull(values[k]) {
				continue
			}
			acc += values[k] * c
			norm += c
		}
		if math.Abs(norm) < 1e-12 {
			out[i] = v
			continue
		}
		out[i] = acc / norm
	}
	return out
}
