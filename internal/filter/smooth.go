package filter

import (
	"math"

	"github.com/rotisserie/eris"
)

// MovingAverage replaces each sample with the mean of the valid samples in a
// centered window.
func MovingAverage(values []float64, window int) ([]float64, error) {
	if err := ValidateWindow(window); err != nil {
		return nil, err
	}
	kernel := make([]float64, window)
	for i := range kernel {
		kernel[i] = 1
	}
	return convolve(values, kernel), nil
}

// GaussianKernel returns an unnormalized Gaussian kernel of the given odd
// width with sigma = window/6.
func GaussianKernel(window int) []float64 {
	sigma := float64(window) / 6
	half := window / 2
	kernel := make([]float64, window)
	for i := range kernel {
		x := float64(i - half)
		kernel[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
	}
	return kernel
}

// Gaussian smooths values with a truncated Gaussian kernel.
func Gaussian(values []float64, window int) ([]float64, error) {
	if err := ValidateWindow(window); err != nil {
		return nil, err
	}
	return convolve(values, GaussianKernel(window)), nil
}

// Blend mixes filtered into original: out = s*filtered + (1-s)*original.
// s = 0 returns a copy of original; null samples in either input stay null.
func Blend(original, filtered []float64, strength float64) ([]float64, error) {
	if len(original) != len(filtered) {
		return nil, eris.Wrapf(ErrLengthMismatch, "blend %d vs %d", len(original), len(filtered))
	}
	if strength <= 0 {
		return clone(original), nil
	}
	if strength >= 1 {
		return clone(filtered), nil
	}
	out := make([]float64, len(original))
	for i, o := range original {
		f := filtered[i]
		if IsNull(o) || IsNull(f) {
			out[i] = o
			continue
		}
		out[i] = strength*f + (1-strength)*o
	}
	return out, nil
}
