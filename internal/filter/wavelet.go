package filter

import (
	"math"

	"github.com/rotisserie/eris"
)

// NextPow2 returns the smallest power of two >= n (1 for n <= 1).
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// HaarForward performs a full orthonormal Haar decomposition of x, whose
// length must be a power of two. The result holds the overall approximation
// at index 0 followed by detail coefficients from coarsest to finest.
func HaarForward(x []float64) ([]float64, error) {
	n := len(x)
	if n == 0 || n&(n-1) != 0 {
		return nil, eris.Wrapf(ErrLengthMismatch, "haar length %d is not a power of two", n)
	}
	out := clone(x)
	tmp := make([]float64, n)
	for length := n; length > 1; length /= 2 {
		half := length / 2
		for k := 0; k < half; k++ {
			a, b := out[2*k], out[2*k+1]
			tmp[k] = (a + b) / math.Sqrt2
			tmp[half+k] = (a - b) / math.Sqrt2
		}
		copy(out[:length], tmp[:length])
	}
	return out, nil
}

// HaarInverse reverses HaarForward.
func HaarInverse(c []float64) ([]float64, error) {
	n := len(c)
	if n == 0 || n&(n-1) != 0 {
		return nil, eris.Wrapf(ErrLengthMismatch, "haar length %d is not a power of two", n)
	}
	out := clone(c)
	tmp := make([]float64, n)
	for length := 2; length <= n; length *= 2 {
		half := length / 2
		for k := 0; k < half; k++ {
			a, d := out[k], out[half+k]
			tmp[2*k] = (a + d) / math.Sqrt2
			tmp[2*k+1] = (a - d) / math.Sqrt2
		}
		copy(out[:length], tmp[:length])
	}
	return out, nil
}

// SoftThreshold shrinks v toward zero by t, returning zero when |v| <= t.
func SoftThreshold(v, t float64) float64 {
	switch {
	case v > t:
		return v - t
	case v < -t:
		return v + t
	default:
		return 0
	}
}

// VisuShrinkThreshold returns σ·√(2·ln N) where σ is the standard deviation
// of the detail coefficients (everything after the approximation at index 0).
func VisuShrinkThreshold(coeffs []float64) float64 {
	n := len(coeffs)
	if n < 2 {
		return 0
	}
	details := coeffs[1:]
	var mean float64
	for _, d := range details {
		mean += d
	}
	mean /= float64(len(details))
	var ss float64
	for _, d := range details {
		ss += (d - mean) * (d - mean)
	}
	sigma := math.Sqrt(ss / float64(len(details)))
	return sigma * math.Sqrt(2*math.Log(float64(n)))
}

// WaveletDenoise applies Haar VisuShrink denoising to the non-null samples of
// values. The valid subsequence is zero-padded to a power of two, transformed,
// soft-thresholded, inverted and truncated; nulls are restored in place.
func WaveletDenoise(values []float64) ([]float64, float64, error) {
	if err := requireValid(values, MinValidPoints); err != nil {
		return nil, 0, err
	}
	idx := ValidIndices(values)
	padded := make([]float64, NextPow2(len(idx)))
	for i, k := range idx {
		padded[i] = values[k]
	}

	coeffs, err := HaarForward(padded)
	if err != nil {
		return nil, 0, err
	}
	t := VisuShrinkThreshold(coeffs)
	for i := 1; i < len(coeffs); i++ {
		coeffs[i] = SoftThreshold(coeffs[i], t)
	}
	recon, err := HaarInverse(coeffs)
	if err != nil {
		return nil, 0, err
	}

	out := clone(values)
	for i, k := range idx {
		out[k] = recon[i]
	}
	return out, t, nil
}
