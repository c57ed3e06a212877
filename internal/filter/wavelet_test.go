package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPow2(t *testing.T) {
	assert.Equal(t, 1, NextPow2(0))
	assert.Equal(t, 1, NextPow2(1))
	assert.Equal(t, 8, NextPow2(5))
	assert.Equal(t, 8, NextPow2(8))
	assert.Equal(t, 16, NextPow2(9))
}

func TestHaar_RoundTrip(t *testing.T) {
	values := []float64{3.2, -1, 4.5, 0, 7.7, 2.1, -5.5}
	padded := make([]float64, NextPow2(len(values)))
	copy(padded, values)

	coeffs, err := HaarForward(padded)
	require.NoError(t, err)
	back, err := HaarInverse(coeffs)
	require.NoError(t, err)

	require.Len(t, back, len(padded))
	for i := range padded {
		assert.InDelta(t, padded[i], back[i], 1e-12, "index %d", i)
	}
}

func TestHaarForward_ConstantHasNoDetail(t *testing.T) {
	coeffs, err := HaarForward([]float64{5, 5, 5, 5})
	require.NoError(t, err)
	assert.InDelta(t, 10, coeffs[0], 1e-12)
	for _, d := range coeffs[1:] {
		assert.InDelta(t, 0, d, 1e-12)
	}
}

func TestHaarForward_RejectsNonPow2(t *testing.T) {
	_, err := HaarForward([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestSoftThreshold(t *testing.T) {
	assert.Equal(t, 2.0, SoftThreshold(5, 3))
	assert.Equal(t, -2.0, SoftThreshold(-5, 3))
	assert.Equal(t, 0.0, SoftThreshold(2, 3))
	assert.Equal(t, 0.0, SoftThreshold(-3, 3))
}

func TestWaveletDenoise_RestoresNullsAndLength(t *testing.T) {
	nan := math.NaN()
	values := []float64{1, 1.2, nan, 0.9, 1.1, 1.05, nan, 0.95, 1.0}
	out, threshold, err := WaveletDenoise(values)
	require.NoError(t, err)
	require.Len(t, out, len(values))
	assert.True(t, math.IsNaN(out[2]))
	assert.True(t, math.IsNaN(out[6]))
	assert.GreaterOrEqual(t, threshold, 0.0)
}

func TestWaveletDenoise_ReducesNoise(t *testing.T) {
	values := make([]float64, 64)
	for i := range values {
		noise := 0.3
		if i%2 == 1 {
			noise = -0.3
		}
		values[i] = 10 + noise
	}
	out, _, err := WaveletDenoise(values)
	require.NoError(t, err)
	assert.Less(t, DiffRMS(out), DiffRMS(values))
}

func TestWaveletDenoise_InsufficientData(t *testing.T) {
	_, _, err := WaveletDenoise([]float64{1, math.NaN()})
	assert.ErrorIs(t, err, ErrInsufficientData)
}
