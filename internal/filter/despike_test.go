package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHampel_FlagsSingleSpike(t *testing.T) {
	values := []float64{10, 10, 10, 10, 100, 10, 10, 10, 10}
	res, err := Hampel(values, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, res.Indices)
	assert.Equal(t, 10.0, res.Cleaned[4])
	assert.Equal(t, 100.0, values[4], "input must not be mutated")
}

func TestHampel_NoOpOnCleanData(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 50 + 2*math.Sin(float64(i)/4)
	}
	res, err := Hampel(values, 7, 3)
	require.NoError(t, err)
	assert.Empty(t, res.Indices)
	assert.Equal(t, values, res.Cleaned)
}

func TestHampel_BoundaryNotEvaluated(t *testing.T) {
	values := []float64{500, 10, 10, 10, 10, 10, 10, 10, 10}
	res, err := Hampel(values, 5, 3)
	require.NoError(t, err)
	assert.Empty(t, res.Indices)
	assert.Equal(t, 500.0, res.Cleaned[0])
}

func TestHampel_SkipsNulls(t *testing.T) {
	nan := math.NaN()
	values := []float64{10, 10, nan, 10, 100, 10, 10, 10, 10}
	res, err := Hampel(values, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, res.Indices)
	assert.True(t, math.IsNaN(res.Cleaned[2]))
}

func TestHampel_InvalidParams(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	_, err := Hampel(values, 4, 3)
	assert.ErrorIs(t, err, ErrEvenWindow)
	_, err = Hampel(values, 5, 0)
	assert.ErrorIs(t, err, ErrBadThreshold)
	_, err = Hampel([]float64{1, math.NaN(), 2}, 3, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestModifiedZScore_FlagsSpike(t *testing.T) {
	values := []float64{10, 11, 9, 10, 12, 10, 9, 11, 80, 10}
	res, err := ModifiedZScore(values, DefaultZScoreThreshold)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, res.Indices)
	assert.Equal(t, 10.0, res.Cleaned[8])
}

func TestModifiedZScore_LowSpike(t *testing.T) {
	values := []float64{10, 11, 9, 10, 12, 10, 9, 11, -60, 10}
	res, err := ModifiedZScore(values, DefaultZScoreThreshold)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, res.Indices)
}

func TestModifiedZScore_ZeroMADFallsBackToMeanAD(t *testing.T) {
	values := []float64{10, 10, 10, 10, 100, 10, 10, 10, 10}
	res, err := ModifiedZScore(values, DefaultZScoreThreshold)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, res.Indices)
}

func TestModifiedZScore_ConstantFlagsNothing(t *testing.T) {
	res, err := ModifiedZScore([]float64{3, 3, 3, 3}, DefaultZScoreThreshold)
	require.NoError(t, err)
	assert.Empty(t, res.Indices)
}

func TestIQR_FlagsOutlier(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}
	res, err := IQR(values, DefaultIQRMultiplier)
	require.NoError(t, err)
	assert.Equal(t, []int{9}, res.Indices)
	assert.InDelta(t, 5.5, res.Cleaned[9], 1e-12)
}

func TestManual(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	res, err := Manual(values, []int{3, 3, -1, 99, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, res.Indices)
	assert.Equal(t, 3.0, res.Cleaned[1])
	assert.Equal(t, 3.0, res.Cleaned[3])
}

func TestCountOutliers(t *testing.T) {
	assert.Equal(t, 1, CountOutliers([]float64{10, 11, 9, 10, 12, 10, 9, 11, 80, 10}, DefaultZScoreThreshold))
	assert.Equal(t, 0, CountOutliers([]float64{1, 2}, DefaultZScoreThreshold))
}

func TestReplace(t *testing.T) {
	original := []float64{0, 1, 2, 3, 50, 5, 6, 7}
	res, err := ModifiedZScore(original, DefaultZScoreThreshold)
	require.NoError(t, err)
	require.Equal(t, []int{4}, res.Indices)

	t.Run("median", func(t *testing.T) {
		out, err := Replace(original, res, ReplaceMedian)
		require.NoError(t, err)
		assert.Equal(t, res.Cleaned, out)
	})
	t.Run("linear", func(t *testing.T) {
		out, err := Replace(original, res, ReplaceLinear)
		require.NoError(t, err)
		assert.InDelta(t, 4, out[4], 1e-12)
	})
	t.Run("pchip", func(t *testing.T) {
		out, err := Replace(original, res, ReplacePCHIP)
		require.NoError(t, err)
		assert.InDelta(t, 4, out[4], 1e-9)
	})
	t.Run("null", func(t *testing.T) {
		out, err := Replace(original, res, ReplaceNull)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(out[4]))
		assert.Equal(t, 3.0, out[3])
	})
}

func TestParseReplacement(t *testing.T) {
	r, err := ParseReplacement("")
	require.NoError(t, err)
	assert.Equal(t, ReplaceMedian, r)

	r, err = ParseReplacement("pchip")
	require.NoError(t, err)
	assert.Equal(t, ReplacePCHIP, r)

	_, err = ParseReplacement("spline")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
