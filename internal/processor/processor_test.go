package processor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lasqc/internal/filter"
	"github.com/sells-group/lasqc/internal/model"
)

func noisyDataset(n int) *model.Dataset {
	depth := make(model.Samples, n)
	gr := make(model.Samples, n)
	rhob := make(model.Samples, n)
	for i := 0; i < n; i++ {
		depth[i] = 1000 + 0.5*float64(i)
		gr[i] = 60 + 20*math.Sin(float64(i)/15) + 3*math.Pow(-1, float64(i))
		rhob[i] = 2.3 + 0.1*math.Cos(float64(i)/10)
	}
	return &model.Dataset{
		Header: model.Header{Step: 0.5, NullValue: model.DefaultNullValue},
		Depth:  depth,
		Curves: []model.Curve{
			{Mnemonic: "GR", Unit: "API", Category: model.CategoryGammaRay, Values: gr},
			{Mnemonic: "RHOB", Unit: "G/CC", Category: model.CategoryDensity, Values: rhob},
		},
	}
}

func TestDenoise_ZeroStrengthIsIdentity(t *testing.T) {
	t.Parallel()
	ds := noisyDataset(64)
	for _, m := range []filter.DenoiseMethod{filter.SavitzkyGolayMethod, filter.MovingAverageMethod, filter.GaussianMethod, filter.WaveletMethod} {
		opts := DefaultDenoiseOptions()
		opts.Method = m
		opts.Strength = 0
		res := Denoise(ds, opts)
		require.True(t, res.Success, "%s: %v", m, res.Errors)
		for i := range ds.Curves {
			assert.Equal(t, ds.Curves[i].Values, res.Data.Curves[i].Values, "%s %s", m, ds.Curves[i].Mnemonic)
		}
	}
}

func TestDenoise_ReducesNoise(t *testing.T) {
	t.Parallel()
	ds := noisyDataset(100)
	res := Denoise(ds, DefaultDenoiseOptions())

	require.True(t, res.Success, res.Errors)
	assert.Equal(t, []string{"GR", "RHOB"}, res.Affected)
	require.Len(t, res.Metrics.Curves, 2)
	gr := res.Metrics.Curves[0]
	assert.Greater(t, gr.NoiseReduction, 50.0)
	assert.Greater(t, gr.SNRAfter, gr.SNRBefore)
	assert.NotEqual(t, ds.Curves[0].Values[10], res.Data.Curves[0].Values[10])
	assert.Equal(t, 60+20*math.Sin(10.0/15)+3, ds.Curves[0].Values[10], "input is not mutated")
}

func TestDenoise_InvalidOptions(t *testing.T) {
	t.Parallel()
	ds := noisyDataset(20)
	opts := DefaultDenoiseOptions()
	opts.WindowSize = 6
	opts.Strength = 2

	res := Denoise(ds, opts)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "window size must be odd")
	assert.Contains(t, res.Errors[0], "strength 2")
	assert.Equal(t, ds.Curves[0].Values, res.Data.Curves[0].Values)
}

func TestDenoise_InsufficientCurveKeepsValues(t *testing.T) {
	t.Parallel()
	ds := noisyDataset(30)
	sparse := make(model.Samples, 30)
	for i := range sparse {
		sparse[i] = math.NaN()
	}
	sparse[3], sparse[9] = 1, 2
	ds.Curves = append(ds.Curves, model.Curve{Mnemonic: "SP", Values: sparse})

	res := Denoise(ds, DefaultDenoiseOptions())
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "denoise SP")
	assert.Equal(t, []string{"GR", "RHOB"}, res.Affected)
	assert.Equal(t, 1.0, res.Data.Curve("SP").Values[3])
}

func TestDenoise_PreserveSpikes(t *testing.T) {
	t.Parallel()
	ds := noisyDataset(60)
	ds.Curves[0].Values[30] = 900

	opts := DefaultDenoiseOptions()
	opts.PreserveSpikes = true
	res := Denoise(ds, opts)
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, 900.0, res.Data.Curves[0].Values[30])
	assert.Equal(t, 1, res.Metrics.Curves[0].Preserved)
}

func TestDenoise_SelectedCurvesOnly(t *testing.T) {
	t.Parallel()
	ds := noisyDataset(40)
	opts := DefaultDenoiseOptions()
	opts.Curves = []string{"RHOB"}
	res := Denoise(ds, opts)
	require.True(t, res.Success)
	assert.Equal(t, []string{"RHOB"}, res.Affected)
	assert.Equal(t, ds.Curves[0].Values, res.Data.Curves[0].Values)
}

func spikeDataset() *model.Dataset {
	return &model.Dataset{
		Depth: model.Samples{1, 2, 3, 4, 5, 6, 7, 8, 9},
		Curves: []model.Curve{
			{Mnemonic: "GR", Values: model.Samples{10, 10, 10, 10, 100, 10, 10, 10, 10}},
		},
	}
}

func TestDespike_Hampel(t *testing.T) {
	t.Parallel()
	opts := DefaultDespikeOptions()
	opts.WindowSize = 5
	res := Despike(spikeDataset(), opts)

	require.True(t, res.Success, res.Errors)
	assert.Equal(t, 1, res.SpikesDetected)
	assert.Equal(t, 1, res.SpikesRemoved)
	assert.Equal(t, 10.0, res.Data.Curves[0].Values[4])
	assert.Equal(t, []DespikeCurveMetrics{{Mnemonic: "GR", Indices: []int{4}, Removed: 1}}, res.Curves)
	assert.InDelta(t, 100.0/9, res.ReplacedPercent(), 1e-9)
}

func TestDespike_ReplacementMethods(t *testing.T) {
	t.Parallel()
	opts := DefaultDespikeOptions()
	opts.WindowSize = 5

	opts.ReplacementMethod = filter.ReplaceNull
	res := Despike(spikeDataset(), opts)
	require.True(t, res.Success)
	assert.True(t, math.IsNaN(res.Data.Curves[0].Values[4]))
	assert.Equal(t, 1, res.SpikesRemoved)

	opts.ReplacementMethod = filter.ReplaceLinear
	res = Despike(spikeDataset(), opts)
	require.True(t, res.Success)
	assert.InDelta(t, 10, res.Data.Curves[0].Values[4], 1e-12)
}

func TestDespike_ManualAndDefaults(t *testing.T) {
	t.Parallel()
	opts := DespikeOptions{
		Method:        filter.ManualMethod,
		ManualIndices: map[string][]int{"GR": {0, 4}},
	}
	res := Despike(spikeDataset(), opts)
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, 2, res.SpikesDetected)
	assert.Equal(t, 1, res.SpikesRemoved, "index 0 already equals the median")

	assert.Equal(t, filter.DefaultZScoreThreshold, DespikeOptions{Method: filter.ModifiedZScoreMethod}.EffectiveThreshold())
	assert.Equal(t, filter.DefaultIQRMultiplier, DespikeOptions{Method: filter.IQRMethod}.EffectiveThreshold())
}

func TestDespike_InvalidOptions(t *testing.T) {
	t.Parallel()
	res := Despike(spikeDataset(), DespikeOptions{Method: "dbscan", Threshold: -1, ReplacementMethod: "spline"})
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "unknown method")
	assert.Contains(t, res.Errors[0], "threshold must be positive")
}

func TestBaselineCorrection(t *testing.T) {
	t.Parallel()
	n := 40
	ds := &model.Dataset{Depth: make(model.Samples, n)}
	trend := make(model.Samples, n)
	for i := 0; i < n; i++ {
		ds.Depth[i] = float64(i)
		trend[i] = 5 + 0.25*float64(i)
	}
	short := make(model.Samples, n)
	for i := range short {
		short[i] = math.NaN()
	}
	short[0], short[1], short[2] = 1, 2, 3
	ds.Curves = []model.Curve{
		{Mnemonic: "DT", Values: trend},
		{Mnemonic: "SP", Values: short},
	}

	res := BaselineCorrection(ds, BaselineOptions{Method: BaselinePolynomial, PolynomialOrder: 3})
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, []string{"DT"}, res.Affected)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "baseline SP")
	for _, v := range res.Data.Curves[0].Values {
		assert.InDelta(t, 0, v, 1e-8)
	}
	require.Len(t, res.Metrics, 1)
	assert.InDelta(t, 0.25*39, res.Metrics[0].TrendRange, 1e-8)
}

func TestBaselineCorrection_InvalidOptions(t *testing.T) {
	t.Parallel()
	res := BaselineCorrection(noisyDataset(10), BaselineOptions{Method: "spline", PolynomialOrder: 9})
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors[0], "spline")
	assert.Contains(t, res.Errors[0], "polynomial order 9")
}

func TestFillGaps(t *testing.T) {
	t.Parallel()
	nan := math.NaN()
	ds := &model.Dataset{
		Depth: model.Samples{0, 1, 2, 3, 4, 5},
		Curves: []model.Curve{
			{Mnemonic: "GR", Values: model.Samples{0, 1, nan, 3, 4, nan}},
			{Mnemonic: "SP", Values: model.Samples{nan, nan, 1, nan, nan, nan}},
			{Mnemonic: "CALI", Values: model.Samples{8, 8, 8, 8, 8, 8}},
		},
	}
	res := FillGaps(ds, FillGapsOptions{})
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, map[string]int{"GR": 1}, res.Filled)
	assert.Equal(t, 1, res.Total)
	assert.InDelta(t, 2, res.Data.Curves[0].Values[2], 1e-9)
	assert.True(t, math.IsNaN(res.Data.Curves[0].Values[5]))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "fill gaps SP")
}
