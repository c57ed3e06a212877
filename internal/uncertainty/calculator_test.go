package uncertainty

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lasqc/internal/model"
)

func TestDenoise(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())

	tests := []struct {
		name     string
		method   string
		strength float64
		want     float64
	}{
		{"savitzky-golay full", "savitzky_golay", 1, 2.0},
		{"wavelet half", "wavelet", 0.5, 1.5},
		{"moving average clamped", "moving_average", 3, 2.5},
		{"zero strength", "gaussian", 0, 0},
		{"unknown method", "fourier", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Denoise(tt.method, tt.strength), 1e-12)
		})
	}
}

func TestDespikeAndBaseline(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())
	assert.InDelta(t, 1.0, calc.Despike(0), 1e-12)
	assert.InDelta(t, 2.0, calc.Despike(2), 1e-12)
	assert.InDelta(t, 2.0, calc.Baseline(1), 1e-12)
	assert.InDelta(t, 2.5, calc.Baseline(2), 1e-12)
	assert.InDelta(t, 2.0, calc.Baseline(0), 1e-12)
	assert.Equal(t, 0.5, calc.Parse())
	assert.Equal(t, 0.5, calc.Standardize())
}

func TestData(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())
	assert.InDelta(t, 5, calc.Data(80), 1e-12)
	assert.Equal(t, 0.0, calc.Data(100))
	assert.Equal(t, 0.0, NewCalculator(Rates{}).Data(50))
}

func TestBudget_QuadratureSkipsFailedSteps(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())
	steps := []model.ProcessingStep{
		{Operation: "parse", Status: model.StepStatusCompleted, Uncertainty: 0.5},
		{Operation: "initial_qc", Status: model.StepStatusCompleted},
		{Operation: "denoise", Status: model.StepStatusCompleted, Uncertainty: 2},
		{Operation: "baseline_correct", Status: model.StepStatusFailed, Uncertainty: 2.5},
	}
	b := calc.Budget(steps, 96)

	require.Len(t, b.Contributions, 3)
	assert.Equal(t, "data", b.Contributions[2].Operation)
	assert.InDelta(t, math.Sqrt(0.25+4+1), b.Total, 1e-12)
}

func TestCombine(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, Combine(nil))
	assert.InDelta(t, 5, Combine([]model.UncertaintyContribution{{Percent: 3}, {Percent: 4}}), 1e-12)
}
