// Package uncertainty estimates the measurement uncertainty each processing
// operation adds, in percent.
package uncertainty

import (
	"math"

	"github.com/sells-group/lasqc/internal/model"
)

// Rates holds the per-operation uncertainty contributions (percent).
type Rates struct {
	Parse       float64 `yaml:"parse" mapstructure:"parse"`
	Standardize float64 `yaml:"standardize" mapstructure:"standardize"`
	// Denoise is the full-strength contribution per denoise method; it scales
	// linearly with the blend strength.
	Denoise           map[string]float64 `yaml:"denoise" mapstructure:"denoise"`
	DespikeBase       float64            `yaml:"despike_base" mapstructure:"despike_base"`
	DespikePerPercent float64            `yaml:"despike_per_percent" mapstructure:"despike_per_percent"`
	BaselineBase      float64            `yaml:"baseline_base" mapstructure:"baseline_base"`
	BaselinePerOrder  float64            `yaml:"baseline_per_order" mapstructure:"baseline_per_order"`
	// DataDivisor scales missing data into uncertainty: (100-completeness)/DataDivisor.
	DataDivisor float64 `yaml:"data_divisor" mapstructure:"data_divisor"`
}

// Calculator computes uncertainty contributions.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Parse returns the contribution of reading the file.
func (c *Calculator) Parse() float64 { return c.rates.Parse }

// Standardize returns the contribution of mnemonic and unit standardization.
func (c *Calculator) Standardize() float64 { return c.rates.Standardize }

// Denoise returns the contribution of smoothing with method at strength.
func (c *Calculator) Denoise(method string, strength float64) float64 {
	base, ok := c.rates.Denoise[method]
	if !ok {
		return 0
	}
	return base * math.Max(0, math.Min(1, strength))
}

// Despike returns the contribution of replacing replacedPercent of the samples.
func (c *Calculator) Despike(replacedPercent float64) float64 {
	return c.rates.DespikeBase + c.rates.DespikePerPercent*math.Max(0, replacedPercent)
}

// Baseline returns the contribution of removing a polynomial trend of order.
func (c *Calculator) Baseline(order int) float64 {
	extra := math.Max(0, float64(order-1))
	return c.rates.BaselineBase + c.rates.BaselinePerOrder*extra
}

// Data returns the contribution of missing samples.
func (c *Calculator) Data(completeness float64) float64 {
	if c.rates.DataDivisor <= 0 {
		return 0
	}
	return math.Max(0, 100-completeness) / c.rates.DataDivisor
}

// Budget collects the recorded contributions of the non-failed steps plus the
// data term for the processed completeness.
func (c *Calculator) Budget(steps []model.ProcessingStep, completeness float64) model.UncertaintyBudget {
	var b model.UncertaintyBudget
	for _, s := range steps {
		if s.Status == model.StepStatusFailed || s.Uncertainty <= 0 {
			continue
		}
		b.Contributions = append(b.Contributions, model.UncertaintyContribution{Operation: s.Operation, Percent: s.Uncertainty})
	}
	if d := c.Data(completeness); d > 0 {
		b.Contributions = append(b.Contributions, model.UncertaintyContribution{Operation: "data", Percent: d})
	}
	b.Total = Combine(b.Contributions)
	return b
}

// Combine adds contributions in quadrature: sqrt(sum u^2).
func Combine(contribs []model.UncertaintyContribution) float64 {
	var sum float64
	for _, u := range contribs {
		sum += u.Percent * u.Percent
	}
	return math.Sqrt(sum)
}

// DefaultRates returns the default uncertainty rates.
func DefaultRates() Rates {
	return Rates{
		Parse:       0.5,
		Standardize: 0.5,
		Denoise: map[string]float64{
			"savitzky_golay": 2.0,
			"gaussian":       2.0,
			"moving_average": 2.5,
			"wavelet":        3.0,
		},
		DespikeBase:       1.0,
		DespikePerPercent: 0.5,
		BaselineBase:      2.0,
		BaselinePerOrder:  0.5,
		DataDivisor:       4,
	}
}
