// Package processor applies the per-curve filters to a whole dataset. Every
// operation works on a copy of its input: curves that fail keep their
// pre-operation values and the failure is reported in the result instead of
// aborting the other curves.
package processor

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lasqc/internal/filter"
	"github.com/sells-group/lasqc/internal/model"
)

// Outcome is the bookkeeping shared by every operation's result.
type Outcome struct {
	Success  bool           `json:"success"`
	Data     *model.Dataset `json:"data"`
	Affected []string       `json:"affected_curves"`
	Warnings []string       `json:"warnings,omitempty"`
	Errors   []string       `json:"errors,omitempty"`
}

func (o *Outcome) warnf(format string, args ...any) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

func (o *Outcome) errorf(format string, args ...any) {
	o.Errors = append(o.Errors, fmt.Sprintf(format, args...))
}

func (o *Outcome) finish() {
	o.Success = len(o.Errors) == 0
}

// DenoiseCurveMetrics describes the effect of smoothing on one curve.
type DenoiseCurveMetrics struct {
	Mnemonic string `json:"mnemonic"`
	// NoiseReduction is the percent drop in first-difference RMS.
	NoiseReduction float64 `json:"noise_reduction"`
	SNRBefore      float64 `json:"snr_before"`
	SNRAfter       float64 `json:"snr_after"`
	Preserved      int     `json:"preserved_spikes,omitempty"`
}

// DenoiseMetrics aggregates per-curve smoothing metrics.
type DenoiseMetrics struct {
	Curves         []DenoiseCurveMetrics `json:"curves"`
	NoiseReduction float64               `json:"noise_reduction"`
}

// DenoiseResult is returned by Denoise.
type DenoiseResult struct {
	Outcome
	Metrics DenoiseMetrics `json:"metrics"`
}

// Denoise smooths every selected curve with the configured strategy.
func Denoise(ds *model.Dataset, opts DenoiseOptions) DenoiseResult {
	res := DenoiseResult{Outcome: Outcome{Data: ds.Clone()}}
	if err := opts.Validate(); err != nil {
		res.errorf("%s", err)
		res.finish()
		return res
	}
	strategy, _ := filter.Denoiser(opts.Method)
	params := filter.Params{WindowSize: opts.WindowSize, PolynomialOrder: opts.PolynomialOrder}

	var total float64
	for _, c := range selectCurves(res.Data, opts.Curves) {
		before := c.Values
		if err := checkCurve(before); err != nil {
			res.errorf("denoise %s: %s", c.Mnemonic, err)
			continue
		}
		out, err := strategy(before, params)
		if err != nil {
			res.errorf("denoise %s: %s", c.Mnemonic, err)
			continue
		}
		filtered := out.Values

		m := DenoiseCurveMetrics{Mnemonic: c.Mnemonic}
		if opts.PreserveSpikes {
			if spikes, err := filter.ModifiedZScore(before, filter.DefaultZScoreThreshold); err == nil {
				for _, i := range spikes.Indices {
					filtered[i] = before[i]
				}
				m.Preserved = len(spikes.Indices)
			}
		}
		after, err := filter.Blend(before, filtered, opts.Strength)
		if err != nil {
			res.errorf("denoise %s: %s", c.Mnemonic, err)
			continue
		}

		m.NoiseReduction = noiseReduction(before, after)
		m.SNRBefore, _ = filter.SNR(before)
		m.SNRAfter, _ = filter.SNR(after)
		res.Metrics.Curves = append(res.Metrics.Curves, m)
		total += m.NoiseReduction

		c.Values = after
		res.Affected = append(res.Affected, c.Mnemonic)
	}
	if n := len(res.Metrics.Curves); n > 0 {
		res.Metrics.NoiseReduction = total / float64(n)
	}
	res.finish()
	return res
}

// DespikeCurveMetrics describes the spikes handled on one curve.
type DespikeCurveMetrics struct {
	Mnemonic string `json:"mnemonic"`
	Indices  []int  `json:"indices"`
	Removed  int    `json:"removed"`
}

// DespikeResult is returned by Despike.
type DespikeResult struct {
	Outcome
	SpikesDetected int                   `json:"spikes_detected"`
	SpikesRemoved  int                   `json:"spikes_removed"`
	TotalSamples   int                   `json:"total_samples"`
	Curves         []DespikeCurveMetrics `json:"curves"`
}

// ReplacedPercent returns removed spikes as a percent of processed samples.
func (r DespikeResult) ReplacedPercent() float64 {
	if r.TotalSamples == 0 {
		return 0
	}
	return float64(r.SpikesRemoved) / float64(r.TotalSamples) * 100
}

// Despike detects spikes on every selected curve and replaces them with the
// configured replacement method.
func Despike(ds *model.Dataset, opts DespikeOptions) DespikeResult {
	res := DespikeResult{Outcome: Outcome{Data: ds.Clone()}}
	if err := opts.Validate(); err != nil {
		res.errorf("%s", err)
		res.finish()
		return res
	}
	strategy, _ := filter.Despiker(opts.Method)
	replacement, _ := filter.ParseReplacement(string(opts.ReplacementMethod))

	for _, c := range selectCurves(res.Data, opts.Curves) {
		before := c.Values
		if err := checkCurve(before); err != nil {
			res.errorf("despike %s: %s", c.Mnemonic, err)
			continue
		}
		params := filter.Params{
			WindowSize: opts.WindowSize,
			Threshold:  opts.EffectiveThreshold(),
			Indices:    opts.ManualIndices[c.Mnemonic],
		}
		out, err := strategy(before, params)
		if err != nil {
			res.errorf("despike %s: %s", c.Mnemonic, err)
			continue
		}
		res.TotalSamples += len(before)
		if len(out.Flagged) == 0 {
			continue
		}
		after, err := filter.Replace(before, filter.SpikeResult{Cleaned: out.Values, Indices: out.Flagged}, replacement)
		if err != nil {
			res.errorf("despike %s: %s", c.Mnemonic, err)
			continue
		}

		removed := 0
		for _, i := range out.Flagged {
			if changed(before[i], after[i]) {
				removed++
			}
		}
		res.SpikesDetected += len(out.Flagged)
		res.SpikesRemoved += removed
		res.Curves = append(res.Curves, DespikeCurveMetrics{Mnemonic: c.Mnemonic, Indices: out.Flagged, Removed: removed})

		c.Values = after
		res.Affected = append(res.Affected, c.Mnemonic)
	}
	res.finish()
	return res
}

// BaselineCurveMetrics describes the trend removed from one curve.
type BaselineCurveMetrics struct {
	Mnemonic     string    `json:"mnemonic"`
	Coefficients []float64 `json:"coefficients"`
	TrendRange   float64   `json:"trend_range"`
}

// BaselineResult is returned by BaselineCorrection.
type BaselineResult struct {
	Outcome
	Metrics []BaselineCurveMetrics `json:"metrics"`
}

// BaselineCorrection removes a polynomial trend from every selected curve.
// Curves with fewer valid samples than order+1 are skipped with a warning.
func BaselineCorrection(ds *model.Dataset, opts BaselineOptions) BaselineResult {
	res := BaselineResult{Outcome: Outcome{Data: ds.Clone()}}
	if err := opts.Validate(); err != nil {
		res.errorf("%s", err)
		res.finish()
		return res
	}

	for _, c := range selectCurves(res.Data, opts.Curves) {
		if err := checkCurve(c.Values); err != nil {
			res.errorf("baseline %s: %s", c.Mnemonic, err)
			continue
		}
		if n := filter.CountValid(c.Values); n < opts.PolynomialOrder+1 {
			res.warnf("baseline %s: %d valid samples for order %d, skipped", c.Mnemonic, n, opts.PolynomialOrder)
			continue
		}
		fit, err := filter.PolynomialBaseline(c.Values, opts.PolynomialOrder)
		if err != nil {
			res.errorf("baseline %s: %s", c.Mnemonic, err)
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range fit.Trend {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		res.Metrics = append(res.Metrics, BaselineCurveMetrics{
			Mnemonic:     c.Mnemonic,
			Coefficients: fit.Coefficients,
			TrendRange:   hi - lo,
		})
		c.Values = fit.Corrected
		res.Affected = append(res.Affected, c.Mnemonic)
	}
	res.finish()
	return res
}

// FillGapsResult is returned by FillGaps.
type FillGapsResult struct {
	Outcome
	Filled map[string]int `json:"filled"`
	Total  int            `json:"total"`
}

// FillGaps interpolates interior null runs over depth with PCHIP.
func FillGaps(ds *model.Dataset, opts FillGapsOptions) FillGapsResult {
	res := FillGapsResult{Outcome: Outcome{Data: ds.Clone()}, Filled: make(map[string]int)}
	depth := res.Data.Depth
	for _, c := range selectCurves(res.Data, opts.Curves) {
		if c.Values.NullCount() == 0 {
			continue
		}
		out, n, err := filter.FillGaps(depth, c.Values, opts.MaxGap)
		switch {
		case errors.Is(err, filter.ErrInsufficientData):
			res.warnf("fill gaps %s: %s, skipped", c.Mnemonic, err)
			continue
		case err != nil:
			res.errorf("fill gaps %s: %s", c.Mnemonic, err)
			continue
		case n == 0:
			continue
		}
		c.Values = out
		res.Filled[c.Mnemonic] = n
		res.Total += n
		res.Affected = append(res.Affected, c.Mnemonic)
	}
	res.finish()
	return res
}

// selectCurves returns pointers to the curves to process: all non-depth
// curves, or only those named in names.
func selectCurves(ds *model.Dataset, names []string) []*model.Curve {
	var out []*model.Curve
	for i := range ds.Curves {
		c := &ds.Curves[i]
		if c.Category == model.CategoryDepth {
			continue
		}
		if len(names) > 0 && !slices.Contains(names, c.Mnemonic) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func checkCurve(values []float64) error {
	if n := filter.CountValid(values); n < filter.MinValidPoints {
		return eris.Wrapf(filter.ErrInsufficientData, "%d valid points, need %d", n, filter.MinValidPoints)
	}
	return nil
}

func noiseReduction(before, after []float64) float64 {
	b := filter.DiffRMS(before)
	if b == 0 {
		return 0
	}
	return (b - filter.DiffRMS(after)) / b * 100
}

func changed(a, b float64) bool {
	if model.IsNull(a) || model.IsNull(b) {
		return model.IsNull(a) != model.IsNull(b)
	}
	return a != b
}
