package quality

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/lasqc/internal/filter"
	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/registry"
	"github.com/sells-group/lasqc/internal/stats"
)

const (
	// DepthStepTolerance is the fractional deviation from the nominal depth
	// step beyond which a row is a depth integrity violation.
	DepthStepTolerance = 0.10
	// MinCorrelationPoints is the fewest paired valid samples for a
	// cross-curve correlation to be evaluated.
	MinCorrelationPoints = 10
	// SNRFullScore is the SNR (dB) that maps to a noise score of 100.
	SNRFullScore = 40.0
)

// Completeness returns valid samples / (rows x curves) x 100.
func Completeness(ds *model.Dataset) float64 {
	total, valid := 0, 0
	for _, c := range curves(ds) {
		total += len(c.Values)
		valid += filter.CountValid(c.Values)
	}
	if total == 0 {
		return 0
	}
	return float64(valid) / float64(total) * 100
}

// SNR returns the mean per-curve signal-to-noise ratio in dB. Curves with
// fewer than filter.MinSNRPoints valid samples are excluded; ok is false when
// no curve qualifies.
func SNR(ds *model.Dataset) (snr float64, ok bool) {
	var sum float64
	n := 0
	for _, c := range curves(ds) {
		if v, ok := filter.SNR(c.Values); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// NoiseScore maps an SNR in dB to 0-100.
func NoiseScore(snr float64) float64 {
	return stats.Clamp(snr/SNRFullScore*100, 0, 100)
}

// PhysicalConsistency returns the percent of valid samples, over all curves
// with a registered range, that fall inside that range. A dataset with no
// ranged samples scores 100.
func PhysicalConsistency(ds *model.Dataset, reg *registry.Registry) float64 {
	in, total := 0, 0
	for _, c := range curves(ds) {
		rg, ok := reg.Range(c.Mnemonic)
		if !ok {
			continue
		}
		i, t := countInRange(c.Values, rg)
		in += i
		total += t
	}
	if total == 0 {
		return 100
	}
	return float64(in) / float64(total) * 100
}

func countInRange(values []float64, rg registry.Range) (in, total int) {
	for _, v := range values {
		if filter.IsNull(v) {
			continue
		}
		total++
		if rg.Contains(v) {
			in++
		}
	}
	return in, total
}

// NominalStep returns the first depth step, falling back to the header step
// when the first step is not positive.
func NominalStep(ds *model.Dataset) float64 {
	if len(ds.Depth) >= 2 {
		if s := ds.Depth[1] - ds.Depth[0]; s > 0 {
			return s
		}
	}
	return math.Abs(ds.Header.Step)
}

// DepthIntegrity returns (1 - violations/(rows-1)) x 100 and the violating
// rows. A row violates when its step from the previous row is missing,
// non-positive, or deviates from the nominal step by more than
// DepthStepTolerance.
func DepthIntegrity(ds *model.Dataset) (float64, []model.DepthViolation) {
	d := ds.Depth
	if len(d) < 2 {
		return 100, nil
	}
	nominal := NominalStep(ds)
	var violations []model.DepthViolation
	for i := 1; i < len(d); i++ {
		step := d[i] - d[i-1]
		var reason string
		switch {
		case math.IsNaN(step):
			reason = "missing depth"
			step = 0
		case step <= 0:
			reason = "depth does not increase"
		case nominal > 0 && math.Abs(step-nominal) > DepthStepTolerance*nominal:
			reason = fmt.Sprintf("step %g deviates from nominal %g", step, nominal)
		default:
			continue
		}
		violations = append(violations, model.DepthViolation{Index: i, Depth: d[i], Step: step, Reason: reason})
	}
	score := (1 - float64(len(violations))/float64(len(d)-1)) * 100
	return score, violations
}

// CorrelationDeviation returns the mean absolute difference between observed
// and expected Pearson correlations over the registered curve pairs present
// in ds, and the number of pairs evaluated.
func CorrelationDeviation(ds *model.Dataset, reg *registry.Registry) (float64, int) {
	var sum float64
	n := 0
	for _, exp := range reg.Correlations() {
		a, b := ds.Curve(exp.A), ds.Curve(exp.B)
		if a == nil || b == nil {
			continue
		}
		var x, y []float64
		for i := range a.Values {
			if i < len(b.Values) && !filter.IsNull(a.Values[i]) && !filter.IsNull(b.Values[i]) {
				x = append(x, a.Values[i])
				y = append(y, b.Values[i])
			}
		}
		if len(x) < MinCorrelationPoints {
			continue
		}
		r := stat.Correlation(x, y, nil)
		if math.IsNaN(r) {
			continue
		}
		sum += math.Abs(r - exp.Expected)
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// Metrics computes the five certification component scores. When no curve is
// long enough for an SNR estimate the noise score is 100, so a short log is
// graded on its other components.
func Metrics(ds *model.Dataset, reg *registry.Registry) model.QualityMetrics {
	snr, ok := SNR(ds)
	noise := 100.0
	if ok {
		noise = NoiseScore(snr)
	}
	depth, _ := DepthIntegrity(ds)
	dev, pairs := CorrelationDeviation(ds, reg)
	return model.QualityMetrics{
		Completeness:         Completeness(ds),
		SNR:                  snr,
		NoiseScore:           noise,
		PhysicalConsistency:  PhysicalConsistency(ds, reg),
		DepthIntegrity:       depth,
		CorrelationDeviation: dev,
		CorrelationPairs:     pairs,
	}
}

// curves returns the measurement curves, skipping any depth-category curve.
func curves(ds *model.Dataset) []model.Curve {
	out := make([]model.Curve, 0, len(ds.Curves))
	for _, c := range ds.Curves {
		if c.Category != model.CategoryDepth {
			out = append(out, c)
		}
	}
	return out
}
