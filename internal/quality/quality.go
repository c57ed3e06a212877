// Package quality computes QC results and the component metrics used for
// certification.
package quality

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/lasqc/internal/filter"
	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/registry"
	"github.com/sells-group/lasqc/internal/standardize"
	"github.com/sells-group/lasqc/internal/stats"
)

// Overall quality weights.
const (
	CompletenessWeight   = 0.4
	NoiseWeight          = 0.2
	PhysicalWeight       = 0.2
	DepthIntegrityWeight = 0.2
)

// PhysicalPassPercent is the share of in-range samples a curve needs to pass
// physical validation.
const PhysicalPassPercent = 95.0

// Recommendation thresholds.
const (
	lowCompleteness = 95.0
	highNoise       = 5.0
)

// Compute derives the QC results of ds. It does not modify ds.
func Compute(ds *model.Dataset, reg *registry.Registry) model.QCResults {
	qc := model.QCResults{}
	var noiseSum float64
	noiseN := 0

	for _, c := range curves(ds) {
		cs := stats.Compute(c.Values)
		cq := model.CurveQuality{
			Mnemonic:   c.Mnemonic,
			Stats:      cs,
			NoiseLevel: NoiseLevel(c.Values),
		}
		if n := len(c.Values); n > 0 {
			cq.Completeness = float64(cs.ValidCount) / float64(n) * 100
		}
		if rg, ok := reg.Range(c.Mnemonic); ok && cs.ValidCount > 0 {
			in, total := countInRange(c.Values, rg)
			cq.HasPhysicalRange = true
			cq.PhysicalConformance = float64(in) / float64(total) * 100
			if cq.PhysicalConformance >= PhysicalPassPercent {
				qc.PhysicalValidation.Passed++
			} else {
				qc.PhysicalValidation.Failed++
				qc.PhysicalValidation.FailedCurves = append(qc.PhysicalValidation.FailedCurves, c.Mnemonic)
			}
		}
		if cs.ValidCount >= 2 {
			noiseSum += cq.NoiseLevel
			noiseN++
		}

		qc.TotalPoints += len(c.Values)
		qc.NullPoints += cs.NullCount
		qc.SpikesDetected += cs.OutlierCount
		qc.Curves = append(qc.Curves, cq)
	}
	if noiseN > 0 {
		qc.NoiseLevel = noiseSum / float64(noiseN)
	}

	depthScore, violations := DepthIntegrity(ds)
	qc.DepthViolations = violations
	qc.DepthConsistent = len(violations) == 0
	qc.StandardizationCoverage = standardize.Coverage(ds, reg)
	qc.Metrics = Metrics(ds, reg)
	qc.OverallQuality = Overall(qc.Metrics.Completeness, qc.NoiseLevel, qc.Metrics.PhysicalConsistency, depthScore)
	qc.Recommendations = recommend(qc)
	return qc
}

// Overall combines the components:
// 0.4*completeness + 0.2*(100 - min(noise, 100)) + 0.2*physical + 0.2*depth.
func Overall(completeness, noise, physical, depth float64) float64 {
	score := CompletenessWeight*completeness +
		NoiseWeight*(100-math.Min(noise, 100)) +
		PhysicalWeight*physical +
		DepthIntegrityWeight*depth
	return stats.Clamp(score, 0, 100)
}

// NoiseLevel returns first-difference RMS as a percent of signal RMS.
func NoiseLevel(values []float64) float64 {
	rms := filter.RMS(values)
	if rms == 0 {
		return 0
	}
	return filter.DiffRMS(values) / rms * 100
}

func recommend(qc model.QCResults) []string {
	var out []string
	if qc.Metrics.Completeness < lowCompleteness && qc.TotalPoints > 0 {
		out = append(out, fmt.Sprintf("Completeness is %.1f%%: fill data gaps with PCHIP interpolation", qc.Metrics.Completeness))
	}
	if qc.NoiseLevel > highNoise {
		out = append(out, fmt.Sprintf("Noise level is %.1f%%: apply denoising", qc.NoiseLevel))
	}
	if qc.SpikesDetected > 0 {
		out = append(out, fmt.Sprintf("%d spikes detected: apply despiking", qc.SpikesDetected))
	}
	if qc.PhysicalValidation.Failed > 0 {
		out = append(out, "Values outside physical ranges on "+strings.Join(qc.PhysicalValidation.FailedCurves, ", ")+": check tool calibration and units")
	}
	if !qc.DepthConsistent {
		out = append(out, fmt.Sprintf("%d depth step irregularities: resample to a uniform depth step", len(qc.DepthViolations)))
	}
	return out
}
