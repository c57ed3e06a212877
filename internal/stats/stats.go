// Package stats computes per-curve summary statistics.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/lasqc/internal/filter"
	"github.com/sells-group/lasqc/internal/model"
)

// OutlierThreshold is the modified z-score above which a sample counts as an outlier.
const OutlierThreshold = filter.DefaultZScoreThreshold

// Compute returns the statistics block for one curve's values.
func Compute(values []float64) model.CurveStats {
	valid := filter.Valid(values)
	s := model.CurveStats{
		ValidCount: len(valid),
		NullCount:  len(values) - len(valid),
	}
	if len(valid) > 0 {
		s.Min, s.Max = valid[0], valid[0]
		for _, v := range valid[1:] {
			s.Min = math.Min(s.Min, v)
			s.Max = math.Max(s.Max, v)
		}
		s.Mean = stat.Mean(valid, nil)
		if len(valid) > 1 {
			s.StdDev = stat.StdDev(valid, nil)
		}
		s.OutlierCount = filter.CountOutliers(values, OutlierThreshold)
	}
	s.QualityScore = QualityScore(len(values), s.NullCount, s.OutlierCount)
	return s
}

// QualityScore is 100 - 100*nullFraction - 50*outlierFraction, clamped to
// [0, 100]. An empty curve scores 0.
func QualityScore(total, nulls, outliers int) float64 {
	if total == 0 {
		return 0
	}
	n := float64(total)
	score := 100 - 100*float64(nulls)/n - 50*float64(outliers)/n
	return Clamp(score, 0, 100)
}

// Apply recomputes the statistics of every curve in ds in place.
func Apply(ds *model.Dataset) {
	for i := range ds.Curves {
		ds.Curves[i].Stats = Compute(ds.Curves[i].Values)
	}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
