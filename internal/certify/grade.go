package certify

import "github.com/sells-group/lasqc/internal/model"

// Thresholds are the minimum component scores for a grade. All four must be
// met at once; the scores are never averaged.
type Thresholds struct {
	Completeness   float64 `json:"completeness"`
	NoiseScore     float64 `json:"noise_score"`
	Physical       float64 `json:"physical"`
	DepthIntegrity float64 `json:"depth_integrity"`
}

// Met reports whether m meets every threshold.
func (t Thresholds) Met(m model.QualityMetrics) bool {
	return m.Completeness >= t.Completeness &&
		m.NoiseScore >= t.NoiseScore &&
		m.PhysicalConsistency >= t.Physical &&
		m.DepthIntegrity >= t.DepthIntegrity
}

// Step is one rung of the grade ladder.
type Step struct {
	Grade      model.Grade
	Thresholds Thresholds
}

// Ladder is ordered from the best grade down; anything below the last rung is F.
var Ladder = []Step{
	{model.GradeA, Thresholds{Completeness: 98, NoiseScore: 90, Physical: 95, DepthIntegrity: 95}},
	{model.GradeB, Thresholds{Completeness: 95, NoiseScore: 80, Physical: 90, DepthIntegrity: 90}},
	{model.GradeC, Thresholds{Completeness: 90, NoiseScore: 70, Physical: 85, DepthIntegrity: 85}},
	{model.GradeD, Thresholds{Completeness: 80, NoiseScore: 60, Physical: 75, DepthIntegrity: 75}},
}

// GradeFor returns the best grade whose thresholds m meets jointly.
func GradeFor(m model.QualityMetrics) model.Grade {
	for _, s := range Ladder {
		if s.Thresholds.Met(m) {
			return s.Grade
		}
	}
	return model.GradeF
}

// Confidence cut-offs on the combined uncertainty, in percent.
const (
	HighConfidenceMax   = 5.0
	MediumConfidenceMax = 10.0
)

// ConfidenceFor maps a combined uncertainty to a confidence level.
func ConfidenceFor(total float64) model.Confidence {
	switch {
	case total <= HighConfidenceMax:
		return model.ConfidenceHigh
	case total <= MediumConfidenceMax:
		return model.ConfidenceMedium
	}
	return model.ConfidenceLow
}
