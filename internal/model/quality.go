package model

// DepthViolation is a row whose depth step reverses or deviates from the
// nominal step by more than the tolerance.
type DepthViolation struct {
	Index  int     `json:"index"`
	Depth  float64 `json:"depth"`
	Step   float64 `json:"step"`
	Reason string  `json:"reason"`
}

// CurveQuality is the per-curve detail of a QC result.
type CurveQuality struct {
	Mnemonic     string     `json:"mnemonic"`
	Stats        CurveStats `json:"stats"`
	Completeness float64    `json:"completeness"`
	NoiseLevel   float64    `json:"noise_level"`
	// PhysicalConformance is the percent of valid samples inside the curve's
	// physical range; HasPhysicalRange is false when no range is registered.
	PhysicalConformance float64 `json:"physical_conformance"`
	HasPhysicalRange    bool    `json:"has_physical_range"`
}

// PhysicalValidation counts curves passing and failing the range check.
type PhysicalValidation struct {
	Passed       int      `json:"passed"`
	Failed       int      `json:"failed"`
	FailedCurves []string `json:"failed_curves,omitempty"`
}

// QualityMetrics are the certification component scores, each 0-100 except
// SNR (dB) and CorrelationDeviation (0-2).
type QualityMetrics struct {
	Completeness         float64 `json:"completeness"`
	SNR                  float64 `json:"snr_db"`
	NoiseScore           float64 `json:"noise_score"`
	PhysicalConsistency  float64 `json:"physical_consistency"`
	DepthIntegrity       float64 `json:"depth_integrity"`
	CorrelationDeviation float64 `json:"correlation_deviation"`
	CorrelationPairs     int     `json:"correlation_pairs"`
}

// QCResults is the derived quality bundle of a dataset. It is recomputed
// after every pipeline run and never merged with a previous result.
type QCResults struct {
	TotalPoints             int                `json:"total_points"`
	NullPoints              int                `json:"null_points"`
	SpikesDetected          int                `json:"spikes_detected"`
	NoiseLevel              float64            `json:"noise_level"`
	DepthConsistent         bool               `json:"depth_consistent"`
	DepthViolations         []DepthViolation   `json:"depth_violations,omitempty"`
	OverallQuality          float64            `json:"overall_quality"`
	Curves                  []CurveQuality     `json:"curves"`
	StandardizationCoverage float64            `json:"standardization_coverage"`
	PhysicalValidation      PhysicalValidation `json:"physical_validation"`
	Metrics                 QualityMetrics     `json:"metrics"`
	Recommendations         []string           `json:"recommendations,omitempty"`
}
