package model

import "time"

// Grade is the certification letter grade.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Confidence is derived from the combined uncertainty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// UncertaintyContribution is one operation's share of the uncertainty budget.
type UncertaintyContribution struct {
	Operation string  `json:"operation"`
	Percent   float64 `json:"percent"`
}

// UncertaintyBudget combines per-operation contributions in quadrature.
type UncertaintyBudget struct {
	Total         float64                   `json:"total"`
	Contributions []UncertaintyContribution `json:"contributions"`
}

// Improvement holds processed-minus-original component deltas.
type Improvement struct {
	Completeness        float64 `json:"completeness"`
	SNR                 float64 `json:"snr_db"`
	NoiseScore          float64 `json:"noise_score"`
	PhysicalConsistency float64 `json:"physical_consistency"`
	DepthIntegrity      float64 `json:"depth_integrity"`
}

// Certificate is an immutable signed quality statement for one processing run.
type Certificate struct {
	ID                 string            `json:"id"`
	RunID              string            `json:"run_id,omitempty"`
	Filename           string            `json:"filename"`
	Well               string            `json:"well,omitempty"`
	IssuedAt           time.Time         `json:"issued_at"`
	Original           QualityMetrics    `json:"original"`
	Processed          QualityMetrics    `json:"processed"`
	Improvement        Improvement       `json:"improvement"`
	Grade              Grade             `json:"grade"`
	Confidence         Confidence        `json:"confidence"`
	Uncertainty        UncertaintyBudget `json:"uncertainty"`
	AuditTrail         []ProcessingStep  `json:"audit_trail"`
	SignatureAlgorithm string            `json:"signature_algorithm"`
	Signature          string            `json:"signature"`
}
