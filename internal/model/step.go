package model

import "time"

// StepStatus is the outcome of a processing stage.
type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusPartial   StepStatus = "partial"
	StepStatusFailed    StepStatus = "failed"
)

// ProcessingStep is an immutable history entry recorded each time a stage runs.
type ProcessingStep struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	Operation      string         `json:"operation"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	AffectedCurves []string       `json:"affected_curves"`
	Description    string         `json:"description"`
	DurationMs     int64          `json:"duration_ms"`
	Status         StepStatus     `json:"status"`
	Error          string         `json:"error,omitempty"`
	// Uncertainty is the stage's contribution to the uncertainty budget, in percent.
	Uncertainty float64 `json:"uncertainty"`
}
