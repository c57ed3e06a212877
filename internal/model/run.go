package model

import "time"

// RunStatus represents the current state of a processing run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is the persisted record of one pipeline execution over a file.
type Run struct {
	ID        string      `json:"id"`
	FileID    string      `json:"file_id"`
	Filename  string      `json:"filename"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the final outcome of a run.
type RunSummary struct {
	Success          bool     `json:"success"`
	InitialQuality   float64  `json:"initial_quality"`
	FinalQuality     float64  `json:"final_quality"`
	Steps            int      `json:"steps"`
	Warnings         []string `json:"warnings,omitempty"`
	Errors           []string `json:"errors,omitempty"`
	ExecutionTimeMs  int64    `json:"execution_time_ms"`
	MemoryDeltaBytes int64    `json:"memory_delta_bytes"`
}
