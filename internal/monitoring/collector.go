// Package monitoring watches recent processing runs and raises webhook alerts
// when failure rates or output quality cross configured thresholds.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/store"
)

// maxWindowRuns bounds the number of runs read per collection.
const maxWindowRuns = 10000

// MetricsSnapshot holds a point-in-time view of run health.
type MetricsSnapshot struct {
	// Run counts (within lookback window).
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsRunning  int     `json:"runs_running"`
	RunsQueued   int     `json:"runs_queued"`
	FailRate     float64 `json:"fail_rate"`

	// Quality over runs that produced a summary.
	ScoredRuns        int     `json:"scored_runs"`
	AvgInitialQuality float64 `json:"avg_initial_quality"`
	AvgFinalQuality   float64 `json:"avg_final_quality"`
	AvgQualityGain    float64 `json:"avg_quality_gain"`
	LowQualityRuns    int     `json:"low_quality_runs"`
	AvgExecutionMs    int64   `json:"avg_execution_ms"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the subset of store.Store the collector reads from.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers run metrics from the store.
type Collector struct {
	runs       RunLister
	minQuality float64
	now        func() time.Time
}

// NewCollector creates a metrics collector. Runs whose final quality falls
// below minQuality are counted as low quality.
func NewCollector(runs RunLister, minQuality float64) *Collector {
	return &Collector{runs: runs, minQuality: minQuality, now: time.Now}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        maxWindowRuns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var initial, final float64
	var execMs int64

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
		case model.RunStatusQueued:
			snap.RunsQueued++
		}
		if r.Summary == nil || r.Status != model.RunStatusComplete {
			continue
		}
		snap.ScoredRuns++
		initial += r.Summary.InitialQuality
		final += r.Summary.FinalQuality
		execMs += r.Summary.ExecutionTimeMs
		if r.Summary.FinalQuality < c.minQuality {
			snap.LowQualityRuns++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.ScoredRuns > 0 {
		n := float64(snap.ScoredRuns)
		snap.AvgInitialQuality = initial / n
		snap.AvgFinalQuality = final / n
		snap.AvgQualityGain = (final - initial) / n
		snap.AvgExecutionMs = execMs / int64(snap.ScoredRuns)
	}

	return snap, nil
}
