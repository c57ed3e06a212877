package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/store"
)

// mockRuns implements RunLister for testing.
type mockRuns struct {
	runs    []model.Run
	listErr error
	filter  store.RunFilter
}

func (m *mockRuns) ListRuns(_ context.Context, filter store.RunFilter) ([]model.Run, error) {
	m.filter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	var filtered []model.Run
	for _, r := range m.runs {
		if !filter.CreatedAfter.IsZero() && !r.CreatedAt.After(filter.CreatedAfter) {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

func summary(initial, final float64, ms int64) *model.RunSummary {
	return &model.RunSummary{Success: true, InitialQuality: initial, FinalQuality: final, ExecutionTimeMs: ms}
}

func TestCollector_EmptyStore(t *testing.T) {
	t.Parallel()
	c := NewCollector(&mockRuns{}, 70)

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 0, snap.RunsTotal)
	assert.Equal(t, 0, snap.RunsFailed)
	assert.Equal(t, 0.0, snap.FailRate)
	assert.Equal(t, 0.0, snap.AvgFinalQuality)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollector_RunMetrics(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	st := &mockRuns{
		runs: []model.Run{
			{ID: "1", Status: model.RunStatusComplete, CreatedAt: now.Add(-1 * time.Hour), Summary: summary(60, 80, 100)},
			{ID: "2", Status: model.RunStatusComplete, CreatedAt: now.Add(-2 * time.Hour), Summary: summary(50, 60, 300)},
			{ID: "3", Status: model.RunStatusFailed, CreatedAt: now.Add(-3 * time.Hour), Summary: &model.RunSummary{}},
			{ID: "4", Status: model.RunStatusQueued, CreatedAt: now.Add(-30 * time.Minute)},
			{ID: "5", Status: model.RunStatusRunning, CreatedAt: now.Add(-10 * time.Minute)},
			// Outside lookback window.
			{ID: "6", Status: model.RunStatusFailed, CreatedAt: now.Add(-48 * time.Hour)},
		},
	}

	c := NewCollector(st, 70)
	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 5, snap.RunsTotal)
	assert.Equal(t, 2, snap.RunsComplete)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.Equal(t, 1, snap.RunsQueued)
	assert.Equal(t, 1, snap.RunsRunning)
	assert.InDelta(t, 1.0/3.0, snap.FailRate, 0.001) // 1 failed / 3 finished
	assert.Equal(t, 2, snap.ScoredRuns)
	assert.InDelta(t, 55.0, snap.AvgInitialQuality, 0.001)
	assert.InDelta(t, 70.0, snap.AvgFinalQuality, 0.001)
	assert.InDelta(t, 15.0, snap.AvgQualityGain, 0.001)
	assert.Equal(t, 1, snap.LowQualityRuns)
	assert.Equal(t, int64(200), snap.AvgExecutionMs)
}

func TestCollector_FilterWindow(t *testing.T) {
	t.Parallel()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := &mockRuns{}
	c := NewCollector(st, 70)
	c.now = func() time.Time { return fixed }

	_, err := c.Collect(context.Background(), 6)
	require.NoError(t, err)

	assert.Equal(t, fixed.Add(-6*time.Hour), st.filter.CreatedAfter)
	assert.Equal(t, maxWindowRuns, st.filter.Limit)
}

func TestCollector_ListError(t *testing.T) {
	t.Parallel()
	c := NewCollector(&mockRuns{listErr: errors.New("db down")}, 70)

	_, err := c.Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list runs")
}

func TestCollector_FailureRateZeroFinished(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	st := &mockRuns{
		runs: []model.Run{
			{ID: "1", Status: model.RunStatusQueued, CreatedAt: now.Add(-1 * time.Hour)},
			{ID: "2", Status: model.RunStatusRunning, CreatedAt: now.Add(-2 * time.Hour)},
		},
	}

	c := NewCollector(st, 70)
	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	// No finished runs, so failure rate should be 0.
	assert.Equal(t, 0.0, snap.FailRate)
	assert.Equal(t, 0, snap.ScoredRuns)
}
