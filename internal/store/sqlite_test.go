package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lasqc/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Runs ---

func TestSQLite_RunLifecycle(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "file-1", "well.las")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NotEmpty(t, run.ID)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning))
	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Nil(t, got.Summary)

	summary := &model.RunSummary{
		Success:        true,
		InitialQuality: 71.5,
		FinalQuality:   88.25,
		Steps:          6,
		Warnings:       []string{"curve X unrecognized"},
	}
	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunStatusComplete, summary))

	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, "file-1", got.FileID)
	assert.Equal(t, "well.las", got.Filename)
	require.NotNil(t, got.Summary)
	assert.Equal(t, summary, got.Summary)
}

func TestSQLite_RunNotFound(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = st.UpdateRunStatus(ctx, "missing", model.RunStatusFailed)
	assert.ErrorIs(t, err, ErrNotFound)

	err = st.CompleteRun(ctx, "missing", model.RunStatusFailed, &model.RunSummary{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListRuns(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "file-a", "a.las")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "file-b", "b.las")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "file-a", "a.las")
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, a.ID, model.RunStatusFailed))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byFile, err := st.ListRuns(ctx, RunFilter{FileID: "file-a"})
	require.NoError(t, err)
	assert.Len(t, byFile, 2)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, a.ID, failed[0].ID)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	recent, err := st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	future, err := st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)
}

// --- Steps ---

func TestSQLite_Steps(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "file-1", "well.las")
	require.NoError(t, err)

	ts := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	steps := []model.ProcessingStep{
		{ID: "s1", Timestamp: ts, Operation: "parse", Status: model.StepStatusCompleted, AffectedCurves: []string{}},
		{ID: "s2", Timestamp: ts, Operation: "denoise", Status: model.StepStatusCompleted,
			AffectedCurves: []string{"GR"}, Parameters: map[string]any{"method": "savitzky_golay"}, Uncertainty: 2},
	}
	// Insert out of order; ListSteps orders by sequence.
	require.NoError(t, st.AppendStep(ctx, run.ID, 1, steps[1]))
	require.NoError(t, st.AppendStep(ctx, run.ID, 0, steps[0]))

	got, err := st.ListSteps(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "parse", got[0].Operation)
	assert.Equal(t, "denoise", got[1].Operation)
	assert.Equal(t, "savitzky_golay", got[1].Parameters["method"])
	assert.Equal(t, 2.0, got[1].Uncertainty)

	assert.Error(t, st.AppendStep(ctx, run.ID, 1, model.ProcessingStep{ID: "s3"}), "duplicate sequence")

	none, err := st.ListSteps(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// --- Certificates ---

func TestSQLite_Certificates(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	cert := &model.Certificate{
		ID:                 "cert-1",
		Filename:           "well.las",
		IssuedAt:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Grade:              model.GradeB,
		Confidence:         model.ConfidenceHigh,
		Processed:          model.QualityMetrics{Completeness: 97},
		SignatureAlgorithm: "fnv1a-64",
		Signature:          "abc",
	}
	require.NoError(t, st.SaveCertificate(ctx, cert))

	got, err := st.GetCertificate(ctx, "cert-1")
	require.NoError(t, err)
	assert.Equal(t, cert.Grade, got.Grade)
	assert.Equal(t, cert.Signature, got.Signature)
	assert.Equal(t, 97.0, got.Processed.Completeness)
	assert.True(t, cert.IssuedAt.Equal(got.IssuedAt))

	_, err = st.GetCertificate(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "open.db"), nil)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	_, err = s.CreateRun(ctx, "f", "f.las")
	require.NoError(t, err)

	_, err = Open(ctx, "mysql", "", nil)
	assert.ErrorContains(t, err, "unknown driver")
}
