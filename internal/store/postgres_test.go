package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lasqc/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var runColumns = []string{"id", "file_id", "filename", "status", "summary", "created_at", "updated_at"}

func TestPostgresStore_CreateRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "file-1", "well.las", "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "file-1", "well.las")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.Equal(t, "file-1", run.FileID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	summary, err := json.Marshal(model.RunSummary{Success: true, FinalQuality: 91})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, file_id, filename, status, summary, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("run-1", "file-1", "well.las", "complete", summary, now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 91.0, run.Summary.FinalQuality)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("failed", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusFailed)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET summary`).
		WithArgs(pgxmock.AnyArg(), "complete", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), "run-1", model.RunStatusComplete, &model.RunSummary{Success: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Filters(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`AND status = \$1 AND file_id = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("failed", "file-1", 10, 20).
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("run-1", "file-1", "well.las", "failed", []byte(nil), now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{
		Status: model.RunStatusFailed, FileID: "file-1", Limit: 10, Offset: 20,
	})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].Summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DefaultLimit(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE true ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(DefaultListLimit).
		WillReturnRows(pgxmock.NewRows(runColumns))

	runs, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_CreatedAfter(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`AND created_at > \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs(since, DefaultListLimit).
		WillReturnRows(pgxmock.NewRows(runColumns))

	runs, err := s.ListRuns(context.Background(), RunFilter{CreatedAfter: since})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Steps(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	step := model.ProcessingStep{ID: "step-1", Operation: "despike", Status: model.StepStatusCompleted}
	mock.ExpectExec(`INSERT INTO run_steps`).
		WithArgs("step-1", "run-1", 3, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.AppendStep(ctx, "run-1", 3, step))

	raw, err := json.Marshal(step)
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT step FROM run_steps WHERE run_id = \$1 ORDER BY seq`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"step"}).AddRow(raw))

	steps, err := s.ListSteps(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "despike", steps[0].Operation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Certificates(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	cert := &model.Certificate{ID: "cert-1", Filename: "well.las", Grade: model.GradeA}
	mock.ExpectExec(`INSERT INTO certificates`).
		WithArgs("cert-1", pgxmock.AnyArg(), "well.las", "A", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.SaveCertificate(ctx, cert))

	body, err := json.Marshal(cert)
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT body FROM certificates WHERE id = \$1`).
		WithArgs("cert-1").
		WillReturnRows(pgxmock.NewRows([]string{"body"}).AddRow(body))
	got, err := s.GetCertificate(ctx, "cert-1")
	require.NoError(t, err)
	assert.Equal(t, model.GradeA, got.Grade)

	mock.ExpectQuery(`SELECT body FROM certificates`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err = s.GetCertificate(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
