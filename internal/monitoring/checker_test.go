package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/lasqc/internal/config"
	"github.com/sells-group/lasqc/internal/model"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	cfg := config.MonitoringConfig{
		CheckIntervalSecs:    1,
		LookbackWindowHours:  24,
		FailureRateThreshold: 0.10,
	}
	checker := NewChecker(NewCollector(&mockRuns{}, 70), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	t.Parallel()
	checker := NewChecker(NewCollector(&mockRuns{}, 70), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{
		CheckIntervalSecs: 0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}

func TestChecker_CheckSendsAlerts(t *testing.T) {
	t.Parallel()
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	now := time.Now().UTC()
	var runs []model.Run
	for i := 0; i < 6; i++ {
		runs = append(runs, model.Run{ID: string(rune('a' + i)), Status: model.RunStatusFailed, CreatedAt: now.Add(-time.Minute)})
	}

	cfg := config.MonitoringConfig{
		WebhookURL:           ts.URL,
		LookbackWindowHours:  1,
		FailureRateThreshold: 0.5,
	}
	checker := NewChecker(NewCollector(&mockRuns{runs: runs}, 70), NewAlerter(cfg), cfg)

	alerts := checker.Check(context.Background(), zap.NewNop())
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Equal(t, int32(1), received.Load())
}

func TestChecker_CheckCollectError(t *testing.T) {
	t.Parallel()
	cfg := config.MonitoringConfig{LookbackWindowHours: 1}
	checker := NewChecker(NewCollector(&mockRuns{listErr: errors.New("boom")}, 70), NewAlerter(cfg), cfg)

	assert.Nil(t, checker.Check(context.Background(), zap.NewNop()))
}

func TestChecker_CooldownSuppressesRepeats(t *testing.T) {
	t.Parallel()
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	now := time.Now().UTC()
	var runs []model.Run
	for i := 0; i < 5; i++ {
		runs = append(runs, model.Run{ID: string(rune('a' + i)), Status: model.RunStatusFailed, CreatedAt: now.Add(-time.Minute)})
	}
	cfg := config.MonitoringConfig{
		WebhookURL:           ts.URL,
		LookbackWindowHours:  1,
		FailureRateThreshold: 0.5,
	}
	checker := NewChecker(NewCollector(&mockRuns{runs: runs}, 70), NewAlerter(cfg), cfg)
	clock := now
	checker.now = func() time.Time { return clock }

	require.Len(t, checker.Check(context.Background(), zap.NewNop()), 1)
	assert.Empty(t, checker.Check(context.Background(), zap.NewNop()))

	clock = clock.Add(alertCooldown)
	require.Len(t, checker.Check(context.Background(), zap.NewNop()), 1)
	assert.Equal(t, int32(2), received.Load())
}
