package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lasqc/internal/config"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	t.Parallel()
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		MinFinalQuality:      60,
	})

	snap := &MetricsSnapshot{
		RunsTotal:       100,
		RunsComplete:    95,
		RunsFailed:      5,
		FailRate:        0.05,
		ScoredRuns:      95,
		AvgFinalQuality: 82,
		AvgQualityGain:  4,
		LookbackHours:   24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	t.Parallel()
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
	})

	snap := &MetricsSnapshot{
		RunsTotal:     20,
		RunsComplete:  12,
		RunsFailed:    8,
		FailRate:      0.4,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
}

func TestAlerter_Evaluate_LowQuality(t *testing.T) {
	t.Parallel()
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		MinFinalQuality:      70,
	})

	snap := &MetricsSnapshot{
		RunsComplete:    10,
		ScoredRuns:      10,
		AvgFinalQuality: 55.5,
		AvgQualityGain:  2,
		LowQualityRuns:  7,
		LookbackHours:   24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLowQuality, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "55.5")
	assert.Contains(t, alerts[0].Message, "7 of 10")
}

func TestAlerter_Evaluate_NegativeGain(t *testing.T) {
	t.Parallel()
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &MetricsSnapshot{
		RunsComplete:    6,
		ScoredRuns:      6,
		AvgFinalQuality: 80,
		AvgQualityGain:  -1.25,
		LookbackHours:   12,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertNoGain, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "1.25 points")
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	t.Parallel()
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		MinFinalQuality:      70,
	})

	snap := &MetricsSnapshot{
		RunsTotal:       20,
		RunsComplete:    10,
		RunsFailed:      10,
		FailRate:        0.5,
		ScoredRuns:      10,
		AvgFinalQuality: 40,
		AvgQualityGain:  -3,
		LookbackHours:   24,
	}

	alerts := a.Evaluate(snap)
	assert.Len(t, alerts, 3)

	types := make(map[AlertType]bool)
	for _, a := range alerts {
		types[a.Type] = true
	}
	assert.True(t, types[AlertFailureRate])
	assert.True(t, types[AlertLowQuality])
	assert.True(t, types[AlertNoGain])
}

func TestAlerter_Evaluate_MinimumRunsRequired(t *testing.T) {
	t.Parallel()
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		MinFinalQuality:      70,
	})

	// Only 3 finished runs, below the 5-run minimum.
	snap := &MetricsSnapshot{
		RunsTotal:       3,
		RunsComplete:    1,
		RunsFailed:      2,
		FailRate:        0.666,
		ScoredRuns:      1,
		AvgFinalQuality: 10,
		AvgQualityGain:  -5,
		LookbackHours:   24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_ZeroQualityThreshold(t *testing.T) {
	t.Parallel()
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 1,
		MinFinalQuality:      0, // disabled
	})

	snap := &MetricsSnapshot{
		ScoredRuns:      50,
		AvgFinalQuality: 5,
		LookbackHours:   24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	t.Parallel()
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		assert.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: ts.URL,
	})

	alerts := []Alert{
		{Type: AlertFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertLowQuality, Severity: "medium", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	t.Parallel()
	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: "",
	})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	t.Parallel()
	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: "http://example.com",
	})

	sent := a.SendAlerts(context.Background(), nil)
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: ts.URL,
	})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}
