package certify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/uncertainty"
)

func metrics(c, n, p, d float64) model.QualityMetrics {
	return model.QualityMetrics{Completeness: c, NoiseScore: n, PhysicalConsistency: p, DepthIntegrity: d}
}

func TestGradeFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		m    model.QualityMetrics
		want model.Grade
	}{
		{"all A", metrics(99, 95, 97, 100), model.GradeA},
		{"exact A thresholds", metrics(98, 90, 95, 95), model.GradeA},
		{"three of four A fails A", metrics(99, 95, 97, 94), model.GradeB},
		{"high average but one weak metric", metrics(100, 100, 100, 70), model.GradeF},
		{"C", metrics(91, 75, 86, 88), model.GradeC},
		{"D", metrics(80, 60, 75, 75), model.GradeD},
		{"F", metrics(79.9, 99, 99, 99), model.GradeF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GradeFor(tt.m))
		})
	}
}

func TestConfidenceFor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, model.ConfidenceHigh, ConfidenceFor(5))
	assert.Equal(t, model.ConfidenceMedium, ConfidenceFor(5.01))
	assert.Equal(t, model.ConfidenceMedium, ConfidenceFor(10))
	assert.Equal(t, model.ConfidenceLow, ConfidenceFor(10.5))
}

func testIssuer(key string) *Issuer {
	iss := NewIssuer(uncertainty.NewCalculator(uncertainty.DefaultRates()), key)
	iss.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	iss.newID = func() string { return "cert-1" }
	return iss
}

func testRequest() Request {
	return Request{
		RunID:     "run-1",
		Filename:  "well.las",
		Well:      "W-1",
		Original:  model.QualityMetrics{Completeness: 96, SNR: 20, NoiseScore: 50, PhysicalConsistency: 97, DepthIntegrity: 100},
		Processed: model.QualityMetrics{Completeness: 99, SNR: 38, NoiseScore: 95, PhysicalConsistency: 98, DepthIntegrity: 100},
		Steps: []model.ProcessingStep{
			{ID: "s1", Operation: "parse", Status: model.StepStatusCompleted, Uncertainty: 0.5, Parameters: map[string]any{"b": 1, "a": "x"}},
			{ID: "s2", Operation: "denoise", Status: model.StepStatusCompleted, Uncertainty: 2},
		},
	}
}

func TestIssue(t *testing.T) {
	t.Parallel()
	cert, err := testIssuer("").Issue(testRequest())
	require.NoError(t, err)

	assert.Equal(t, "cert-1", cert.ID)
	assert.Equal(t, model.GradeA, cert.Grade)
	assert.Equal(t, model.ConfidenceHigh, cert.Confidence)
	assert.InDelta(t, 3, cert.Improvement.Completeness, 1e-12)
	assert.InDelta(t, 45, cert.Improvement.NoiseScore, 1e-12)
	require.Len(t, cert.Uncertainty.Contributions, 3)
	assert.Len(t, cert.AuditTrail, 2)
	assert.Equal(t, AlgorithmFNV, cert.SignatureAlgorithm)
	assert.Len(t, cert.Signature, 16)
	require.NoError(t, Verify(cert, nil))
}

func TestIssue_Deterministic(t *testing.T) {
	t.Parallel()
	a, err := testIssuer("").Issue(testRequest())
	require.NoError(t, err)
	b, err := testIssuer("").Issue(testRequest())
	require.NoError(t, err)
	assert.Equal(t, a.Signature, b.Signature)
}

func TestVerify_DetectsTampering(t *testing.T) {
	t.Parallel()
	cert, err := testIssuer("").Issue(testRequest())
	require.NoError(t, err)

	cert.Grade = model.GradeB
	assert.ErrorIs(t, Verify(cert, nil), ErrSignatureMismatch)

	cert.Grade = model.GradeA
	cert.AuditTrail[1].Description = "edited"
	assert.ErrorIs(t, Verify(cert, nil), ErrSignatureMismatch)
}

func TestVerify_SurvivesJSONRoundTrip(t *testing.T) {
	t.Parallel()
	cert, err := testIssuer("secret").Issue(testRequest())
	require.NoError(t, err)
	assert.Equal(t, AlgorithmHMAC, cert.SignatureAlgorithm)
	assert.Len(t, cert.Signature, 64)

	raw, err := json.Marshal(cert)
	require.NoError(t, err)
	var decoded model.Certificate
	require.NoError(t, json.Unmarshal(raw, &decoded))

	require.NoError(t, Verify(&decoded, []byte("secret")))
	assert.ErrorIs(t, Verify(&decoded, []byte("other")), ErrSignatureMismatch)
	assert.ErrorContains(t, Verify(&decoded, nil), "signing key required")
}

func TestVerify_UnknownAlgorithm(t *testing.T) {
	t.Parallel()
	assert.ErrorContains(t, Verify(&model.Certificate{SignatureAlgorithm: "md5"}, nil), "unknown signature algorithm")
}

func TestCanonical_IgnoresSignature(t *testing.T) {
	t.Parallel()
	cert := &model.Certificate{ID: "x", Signature: "abc"}
	a, err := Canonical(cert)
	require.NoError(t, err)
	cert.Signature = "def"
	b, err := Canonical(cert)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotContains(t, string(a), "abc")
}
