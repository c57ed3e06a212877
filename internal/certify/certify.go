// Package certify grades processed datasets and issues signed quality
// certificates.
package certify

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/uncertainty"
)

// Request carries everything a certificate is derived from.
type Request struct {
	RunID     string
	Filename  string
	Well      string
	Original  model.QualityMetrics
	Processed model.QualityMetrics
	Steps     []model.ProcessingStep
}

// Issuer creates signed certificates.
type Issuer struct {
	calc  *uncertainty.Calculator
	key   []byte
	now   func() time.Time
	newID func() string
}

// NewIssuer creates an Issuer. An empty signingKey selects FNV-1a signatures.
func NewIssuer(calc *uncertainty.Calculator, signingKey string) *Issuer {
	return &Issuer{
		calc:  calc,
		key:   []byte(signingKey),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Key returns the signing key used by the issuer.
func (i *Issuer) Key() []byte { return i.key }

// Issue builds and signs a certificate. Given the same request, clock and ID
// source it always produces the same certificate.
func (i *Issuer) Issue(req Request) (*model.Certificate, error) {
	budget := i.calc.Budget(req.Steps, req.Processed.Completeness)
	cert := &model.Certificate{
		ID:          i.newID(),
		RunID:       req.RunID,
		Filename:    req.Filename,
		Well:        req.Well,
		IssuedAt:    i.now().UTC().Truncate(time.Microsecond),
		Original:    req.Original,
		Processed:   req.Processed,
		Improvement: improvement(req.Original, req.Processed),
		Grade:       GradeFor(req.Processed),
		Confidence:  ConfidenceFor(budget.Total),
		Uncertainty: budget,
		AuditTrail:  append([]model.ProcessingStep(nil), req.Steps...),
	}
	if err := Sign(cert, i.key); err != nil {
		return nil, err
	}

	zap.L().Info("certify: issued certificate",
		zap.String("certificate_id", cert.ID),
		zap.String("filename", cert.Filename),
		zap.String("grade", string(cert.Grade)),
		zap.String("confidence", string(cert.Confidence)),
		zap.Float64("uncertainty", budget.Total),
	)
	return cert, nil
}

func improvement(before, after model.QualityMetrics) model.Improvement {
	return model.Improvement{
		Completeness:        after.Completeness - before.Completeness,
		SNR:                 after.SNR - before.SNR,
		NoiseScore:          after.NoiseScore - before.NoiseScore,
		PhysicalConsistency: after.PhysicalConsistency - before.PhysicalConsistency,
		DepthIntegrity:      after.DepthIntegrity - before.DepthIntegrity,
	}
}
