package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lasqc/internal/certify"
	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/processor"
	"github.com/sells-group/lasqc/internal/quality"
	"github.com/sells-group/lasqc/internal/resilience"
	"github.com/sells-group/lasqc/internal/stats"
)

// ErrNoOperation is returned by Apply when the operation selects nothing.
var ErrNoOperation = eris.New("pipeline: no operation selected")

// Operation selects exactly one processing step to apply on its own.
type Operation struct {
	Denoise  *processor.DenoiseOptions
	Despike  *processor.DespikeOptions
	Baseline *processor.BaselineOptions
	FillGaps *processor.FillGapsOptions
}

func (op Operation) count() int {
	n := 0
	for _, set := range []bool{op.Denoise != nil, op.Despike != nil, op.Baseline != nil, op.FillGaps != nil} {
		if set {
			n++
		}
	}
	return n
}

// Apply runs a single operation on top of the file's current processed
// snapshot. The step is appended to the history and the file's QC is
// recomputed. InitialQC and FinalQC on the result are the QC before and
// after the step.
func (p *Pipeline) Apply(ctx context.Context, f *model.File, op Operation) (*Result, error) {
	if op.count() != 1 {
		return nil, eris.Wrapf(ErrNoOperation, "%d operations set", op.count())
	}

	unlock := p.locks.Lock(f.ID)
	defer unlock()

	r := p.begin(ctx, f.ID, f.Filename)

	cur := f.Processed
	stats.Apply(cur)
	before := quality.Compute(cur, p.reg)
	r.res.InitialQC = &before

	switch {
	case op.Denoise != nil:
		cur = p.denoise(ctx, r, cur, *op.Denoise)
	case op.Despike != nil:
		cur = p.despike(ctx, r, cur, *op.Despike)
	case op.Baseline != nil:
		cur = p.baseline(ctx, r, cur, *op.Baseline)
	case op.FillGaps != nil:
		cur = p.fillGaps(ctx, r, cur, *op.FillGaps)
	}

	stats.Apply(cur)
	after := quality.Compute(cur, p.reg)
	r.res.FinalQC = &after

	f.Processed = cur
	f.QC = &after
	f.History = append(f.History, r.steps...)
	r.res.File = f
	return p.finish(ctx, r), nil
}

// Quality recomputes the QC of the file's processed snapshot without
// recording a step.
func (p *Pipeline) Quality(f *model.File) model.QCResults {
	unlock := p.locks.Lock(f.ID)
	defer unlock()

	stats.Apply(f.Processed)
	qc := quality.Compute(f.Processed, p.reg)
	f.QC = &qc
	return qc
}

// CertifyRequest builds a certification input comparing the file's original
// and processed snapshots over its full history.
func (p *Pipeline) CertifyRequest(f *model.File) certify.Request {
	unlock := p.locks.Lock(f.ID)
	defer unlock()

	return certify.Request{
		Filename:  f.Filename,
		Well:      f.Original.Header.Well,
		Original:  quality.Metrics(f.Original, p.reg),
		Processed: quality.Metrics(f.Processed, p.reg),
		Steps:     append([]model.ProcessingStep(nil), f.History...),
	}
}

// Reset discards all processing on the file.
func (p *Pipeline) Reset(f *model.File) {
	unlock := p.locks.Lock(f.ID)
	defer unlock()
	f.Reset()
}

// Parse validates and parses raw content into a new file without running
// any processing stage. Errors wrap ErrEmptyInput, ErrFileTooLarge or
// ErrUnparseable.
func (p *Pipeline) Parse(ctx context.Context, in Input) (*model.File, []string, error) {
	switch {
	case len(in.Content) == 0:
		return nil, nil, ErrEmptyInput
	case p.cfg.MaxFileSize > 0 && int64(len(in.Content)) > p.cfg.MaxFileSize:
		return nil, nil, eris.Wrapf(ErrFileTooLarge, "%d bytes > %d", len(in.Content), p.cfg.MaxFileSize)
	}
	if in.FileID == "" {
		in.FileID = p.newID()
	}

	var warnings []string
	ds, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*model.Dataset, error) {
		d, w, perr := p.parser.Parse(ctx, in.Content)
		warnings = w
		return d, perr
	})
	if err != nil {
		return nil, warnings, eris.Wrap(ErrUnparseable, err.Error())
	}

	f := model.NewFile(in.FileID, in.Filename, int64(len(in.Content)), ds)
	f.UploadedAt = p.now().UTC()
	stats.Apply(f.Processed)
	return f, warnings, nil
}
