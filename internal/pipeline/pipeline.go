// Package pipeline runs the LAS processing state machine:
// parse, initial QC, standardize, denoise, despike, baseline correction and
// final QC.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lasqc/internal/certify"
	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/processor"
	"github.com/sells-group/lasqc/internal/quality"
	"github.com/sells-group/lasqc/internal/registry"
	"github.com/sells-group/lasqc/internal/resilience"
	"github.com/sells-group/lasqc/internal/standardize"
	"github.com/sells-group/lasqc/internal/stats"
	"github.com/sells-group/lasqc/internal/store"
	"github.com/sells-group/lasqc/internal/uncertainty"
)

// Fatal file-level failures. They stop the run before any processing stage.
var (
	ErrEmptyInput   = eris.New("pipeline: empty input")
	ErrFileTooLarge = eris.New("pipeline: file exceeds maximum size")
	ErrUnparseable  = eris.New("pipeline: unparseable content")
)

// Stage names, in execution order.
const (
	StageParse           = "parse"
	StageInitialQC       = "initial_qc"
	StageStandardize     = "standardize"
	StageDenoise         = "denoise"
	StageDespike         = "despike"
	StageBaselineCorrect = "baseline_correct"
	StageFinalQC         = "final_qc"
)

// StageFillGaps is only run on request through Apply.
const StageFillGaps = "fill_gaps"

// Input is a raw file submitted for processing.
type Input struct {
	FileID   string
	Filename string
	Content  []byte
}

// Result is the outcome of one run. A failed run still carries the steps
// attempted and every message recorded.
type Result struct {
	Success          bool                   `json:"success"`
	RunID            string                 `json:"run_id"`
	File             *model.File            `json:"file,omitempty"`
	InitialQC        *model.QCResults       `json:"initial_qc,omitempty"`
	FinalQC          *model.QCResults       `json:"final_qc,omitempty"`
	History          []model.ProcessingStep `json:"history"`
	Warnings         []string               `json:"warnings"`
	Errors           []string               `json:"errors"`
	ExecutionTimeMs  int64                  `json:"execution_time_ms"`
	MemoryDeltaBytes int64                  `json:"memory_delta_bytes"`
}

// CertifyRequest builds the certification input from a completed run.
func (r *Result) CertifyRequest() (certify.Request, error) {
	if r.InitialQC == nil || r.FinalQC == nil || r.File == nil {
		return certify.Request{}, eris.New("pipeline: run has no quality results to certify")
	}
	return certify.Request{
		RunID:     r.RunID,
		Filename:  r.File.Filename,
		Well:      r.File.Original.Header.Well,
		Original:  r.InitialQC.Metrics,
		Processed: r.FinalQC.Metrics,
		Steps:     r.History,
	}, nil
}

// Summary condenses the result for persistence.
func (r *Result) Summary() *model.RunSummary {
	s := &model.RunSummary{
		Success:          r.Success,
		Steps:            len(r.History),
		Warnings:         r.Warnings,
		Errors:           r.Errors,
		ExecutionTimeMs:  r.ExecutionTimeMs,
		MemoryDeltaBytes: r.MemoryDeltaBytes,
	}
	if r.InitialQC != nil {
		s.InitialQuality = r.InitialQC.OverallQuality
	}
	if r.FinalQC != nil {
		s.FinalQuality = r.FinalQC.OverallQuality
	}
	return s
}

// Pipeline orchestrates the processing stages for one file at a time per
// file ID.
type Pipeline struct {
	cfg    Config
	reg    *registry.Registry
	calc   *uncertainty.Calculator
	parser Parser
	store  store.Store
	retry  resilience.RetryConfig
	locks  *KeyedMutex
	now    func() time.Time
	newID  func() string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithStore persists runs and steps to st.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithParser replaces the LAS parser.
func WithParser(parser Parser) Option {
	return func(p *Pipeline) { p.parser = parser }
}

// WithRetry sets the retry policy used for the parser and store calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(p *Pipeline) { p.retry = cfg }
}

// WithClock overrides time.Now for step timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(cfg Config, reg *registry.Registry, calc *uncertainty.Calculator, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		reg:    reg,
		calc:   calc,
		parser: LASParser{},
		retry:  resilience.DefaultRetryConfig(),
		locks:  NewKeyedMutex(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Config returns the stage configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Registry returns the physical-range and mnemonic registry.
func (p *Pipeline) Registry() *registry.Registry { return p.reg }

// Locks returns the per-file lock shared with other writers of the same
// files.
func (p *Pipeline) Locks() *KeyedMutex { return p.locks }

// run holds the mutable state of a single execution.
type run struct {
	id    string
	res   *Result
	steps []model.ProcessingStep
	log   *zap.Logger
	start time.Time
	mem   uint64
}

// Process validates, parses and processes raw content.
func (p *Pipeline) Process(ctx context.Context, in Input) *Result {
	if in.FileID == "" {
		in.FileID = p.newID()
	}
	unlock := p.locks.Lock(in.FileID)
	defer unlock()

	r := p.begin(ctx, in.FileID, in.Filename)

	var fatal error
	switch {
	case len(in.Content) == 0:
		fatal = ErrEmptyInput
	case p.cfg.MaxFileSize > 0 && int64(len(in.Content)) > p.cfg.MaxFileSize:
		fatal = eris.Wrapf(ErrFileTooLarge, "%d bytes > %d", len(in.Content), p.cfg.MaxFileSize)
	}
	if fatal != nil {
		r.res.Errors = append(r.res.Errors, fatal.Error())
		return p.finish(ctx, r)
	}

	var ds *model.Dataset
	p.track(ctx, r, StageParse, func() (stageOutcome, error) {
		var (
			warnings []string
			err      error
		)
		ds, err = resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*model.Dataset, error) {
			d, w, perr := p.parser.Parse(ctx, in.Content)
			warnings = w
			return d, perr
		})
		if err != nil {
			return stageOutcome{warnings: warnings}, eris.Wrap(ErrUnparseable, err.Error())
		}
		return stageOutcome{
			params:      map[string]any{"size": len(in.Content), "curves": len(ds.Curves), "rows": ds.Len()},
			affected:    ds.Mnemonics(),
			description: fmt.Sprintf("Parsed %d curves over %d rows", len(ds.Curves), ds.Len()),
			warnings:    warnings,
			uncertainty: p.calc.Parse(),
		}, nil
	})
	if ds == nil {
		return p.finish(ctx, r)
	}

	f := model.NewFile(in.FileID, in.Filename, int64(len(in.Content)), ds)
	f.UploadedAt = p.now().UTC()
	p.stages(ctx, r, f)
	return p.finish(ctx, r)
}

// ProcessFile reprocesses an already parsed file from its original snapshot.
// The file's processed snapshot, history and QC are replaced.
func (p *Pipeline) ProcessFile(ctx context.Context, f *model.File) *Result {
	unlock := p.locks.Lock(f.ID)
	defer unlock()

	r := p.begin(ctx, f.ID, f.Filename)
	f.Reset()
	p.stages(ctx, r, f)
	return p.finish(ctx, r)
}

func (p *Pipeline) begin(ctx context.Context, fileID, filename string) *run {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	r := &run{
		id:    p.newID(),
		res:   &Result{Warnings: []string{}, Errors: []string{}},
		start: time.Now(),
		mem:   ms.HeapAlloc,
	}
	if p.store != nil {
		created, err := resilience.DoVal(ctx, p.retry, func(ctx context.Context) (*model.Run, error) {
			return p.store.CreateRun(ctx, fileID, filename)
		})
		if err != nil {
			zap.L().Warn("pipeline: failed to create run", zap.String("file", filename), zap.Error(err))
		} else {
			r.id = created.ID
			p.persist(ctx, "update run status", func(ctx context.Context) error {
				return p.store.UpdateRunStatus(ctx, r.id, model.RunStatusRunning)
			})
		}
	}
	r.res.RunID = r.id
	r.log = zap.L().With(zap.String("file", filename), zap.String("run_id", r.id))
	r.log.Info("pipeline: starting run")
	return r
}

func (p *Pipeline) stages(ctx context.Context, r *run, f *model.File) {
	cur := f.Processed
	stats.Apply(cur)

	p.track(ctx, r, StageInitialQC, func() (stageOutcome, error) {
		qc := quality.Compute(cur, p.reg)
		r.res.InitialQC = &qc
		return qcOutcome(qc), nil
	})

	if p.cfg.Standardize && ctx.Err() == nil {
		cur = p.standardize(ctx, r, cur)
	}
	if opts := p.cfg.Denoise; opts != nil && ctx.Err() == nil {
		cur = p.denoise(ctx, r, cur, *opts)
	}
	if opts := p.cfg.Despike; opts != nil && ctx.Err() == nil {
		cur = p.despike(ctx, r, cur, *opts)
	}
	if opts := p.cfg.Baseline; opts != nil && ctx.Err() == nil {
		cur = p.baseline(ctx, r, cur, *opts)
	}

	if err := ctx.Err(); err != nil {
		r.res.Errors = append(r.res.Errors, eris.Wrap(err, "pipeline: cancelled").Error())
	}

	stats.Apply(cur)
	f.Processed = cur
	p.track(ctx, r, StageFinalQC, func() (stageOutcome, error) {
		qc := quality.Compute(cur, p.reg)
		r.res.FinalQC = &qc
		return qcOutcome(qc), nil
	})

	f.QC = r.res.FinalQC
	f.History = append(f.History, r.steps...)
	r.res.File = f
}

func (p *Pipeline) standardize(ctx context.Context, r *run, cur *model.Dataset) *model.Dataset {
	p.track(ctx, r, StageStandardize, func() (stageOutcome, error) {
		next := cur.Clone()
		sr := standardize.Apply(next, p.reg)
		cur = next
		return stageOutcome{
			params:      map[string]any{"renamed": sr.Renamed, "converted": sr.Converted},
			affected:    sr.Affected,
			description: fmt.Sprintf("Recognized %d of %d curves (%.1f%% coverage), renamed %d", sr.Recognized, len(cur.Curves), sr.Coverage, len(sr.Renamed)),
			warnings:    sr.Warnings,
			uncertainty: p.calc.Standardize(),
		}, nil
	})
	return cur
}

func (p *Pipeline) denoise(ctx context.Context, r *run, cur *model.Dataset, opts processor.DenoiseOptions) *model.Dataset {
	p.track(ctx, r, StageDenoise, func() (stageOutcome, error) {
		dr := processor.Denoise(cur, opts)
		cur = dr.Data
		out := fromOutcome(dr.Outcome)
		out.params = map[string]any{
			"method":           string(opts.Method),
			"window_size":      opts.WindowSize,
			"polynomial_order": opts.PolynomialOrder,
			"strength":         opts.Strength,
			"preserve_spikes":  opts.PreserveSpikes,
		}
		out.description = fmt.Sprintf("Denoised %d curves with %s, mean noise reduction %.1f%%", len(dr.Affected), opts.Method, dr.Metrics.NoiseReduction)
		if len(dr.Affected) > 0 {
			out.uncertainty = p.calc.Denoise(string(opts.Method), opts.Strength)
		}
		return out, nil
	})
	return cur
}

func (p *Pipeline) despike(ctx context.Context, r *run, cur *model.Dataset, opts processor.DespikeOptions) *model.Dataset {
	p.track(ctx, r, StageDespike, func() (stageOutcome, error) {
		sr := processor.Despike(cur, opts)
		cur = sr.Data
		out := fromOutcome(sr.Outcome)
		out.params = map[string]any{
			"method":             string(opts.Method),
			"threshold":          opts.EffectiveThreshold(),
			"window_size":        opts.WindowSize,
			"replacement_method": string(opts.ReplacementMethod),
			"spikes_detected":    sr.SpikesDetected,
			"spikes_removed":     sr.SpikesRemoved,
		}
		out.description = fmt.Sprintf("Detected %d spikes, replaced %d (%.2f%% of samples)", sr.SpikesDetected, sr.SpikesRemoved, sr.ReplacedPercent())
		if len(sr.Affected) > 0 {
			out.uncertainty = p.calc.Despike(sr.ReplacedPercent())
		}
		return out, nil
	})
	return cur
}

func (p *Pipeline) baseline(ctx context.Context, r *run, cur *model.Dataset, opts processor.BaselineOptions) *model.Dataset {
	p.track(ctx, r, StageBaselineCorrect, func() (stageOutcome, error) {
		br := processor.BaselineCorrection(cur, opts)
		cur = br.Data
		out := fromOutcome(br.Outcome)
		out.params = map[string]any{"method": string(opts.Method), "polynomial_order": opts.PolynomialOrder}
		out.description = fmt.Sprintf("Removed order-%d polynomial trend from %d curves", opts.PolynomialOrder, len(br.Affected))
		if len(br.Affected) > 0 {
			out.uncertainty = p.calc.Baseline(opts.PolynomialOrder)
		}
		return out, nil
	})
	return cur
}

func (p *Pipeline) fillGaps(ctx context.Context, r *run, cur *model.Dataset, opts processor.FillGapsOptions) *model.Dataset {
	p.track(ctx, r, StageFillGaps, func() (stageOutcome, error) {
		fr := processor.FillGaps(cur, opts)
		cur = fr.Data
		out := fromOutcome(fr.Outcome)
		out.params = map[string]any{"max_gap": opts.MaxGap, "filled": fr.Filled}
		out.description = fmt.Sprintf("Filled %d null samples across %d curves", fr.Total, len(fr.Affected))
		return out, nil
	})
	return cur
}

// stageOutcome is what a stage reports back to track.
type stageOutcome struct {
	params      map[string]any
	affected    []string
	description string
	warnings    []string
	errors      []string
	uncertainty float64
}

func fromOutcome(o processor.Outcome) stageOutcome {
	return stageOutcome{affected: o.Affected, warnings: o.Warnings, errors: o.Errors}
}

func qcOutcome(qc model.QCResults) stageOutcome {
	return stageOutcome{
		params: map[string]any{
			"overall_quality": qc.OverallQuality,
			"total_points":    qc.TotalPoints,
			"null_points":     qc.NullPoints,
		},
		affected:    []string{},
		description: fmt.Sprintf("Overall quality %.1f, completeness %.1f%%", qc.OverallQuality, qc.Metrics.Completeness),
	}
}

// track runs one stage, records its step and folds its messages into the
// result. A stage error or a per-curve error never aborts the run.
func (p *Pipeline) track(ctx context.Context, r *run, name string, fn func() (stageOutcome, error)) {
	start := time.Now()
	out, err := fn()
	duration := time.Since(start).Milliseconds()

	step := model.ProcessingStep{
		ID:             p.newID(),
		Timestamp:      p.now().UTC(),
		Operation:      name,
		Parameters:     out.params,
		AffectedCurves: out.affected,
		Description:    out.description,
		DurationMs:     duration,
		Status:         model.StepStatusCompleted,
		Uncertainty:    out.uncertainty,
	}
	if step.AffectedCurves == nil {
		step.AffectedCurves = []string{}
	}

	for _, w := range out.warnings {
		r.res.Warnings = append(r.res.Warnings, name+": "+w)
	}
	for _, e := range out.errors {
		r.res.Errors = append(r.res.Errors, name+": "+e)
	}

	switch {
	case err != nil:
		step.Status = model.StepStatusFailed
		step.Error = err.Error()
		step.Uncertainty = 0
		r.res.Errors = append(r.res.Errors, name+": "+err.Error())
	case len(out.errors) > 0 && len(out.affected) > 0:
		step.Status = model.StepStatusPartial
		step.Error = out.errors[0]
	case len(out.errors) > 0:
		step.Status = model.StepStatusFailed
		step.Error = out.errors[0]
		step.Uncertainty = 0
	}

	if step.Status == model.StepStatusCompleted {
		r.log.Info("pipeline: stage complete",
			zap.String("stage", name),
			zap.Int64("duration_ms", duration),
			zap.Int("affected", len(step.AffectedCurves)),
		)
	} else {
		r.log.Warn("pipeline: stage failed",
			zap.String("stage", name),
			zap.String("status", string(step.Status)),
			zap.Int64("duration_ms", duration),
			zap.String("error", step.Error),
		)
	}

	seq := len(r.steps)
	r.steps = append(r.steps, step)
	r.res.History = append(r.res.History, step)
	if p.store != nil {
		p.persist(ctx, "append step", func(ctx context.Context) error {
			return p.store.AppendStep(ctx, r.id, seq, step)
		})
	}
}

func (p *Pipeline) finish(ctx context.Context, r *run) *Result {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	res := r.res
	res.Success = len(res.Errors) == 0
	res.ExecutionTimeMs = time.Since(r.start).Milliseconds()
	res.MemoryDeltaBytes = int64(ms.HeapAlloc) - int64(r.mem)
	if res.History == nil {
		res.History = []model.ProcessingStep{}
	}

	if p.store != nil {
		status := model.RunStatusComplete
		if !res.Success {
			status = model.RunStatusFailed
		}
		p.persist(ctx, "complete run", func(ctx context.Context) error {
			return p.store.CompleteRun(ctx, r.id, status, res.Summary())
		})
	}

	r.log.Info("pipeline: run finished",
		zap.Bool("success", res.Success),
		zap.Int("steps", len(res.History)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Int("errors", len(res.Errors)),
		zap.Int64("duration_ms", res.ExecutionTimeMs),
	)
	return res
}

// persist runs a store write with retries. Failures are logged, not
// surfaced: persistence never changes the processing outcome.
func (p *Pipeline) persist(ctx context.Context, op string, fn func(context.Context) error) {
	cfg := p.retry
	cfg.OnRetry = resilience.RetryLogger(op)
	if err := resilience.Do(context.WithoutCancel(ctx), cfg, fn); err != nil {
		zap.L().Warn("pipeline: persistence failed", zap.String("operation", op), zap.Error(err))
	}
}
