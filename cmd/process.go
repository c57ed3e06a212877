package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lasqc/internal/fetcher"
	"github.com/sells-group/lasqc/internal/las"
	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/pipeline"
)

var (
	processOutDir  string
	processNoStore bool
)

var processCmd = &cobra.Command{
	Use:   "process <files...>",
	Short: "Run the processing pipeline over one or more LAS files",
	Long: `Run the processing pipeline over LAS files. Each argument may be a local
path, an http(s) or ftp URL, or a ZIP archive whose .las members are
processed individually.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx, cfg, "process", !processNoStore)
		if err != nil {
			return err
		}
		defer e.Close()

		return processFiles(ctx, e.Pipeline, e.Loader, args, cfg.Batch.MaxConcurrentFiles, processOutDir, os.Stdout)
	},
}

func init() {
	processCmd.Flags().StringVar(&processOutDir, "out-dir", "", "write processed LAS files to this directory")
	processCmd.Flags().BoolVar(&processNoStore, "no-store", false, "do not persist runs")
	rootCmd.AddCommand(processCmd)
}

// fileReport is the JSON line printed for each processed file.
type fileReport struct {
	Path     string   `json:"path"`
	RunID    string   `json:"run_id,omitempty"`
	Success  bool     `json:"success"`
	Initial  float64  `json:"initial_quality"`
	Final    float64  `json:"final_quality"`
	Steps    []string `json:"steps"`
	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Output   string   `json:"output,omitempty"`
	TimeMs   int64    `json:"execution_time_ms"`
}

func newFileReport(path string, res *pipeline.Result) fileReport {
	s := res.Summary()
	r := fileReport{
		Path:     path,
		RunID:    res.RunID,
		Success:  res.Success,
		Initial:  s.InitialQuality,
		Final:    s.FinalQuality,
		Steps:    make([]string, len(res.History)),
		Warnings: res.Warnings,
		Errors:   res.Errors,
		TimeMs:   res.ExecutionTimeMs,
	}
	for i, step := range res.History {
		r.Steps[i] = step.Operation + ":" + string(step.Status)
	}
	return r
}

// processFiles runs the pipeline over every LAS document behind sources with
// at most concurrency sources in flight and writes one JSON line per document
// to out. A failing document never aborts the others; the returned error
// reports how many failed.
func processFiles(ctx context.Context, p *pipeline.Pipeline, loader *fetcher.Loader, sources []string, concurrency int, outDir string, out io.Writer) error {
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrap(err, "process: create output directory")
		}
	}

	zap.L().Info("processing batch",
		zap.Int("sources", len(sources)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	var (
		succeeded, failed atomic.Int64
		mu                sync.Mutex
		enc               = json.NewEncoder(out)
		names             = newOutputNames()
	)
	emit := func(report fileReport) error {
		if report.Success {
			succeeded.Add(1)
		} else {
			failed.Add(1)
		}
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(report)
	}

	for _, src := range sources {
		g.Go(func() error {
			docs, err := loader.Load(gctx, src)
			if err != nil {
				zap.L().Error("load input failed", zap.String("source", src), zap.Error(err))
				return emit(fileReport{Path: src, Steps: []string{}, Errors: []string{eris.Wrap(err, "read file").Error()}})
			}
			for _, doc := range docs {
				if err := emit(processOne(gctx, p, doc, outDir, names)); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	ok, bad := succeeded.Load(), failed.Load()
	zap.L().Info("batch complete",
		zap.Int64("succeeded", ok),
		zap.Int64("failed", bad),
	)
	if bad > 0 {
		return eris.Errorf("%d of %d files failed", bad, ok+bad)
	}
	return nil
}

func processOne(ctx context.Context, p *pipeline.Pipeline, doc fetcher.Document, outDir string, names *outputNames) fileReport {
	log := zap.L().With(zap.String("source", doc.Source))

	res := p.Process(ctx, pipeline.Input{Filename: doc.Name, Content: doc.Content})
	report := newFileReport(doc.Source, res)

	if outDir != "" && res.File != nil {
		dest := filepath.Join(outDir, names.claim(processedName(doc.Name)))
		if err := writeLAS(dest, res.File.Processed); err != nil {
			log.Error("write processed file failed", zap.Error(err))
			report.Success = false
			report.Errors = append(report.Errors, err.Error())
		} else {
			report.Output = dest
		}
	}
	return report
}

// processedName maps "logs/well.las" to "well_processed.las".
func processedName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_processed.las"
}

// outputNames hands out unique file names within one batch. Archive members
// from different directories often share a base name.
type outputNames struct {
	mu    sync.Mutex
	taken map[string]bool
}

func newOutputNames() *outputNames {
	return &outputNames{taken: make(map[string]bool)}
}

// claim returns name, or name with a _2, _3 ... suffix before the extension
// when an earlier document already claimed it.
func (o *outputNames) claim(name string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 1; o.taken[candidate]; {
		n++
		candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
	o.taken[candidate] = true
	return candidate
}

func writeLAS(path string, ds *model.Dataset) error {
	return writeFile(path, func(w io.Writer) error { return las.Write(w, ds) })
}

// writeFile creates path and streams fn's output into it.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := fn(f); err != nil {
		f.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}
