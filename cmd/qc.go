package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/pipeline"
)

var qcCmd = &cobra.Command{
	Use:   "qc <file>",
	Short: "Score the quality of a LAS file without processing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context(), cfg, "qc", false)
		if err != nil {
			return err
		}
		defer e.Close()

		f, warnings, err := loadFile(cmd.Context(), e, args[0])
		if err != nil {
			return err
		}
		qc := e.Pipeline.Quality(f)
		return printJSON(os.Stdout, qcReport{Path: args[0], Rows: f.Processed.Len(), Warnings: warnings, QC: qc})
	},
}

func init() {
	rootCmd.AddCommand(qcCmd)
}

type qcReport struct {
	Path     string          `json:"path"`
	Rows     int             `json:"rows"`
	Warnings []string        `json:"warnings,omitempty"`
	QC       model.QCResults `json:"qc"`
}

// loadFile reads and parses src, a path or URL, into a file with no
// processing applied.
func loadFile(ctx context.Context, e *env, src string) (*model.File, []string, error) {
	doc, err := e.Loader.LoadOne(ctx, src)
	if err != nil {
		return nil, nil, err
	}
	return e.Pipeline.Parse(ctx, pipeline.Input{Filename: doc.Name, Content: doc.Content})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
