package main

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lasqc/internal/fetcher"
	"github.com/sells-group/lasqc/internal/report"
)

var (
	exportXLSX    bool
	exportOut     string
	exportCertify bool
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Process a LAS file and export the result as LAS or an Excel report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context(), cfg, "export", false)
		if err != nil {
			return err
		}
		defer e.Close()

		cert, res, err := processAndCertify(cmd, e, args[0])
		if err != nil && (res == nil || res.File == nil) {
			return err
		}
		if !exportCertify {
			cert = nil
		}

		dest := exportOut
		if dest == "" {
			src := args[0]
			if fetcher.IsRemote(src) {
				src = res.File.Filename
			}
			dest = exportName(src, exportXLSX)
		}

		if exportXLSX {
			err = writeFile(dest, func(w io.Writer) error { return report.WriteWorkbook(w, res.File, cert) })
		} else {
			err = writeLAS(dest, res.File.Processed)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("path", dest), zap.Bool("success", res.Success))
		if !res.Success {
			return eris.Errorf("processing reported %d errors", len(res.Errors))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportXLSX, "xlsx", false, "write an Excel workbook instead of LAS")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default derived from the input name)")
	exportCmd.Flags().BoolVar(&exportCertify, "certify", true, "include the certificate sheet in Excel output")
	rootCmd.AddCommand(exportCmd)
}

// exportName derives the output path next to the input file. Remote inputs
// pass their file name and land in the working directory.
func exportName(path string, xlsx bool) string {
	if !xlsx {
		return filepath.Join(filepath.Dir(path), processedName(path))
	}
	base := filepath.Base(path)
	return filepath.Join(filepath.Dir(path), strings.TrimSuffix(base, filepath.Ext(base))+"_report.xlsx")
}

