// Package report exports processed well logs to Excel workbooks.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lasqc/internal/model"
)

// Sheet names, in workbook order.
const (
	SheetSummary     = "Summary"
	SheetCurves      = "Curves"
	SheetData        = "Data"
	SheetHistory     = "History"
	SheetCertificate = "Certificate"
)

// ErrNoData is returned when a file has no processed dataset to export.
var ErrNoData = eris.New("report: file has no processed data")

// WriteWorkbook writes f as an XLSX workbook. The Certificate sheet is only
// added when cert is non-nil.
func WriteWorkbook(w io.Writer, f *model.File, cert *model.Certificate) error {
	wb, err := Build(f, cert)
	if err != nil {
		return err
	}
	if err := wb.Write(w); err != nil {
		return eris.Wrap(err, "report: write workbook")
	}
	return nil
}

// SaveWorkbook writes the workbook to path.
func SaveWorkbook(path string, f *model.File, cert *model.Certificate) error {
	wb, err := Build(f, cert)
	if err != nil {
		return err
	}
	if err := wb.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// Build assembles the workbook in memory.
func Build(f *model.File, cert *model.Certificate) (*xlsx.File, error) {
	if f == nil || f.Processed == nil {
		return nil, ErrNoData
	}

	wb := xlsx.NewFile()
	builders := []struct {
		name string
		fill func(*xlsx.Sheet)
	}{
		{SheetSummary, func(s *xlsx.Sheet) { fillSummary(s, f) }},
		{SheetCurves, func(s *xlsx.Sheet) { fillCurves(s, f.Processed) }},
		{SheetData, func(s *xlsx.Sheet) { fillData(s, f.Processed) }},
		{SheetHistory, func(s *xlsx.Sheet) { fillHistory(s, f.History) }},
	}
	if cert != nil {
		builders = append(builders, struct {
			name string
			fill func(*xlsx.Sheet)
		}{SheetCertificate, func(s *xlsx.Sheet) { fillCertificate(s, cert) }})
	}

	for _, b := range builders {
		sheet, err := wb.AddSheet(b.name)
		if err != nil {
			return nil, eris.Wrapf(err, "report: add sheet %s", b.name)
		}
		b.fill(sheet)
	}
	return wb, nil
}

func fillSummary(s *xlsx.Sheet, f *model.File) {
	h := f.Processed.Header
	addRow(s, "Field", "Value")
	pairs := [][2]string{
		{"File", f.Filename},
		{"Well", h.Well},
		{"Company", h.Company},
		{"Field", h.Field},
		{"Location", h.Location},
		{"UWI", h.UWI},
		{"LAS version", h.Version},
		{"Start depth", formatFloat(h.StartDepth)},
		{"Stop depth", formatFloat(h.StopDepth)},
		{"Step", formatFloat(h.Step)},
		{"Depth unit", h.DepthUnit},
		{"Samples", fmt.Sprint(f.Processed.Len())},
		{"Curves", strings.Join(f.Processed.Mnemonics(), ", ")},
		{"Processing steps", fmt.Sprint(len(f.History))},
	}
	for _, p := range pairs {
		addRow(s, p[0], p[1])
	}

	if f.QC == nil {
		return
	}
	qc := f.QC
	addRow(s)
	addRow(s, "Quality", "")
	addFloatRow(s, "Overall quality", qc.OverallQuality)
	addFloatRow(s, "Noise level", qc.NoiseLevel)
	addFloatRow(s, "Completeness", qc.Metrics.Completeness)
	addFloatRow(s, "SNR (dB)", qc.Metrics.SNR)
	addFloatRow(s, "Physical consistency", qc.Metrics.PhysicalConsistency)
	addFloatRow(s, "Depth integrity", qc.Metrics.DepthIntegrity)
	addFloatRow(s, "Standardization coverage", qc.StandardizationCoverage)
	addRow(s, "Null points", fmt.Sprint(qc.NullPoints))
	addRow(s, "Spikes detected", fmt.Sprint(qc.SpikesDetected))
	addRow(s, "Depth consistent", fmt.Sprint(qc.DepthConsistent))
	for _, rec := range qc.Recommendations {
		addRow(s, "Recommendation", rec)
	}
}

func fillCurves(s *xlsx.Sheet, ds *model.Dataset) {
	addRow(s, "Mnemonic", "Unit", "Description", "Category", "Min", "Max", "Mean", "Std Dev", "Valid", "Null", "Outliers", "Quality")
	for _, c := range ds.Curves {
		row := s.AddRow()
		row.AddCell().SetString(c.Mnemonic)
		row.AddCell().SetString(c.Unit)
		row.AddCell().SetString(c.Description)
		row.AddCell().SetString(string(c.Category))
		for _, v := range []float64{c.Stats.Min, c.Stats.Max, c.Stats.Mean, c.Stats.StdDev} {
			row.AddCell().SetFloat(v)
		}
		row.AddCell().SetInt(c.Stats.ValidCount)
		row.AddCell().SetInt(c.Stats.NullCount)
		row.AddCell().SetInt(c.Stats.OutlierCount)
		row.AddCell().SetFloat(c.Stats.QualityScore)
	}
}

// fillData writes one row per depth. Null samples are left as empty cells.
func fillData(s *xlsx.Sheet, ds *model.Dataset) {
	header := append([]string{depthLabel(ds)}, ds.Mnemonics()...)
	addRow(s, header...)
	for i, d := range ds.Depth {
		row := s.AddRow()
		row.AddCell().SetFloat(d)
		for _, c := range ds.Curves {
			cell := row.AddCell()
			if v := c.Values[i]; !model.IsNull(v) {
				cell.SetFloat(v)
			}
		}
	}
}

func fillHistory(s *xlsx.Sheet, history []model.ProcessingStep) {
	addRow(s, "Timestamp", "Operation", "Status", "Affected Curves", "Duration (ms)", "Uncertainty (%)", "Description", "Error")
	for _, step := range history {
		row := s.AddRow()
		row.AddCell().SetString(step.Timestamp.UTC().Format(time.RFC3339))
		row.AddCell().SetString(step.Operation)
		row.AddCell().SetString(string(step.Status))
		row.AddCell().SetString(strings.Join(step.AffectedCurves, ", "))
		row.AddCell().SetInt64(step.DurationMs)
		row.AddCell().SetFloat(step.Uncertainty)
		row.AddCell().SetString(step.Description)
		row.AddCell().SetString(step.Error)
	}
}

func fillCertificate(s *xlsx.Sheet, cert *model.Certificate) {
	addRow(s, "Field", "Value")
	addRow(s, "Certificate ID", cert.ID)
	addRow(s, "Issued", cert.IssuedAt.UTC().Format(time.RFC3339))
	addRow(s, "Grade", string(cert.Grade))
	addRow(s, "Confidence", string(cert.Confidence))
	addFloatRow(s, "Total uncertainty (%)", cert.Uncertainty.Total)
	addRow(s, "Signature algorithm", cert.SignatureAlgorithm)
	addRow(s, "Signature", cert.Signature)

	addRow(s)
	addRow(s, "Metric", "Original", "Processed", "Improvement")
	metrics := []struct {
		name                string
		orig, proc, improve float64
	}{
		{"Completeness", cert.Original.Completeness, cert.Processed.Completeness, cert.Improvement.Completeness},
		{"SNR (dB)", cert.Original.SNR, cert.Processed.SNR, cert.Improvement.SNR},
		{"Noise score", cert.Original.NoiseScore, cert.Processed.NoiseScore, cert.Improvement.NoiseScore},
		{"Physical consistency", cert.Original.PhysicalConsistency, cert.Processed.PhysicalConsistency, cert.Improvement.PhysicalConsistency},
		{"Depth integrity", cert.Original.DepthIntegrity, cert.Processed.DepthIntegrity, cert.Improvement.DepthIntegrity},
	}
	for _, m := range metrics {
		row := s.AddRow()
		row.AddCell().SetString(m.name)
		row.AddCell().SetFloat(m.orig)
		row.AddCell().SetFloat(m.proc)
		row.AddCell().SetFloat(m.improve)
	}

	addRow(s)
	addRow(s, "Operation", "Uncertainty (%)")
	for _, c := range cert.Uncertainty.Contributions {
		addFloatRow(s, c.Operation, c.Percent)
	}
}

func depthLabel(ds *model.Dataset) string {
	label := ds.Header.DepthMnemonic
	if label == "" {
		label = "DEPT"
	}
	if ds.Header.DepthUnit != "" {
		label += " (" + ds.Header.DepthUnit + ")"
	}
	return label
}

func addRow(s *xlsx.Sheet, values ...string) {
	row := s.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addFloatRow(s *xlsx.Sheet, label string, v float64) {
	row := s.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetFloat(v)
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
