package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// DefaultNullValue is the conventional LAS null sentinel.
const DefaultNullValue = -999.25

// HeaderItem is one mnemonic line of a LAS header section.
type HeaderItem struct {
	Mnemonic    string `json:"mnemonic"`
	Unit        string `json:"unit,omitempty"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Header carries the well and sampling metadata of a dataset.
type Header struct {
	Version        string       `json:"version"`
	Wrap           bool         `json:"wrap"`
	Company        string       `json:"company,omitempty"`
	Well           string       `json:"well,omitempty"`
	Field          string       `json:"field,omitempty"`
	Location       string       `json:"location,omitempty"`
	Country        string       `json:"country,omitempty"`
	ServiceCompany string       `json:"service_company,omitempty"`
	Date           string       `json:"date,omitempty"`
	UWI            string       `json:"uwi,omitempty"`
	StartDepth     float64      `json:"start_depth"`
	StopDepth      float64      `json:"stop_depth"`
	Step           float64      `json:"step"`
	NullValue      float64      `json:"null_value"`
	DepthMnemonic  string       `json:"depth_mnemonic"`
	DepthUnit      string       `json:"depth_unit"`
	Parameters     []HeaderItem `json:"parameters,omitempty"`
	Other          string       `json:"other,omitempty"`
}

// Row is a read-only view of one sample row. A nil value is a null sample.
type Row struct {
	Depth  float64             `json:"depth"`
	Values map[string]*float64 `json:"values"`
}

// Dataset is a depth-indexed set of curves. Every curve's Values has the same
// length as Depth.
type Dataset struct {
	Header Header  `json:"header"`
	Depth  Samples `json:"depth"`
	Curves []Curve `json:"curves"`
}

// Len returns the number of sample rows.
func (d *Dataset) Len() int { return len(d.Depth) }

// Index returns the position of the curve with the given mnemonic, or -1.
func (d *Dataset) Index(mnemonic string) int {
	for i := range d.Curves {
		if d.Curves[i].Mnemonic == mnemonic {
			return i
		}
	}
	return -1
}

// Curve returns the curve with the given mnemonic, or nil.
func (d *Dataset) Curve(mnemonic string) *Curve {
	if i := d.Index(mnemonic); i >= 0 {
		return &d.Curves[i]
	}
	return nil
}

// Mnemonics returns curve mnemonics in dataset order.
func (d *Dataset) Mnemonics() []string {
	out := make([]string, len(d.Curves))
	for i := range d.Curves {
		out[i] = d.Curves[i].Mnemonic
	}
	return out
}

// Row returns the i-th sample row.
func (d *Dataset) Row(i int) Row {
	r := Row{Depth: d.Depth[i], Values: make(map[string]*float64, len(d.Curves))}
	for _, c := range d.Curves {
		v := c.Values[i]
		if IsNull(v) {
			r.Values[c.Mnemonic] = nil
			continue
		}
		r.Values[c.Mnemonic] = &v
	}
	return r
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := &Dataset{Header: d.Header, Depth: d.Depth.Clone()}
	out.Header.Parameters = append([]HeaderItem(nil), d.Header.Parameters...)
	out.Curves = make([]Curve, len(d.Curves))
	for i := range d.Curves {
		out.Curves[i] = d.Curves[i].Clone()
	}
	return out
}

// Validate checks the structural invariants: unique mnemonics and curve
// columns aligned with the depth column.
func (d *Dataset) Validate() error {
	seen := make(map[string]bool, len(d.Curves))
	for _, c := range d.Curves {
		if c.Mnemonic == "" {
			return eris.New("curve with empty mnemonic")
		}
		if seen[c.Mnemonic] {
			return eris.Errorf("duplicate curve mnemonic %q", c.Mnemonic)
		}
		seen[c.Mnemonic] = true
		if len(c.Values) != len(d.Depth) {
			return eris.Errorf("curve %q has %d values for %d depths", c.Mnemonic, len(c.Values), len(d.Depth))
		}
	}
	return nil
}

// File is an uploaded well-log file with its immutable original snapshot and
// the processed snapshot the pipeline mutates.
type File struct {
	ID         string           `json:"id"`
	Filename   string           `json:"filename"`
	Size       int64            `json:"size"`
	UploadedAt time.Time        `json:"uploaded_at"`
	Original   *Dataset         `json:"original"`
	Processed  *Dataset         `json:"processed"`
	History    []ProcessingStep `json:"history"`
	QC         *QCResults       `json:"qc,omitempty"`
}

// NewFile wraps a parsed dataset. The processed snapshot starts as a deep copy
// of the original.
func NewFile(id, filename string, size int64, ds *Dataset) *File {
	return &File{
		ID:         id,
		Filename:   filename,
		Size:       size,
		UploadedAt: time.Now().UTC(),
		Original:   ds,
		Processed:  ds.Clone(),
	}
}

// Reset discards all processing: the processed snapshot is replaced by a copy
// of the original and the history is cleared.
func (f *File) Reset() {
	f.Processed = f.Original.Clone()
	f.History = nil
	f.QC = nil
}

// Clone returns a deep copy of the file.
func (f *File) Clone() *File {
	out := *f
	out.Original = f.Original.Clone()
	out.Processed = f.Processed.Clone()
	out.History = append([]ProcessingStep(nil), f.History...)
	if f.QC != nil {
		qc := *f.QC
		out.QC = &qc
	}
	return &out
}
