// Package las reads and writes LAS 2.0 well-log files.
package las

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/lasqc/internal/model"
)

var (
	// ErrWrapped is returned for WRAP=YES files, which are not supported.
	ErrWrapped = eris.New("las: wrapped files are not supported")
	// ErrNoCurves is returned when the ~C section is missing or empty.
	ErrNoCurves = eris.New("las: no curve definitions")
	// ErrNoData is returned when the ~A section has no complete rows.
	ErrNoData = eris.New("las: no data rows")
)

// nullTolerance is how close a value must be to the NULL sentinel to be
// treated as missing.
const nullTolerance = 1e-9

type headerLine struct {
	mnemonic, unit, value, description string
}

// Read parses a LAS 2.0 file. Content that is not valid UTF-8 is decoded as
// Windows-1252. Missing well-header fields are reported as warnings.
func Read(r io.Reader) (*model.Dataset, []string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, eris.Wrap(err, "las: read")
	}
	return Parse(raw)
}

// Parse parses LAS 2.0 content held in memory.
func Parse(content []byte) (*model.Dataset, []string, error) {
	if !utf8.Valid(content) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(content)
		if err != nil {
			return nil, nil, eris.Wrap(err, "las: decode windows-1252")
		}
		content = decoded
	}

	p := &parser{
		ds: &model.Dataset{Header: model.Header{NullValue: model.DefaultNullValue, Version: "2.0"}},
	}
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if err := p.line(sc.Text()); err != nil {
			return nil, p.warnings, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, p.warnings, eris.Wrap(err, "las: scan")
	}
	if err := p.finish(); err != nil {
		return nil, p.warnings, err
	}
	return p.ds, p.warnings, nil
}

type parser struct {
	ds       *model.Dataset
	section  byte
	seen     map[string]bool
	curves   []headerLine
	other    []string
	badLines int
	badNums  int
	warnings []string
}

func (p *parser) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *parser) line(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}
	if trimmed[0] == '~' {
		if len(trimmed) > 1 {
			p.section = strings.ToUpper(trimmed[1:2])[0]
		}
		if p.section == 'A' && len(p.curves) == 0 {
			return ErrNoCurves
		}
		return nil
	}

	switch p.section {
	case 'V':
		h := splitHeader(trimmed)
		switch h.mnemonic {
		case "VERS":
			p.ds.Header.Version = h.value
		case "WRAP":
			if strings.EqualFold(h.value, "YES") {
				return ErrWrapped
			}
		}
	case 'W':
		return p.well(splitHeader(trimmed))
	case 'C':
		h := splitHeader(trimmed)
		if h.mnemonic != "" {
			p.curves = append(p.curves, h)
		}
	case 'P':
		h := splitHeader(trimmed)
		p.ds.Header.Parameters = append(p.ds.Header.Parameters, model.HeaderItem{
			Mnemonic: h.mnemonic, Unit: h.unit, Value: h.value, Description: h.description,
		})
	case 'O':
		p.other = append(p.other, trimmed)
	case 'A':
		p.data(trimmed)
	}
	return nil
}

func (p *parser) well(h headerLine) error {
	if p.seen == nil {
		p.seen = make(map[string]bool)
	}
	p.seen[h.mnemonic] = true
	hd := &p.ds.Header
	num := func(field string) float64 {
		v, err := strconv.ParseFloat(h.value, 64)
		if err != nil {
			p.warnf("well header %s: invalid number %q", field, h.value)
			delete(p.seen, h.mnemonic)
			return 0
		}
		return v
	}
	switch h.mnemonic {
	case "STRT":
		hd.StartDepth = num("STRT")
		hd.DepthUnit = h.unit
	case "STOP":
		hd.StopDepth = num("STOP")
	case "STEP":
		hd.Step = num("STEP")
	case "NULL":
		if v := num("NULL"); p.seen["NULL"] {
			hd.NullValue = v
		}
	case "COMP":
		hd.Company = h.value
	case "WELL":
		hd.Well = h.value
	case "FLD":
		hd.Field = h.value
	case "LOC":
		hd.Location = h.value
	case "CTRY":
		hd.Country = h.value
	case "SRVC":
		hd.ServiceCompany = h.value
	case "DATE":
		hd.Date = h.value
	case "UWI", "API":
		hd.UWI = h.value
	}
	return nil
}

func (p *parser) data(line string) {
	fields := strings.Fields(line)
	if len(fields) != len(p.curves) {
		p.badLines++
		return
	}
	null := p.ds.Header.NullValue
	if p.ds.Curves == nil {
		p.initCurves()
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		switch {
		case err != nil:
			p.badNums++
			v = math.NaN()
		case math.Abs(v-null) < nullTolerance:
			v = math.NaN()
		}
		if i == 0 {
			p.ds.Depth = append(p.ds.Depth, v)
			continue
		}
		p.ds.Curves[i-1].Values = append(p.ds.Curves[i-1].Values, v)
	}
}

func (p *parser) initCurves() {
	depth := p.curves[0]
	p.ds.Header.DepthMnemonic = depth.mnemonic
	if depth.unit != "" {
		p.ds.Header.DepthUnit = depth.unit
	}
	p.ds.Curves = make([]model.Curve, 0, len(p.curves)-1)
	seen := map[string]int{depth.mnemonic: 1}
	for _, h := range p.curves[1:] {
		name := h.mnemonic
		if n := seen[name]; n > 0 {
			// Generated names are tracked too, so GR, GR, GR_2 stays unique.
			n++
			for seen[fmt.Sprintf("%s_%d", h.mnemonic, n)] > 0 {
				n++
			}
			name = fmt.Sprintf("%s_%d", h.mnemonic, n)
			p.warnf("duplicate curve mnemonic %s renamed to %s", h.mnemonic, name)
		}
		seen[h.mnemonic]++
		if name != h.mnemonic {
			seen[name]++
		}
		p.ds.Curves = append(p.ds.Curves, model.Curve{
			Mnemonic:    name,
			Unit:        h.unit,
			Description: h.description,
			Scale:       model.ScaleLinear,
			Visible:     true,
		})
	}
}

func (p *parser) finish() error {
	if len(p.curves) == 0 {
		return ErrNoCurves
	}
	if len(p.ds.Depth) == 0 {
		return ErrNoData
	}
	if p.badLines > 0 {
		p.warnf("%d data lines skipped: column count does not match %d curves", p.badLines, len(p.curves))
	}
	if p.badNums > 0 {
		p.warnf("%d unparseable data values treated as null", p.badNums)
	}
	for _, m := range []string{"STRT", "STOP", "STEP", "NULL", "WELL"} {
		if !p.seen[m] {
			p.warnf("missing well header field %s", m)
		}
	}
	hd := &p.ds.Header
	if !p.seen["STRT"] {
		hd.StartDepth = firstValid(p.ds.Depth)
	}
	if !p.seen["STOP"] {
		hd.StopDepth = lastValid(p.ds.Depth)
	}
	if !p.seen["STEP"] && len(p.ds.Depth) > 1 {
		hd.Step = p.ds.Depth[1] - p.ds.Depth[0]
		if math.IsNaN(hd.Step) {
			hd.Step = 0
		}
	}
	if len(p.other) > 0 {
		hd.Other = strings.Join(p.other, "\n")
	}
	return eris.Wrap(p.ds.Validate(), "las: invalid dataset")
}

// splitHeader splits "MNEM.UNIT  VALUE : DESCRIPTION".
func splitHeader(line string) headerLine {
	var h headerLine
	dot := strings.Index(line, ".")
	if dot < 0 {
		h.mnemonic = strings.ToUpper(strings.TrimSpace(line))
		return h
	}
	h.mnemonic = strings.ToUpper(strings.TrimSpace(line[:dot]))
	rest := line[dot+1:]
	if sp := strings.IndexAny(rest, " \t"); sp >= 0 {
		h.unit = rest[:sp]
		rest = rest[sp:]
	} else if colon := strings.Index(rest, ":"); colon >= 0 {
		h.unit = rest[:colon]
		rest = rest[colon:]
	} else {
		h.unit = rest
		rest = ""
	}
	if colon := strings.LastIndex(rest, ":"); colon >= 0 {
		h.value = strings.TrimSpace(rest[:colon])
		h.description = strings.TrimSpace(rest[colon+1:])
	} else {
		h.value = strings.TrimSpace(rest)
	}
	return h
}

func firstValid(v []float64) float64 {
	for _, x := range v {
		if !math.IsNaN(x) {
			return x
		}
	}
	return 0
}

func lastValid(v []float64) float64 {
	for i := len(v) - 1; i >= 0; i-- {
		if !math.IsNaN(v[i]) {
			return v[i]
		}
	}
	return 0
}
