package las

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lasqc/internal/model"
)

// Write serializes ds as an unwrapped LAS 2.0 file. Null samples are written
// as the header NULL value.
func Write(w io.Writer, ds *model.Dataset) error {
	if err := ds.Validate(); err != nil {
		return eris.Wrap(err, "las: write")
	}
	bw := bufio.NewWriter(w)
	hd := ds.Header
	null := hd.NullValue
	if null == 0 {
		null = model.DefaultNullValue
	}
	depthMnem := hd.DepthMnemonic
	if depthMnem == "" {
		depthMnem = "DEPT"
	}

	fmt.Fprintln(bw, "~Version Information")
	writeItem(bw, "VERS", "", "2.0", "CWLS LOG ASCII STANDARD - VERSION 2.0")
	writeItem(bw, "WRAP", "", "NO", "ONE LINE PER DEPTH STEP")

	fmt.Fprintln(bw, "~Well Information")
	writeItem(bw, "STRT", hd.DepthUnit, formatFloat(hd.StartDepth), "START DEPTH")
	writeItem(bw, "STOP", hd.DepthUnit, formatFloat(hd.StopDepth), "STOP DEPTH")
	writeItem(bw, "STEP", hd.DepthUnit, formatFloat(hd.Step), "STEP")
	writeItem(bw, "NULL", "", formatFloat(null), "NULL VALUE")
	writeItem(bw, "COMP", "", hd.Company, "COMPANY")
	writeItem(bw, "WELL", "", hd.Well, "WELL")
	writeItem(bw, "FLD", "", hd.Field, "FIELD")
	writeItem(bw, "LOC", "", hd.Location, "LOCATION")
	writeItem(bw, "CTRY", "", hd.Country, "COUNTRY")
	writeItem(bw, "SRVC", "", hd.ServiceCompany, "SERVICE COMPANY")
	writeItem(bw, "DATE", "", hd.Date, "LOG DATE")
	writeItem(bw, "UWI", "", hd.UWI, "UNIQUE WELL ID")

	fmt.Fprintln(bw, "~Curve Information")
	writeItem(bw, depthMnem, hd.DepthUnit, "", "DEPTH")
	for _, c := range ds.Curves {
		writeItem(bw, c.Mnemonic, c.Unit, "", c.Description)
	}

	if len(hd.Parameters) > 0 {
		fmt.Fprintln(bw, "~Parameter Information")
		for _, p := range hd.Parameters {
			writeItem(bw, p.Mnemonic, p.Unit, p.Value, p.Description)
		}
	}
	if hd.Other != "" {
		fmt.Fprintln(bw, "~Other")
		fmt.Fprintln(bw, hd.Other)
	}

	names := make([]string, 0, len(ds.Curves)+1)
	names = append(names, depthMnem)
	for _, c := range ds.Curves {
		names = append(names, c.Mnemonic)
	}
	fmt.Fprintf(bw, "~A  %s\n", strings.Join(names, " "))

	cols := make([]string, len(names))
	for i := range ds.Depth {
		cols[0] = formatSample(ds.Depth[i], null)
		for j, c := range ds.Curves {
			cols[j+1] = formatSample(c.Values[i], null)
		}
		fmt.Fprintln(bw, strings.Join(cols, " "))
	}
	return eris.Wrap(bw.Flush(), "las: flush")
}

func writeItem(w io.Writer, mnem, unit, value, desc string) {
	fmt.Fprintf(w, " %-4s.%-10s %20s : %s\n", mnem, unit, value, desc)
}

func formatSample(v, null float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = null
	}
	return fmt.Sprintf("%12s", formatFloat(v))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
