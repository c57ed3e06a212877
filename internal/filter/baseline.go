package filter

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/lasqc/internal/numeric"
)

// BaselineFit is the result of polynomial baseline removal.
type BaselineFit struct {
	Corrected    []float64 `json:"corrected"`
	Trend        []float64 `json:"trend"`
	Coefficients []float64 `json:"coefficients"`
	// Center and Scale map a sample index i to the fit abscissa (i-Center)/Scale.
	Center float64 `json:"center"`
	Scale  float64 `json:"scale"`
}

// PolynomialBaseline fits a polynomial of the given order to the
// (index, value) pairs of the non-null samples and subtracts it. Indices are
// centered and scaled to [-1, 1] before fitting to keep the normal equations
// well conditioned. Fewer than order+1 valid samples is ErrInsufficientData;
// a singular fit surfaces numeric.ErrSingular.
func PolynomialBaseline(values []float64, order int) (BaselineFit, error) {
	if order < 0 {
		return BaselineFit{}, eris.Wrapf(ErrNegativeOrder, "baseline order %d", order)
	}
	idx := ValidIndices(values)
	if len(idx) < order+1 {
		return BaselineFit{}, eris.Wrapf(ErrInsufficientData, "baseline order %d with %d points", order, len(idx))
	}

	first, last := float64(idx[0]), float64(idx[len(idx)-1])
	center := (first + last) / 2
	scale := (last - first) / 2
	if scale == 0 {
		scale = 1
	}

	x := make([]float64, len(idx))
	y := make([]float64, len(idx))
	for j, i := range idx {
		x[j] = (float64(i) - center) / scale
		y[j] = values[i]
	}
	coeffs, err := numeric.PolyFit(x, y, order)
	if err != nil {
		return BaselineFit{}, eris.Wrap(err, "baseline fit")
	}

	fit := BaselineFit{
		Corrected:    clone(values),
		Trend:        make([]float64, len(values)),
		Coefficients: coeffs,
		Center:       center,
		Scale:        scale,
	}
	for i := range values {
		t := numeric.PolyEval(coeffs, (float64(i)-center)/scale)
		fit.Trend[i] = t
		if !IsNull(values[i]) {
			fit.Corrected[i] = values[i] - t
		}
	}
	return fit, nil
}
