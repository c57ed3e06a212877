package processor

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lasqc/internal/filter"
)

// Window size limits accepted by the smoothing and Hampel strategies.
const (
	MinWindowSize = 3
	MaxWindowSize = 21
)

// DenoiseOptions configures Denoise.
type DenoiseOptions struct {
	Method          filter.DenoiseMethod `json:"method"`
	WindowSize      int                  `json:"window_size"`
	PolynomialOrder int                  `json:"polynomial_order"`
	// Strength blends filtered and original values: 0 leaves the data
	// unchanged, 1 uses the filtered values.
	Strength       float64  `json:"strength"`
	PreserveSpikes bool     `json:"preserve_spikes"`
	Curves         []string `json:"curves,omitempty"`
}

// DefaultDenoiseOptions returns Savitzky-Golay 7/2 at full strength.
func DefaultDenoiseOptions() DenoiseOptions {
	return DenoiseOptions{
		Method:          filter.SavitzkyGolayMethod,
		WindowSize:      7,
		PolynomialOrder: 2,
		Strength:        1,
	}
}

// Validate reports every invalid option at once.
func (o DenoiseOptions) Validate() error {
	var errs []string
	if _, err := filter.Denoiser(o.Method); err != nil {
		errs = append(errs, err.Error())
	}
	if o.Method != filter.WaveletMethod {
		if err := validateWindow(o.WindowSize); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if o.Method == filter.SavitzkyGolayMethod && (o.PolynomialOrder < 0 || o.PolynomialOrder >= o.WindowSize) {
		errs = append(errs, fmt.Sprintf("order %d, window %d: %s", o.PolynomialOrder, o.WindowSize, filter.ErrOrderTooHigh))
	}
	if o.Strength < 0 || o.Strength > 1 {
		errs = append(errs, fmt.Sprintf("strength %g must be within [0, 1]", o.Strength))
	}
	return joinErrors("denoise", errs)
}

// DespikeOptions configures Despike. A zero Threshold selects the method's
// default. ManualIndices is read only by the manual method.
type DespikeOptions struct {
	Method            filter.DespikeMethod `json:"method"`
	Threshold         float64              `json:"threshold"`
	WindowSize        int                  `json:"window_size"`
	ReplacementMethod filter.Replacement   `json:"replacement_method"`
	ManualIndices     map[string][]int     `json:"manual_indices,omitempty"`
	Curves            []string             `json:"curves,omitempty"`
}

// DefaultDespikeOptions returns a Hampel filter with window 7 and threshold 3.
func DefaultDespikeOptions() DespikeOptions {
	return DespikeOptions{
		Method:            filter.HampelMethod,
		Threshold:         filter.DefaultHampelThreshold,
		WindowSize:        7,
		ReplacementMethod: filter.ReplaceMedian,
	}
}

// EffectiveThreshold returns Threshold or the method's default when unset.
func (o DespikeOptions) EffectiveThreshold() float64 {
	if o.Threshold != 0 {
		return o.Threshold
	}
	switch o.Method {
	case filter.ModifiedZScoreMethod:
		return filter.DefaultZScoreThreshold
	case filter.IQRMethod:
		return filter.DefaultIQRMultiplier
	}
	return filter.DefaultHampelThreshold
}

// Validate reports every invalid option at once.
func (o DespikeOptions) Validate() error {
	var errs []string
	if _, err := filter.Despiker(o.Method); err != nil {
		errs = append(errs, err.Error())
	}
	if o.Method == filter.HampelMethod {
		if err := validateWindow(o.WindowSize); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if t := o.EffectiveThreshold(); t <= 0 {
		errs = append(errs, fmt.Sprintf("threshold %g: %s", t, filter.ErrBadThreshold))
	}
	if _, err := filter.ParseReplacement(string(o.ReplacementMethod)); err != nil {
		errs = append(errs, err.Error())
	}
	return joinErrors("despike", errs)
}

// BaselineMethod names a baseline correction strategy.
type BaselineMethod string

// BaselinePolynomial fits and subtracts a least-squares polynomial trend.
const BaselinePolynomial BaselineMethod = "polynomial"

// MaxPolynomialOrder bounds the baseline polynomial order.
const MaxPolynomialOrder = 6

// BaselineOptions configures BaselineCorrection.
type BaselineOptions struct {
	Method          BaselineMethod `json:"method"`
	PolynomialOrder int            `json:"polynomial_order"`
	Curves          []string       `json:"curves,omitempty"`
}

// DefaultBaselineOptions returns a quadratic polynomial detrend.
func DefaultBaselineOptions() BaselineOptions {
	return BaselineOptions{Method: BaselinePolynomial, PolynomialOrder: 2}
}

// Validate reports every invalid option at once.
func (o BaselineOptions) Validate() error {
	var errs []string
	if o.Method != BaselinePolynomial {
		errs = append(errs, fmt.Sprintf("baseline method %q: %s", o.Method, filter.ErrUnknownMethod))
	}
	if o.PolynomialOrder < 0 || o.PolynomialOrder > MaxPolynomialOrder {
		errs = append(errs, fmt.Sprintf("polynomial order %d must be within [0, %d]", o.PolynomialOrder, MaxPolynomialOrder))
	}
	return joinErrors("baseline", errs)
}

// FillGapsOptions configures FillGaps. MaxGap <= 0 fills interior gaps of any length.
type FillGapsOptions struct {
	MaxGap int      `json:"max_gap"`
	Curves []string `json:"curves,omitempty"`
}

func validateWindow(w int) error {
	if err := filter.ValidateWindow(w); err != nil {
		return err
	}
	if w > MaxWindowSize {
		return eris.Errorf("window %d exceeds maximum %d", w, MaxWindowSize)
	}
	return nil
}

func joinErrors(op string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return eris.Errorf("%s: invalid options: %s", op, strings.Join(errs, "; "))
}
