package filter

import "github.com/rotisserie/eris"

// DenoiseMethod names a smoothing strategy.
type DenoiseMethod string

const (
	SavitzkyGolayMethod DenoiseMethod = "savitzky_golay"
	WaveletMethod       DenoiseMethod = "wavelet"
	MovingAverageMethod DenoiseMethod = "moving_average"
	GaussianMethod      DenoiseMethod = "gaussian"
)

// DespikeMethod names a spike detection strategy.
type DespikeMethod string

const (
	HampelMethod         DespikeMethod = "hampel"
	ModifiedZScoreMethod DespikeMethod = "modified_zscore"
	IQRMethod            DespikeMethod = "iqr"
	ManualMethod         DespikeMethod = "manual"
)

// Params carries the knobs shared by every strategy; each strategy reads the
// fields it needs.
type Params struct {
	WindowSize      int
	PolynomialOrder int
	Threshold       float64
	Indices         []int
}

// Outcome is the common result of a strategy: the filtered sequence, the
// indices it flagged (detectors only), and numeric diagnostics.
type Outcome struct {
	Values      []float64
	Flagged     []int
	Diagnostics map[string]float64
}

// Strategy is the shared signature of all denoise and despike strategies.
type Strategy func(values []float64, p Params) (Outcome, error)

var denoisers = map[DenoiseMethod]Strategy{
	SavitzkyGolayMethod: func(values []float64, p Params) (Outcome, error) {
		if err := requireValid(values, MinValidPoints); err != nil {
			return Outcome{}, err
		}
		out, err := SavitzkyGolay(values, p.WindowSize, p.PolynomialOrder)
		return Outcome{Values: out}, err
	},
	MovingAverageMethod: func(values []float64, p Params) (Outcome, error) {
		if err := requireValid(values, MinValidPoints); err != nil {
			return Outcome{}, err
		}
		out, err := MovingAverage(values, p.WindowSize)
		return Outcome{Values: out}, err
	},
	GaussianMethod: func(values []float64, p Params) (Outcome, error) {
		if err := requireValid(values, MinValidPoints); err != nil {
			return Outcome{}, err
		}
		out, err := Gaussian(values, p.WindowSize)
		return Outcome{Values: out}, err
	},
	WaveletMethod: func(values []float64, _ Params) (Outcome, error) {
		out, t, err := WaveletDenoise(values)
		return Outcome{Values: out, Diagnostics: map[string]float64{"threshold": t}}, err
	},
}

var despikers = map[DespikeMethod]Strategy{
	HampelMethod: func(values []float64, p Params) (Outcome, error) {
		res, err := Hampel(values, p.WindowSize, p.Threshold)
		return Outcome{Values: res.Cleaned, Flagged: res.Indices}, err
	},
	ModifiedZScoreMethod: func(values []float64, p Params) (Outcome, error) {
		res, err := ModifiedZScore(values, p.Threshold)
		return Outcome{Values: res.Cleaned, Flagged: res.Indices}, err
	},
	IQRMethod: func(values []float64, p Params) (Outcome, error) {
		res, err := IQR(values, p.Threshold)
		return Outcome{Values: res.Cleaned, Flagged: res.Indices}, err
	},
	ManualMethod: func(values []float64, p Params) (Outcome, error) {
		res, err := Manual(values, p.Indices)
		return Outcome{Values: res.Cleaned, Flagged: res.Indices}, err
	},
}

// Denoiser returns the strategy registered for method.
func Denoiser(method DenoiseMethod) (Strategy, error) {
	s, ok := denoisers[method]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownMethod, "denoise method %q", method)
	}
	return s, nil
}

// Despiker returns the strategy registered for method.
func Despiker(method DespikeMethod) (Strategy, error) {
	s, ok := despikers[method]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownMethod, "despike method %q", method)
	}
	return s, nil
}
