package filter

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"
)

// MinValidPoints is the fewest non-null samples a curve needs before any
// filter will touch it.
const MinValidPoints = 3

// IsNull reports whether v is a null sample.
func IsNull(v float64) bool { return math.IsNaN(v) }

// Valid returns the non-null samples of values in order.
func Valid(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !IsNull(v) {
			out = append(out, v)
		}
	}
	return out
}

// ValidIndices returns the indices of non-null samples.
func ValidIndices(values []float64) []int {
	out := make([]int, 0, len(values))
	for i, v := range values {
		if !IsNull(v) {
			out = append(out, i)
		}
	}
	return out
}

// CountValid returns the number of non-null samples.
func CountValid(values []float64) int {
	n := 0
	for _, v := range values {
		if !IsNull(v) {
			n++
		}
	}
	return n
}

func requireValid(values []float64, min int) error {
	if n := CountValid(values); n < min {
		return eris.Wrapf(ErrInsufficientData, "%d valid of %d required", n, min)
	}
	return nil
}

// Median returns the median of the non-null samples, or NaN when there are none.
func Median(values []float64) float64 {
	v := Valid(values)
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	n := len(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}

// MAD returns the median absolute deviation of the non-null samples around med.
func MAD(values []float64, med float64) float64 {
	dev := make([]float64, 0, len(values))
	for _, v := range values {
		if !IsNull(v) {
			dev = append(dev, math.Abs(v-med))
		}
	}
	return Median(dev)
}

// MeanAbsDev returns the mean absolute deviation of the non-null samples around center.
func MeanAbsDev(values []float64, center float64) float64 {
	var sum float64
	n := 0
	for _, v := range values {
		if !IsNull(v) {
			sum += math.Abs(v - center)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Quartiles returns Q1 and Q3 of the non-null samples using linear
// interpolation between order statistics.
func Quartiles(values []float64) (q1, q3 float64) {
	v := Valid(values)
	if len(v) == 0 {
		return math.NaN(), math.NaN()
	}
	sort.Float64s(v)
	return stat.Quantile(0.25, stat.LinInterp, v, nil), stat.Quantile(0.75, stat.LinInterp, v, nil)
}

// RMS returns the root mean square of the non-null samples.
func RMS(values []float64) float64 {
	var sum float64
	n := 0
	for _, v := range values {
		if !IsNull(v) {
			sum += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// DiffRMS returns the RMS of first differences between consecutive non-null
// samples divided by √2, a white-noise estimate that ignores slow trends.
func DiffRMS(values []float64) float64 {
	v := Valid(values)
	if len(v) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(v); i++ {
		d := v[i] - v[i-1]
		sum += d * d
	}
	return math.Sqrt(sum/float64(len(v)-1)) / math.Sqrt2
}

func clone(values []float64) []float64 {
	return append([]float64(nil), values...)
}

const (
	// MinSNRPoints is the fewest valid samples for which SNR is defined.
	MinSNRPoints = 10
	// MaxSNR caps the ratio of sequences with no sample-to-sample noise.
	MaxSNR = 100.0
)

// SNR returns 20*log10(RMS / DiffRMS) in dB. ok is false when fewer than
// MinSNRPoints samples are valid.
func SNR(values []float64) (snr float64, ok bool) {
	if CountValid(values) < MinSNRPoints {
		return 0, false
	}
	noise := DiffRMS(values)
	if noise == 0 {
		return MaxSNR, true
	}
	return math.Min(MaxSNR, 20*math.Log10(RMS(values)/noise)), true
}
