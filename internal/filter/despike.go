package filter

import (
	"math"

	"github.com/rotisserie/eris"
)

// Default detector thresholds.
const (
	DefaultHampelThreshold = 3.0
	DefaultZScoreThreshold = 3.5
	DefaultIQRMultiplier   = 1.5

	// modifiedZConstant is the 0.6745 factor of Iglewicz and Hoaglin's modified z-score.
	modifiedZConstant = 0.6745
	// meanADConstant scales the mean absolute deviation when the MAD is zero.
	meanADConstant = 1.253314
)

// SpikeResult is the output of a spike detector: the cleaned sequence with
// flagged samples median-substituted, and the flagged indices in ascending order.
type SpikeResult struct {
	Cleaned []float64 `json:"cleaned"`
	Indices []int     `json:"indices"`
}

func validateThreshold(t float64) error {
	if !(t > 0) || math.IsInf(t, 0) {
		return eris.Wrapf(ErrBadThreshold, "threshold %g", t)
	}
	return nil
}

// Hampel runs a sliding-window Hampel filter. For each index at least
// window/2 samples away from either end, the window median and MAD are
// computed; the sample is flagged when |x - median| > threshold*MAD and
// replaced with the window median. Indices closer to the boundaries are not
// evaluated. Windows are always taken from the input, so replacements never
// cascade.
func Hampel(values []float64, window int, threshold float64) (SpikeResult, error) {
	if err := ValidateWindow(window); err != nil {
		return SpikeResult{}, err
	}
	if err := validateThreshold(threshold); err != nil {
		return SpikeResult{}, err
	}
	if err := requireValid(values, MinValidPoints); err != nil {
		return SpikeResult{}, err
	}

	half := window / 2
	res := SpikeResult{Cleaned: clone(values)}
	for i := half; i < len(values)-half; i++ {
		x := values[i]
		if IsNull(x) {
			continue
		}
		win := values[i-half : i+half+1]
		if CountValid(win) < MinValidPoints {
			continue
		}
		med := Median(win)
		mad := MAD(win, med)
		if math.Abs(x-med) > threshold*mad {
			res.Cleaned[i] = med
			res.Indices = append(res.Indices, i)
		}
	}
	return res, nil
}

// ModifiedZScore flags samples whose modified z-score
// 0.6745*|x - median|/MAD exceeds threshold, using the global median and MAD,
// and replaces them with the global median. When the MAD is zero the mean
// absolute deviation (scaled by 1.253314) is used instead; when that is also
// zero nothing is flagged.
func ModifiedZScore(values []float64, threshold float64) (SpikeResult, error) {
	if err := validateThreshold(threshold); err != nil {
		return SpikeResult{}, err
	}
	if err := requireValid(values, MinValidPoints); err != nil {
		return SpikeResult{}, err
	}

	med := Median(values)
	scores := ModifiedZScores(values, med)
	res := SpikeResult{Cleaned: clone(values)}
	for i, z := range scores {
		if !IsNull(z) && z > threshold {
			res.Cleaned[i] = med
			res.Indices = append(res.Indices, i)
		}
	}
	return res, nil
}

// ModifiedZScores returns |modified z| per sample (NaN for nulls, 0 when the
// spread is zero).
func ModifiedZScores(values []float64, med float64) []float64 {
	out := make([]float64, len(values))
	mad := MAD(values, med)
	var scale float64
	switch {
	case mad > 0:
		scale = mad / modifiedZConstant
	default:
		scale = meanADConstant * MeanAbsDev(values, med)
	}
	for i, v := range values {
		switch {
		case IsNull(v):
			out[i] = math.NaN()
		case scale == 0:
			out[i] = 0
		default:
			out[i] = math.Abs(v-med) / scale
		}
	}
	return out
}

// CountOutliers returns how many samples have a modified z-score above threshold.
func CountOutliers(values []float64, threshold float64) int {
	if CountValid(values) < MinValidPoints {
		return 0
	}
	n := 0
	for _, z := range ModifiedZScores(values, Median(values)) {
		if !IsNull(z) && z > threshold {
			n++
		}
	}
	return n
}

// IQR flags samples outside [Q1 - k*IQR, Q3 + k*IQR] and replaces them with
// the global median.
func IQR(values []float64, k float64) (SpikeResult, error) {
	if err := validateThreshold(k); err != nil {
		return SpikeResult{}, err
	}
	if err := requireValid(values, MinValidPoints); err != nil {
		return SpikeResult{}, err
	}

	q1, q3 := Quartiles(values)
	spread := q3 - q1
	lo, hi := q1-k*spread, q3+k*spread
	med := Median(values)

	res := SpikeResult{Cleaned: clone(values)}
	for i, v := range values {
		if IsNull(v) {
			continue
		}
		if v < lo || v > hi {
			res.Cleaned[i] = med
			res.Indices = append(res.Indices, i)
		}
	}
	return res, nil
}

// Manual flags the given indices (out-of-range and null indices are ignored)
// and replaces them with the global median.
func Manual(values []float64, indices []int) (SpikeResult, error) {
	if err := requireValid(values, MinValidPoints); err != nil {
		return SpikeResult{}, err
	}
	med := Median(values)
	res := SpikeResult{Cleaned: clone(values)}
	seen := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(values) || seen[i] || IsNull(values[i]) {
			continue
		}
		seen[i] = true
	}
	for i := range values {
		if seen[i] {
			res.Cleaned[i] = med
			res.Indices = append(res.Indices, i)
		}
	}
	return res, nil
}
