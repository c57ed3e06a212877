package filter

import (
	"math"

	"github.com/rotisserie/eris"
)

// Replacement selects how flagged spike samples are replaced.
type Replacement string

const (
	ReplaceMedian Replacement = "median"
	ReplacePCHIP  Replacement = "pchip"
	ReplaceLinear Replacement = "linear"
	ReplaceNull   Replacement = "null"
)

// ParseReplacement maps a configuration label to a Replacement. The empty
// string selects median substitution.
func ParseReplacement(s string) (Replacement, error) {
	switch r := Replacement(s); r {
	case "":
		return ReplaceMedian, nil
	case ReplaceMedian, ReplacePCHIP, ReplaceLinear, ReplaceNull:
		return r, nil
	}
	return "", eris.Wrapf(ErrUnknownMethod, "replacement %q", s)
}

// Replace applies a replacement policy to a detector result. Median returns
// the detector's own cleaned sequence. PCHIP and linear re-interpolate the
// flagged indices over sample index from the unflagged valid samples, falling
// back to median substitution when fewer than two such samples remain. Null
// blanks the flagged samples.
func Replace(original []float64, res SpikeResult, method Replacement) ([]float64, error) {
	if len(res.Indices) == 0 {
		return clone(res.Cleaned), nil
	}
	switch method {
	case ReplaceMedian, "":
		return clone(res.Cleaned), nil
	case ReplaceNull:
		out := clone(original)
		for _, i := range res.Indices {
			out[i] = math.NaN()
		}
		return out, nil
	case ReplacePCHIP, ReplaceLinear:
		flagged := make(map[int]bool, len(res.Indices))
		for _, i := range res.Indices {
			flagged[i] = true
		}
		var kx, ky []float64
		for i, v := range original {
			if !IsNull(v) && !flagged[i] {
				kx = append(kx, float64(i))
				ky = append(ky, v)
			}
		}
		if len(kx) < 2 {
			return clone(res.Cleaned), nil
		}
		xi := make([]float64, len(res.Indices))
		for j, i := range res.Indices {
			xi[j] = float64(i)
		}
		interp := PCHIP
		if method == ReplaceLinear {
			interp = Linear
		}
		yi, err := interp(kx, ky, xi)
		if err != nil {
			return nil, err
		}
		out := clone(original)
		for j, i := range res.Indices {
			out[i] = yi[j]
		}
		return out, nil
	}
	return nil, eris.Wrapf(ErrUnknownMethod, "replacement %q", method)
}
