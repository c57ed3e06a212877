package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Samples is a curve's value column. Null samples are NaN in memory and
// null on the wire.
type Samples []float64

// Null is the in-memory representation of a missing sample.
func Null() float64 { return math.NaN() }

// IsNull reports whether v represents a missing sample.
func IsNull(v float64) bool { return math.IsNaN(v) }

// MarshalJSON encodes NaN and infinities as null.
func (s Samples) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, len(s)*8+2)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

// UnmarshalJSON decodes null entries as NaN.
func (s *Samples) UnmarshalJSON(b []byte) error {
	var raw []*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Samples, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	*s = out
	return nil
}

// Clone returns an independent copy.
func (s Samples) Clone() Samples {
	if s == nil {
		return nil
	}
	out := make(Samples, len(s))
	copy(out, s)
	return out
}

// NullCount returns the number of missing samples.
func (s Samples) NullCount() int {
	n := 0
	for _, v := range s {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
