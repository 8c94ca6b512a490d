package sim

import (
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
)

// FieldStats summarizes one buffer state for reporting consumers. For
// reciprocal buffers the statistics are taken over coefficient magnitudes.
type FieldStats struct {
	Buffer string  `json:"buffer"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	L2     float64 `json:"l2_norm"`
	Count  int     `json:"count"`
}

// Summarize computes FieldStats for a buffer's current state.
func Summarize(b *Buffer) FieldStats {
	var values []float64
	if a := b.Real(); a != nil {
		values = a.Data()
	} else {
		data := b.Spectrum().Data()
		values = make([]float64, len(data))
		for i, v := range data {
			values[i] = cmplx.Abs(v)
		}
	}
	st := FieldStats{Buffer: b.Name(), Count: len(values)}
	if len(values) == 0 {
		return st
	}
	st.Min = floats.Min(values)
	st.Max = floats.Max(values)
	st.Mean = floats.Sum(values) / float64(len(values))
	st.L2 = floats.Norm(values, 2)
	return st
}

// SummarizeStore returns FieldStats for every buffer in declaration order.
func SummarizeStore(s *Store) []FieldStats {
	out := make([]FieldStats, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		out = append(out, Summarize(s.At(Handle(i))))
	}
	return out
}
