// Package cfe implements connectivity-based fixel enhancement (spec §4.5):
// turning a per-fixel t-statistic vector into a connectivity-weighted,
// height-integrated enhancement vector, split into positive and negative
// tails.
package cfe

import (
	"math"

	"fixelcfestats/pkg/connectivity"
)

// Params holds the enhancement exponents and integration step (spec §6).
type Params struct {
	Dh float64 // height integration step
	E  float64 // extent exponent
	H  float64 // height exponent
}

// Enhance evaluates the CFE integral independently for the positive and
// negative tails of t, against the finalised connectivity matrix m.
// Thresholds are swept as k*Dh for integer k (not by repeated addition of
// Dh) per spec §9's drift-avoidance note.
func Enhance(t []float64, m *connectivity.WeightMatrix, p Params) (pos, neg []float64) {
	n := len(t)
	pos = make([]float64, n)
	neg = make([]float64, n)
	if p.Dh <= 0 {
		return pos, neg
	}

	hMax := 0.0
	for _, v := range t {
		if a := math.Abs(v); a > hMax {
			hMax = a
		}
	}
	steps := int(hMax / p.Dh)

	for i := 0; i < n; i++ {
		row := m.Row(i)
		var acc float64

		for k := 1; k <= steps; k++ {
			threshold := float64(k) * p.Dh
			var extent float64
			for _, entry := range row {
				if math.Abs(t[entry.ID]) >= threshold {
					extent += float64(entry.Weight)
				}
			}
			acc += math.Pow(extent, p.E) * math.Pow(threshold, p.H) * p.Dh
		}

		switch {
		case t[i] > 0:
			pos[i] = acc
		case t[i] < 0:
			neg[i] = acc
		}
	}

	return pos, neg
}
