package cfe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fixelcfestats/pkg/connectivity"
)

func singleFixelMatrix() *connectivity.WeightMatrix {
	m := connectivity.NewWeightMatrix(1)
	m.SetRow(0, []connectivity.Entry{{ID: 0, Weight: 1.0}})
	return m
}

func TestEnhance_SplitsPositiveAndNegativeTails(t *testing.T) {
	m := singleFixelMatrix()
	pos, neg := Enhance([]float64{2.5}, m, Params{Dh: 0.1, E: 2, H: 1})

	assert.Greater(t, pos[0], 0.0)
	assert.Equal(t, 0.0, neg[0])
}

func TestEnhance_ZeroInputGivesZeroEnhancement(t *testing.T) {
	m := singleFixelMatrix()
	pos, neg := Enhance([]float64{0}, m, Params{Dh: 0.1, E: 2, H: 1})
	assert.Equal(t, 0.0, pos[0])
	assert.Equal(t, 0.0, neg[0])
}

// TestEnhance_Monotonicity checks spec §8's CFE monotonicity invariant: a
// strictly larger |T| everywhere, same neighbourhood, never decreases E.
func TestEnhance_Monotonicity(t *testing.T) {
	m := connectivity.NewWeightMatrix(2)
	m.SetRow(0, []connectivity.Entry{{ID: 0, Weight: 1.0}, {ID: 1, Weight: 0.5}})
	m.SetRow(1, []connectivity.Entry{{ID: 1, Weight: 1.0}, {ID: 0, Weight: 0.5}})

	small, _ := Enhance([]float64{1.0, 1.0}, m, Params{Dh: 0.1, E: 2, H: 1})
	large, _ := Enhance([]float64{2.0, 2.0}, m, Params{Dh: 0.1, E: 2, H: 1})

	for i := range small {
		assert.GreaterOrEqual(t, large[i], small[i])
	}
}
