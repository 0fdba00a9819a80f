package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"fixelcfestats/internal/models"
	"fixelcfestats/pkg/fixelindex"
	"fixelcfestats/pkg/glm"
)

func identityAffine() models.Affine {
	return models.Affine{R: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

func TestPadContrast_PadsShorterRowWithZeros(t *testing.T) {
	padded := padContrast([]float64{1}, 3)
	assert.Equal(t, []float64{1, 0, 0}, padded)
}

func TestPadContrast_ExactLengthRowIsUnchanged(t *testing.T) {
	padded := padContrast([]float64{1, -1}, 2)
	assert.Equal(t, []float64{1, -1}, padded)
}

// TestWriteAuxiliaryMaps_BetaFilesBoundedByContrastColumns reproduces the
// case of a 2-column design (intercept + covariate) with a 1-column
// contrast, which padding applies to the leading (intercept) column:
// exactly one _beta{i}.msf should be written, not one per design column.
func TestWriteAuxiliaryMaps_BetaFilesBoundedByContrastColumns(t *testing.T) {
	mask := models.NewSparseVolume(1, 1, 1, identityAffine())
	mask.Set(0, 0, 0, []models.Fixel{{Direction: models.Vec3{X: 1}}})
	table, _ := fixelindex.Build(mask)

	design := mat.NewDense(4, 2, []float64{
		1, 0,
		1, 0,
		1, 1,
		1, 1,
	})
	fit, err := glm.Prepare(design)
	require.NoError(t, err)

	data := mat.NewDense(1, 4, []float64{1, 1, 2, 2})

	contrastRow := padContrast([]float64{1}, 2)
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run")

	err = writeAuxiliaryMaps(mask, table, data, fit, contrastRow, 1, prefix, nil)
	require.NoError(t, err)

	_, err = os.Stat(prefix + "_beta0.msf")
	assert.NoError(t, err)
	_, err = os.Stat(prefix + "_beta1.msf")
	assert.True(t, os.IsNotExist(err))
}
