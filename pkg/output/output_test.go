package output

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixelcfestats/internal/models"
	"fixelcfestats/pkg/fixelio"
)

func TestWriteScalarMap_PreservesMaskGeometry(t *testing.T) {
	mask := models.NewSparseVolume(2, 1, 1, models.Affine{R: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}})
	mask.Set(0, 0, 0, []models.Fixel{{Direction: models.Vec3{X: 1}, Size: 2}})
	mask.Set(1, 0, 0, []models.Fixel{{Direction: models.Vec3{Y: 1}, Size: 3}})

	path := filepath.Join(t.TempDir(), "out.msf")
	require.NoError(t, WriteScalarMap(path, mask, []float64{0.1, 0.2}, nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := fixelio.Read(f)
	require.NoError(t, err)

	assert.Equal(t, mask.DimX, got.DimX)
	require.Len(t, got.At(0, 0, 0), 1)
	assert.Equal(t, float32(2), got.At(0, 0, 0)[0].Size)
	assert.Equal(t, float32(0.1), got.At(0, 0, 0)[0].Value)
	assert.Equal(t, float32(0.2), got.At(1, 0, 0)[0].Value)
}

func TestWriteNullDistribution_OneValuePerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "null.txt")
	require.NoError(t, WriteNullDistribution(path, []float64{1.5, 2.25, 3}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 3)
	assert.Equal(t, "1.5", lines[0])
}
