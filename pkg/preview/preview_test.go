package preview

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixelcfestats/internal/models"
)

func TestExtractSlice_ZAxisRescalesToMax(t *testing.T) {
	// 2x2x2 volume, scan order z slowest, x fastest.
	volume := []float64{
		0, 10, // z=0,y=0
		0, 0, // z=0,y=1
		0, 0, // z=1,y=0
		0, 0, // z=1,y=1
	}
	img, err := ExtractSlice(volume, 2, 2, 2, AxisZ, 0)
	require.NoError(t, err)

	gray, ok := img.(*image.Gray16)
	require.True(t, ok)
	assert.Equal(t, uint16(0), gray.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(65535), gray.Gray16At(1, 0).Y)
}

func TestExtractSlice_RejectsOutOfRangePosition(t *testing.T) {
	volume := make([]float64, 8)
	_, err := ExtractSlice(volume, 2, 2, 2, AxisX, 5)
	assert.Error(t, err)
}

func TestExtractSlice_RejectsMismatchedVolumeLength(t *testing.T) {
	volume := make([]float64, 4)
	_, err := ExtractSlice(volume, 2, 2, 2, AxisZ, 0)
	assert.Error(t, err)
}

func TestExtractSlice_AllZeroVolumeStaysBlack(t *testing.T) {
	volume := make([]float64, 8)
	img, err := ExtractSlice(volume, 2, 2, 2, AxisZ, 0)
	require.NoError(t, err)
	gray := img.(*image.Gray16)
	assert.Equal(t, uint16(0), gray.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(0), gray.Gray16At(1, 1).Y)
}

func TestFixelToVoxelVolume_SumsMultiFixelVoxel(t *testing.T) {
	index := models.NewVoxelIndex(2, 1, 1)
	index.Set(0, 0, 0, 0, 2) // two fixels at voxel 0
	index.Set(1, 0, 0, 2, 1) // one fixel at voxel 1

	perFixel := []float64{3, 4, 5}
	volume := FixelToVoxelVolume(perFixel, index)

	assert.Equal(t, []float64{7, 5}, volume)
}

func TestRender_WritesPNGFile(t *testing.T) {
	volume := []float64{1, 2, 3, 4}
	dir := t.TempDir()
	path := filepath.Join(dir, "slice.png")

	err := Render(volume, 2, 2, 1, AxisZ, 0, path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
