package fixelindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixelcfestats/internal/models"
)

func identityAffine() models.Affine {
	return models.Affine{R: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

func TestBuild_TrivialTwoFixelMask(t *testing.T) {
	mask := models.NewSparseVolume(2, 1, 1, identityAffine())
	mask.Set(0, 0, 0, []models.Fixel{{Direction: models.Vec3{X: 1}, Size: 1}})
	mask.Set(1, 0, 0, []models.Fixel{{Direction: models.Vec3{Y: 1}, Size: 1}})

	table, index := Build(mask)

	require.Equal(t, 2, table.NumFixels())
	assert.Equal(t, models.Vec3{X: 1}, table.Fixels[0].Direction)
	assert.Equal(t, models.Vec3{Y: 1}, table.Fixels[1].Direction)

	first, count := index.Lookup(0, 0, 0)
	assert.Equal(t, int32(0), first)
	assert.Equal(t, int32(1), count)

	first, count = index.Lookup(1, 0, 0)
	assert.Equal(t, int32(1), first)
	assert.Equal(t, int32(1), count)
}

func TestBuild_EmptyVoxelGetsSentinel(t *testing.T) {
	mask := models.NewSparseVolume(2, 1, 1, identityAffine())
	mask.Set(0, 0, 0, []models.Fixel{{Direction: models.Vec3{X: 1}}})
	// voxel (1,0,0) left empty

	_, index := Build(mask)

	first, count := index.Lookup(1, 0, 0)
	assert.Equal(t, int32(-1), first)
	assert.Equal(t, int32(0), count)
}

// TestBuild_BijectiveWithMask checks the invariant from spec §8:
// sum of per-voxel counts equals num_fixels, and walking the voxels in scan
// order recovers the fixel table exactly.
func TestBuild_BijectiveWithMask(t *testing.T) {
	mask := models.NewSparseVolume(2, 2, 1, identityAffine())
	mask.Set(0, 0, 0, []models.Fixel{{Direction: models.Vec3{X: 1}}, {Direction: models.Vec3{Y: 1}}})
	mask.Set(1, 0, 0, nil)
	mask.Set(0, 1, 0, []models.Fixel{{Direction: models.Vec3{Z: 1}}})
	mask.Set(1, 1, 0, nil)

	table, index := Build(mask)

	total := 0
	var recovered []models.Fixel
	for z := 0; z < mask.DimZ; z++ {
		for y := 0; y < mask.DimY; y++ {
			for x := 0; x < mask.DimX; x++ {
				_, count := index.Lookup(x, y, z)
				total += int(count)
				recovered = append(recovered, mask.At(x, y, z)...)
			}
		}
	}

	assert.Equal(t, table.NumFixels(), total)
	require.Len(t, recovered, table.NumFixels())
	for i, f := range recovered {
		assert.Equal(t, f.Direction, table.Fixels[i].Direction)
	}
}
