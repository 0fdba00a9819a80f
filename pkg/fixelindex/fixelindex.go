// Package fixelindex builds the dense fixel enumeration and voxel lookup
// table over a masked sparse fixel volume (spec §4.1, component A).
package fixelindex

import (
	"fixelcfestats/internal/models"
)

// Build walks mask in scan order (x fastest, z slowest, matching
// models.SparseVolume.Offset) and produces the fixel table and voxel index.
// For each populated voxel, first_fixel = len(fixels-so-far) and count = k;
// unpopulated voxels get first_fixel = -1. All fixels within a voxel are
// contiguous in the returned table, and the table's order is exactly scan
// order — the bijection-with-the-mask invariant from spec §8 follows
// directly from this construction.
func Build(mask *models.SparseVolume) (*models.FixelTable, *models.VoxelIndex) {
	table := &models.FixelTable{}
	index := models.NewVoxelIndex(mask.DimX, mask.DimY, mask.DimZ)

	for z := 0; z < mask.DimZ; z++ {
		for y := 0; y < mask.DimY; y++ {
			for x := 0; x < mask.DimX; x++ {
				fixels := mask.At(x, y, z)
				if len(fixels) == 0 {
					continue
				}

				first := int32(len(table.Fixels))
				pos := mask.Affine.VoxelToScanner(models.Vec3{X: float64(x), Y: float64(y), Z: float64(z)})

				for _, f := range fixels {
					table.Fixels = append(table.Fixels, f)
					table.Positions = append(table.Positions, pos)
				}

				index.Set(x, y, z, first, int32(len(fixels)))
			}
		}
	}

	return table, index
}
