// Package trackmap implements component B: the tract-to-voxel mapper (the
// external collaborator spec.md §4.2 Stage 1 names) and the track processor
// built on top of it, which maps every streamline onto the fixels it passes
// through and accumulates the whole-brain connectivity matrix and TDI.
package trackmap

import (
	"math"

	"fixelcfestats/internal/models"
)

// VoxelTangent is one voxel a streamline passes through, with the unit
// tangent direction the streamline has at that voxel (averaged over every
// segment of the streamline that lands in it).
type VoxelTangent struct {
	X, Y, Z int
	Tangent models.Vec3
}

// MapStreamline reduces a streamline's points to the unique voxels it
// visits, each with one associated unit tangent, clipped to
// [0,dimX)x[0,dimY)x[0,dimZ). Streamlines of fewer than two points produce
// no voxels — a single point has no direction.
//
// Each segment's tangent is assigned to the voxel containing the segment's
// midpoint; a streamline that threads back through the same voxel more than
// once has its tangents for that voxel averaged, then renormalised, rather
// than counted twice.
func MapStreamline(points []models.Vec3, affine models.Affine, dimX, dimY, dimZ int) []VoxelTangent {
	if len(points) < 2 {
		return nil
	}

	type accum struct {
		x, y, z int
		sum     models.Vec3
		n       int
	}

	var order []*accum
	index := make(map[[3]int]*accum)

	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		tangent := b.Sub(a).Normalized()
		if tangent == (models.Vec3{}) {
			continue
		}

		mid := models.Vec3{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2, Z: (a.Z + b.Z) / 2}
		voxel := affine.ScannerToVoxel(mid)
		x, y, z := roundToInt(voxel.X), roundToInt(voxel.Y), roundToInt(voxel.Z)
		if x < 0 || x >= dimX || y < 0 || y >= dimY || z < 0 || z >= dimZ {
			continue
		}

		key := [3]int{x, y, z}
		cell, ok := index[key]
		if !ok {
			cell = &accum{x: x, y: y, z: z}
			index[key] = cell
			order = append(order, cell)
		}
		cell.sum.X += tangent.X
		cell.sum.Y += tangent.Y
		cell.sum.Z += tangent.Z
		cell.n++
	}

	result := make([]VoxelTangent, len(order))
	for i, cell := range order {
		avg := models.Vec3{X: cell.sum.X / float64(cell.n), Y: cell.sum.Y / float64(cell.n), Z: cell.sum.Z / float64(cell.n)}
		result[i] = VoxelTangent{X: cell.x, Y: cell.y, Z: cell.z, Tangent: avg.Normalized()}
	}
	return result
}

func roundToInt(v float64) int {
	return int(math.Round(v))
}
