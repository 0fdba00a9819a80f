package trackmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixelcfestats/internal/models"
)

func identityAffine() models.Affine {
	return models.Affine{R: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

func TestMapStreamline_SinglePointProducesNothing(t *testing.T) {
	got := MapStreamline([]models.Vec3{{X: 0.5}}, identityAffine(), 4, 4, 4)
	assert.Nil(t, got)
}

func TestMapStreamline_StraightLineAlongX(t *testing.T) {
	points := []models.Vec3{{X: 0.5, Y: 0.5}, {X: 1.5, Y: 0.5}, {X: 2.5, Y: 0.5}}
	got := MapStreamline(points, identityAffine(), 4, 4, 4)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].X)
	assert.InDelta(t, 1.0, got[0].Tangent.X, 1e-9)
	assert.InDelta(t, 0.0, got[0].Tangent.Y, 1e-9)
}

func TestMapStreamline_ClipsOutOfBoundsVoxels(t *testing.T) {
	points := []models.Vec3{{X: -5}, {X: -4}}
	got := MapStreamline(points, identityAffine(), 4, 4, 4)
	assert.Empty(t, got)
}

func TestMapStreamline_RevisitedVoxelAveragesTangent(t *testing.T) {
	// Three segments landing in the same voxel with different directions:
	// the averaged-then-renormalised tangent should still be unit length.
	points := []models.Vec3{{X: 0.5, Y: 0.5}, {X: 0.5, Y: 0.6}, {X: 0.5, Y: 0.5}, {X: 0.6, Y: 0.5}}
	got := MapStreamline(points, identityAffine(), 4, 4, 4)

	require.Len(t, got, 1)
	assert.InDelta(t, 1.0, got[0].Tangent.Norm(), 1e-9)
}
