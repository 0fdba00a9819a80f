// Package preview renders a single 2-D slice of a per-voxel scalar volume
// (a TDI count map or a mask occupancy map) to a grayscale PNG, for quick
// visual sanity-checking of a run without loading the .msf outputs into a
// full MRI viewer. It is a diagnostic side-channel, not part of the
// statistical pipeline.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"fixelcfestats/internal/models"
)

// Axis selects which plane a slice is cut along.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// ExtractSlice cuts a 2-D grayscale image out of a flat, scan-order
// (z slowest, x fastest) per-voxel scalar volume of shape
// dimX x dimY x dimZ. Values are linearly rescaled against the volume's own
// max so a sparse TDI count map and a 0/1 mask both render visibly.
func ExtractSlice(volume []float64, dimX, dimY, dimZ int, axis Axis, position int) (image.Image, error) {
	if len(volume) != dimX*dimY*dimZ {
		return nil, fmt.Errorf("preview: volume has %d voxels, want %d", len(volume), dimX*dimY*dimZ)
	}

	max := 0.0
	for _, v := range volume {
		if v > max {
			max = v
		}
	}
	scale := func(v float64) uint16 {
		if max <= 0 {
			return 0
		}
		return uint16(math.Max(0, math.Min(65535, v/max*65535)))
	}
	offset := func(x, y, z int) int { return (z*dimY+y)*dimX + x }

	var img *image.Gray16
	switch axis {
	case AxisX:
		if position < 0 || position >= dimX {
			return nil, fmt.Errorf("preview: position %d exceeds dim x %d", position, dimX)
		}
		img = image.NewGray16(image.Rect(0, 0, dimY, dimZ))
		for z := 0; z < dimZ; z++ {
			for y := 0; y < dimY; y++ {
				img.SetGray16(y, z, color.Gray16{Y: scale(volume[offset(position, y, z)])})
			}
		}
	case AxisY:
		if position < 0 || position >= dimY {
			return nil, fmt.Errorf("preview: position %d exceeds dim y %d", position, dimY)
		}
		img = image.NewGray16(image.Rect(0, 0, dimX, dimZ))
		for z := 0; z < dimZ; z++ {
			for x := 0; x < dimX; x++ {
				img.SetGray16(x, z, color.Gray16{Y: scale(volume[offset(x, position, z)])})
			}
		}
	case AxisZ:
		if position < 0 || position >= dimZ {
			return nil, fmt.Errorf("preview: position %d exceeds dim z %d", position, dimZ)
		}
		img = image.NewGray16(image.Rect(0, 0, dimX, dimY))
		for y := 0; y < dimY; y++ {
			for x := 0; x < dimX; x++ {
				img.SetGray16(x, y, color.Gray16{Y: scale(volume[offset(x, y, position)])})
			}
		}
	default:
		return nil, fmt.Errorf("preview: invalid axis %q (must be x, y, or z)", axis)
	}

	return img, nil
}

// SavePNG writes img to path as a PNG file.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: creating %s: %w", path, err)
	}
	defer f.Close()
	return png.Encode(f, img)
}

// Render extracts a slice and writes it straight to path, for callers that
// don't need the intermediate image.Image.
func Render(volume []float64, dimX, dimY, dimZ int, axis Axis, position int, path string) error {
	img, err := ExtractSlice(volume, dimX, dimY, dimZ, axis, position)
	if err != nil {
		return err
	}
	return SavePNG(img, path)
}

// FixelToVoxelVolume scatters a per-fixel scalar (such as component B's TDI
// counts, indexed by fixel id in table's scan order) back into a per-voxel
// scan-order volume, summing over every fixel a multi-fixel voxel holds. The
// result is directly usable by ExtractSlice.
func FixelToVoxelVolume(perFixel []float64, index *models.VoxelIndex) []float64 {
	out := make([]float64, index.DimX*index.DimY*index.DimZ)
	for z := 0; z < index.DimZ; z++ {
		for y := 0; y < index.DimY; y++ {
			for x := 0; x < index.DimX; x++ {
				first, count := index.Lookup(x, y, z)
				if count == 0 {
					continue
				}
				var sum float64
				for f := first; f < first+count; f++ {
					sum += perFixel[f]
				}
				out[(z*index.DimY+y)*index.DimX+x] = sum
			}
		}
	}
	return out
}

// TDIVolume converts component B's per-fixel track-density counts into a
// per-voxel scan-order volume suitable for ExtractSlice.
func TDIVolume(tdi []uint32, index *models.VoxelIndex) []float64 {
	perFixel := make([]float64, len(tdi))
	for i, v := range tdi {
		perFixel[i] = float64(v)
	}
	return FixelToVoxelVolume(perFixel, index)
}
