// Package output implements component G: writing a scalar value vector back
// onto the mask's sparse geometry, and the plain-text null distribution
// dump.
package output

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"fixelcfestats/internal/models"
	"fixelcfestats/pkg/fixelerrs"
	"fixelcfestats/pkg/fixelio"
)

// WriteScalarMap opens a sparse fixel image at path with the mask's
// geometry, and for every mask voxel copies its fixels' direction and size
// verbatim while setting value from values, indexed by fixel table
// position (spec §4.7). values must have exactly mask's total fixel count
// entries, in the same scan order fixelindex.Build produced the table in.
func WriteScalarMap(path string, mask *models.SparseVolume, values []float64, provenance *fixelio.Provenance) error {
	vol := models.NewSparseVolume(mask.DimX, mask.DimY, mask.DimZ, mask.Affine)

	idx := 0
	for z := 0; z < mask.DimZ; z++ {
		for y := 0; y < mask.DimY; y++ {
			for x := 0; x < mask.DimX; x++ {
				fixels := mask.At(x, y, z)
				if len(fixels) == 0 {
					continue
				}
				out := make([]models.Fixel, len(fixels))
				for k, f := range fixels {
					if idx >= len(values) {
						return fmt.Errorf("output: %s: %w", path, fixelerrs.ErrWrite)
					}
					out[k] = models.Fixel{Direction: f.Direction, Size: f.Size, Value: float32(values[idx])}
					idx++
				}
				vol.Set(x, y, z, out)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: creating %s: %w", path, fixelerrs.ErrWrite)
	}
	defer f.Close()

	if err := fixelio.Write(f, vol, provenance); err != nil {
		return fmt.Errorf("output: writing %s: %w", path, fixelerrs.ErrWrite)
	}
	return nil
}

// WriteNullDistribution writes one value per line, matching the
// `_perm_dist_{pos,neg}.txt` output files (spec §6).
func WriteNullDistribution(path string, null []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: creating %s: %w", path, fixelerrs.ErrWrite)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for _, v := range null {
		if _, err := bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64) + "\n"); err != nil {
			return fmt.Errorf("output: writing %s: %w", path, fixelerrs.ErrWrite)
		}
	}
	return bw.Flush()
}
