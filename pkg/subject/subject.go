// Package subject implements component D: loading each subject's fixel
// image, resolving its fixels to the template's by direction, and smoothing
// the result along the connectivity-weighted kernel from component C.
package subject

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"fixelcfestats/internal/models"
	"fixelcfestats/pkg/connectivity"
	"fixelcfestats/pkg/fixelerrs"
	"fixelcfestats/pkg/fixelio"
	"fixelcfestats/pkg/progress"
	"fixelcfestats/pkg/workerpool"
)

// Config holds the subject loader's tunables (spec §6).
type Config struct {
	AngleDegrees float64
	Workers      int
}

// LoadAndSmooth opens every subject fixel image named in paths, resolves
// each to the template's fixels, smooths the result, and writes it into
// column s of the returned num_fixels x num_subjects matrix. Subjects are
// independent and loaded across cfg.Workers goroutines — each writes only
// to its own disjoint column, so no locking is needed around the matrix
// itself (spec §5).
func LoadAndSmooth(paths []string, index *models.VoxelIndex, table *models.FixelTable, smoothing *connectivity.WeightMatrix, cfg Config, sig *workerpool.Signal, bar *progress.Bar) (*mat.Dense, error) {
	numFixels := table.NumFixels()
	numSubjects := len(paths)
	data := mat.NewDense(numFixels, numSubjects, nil)
	cosTheta := math.Cos(cfg.AngleDegrees * math.Pi / 180)

	pool := workerpool.New(cfg.Workers)
	err := pool.RunIndexed(numSubjects, sig, func(s int) error {
		defer bar.Increment()
		return loadOne(paths[s], s, index, table, smoothing, cosTheta, data)
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func loadOne(path string, column int, index *models.VoxelIndex, table *models.FixelTable, smoothing *connectivity.WeightMatrix, cosTheta float64, data *mat.Dense) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("subject: %s: %w", path, fixelerrs.ErrInputNotFound)
		}
		return fmt.Errorf("subject: opening %s: %w", path, err)
	}
	defer f.Close()

	vol, err := fixelio.Read(f)
	if err != nil {
		return fmt.Errorf("subject: reading %s: %w", path, err)
	}
	if vol.DimX != index.DimX || vol.DimY != index.DimY || vol.DimZ != index.DimZ {
		return fmt.Errorf("subject: %s: %w", path, fixelerrs.ErrDimensionMismatch)
	}

	raw := correspond(vol, index, table, cosTheta)
	smooth(raw, smoothing, column, data)
	return nil
}

// correspond implements spec §4.4 step 3: for each template fixel, scan the
// subject's co-located voxel and keep the best angular match's value, or
// zero if nothing in the voxel clears the threshold.
func correspond(vol *models.SparseVolume, index *models.VoxelIndex, table *models.FixelTable, cosTheta float64) []float64 {
	raw := make([]float64, table.NumFixels())

	for z := 0; z < index.DimZ; z++ {
		for y := 0; y < index.DimY; y++ {
			for x := 0; x < index.DimX; x++ {
				first, count := index.Lookup(x, y, z)
				if count == 0 {
					continue
				}
				subjectFixels := vol.At(x, y, z)
				if len(subjectFixels) == 0 {
					continue
				}
				for k := int32(0); k < count; k++ {
					i := first + k
					direction := table.Fixels[i].Direction

					best := -1
					bestAbsDot := -1.0
					for si, sf := range subjectFixels {
						dot := math.Abs(direction.Dot(sf.Direction))
						if dot > bestAbsDot {
							bestAbsDot = dot
							best = si
						}
					}
					if best >= 0 && bestAbsDot > cosTheta {
						raw[i] = float64(subjectFixels[best].Value)
					}
				}
			}
		}
	}

	return raw
}

// smooth implements spec §4.4 step 4: data[i][s] = sum_j weights[i][j]*raw[j].
func smooth(raw []float64, weights *connectivity.WeightMatrix, column int, data *mat.Dense) {
	for i := 0; i < weights.NumFixels(); i++ {
		var acc float64
		for _, e := range weights.Row(i) {
			acc += float64(e.Weight) * raw[e.ID]
		}
		data.Set(i, column, acc)
	}
}
