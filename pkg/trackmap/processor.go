package trackmap

import (
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"fixelcfestats/internal/models"
	"fixelcfestats/pkg/connectivity"
	"fixelcfestats/pkg/fixelerrs"
	"fixelcfestats/pkg/progress"
	"fixelcfestats/pkg/streamline"
	"fixelcfestats/pkg/workerpool"
)

// Config holds the track processor's tunables (spec §6).
type Config struct {
	AngleDegrees float64
	Workers      int
}

// Result is component B's output: the raw connectivity matrix and the
// track density (number of accepted tangent-fixel matches) per fixel.
type Result struct {
	Matrix *connectivity.RawMatrix
	TDI    []uint32
}

// Process streams every streamline out of r, maps it onto the fixel table
// via the tangent-to-fixel rule in spec §4.2 Stage 1, and accumulates the
// connectivity matrix and TDI in Stage 2. It parallelises across cfg.Workers
// goroutines fed by a single reader goroutine — the reader is inherently
// sequential (Next() is not safe for concurrent use), so it is never itself
// parallelised, matching the bounded producer/consumer split spec §9
// describes for this phase.
func Process(r *streamline.Reader, table *models.FixelTable, index *models.VoxelIndex, affine models.Affine, dimX, dimY, dimZ int, cfg Config, sig *workerpool.Signal, bar *progress.Bar) (*Result, error) {
	if r.Properties.Count() == 0 {
		return nil, fixelerrs.ErrEmptyTractogram
	}

	n := table.NumFixels()
	raw := connectivity.NewRawMatrix(n)
	tdi := make([]atomic.Uint32, n)
	cosTheta := math.Cos(cfg.AngleDegrees * math.Pi / 180)

	jobs := make(chan []models.Vec3, cfg.Workers*4)
	var readErr error

	go func() {
		defer close(jobs)
		for {
			points, err := r.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				readErr = fmt.Errorf("trackmap: reading streamline: %w", err)
				sig.Cancel()
				return
			}
			jobs <- points
		}
	}()

	err := workerpool.RunQueue(cfg.Workers, jobs, sig, func(points []models.Vec3) error {
		processStreamline(points, table, index, affine, dimX, dimY, dimZ, cosTheta, raw, &tdi)
		bar.Increment()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}

	snapshot := make([]uint32, n)
	for i := range snapshot {
		snapshot[i] = tdi[i].Load()
	}

	return &Result{Matrix: raw, TDI: snapshot}, nil
}

// processStreamline implements both stages of spec §4.2 for a single
// streamline: tangent-to-fixel matching, then pairwise accumulation of
// every unordered pair of accepted fixels into the shared matrix and TDI.
func processStreamline(points []models.Vec3, table *models.FixelTable, index *models.VoxelIndex, affine models.Affine, dimX, dimY, dimZ int, cosTheta float64, raw *connectivity.RawMatrix, tdi *[]atomic.Uint32) {
	voxelTangents := MapStreamline(points, affine, dimX, dimY, dimZ)

	var matched []int32
	for _, vt := range voxelTangents {
		first, count := index.Lookup(vt.X, vt.Y, vt.Z)
		if count == 0 {
			continue
		}
		fixelID, ok := matchFixel(vt.Tangent, first, count, table, cosTheta)
		if !ok {
			continue
		}
		(*tdi)[fixelID].Add(1)
		matched = append(matched, fixelID)
	}

	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			raw.AddPair(matched[i], matched[j])
		}
	}
}

// matchFixel selects the fixel in [first, first+count) whose direction
// maximises |tangent . direction|, accepting the match only if that maximum
// exceeds cosTheta (spec §4.2 Stage 1).
func matchFixel(tangent models.Vec3, first, count int32, table *models.FixelTable, cosTheta float64) (int32, bool) {
	best := int32(-1)
	bestAbsDot := -1.0

	for k := int32(0); k < count; k++ {
		id := first + k
		dot := math.Abs(tangent.Dot(table.Fixels[id].Direction))
		if dot > bestAbsDot {
			bestAbsDot = dot
			best = id
		}
	}

	if best < 0 || bestAbsDot <= cosTheta {
		return -1, false
	}
	return best, true
}
