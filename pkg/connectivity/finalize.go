package connectivity

import (
	"math"
	"sort"

	"fixelcfestats/internal/models"
)

// Params configures finalisation (spec §4.3 and §6's CLI defaults).
type Params struct {
	// ConnectivityThreshold drops edges whose count/TDI[i] ratio falls below
	// this value before they ever reach the exponent or the smoothing pass.
	ConnectivityThreshold float64
	// CFEConnectivity is the exponent c applied to the surviving ratio to
	// produce the CFE connectivity weight.
	CFEConnectivity float64
	// SmoothFWHM is the full width at half maximum, in millimetres, of the
	// Gaussian smoothing kernel. Zero disables smoothing: each row of the
	// smoothing matrix then holds only its diagonal entry, with weight 1.
	SmoothFWHM float64
}

// Finalize turns a raw, concurrently-accumulated connectivity matrix into
// the two read-only matrices the rest of the pipeline needs: the CFE
// connectivity matrix (used by component F's enhancement step) and the
// smoothing weight matrix (used by component D to smooth subject data).
// tdi must have one entry per fixel, and positions is the fixel table's
// parallel position slice.
//
// Finalisation runs single-threaded, row by row in ascending fixel order
// (spec §4.3) — there is no per-row independence to parallelise across once
// the raw matrix has to be symmetrised first.
func Finalize(raw *RawMatrix, tdi []uint32, positions []models.Vec3, p Params) (connectivityM, smoothingM *WeightMatrix) {
	n := raw.NumFixels()
	sym := symmetrize(raw)

	connectivityM = NewWeightMatrix(n)
	smoothingM = NewWeightMatrix(n)

	sigma := p.SmoothFWHM / 2.3548
	gaussianConst := 1.0
	smoothingEnabled := p.SmoothFWHM > 0
	if smoothingEnabled {
		gaussianConst = 1.0 / (sigma * math.Sqrt(2*math.Pi))
	}

	for i := 0; i < n; i++ {
		var connRow, smoothRow []Entry
		denom := float64(tdi[i])

		for j, count := range sym[i] {
			if denom == 0 {
				continue
			}
			c := float64(count) / denom
			if c < p.ConnectivityThreshold {
				continue
			}

			weight := math.Pow(c, p.CFEConnectivity)
			connRow = append(connRow, Entry{ID: j, Weight: float32(weight)})

			if smoothingEnabled {
				d := positions[i].Sub(positions[j]).Norm()
				w := c * gaussianConst * math.Exp(-(d*d)/(2*sigma*sigma))
				if w > p.ConnectivityThreshold {
					smoothRow = append(smoothRow, Entry{ID: j, Weight: float32(w)})
				}
			}
		}

		connRow = append(connRow, Entry{ID: int32(i), Weight: 1.0})
		smoothRow = append(smoothRow, Entry{ID: int32(i), Weight: float32(gaussianConst)})

		sort.Slice(connRow, func(a, b int) bool { return connRow[a].ID < connRow[b].ID })
		sort.Slice(smoothRow, func(a, b int) bool { return smoothRow[a].ID < smoothRow[b].ID })

		connectivityM.SetRow(i, connRow)
		smoothingM.SetRow(i, normalizeRow(smoothRow))
	}

	return connectivityM, smoothingM
}

// symmetrize expands the raw matrix's upper triangle into a full
// row-indexed neighbour map, writing each stored edge into both its rows.
func symmetrize(raw *RawMatrix) []map[int32]uint32 {
	n := raw.NumFixels()
	sym := make([]map[int32]uint32, n)
	for i := range sym {
		sym[i] = make(map[int32]uint32)
	}
	for i := 0; i < n; i++ {
		for j, count := range raw.Row(i) {
			sym[i][j] = count
			sym[j][int32(i)] = count
		}
	}
	return sym
}

// normalizeRow divides every weight in row by the row's sum, so smoothing
// weights sum to 1 (spec §4.3's row-stochastic requirement). A row that
// somehow sums to zero is returned unchanged rather than producing NaNs.
func normalizeRow(row []Entry) []Entry {
	var sum float64
	for _, e := range row {
		sum += float64(e.Weight)
	}
	if sum == 0 {
		return row
	}
	for i := range row {
		row[i].Weight = float32(float64(row[i].Weight) / sum)
	}
	return row
}
