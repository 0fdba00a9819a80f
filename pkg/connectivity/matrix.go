// Package connectivity holds the whole-brain fixel connectivity matrix: its
// raw, concurrently-built form (component B's output) and its finalised,
// read-only form (component C's output, also used for smoothing weights).
//
// The raw form stores only the upper triangle (row i holds entries j with
// j > i) in a map per row while building; the finalised form stores every
// row, diagonal included, as entries sorted by fixel id — a flat sorted
// slice is faster to binary-search and scan than a map once the matrix
// stops changing (spec §9's data-structure note).
package connectivity

import "sync"

// RawMatrix accumulates undirected edge counts between fixels during track
// processing. AddPair is safe for concurrent use from many goroutines
// provided each goroutine only ever touches rows through AddPair (never
// reads rows directly while building); the mutex for row min(a,b) is the
// sole lock taken, so two goroutines updating disjoint rows never contend.
type RawMatrix struct {
	rows []map[int32]uint32
	mus  []sync.Mutex
}

// NewRawMatrix allocates a raw matrix over n fixels, all rows empty.
func NewRawMatrix(n int) *RawMatrix {
	rows := make([]map[int32]uint32, n)
	for i := range rows {
		rows[i] = make(map[int32]uint32)
	}
	return &RawMatrix{rows: rows, mus: make([]sync.Mutex, n)}
}

// NumFixels returns the number of rows (fixels) in the matrix.
func (m *RawMatrix) NumFixels() int {
	return len(m.rows)
}

// AddPair increments the edge count between fixels a and b (a != b). The
// pair is stored under row min(a,b), keyed by max(a,b), per spec §4.2's
// accumulation rule.
func (m *RawMatrix) AddPair(a, b int32) {
	if a == b {
		return
	}
	i, j := a, b
	if i > j {
		i, j = j, i
	}
	m.mus[i].Lock()
	m.rows[i][j]++
	m.mus[i].Unlock()
}

// Row returns the raw edge-count map for row i (j > i only). Only safe to
// call once all concurrent AddPair calls for the matrix have completed.
func (m *RawMatrix) Row(i int) map[int32]uint32 {
	return m.rows[i]
}

// Entry is one sorted (neighbour id, weight) pair in a finalised row.
type Entry struct {
	ID     int32
	Weight float32
}

// WeightMatrix is the finalised, read-only form of a fixel-by-fixel matrix:
// the symmetrised, thresholded connectivity matrix (component C's primary
// output) or the row-normalised Gaussian smoothing weights (component C's
// secondary output). Every row, including the diagonal entry, is sorted by
// ID ascending.
type WeightMatrix struct {
	rows [][]Entry
}

// NewWeightMatrix allocates a weight matrix over n fixels with empty rows.
func NewWeightMatrix(n int) *WeightMatrix {
	return &WeightMatrix{rows: make([][]Entry, n)}
}

// NumFixels returns the number of rows in the matrix.
func (m *WeightMatrix) NumFixels() int {
	return len(m.rows)
}

// SetRow installs entries (which the caller must have already sorted by ID)
// as row i.
func (m *WeightMatrix) SetRow(i int, entries []Entry) {
	m.rows[i] = entries
}

// Row returns the sorted entries of row i.
func (m *WeightMatrix) Row(i int) []Entry {
	return m.rows[i]
}

// Get returns the weight of edge (i,j) and whether it exists, via binary
// search over row i's sorted entries.
func (m *WeightMatrix) Get(i int, j int32) (float32, bool) {
	row := m.rows[i]
	lo, hi := 0, len(row)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case row[mid].ID == j:
			return row[mid].Weight, true
		case row[mid].ID < j:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}
