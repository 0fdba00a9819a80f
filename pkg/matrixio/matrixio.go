// Package matrixio implements the small text-file parsers the orchestrator
// needs at startup: the whitespace-delimited design/contrast matrices and
// the per-subject input file list (spec §6's external interfaces). These
// sit alongside the "low-level histogram and I/O helpers" spec.md §1 treats
// as out of scope for the hard algorithmic core, so they stay intentionally
// minimal.
package matrixio

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"fixelcfestats/pkg/fixelerrs"
)

// ReadMatrix parses a whitespace-delimited numeric matrix from path. Blank
// lines and lines starting with "#" are skipped. Every non-skipped row must
// have the same number of fields, or ReadMatrix fails with ErrParse.
func ReadMatrix(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("matrixio: opening %s: %w", path, err)
	}
	defer f.Close()

	var rows [][]float64
	cols := -1

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		row := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("matrixio: %s: parsing %q: %w", path, field, fixelerrs.ErrParse)
			}
			row[i] = v
		}
		if cols == -1 {
			cols = len(row)
		} else if len(row) != cols {
			return nil, fmt.Errorf("matrixio: %s: row %d has %d fields, expected %d: %w", path, len(rows), len(row), cols, fixelerrs.ErrParse)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("matrixio: reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("matrixio: %s: no data rows: %w", path, fixelerrs.ErrParse)
	}

	flat := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	return mat.NewDense(len(rows), cols, flat), nil
}

// ReadInputList reads a text file listing one subject fixel image path per
// line, relative to the list file's own directory, and returns the
// resolved absolute-or-relative-to-cwd paths in file order.
func ReadInputList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("matrixio: opening %s: %w", path, err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var paths []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, filepath.Join(dir, line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("matrixio: reading %s: %w", path, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("matrixio: %s: lists no subjects: %w", path, fixelerrs.ErrParse)
	}
	return paths, nil
}
