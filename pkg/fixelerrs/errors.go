// Package fixelerrs defines the sentinel error kinds used across the fixel
// statistics pipeline (spec §7). Every fatal condition the pipeline can
// detect wraps one of these with context via fmt.Errorf("...: %w", ...), so
// callers up to the orchestrator can classify a failure with errors.Is
// without string matching.
package fixelerrs

import "errors"

var (
	// ErrInputNotFound indicates a subject fixel image listed in the input
	// file does not exist on disk.
	ErrInputNotFound = errors.New("fixelcfestats: input fixel image not found")

	// ErrDimensionMismatch indicates a subject image's spatial dimensions
	// disagree with the mask, the design matrix's row count disagrees with
	// the number of subjects, or the contrast matrix has more columns than
	// the design matrix.
	ErrDimensionMismatch = errors.New("fixelcfestats: dimension mismatch")

	// ErrEmptyTractogram indicates the streamline file's "count" property
	// is missing or zero.
	ErrEmptyTractogram = errors.New("fixelcfestats: no tracks found in input file")

	// ErrParse indicates a design or contrast matrix failed to parse.
	ErrParse = errors.New("fixelcfestats: parse error")

	// ErrWrite indicates an output file could not be written.
	ErrWrite = errors.New("fixelcfestats: write error")
)
