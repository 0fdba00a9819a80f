// Package progress drives the per-phase progress bars shown while streaming
// tracks, loading subjects, and running permutations. It is the concrete
// implementation behind the "progress reporting" collaborator spec.md §1
// treats as external to the core algorithms.
package progress

import "github.com/cheggaaa/pb"

// Bar reports progress of a bounded amount of work. A nil *Bar is valid and
// silently does nothing, so callers can pass progress.None() when bars are
// disabled without branching at every call site.
type Bar struct {
	inner *pb.ProgressBar
}

// New starts a new progress bar with the given total count and label.
func New(total int, label string) *Bar {
	bar := pb.New(total)
	bar.Prefix(label + " ")
	bar.ShowTimeLeft = true
	bar.Start()
	return &Bar{inner: bar}
}

// None returns a disabled bar: every method is a no-op.
func None() *Bar {
	return nil
}

// Increment advances the bar by one unit.
func (b *Bar) Increment() {
	if b == nil {
		return
	}
	b.inner.Increment()
}

// Add advances the bar by n units.
func (b *Bar) Add(n int) {
	if b == nil {
		return
	}
	b.inner.Add(n)
}

// Finish marks the bar as complete.
func (b *Bar) Finish() {
	if b == nil {
		return
	}
	b.inner.FinishPrint("")
}
