// Package annerr holds the sentinel errors shared by the vector type and
// both index engines, so callers can classify a failure with errors.Is
// without importing the package that produced it.
package annerr

import "errors"

// Sentinel errors for each distinct failure kind callers need to tell
// apart. Wrap with fmt.Errorf and %w to add context; never construct a
// new error for the same kind.
var (
	// ErrDimensionMismatch: an operation between vectors of unequal
	// dimension, or against an index with a fixed dimension.
	ErrDimensionMismatch = errors.New("annidx: dimension mismatch")

	// ErrBadInput: a non-finite element, a malformed literal, a dimension
	// above the hard cap, or a parameter out of its valid range.
	ErrBadInput = errors.New("annidx: bad input")

	// ErrOverflow: arithmetic produced a non-finite result.
	ErrOverflow = errors.New("annidx: overflow")

	// ErrUnsupported: a column/operation combination this core does not
	// index (dimension above the indexed-search cap, L1 with an index).
	ErrUnsupported = errors.New("annidx: unsupported")

	// ErrInterrupted: the host's cancellation flag was observed set at a
	// safe point.
	ErrInterrupted = errors.New("annidx: interrupted")

	// ErrResource: a mandatory structure could not be built within the
	// maintenance-memory budget. Optional structures downgrade to a
	// NOTICE instead of returning this.
	ErrResource = errors.New("annidx: insufficient resources")
)
