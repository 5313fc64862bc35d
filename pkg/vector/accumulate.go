package vector

import (
	"fmt"

	"github.com/annidx/annidx/pkg/annerr"
)

// Accumulator maintains a running float32 sum per element plus an integer
// count, backing the avg/sum aggregates.
type Accumulator struct {
	sum   []float32
	count int
}

// NewAccumulator creates an accumulator for vectors of dimension dim.
func NewAccumulator(dim int) *Accumulator {
	return &Accumulator{sum: make([]float32, dim)}
}

// Add folds v into the running sum. Dimension must match the accumulator's.
func (a *Accumulator) Add(v Vector) error {
	if a.count == 0 && len(a.sum) == 0 {
		a.sum = make([]float32, len(v))
	}
	if len(v) != len(a.sum) {
		return fmt.Errorf("%w: %d vs %d", annerr.ErrDimensionMismatch, len(v), len(a.sum))
	}
	for i, x := range v {
		a.sum[i] += x
	}
	a.count++
	return nil
}

// Count returns the number of vectors folded in so far.
func (a *Accumulator) Count() int { return a.count }

// Sum returns the running element-wise sum.
func (a *Accumulator) Sum() (Vector, error) {
	out := Vector(a.sum).Clone()
	if err := out.CheckFinite(); err != nil {
		return nil, fmt.Errorf("%w: sum accumulator holds a non-finite element", annerr.ErrOverflow)
	}
	return out, nil
}

// Avg returns the element-wise mean. Fails with ErrOverflow if any
// averaged element is non-finite, and with ErrBadInput if no vectors
// were added.
func (a *Accumulator) Avg() (Vector, error) {
	if a.count == 0 {
		return nil, fmt.Errorf("%w: average of zero vectors is undefined", annerr.ErrBadInput)
	}
	out := make(Vector, len(a.sum))
	for i, x := range a.sum {
		out[i] = x / float32(a.count)
	}
	if err := out.CheckFinite(); err != nil {
		return nil, fmt.Errorf("%w: average produced a non-finite element", annerr.ErrOverflow)
	}
	return out, nil
}

// Sum computes the element-wise sum of vs directly, without an explicit
// Accumulator. Convenience wrapper for the sum(vector) aggregate function.
func Sum(vs []Vector) (Vector, error) {
	if len(vs) == 0 {
		return nil, fmt.Errorf("%w: sum of zero vectors is undefined", annerr.ErrBadInput)
	}
	acc := NewAccumulator(len(vs[0]))
	for _, v := range vs {
		if err := acc.Add(v); err != nil {
			return nil, err
		}
	}
	return acc.Sum()
}

// Avg computes the element-wise mean of vs directly. Convenience wrapper
// for the avg(vector) aggregate function.
func Avg(vs []Vector) (Vector, error) {
	if len(vs) == 0 {
		return nil, fmt.Errorf("%w: average of zero vectors is undefined", annerr.ErrBadInput)
	}
	acc := NewAccumulator(len(vs[0]))
	for _, v := range vs {
		if err := acc.Add(v); err != nil {
			return nil, err
		}
	}
	return acc.Avg()
}
