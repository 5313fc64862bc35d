package ivfflat

import (
	"fmt"

	"github.com/annidx/annidx/pkg/annerr"
	"github.com/annidx/annidx/pkg/vector"
)

// Insert finds the centroid nearest v and appends (id, v) to that
// centroid's list. Centroids never move after Build; only list
// membership changes. Concurrent inserts to different lists proceed in
// parallel, serialized per target list by that list's lock.
func (idx *Index) Insert(id uint64, v vector.Vector) error {
	if err := v.CheckFinite(); err != nil {
		return err
	}

	idx.mu.Lock()
	if !idx.trained {
		idx.mu.Unlock()
		return fmt.Errorf("%w: index not built", annerr.ErrBadInput)
	}
	if idx.dimension == 0 {
		// Built on an empty table: the first insert fixes the dimension
		// and turns the placeholder centroids into real zero vectors of
		// that dimension, so every list has a valid seed to compete on.
		if v.Dims() > vector.MaxIndexDim {
			idx.mu.Unlock()
			return fmt.Errorf("%w: dimension %d exceeds indexed max %d", annerr.ErrUnsupported, v.Dims(), vector.MaxIndexDim)
		}
		idx.dimension = v.Dims()
		for i := range idx.centroids {
			idx.centroids[i] = make(vector.Vector, v.Dims())
		}
	} else if v.Dims() != idx.dimension {
		idx.mu.Unlock()
		return fmt.Errorf("%w: %d vs %d", annerr.ErrDimensionMismatch, idx.dimension, v.Dims())
	}
	centroidIdx, _, err := idx.nearestCentroid(v)
	idx.mu.Unlock()
	if err != nil {
		return err
	}
	if centroidIdx < 0 || centroidIdx >= len(idx.lists) {
		return fmt.Errorf("%w: invalid centroid index %d", annerr.ErrBadInput, centroidIdx)
	}

	l := idx.lists[centroidIdx]
	l.mu.Lock()
	l.entries = append(l.entries, Entry{ID: id, Vector: v.Clone()})
	l.mu.Unlock()

	if idx.metrics != nil {
		idx.metrics.RecordInsert("ivfflat", nil)
	}
	return nil
}
