package ivfflat

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/annidx/annidx/pkg/annerr"
	"github.com/annidx/annidx/pkg/vector"
)

// Result is one ranked match from Search, in ascending distance order.
type Result struct {
	ID       uint64
	Distance float32
}

// centroidCandidate pairs a list index with its distance to the query,
// used to pick the `probes` nearest lists.
type centroidCandidate struct {
	list int
	dist float32
}

type candidateHeap []centroidCandidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return vector.LessDistance(h[i].dist, h[j].dist) }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(centroidCandidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Search finds the k nearest live (non-tombstoned, per isLive) entries to
// query, scanning only the `probes` nearest lists. probes=1
// by default; probes=Lists() makes the scan exhaustive, matching a
// sequential scan's answer set exactly.
func (idx *Index) Search(ctx context.Context, query vector.Vector, k, probes int, isLive func(uint64) bool) ([]Result, error) {
	if err := query.CheckFinite(); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.trained {
		return nil, fmt.Errorf("%w: index not built", annerr.ErrBadInput)
	}
	if query.Dims() != idx.dimension {
		return nil, fmt.Errorf("%w: query dim %d vs index dim %d", annerr.ErrDimensionMismatch, query.Dims(), idx.dimension)
	}
	if probes < 1 {
		probes = 1
	}
	if probes > len(idx.lists) {
		probes = len(idx.lists)
	}

	start := time.Now()
	nearestLists, err := idx.nearestLists(query, probes)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, k*2)
	visited := 0
	for _, li := range nearestLists {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: search cancelled", annerr.ErrInterrupted)
		}
		l := idx.lists[li]
		l.mu.Lock()
		for _, e := range l.entries {
			if isLive != nil && !isLive(e.ID) {
				continue
			}
			d, derr := vector.Distance(idx.distKind, query, e.Vector)
			if derr != nil {
				l.mu.Unlock()
				return nil, derr
			}
			results = append(results, Result{ID: e.ID, Distance: d})
			visited++
		}
		l.mu.Unlock()
	}

	sort.Slice(results, func(i, j int) bool { return vector.LessDistance(results[i].Distance, results[j].Distance) })
	if len(results) > k {
		results = results[:k]
	}

	if idx.metrics != nil {
		idx.metrics.RecordSearch("ivfflat", time.Since(start), visited, len(results))
	}
	return results, nil
}

// nearestLists returns the `probes` list indices with the smallest
// centroid distance to query: every centroid is pushed onto a min-heap,
// which is then drained in ascending order.
func (idx *Index) nearestLists(query vector.Vector, probes int) ([]int, error) {
	h := &candidateHeap{}
	heap.Init(h)

	for i, c := range idx.centroids {
		d, err := vector.Distance(idx.distKind, query, c)
		if err != nil {
			return nil, err
		}
		heap.Push(h, centroidCandidate{list: i, dist: d})
	}

	all := make([]centroidCandidate, h.Len())
	for i := range all {
		all[i] = heap.Pop(h).(centroidCandidate)
	}
	// heap.Pop on a min-ordered Less already yields ascending order.
	if probes > len(all) {
		probes = len(all)
	}
	out := make([]int, probes)
	for i := 0; i < probes; i++ {
		out[i] = all[i].list
	}
	return out, nil
}
