package ivfflat

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/annidx/annidx/pkg/annerr"
	"github.com/annidx/annidx/pkg/observability"
	"github.com/annidx/annidx/pkg/vector"
)

const (
	maxLloydIterations  = 500
	reassignmentEpsilon = 0.001 // stop once <0.1% of the sample reassigns
)

// TupleSource yields the tuples a build or rebuild scans, twice: once for
// the training sample and once for the full assignment pass.
type TupleSource interface {
	// Rewind resets iteration to the beginning; called once per pass.
	Rewind() error
	// Next returns the next tuple, or done=true once exhausted.
	Next() (id uint64, v vector.Vector, done bool, err error)
}

// Build trains centroids over a sample of source and assigns every tuple
// to its nearest list, following the reporting phases "initializing" ->
// "performing k-means" -> "assigning tuples". Tuples are appended to their
// lists during assignment; no separate "loading tuples" phase is reported.
func Build(ctx context.Context, cfg Config, source TupleSource, total int64, seed int64, progressCb observability.ProgressCallback) (*Index, error) {
	idx, err := New(cfg)
	if err != nil {
		return nil, err
	}

	reporter := observability.NewProgressReporter("initializing", total, progressCb)
	start := time.Now()

	sample, dim, err := reservoirSample(ctx, source, len(idx.lists), seed)
	if err != nil {
		idx.recordBuildFailure(start)
		return nil, err
	}
	if dim > vector.MaxIndexDim {
		idx.recordBuildFailure(start)
		return nil, fmt.Errorf("%w: dimension %d exceeds indexed max %d", annerr.ErrUnsupported, dim, vector.MaxIndexDim)
	}
	idx.dimension = dim

	if len(sample) == 0 {
		// Build on empty table: allowed, yields L centroids with zero
		// assignments. The dimension isn't known yet; Insert fixes it and
		// materializes real zero-vector centroids on the first tuple, so
		// every subsequent insert has a valid list to land in.
		idx.centroids = make([]vector.Vector, len(idx.lists))
		for i := range idx.centroids {
			idx.centroids[i] = vector.Vector{}
		}
		idx.trained = true
		if idx.metrics != nil {
			idx.metrics.RecordBuild("ivfflat", "ok", time.Since(start))
		}
		return idx, nil
	}
	// A sample smaller than the list count collapses some seeds to
	// duplicates (pgvector permits this too); k-means++ and the post-build
	// repair below already tolerate duplicate/empty lists and surface a
	// NOTICE when too many end up empty, so training proceeds rather than
	// failing outright.

	reporter.SetPhase("performing k-means", int64(len(sample)))
	centroids, err := kmeansPlusPlus(ctx, sample, len(idx.lists), idx.distKind, seed)
	if err != nil {
		idx.recordBuildFailure(start)
		return nil, err
	}
	idx.centroids = centroids
	idx.trained = true

	reporter.SetPhase("assigning tuples", total)
	if err := idx.assignAll(ctx, source, reporter); err != nil {
		idx.recordBuildFailure(start)
		return nil, err
	}

	if idx.metrics != nil {
		idx.metrics.RecordBuild("ivfflat", "ok", time.Since(start))
		idx.metrics.SetIndexSize("ivfflat", idx.GetStats().TotalEntries)
		for _, l := range idx.lists {
			idx.metrics.ObserveIVFListSize(len(l.entries))
		}
	}

	emptyLists := 0
	for _, l := range idx.lists {
		if len(l.entries) == 0 {
			emptyLists++
		}
	}
	if emptyLists*3 > len(idx.lists) {
		if idx.logger != nil {
			idx.logger.Notice("ivfflat", "many_empty_lists", map[string]interface{}{"empty": emptyLists, "lists": len(idx.lists)})
		}
		if idx.metrics != nil {
			idx.metrics.RecordNotice("ivfflat", "many_empty_lists")
		}
	}

	return idx, nil
}

func (idx *Index) recordBuildFailure(start time.Time) {
	if idx.metrics != nil {
		idx.metrics.RecordBuild("ivfflat", "error", time.Since(start))
	}
}

// reservoirSample draws up to max(50*lists, min(total,50*lists)) vectors
// from source via reservoir sampling, so the sample
// size is bounded without knowing the source's length in advance.
func reservoirSample(ctx context.Context, source TupleSource, lists int, seed int64) ([]vector.Vector, int, error) {
	target := 50 * lists

	if err := source.Rewind(); err != nil {
		return nil, 0, err
	}
	rng := rand.New(rand.NewSource(seed))

	sample := make([]vector.Vector, 0, target)
	dim := 0
	seen := 0
	for {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("%w: sampling cancelled", annerr.ErrInterrupted)
		}
		_, v, done, err := source.Next()
		if err != nil {
			return nil, 0, err
		}
		if done {
			break
		}
		if dim == 0 {
			dim = v.Dims()
		} else if v.Dims() != dim {
			return nil, 0, fmt.Errorf("%w: %d vs %d", annerr.ErrDimensionMismatch, dim, v.Dims())
		}

		seen++
		if len(sample) < target {
			sample = append(sample, v.Clone())
		} else {
			j := rng.Intn(seen)
			if j < target {
				sample[j] = v.Clone()
			}
		}
	}
	return sample, dim, nil
}

// kmeansPlusPlus seeds L centroids with probability proportional to
// squared distance to the nearest already-chosen centroid, then refines
// with plain Lloyd iterations: every round computes the distance from
// each sample point to every centroid. No triangle-inequality bound is
// used to skip any of those distance computations.
func kmeansPlusPlus(ctx context.Context, sample []vector.Vector, l int, kind vector.DistanceKind, seed int64) ([]vector.Vector, error) {
	rng := rand.New(rand.NewSource(seed))
	dim := sample[0].Dims()

	centroids := make([]vector.Vector, l)
	first := rng.Intn(len(sample))
	centroids[0] = sample[first].Clone()

	nearestDist := make([]float32, len(sample))
	for i, v := range sample {
		d, err := vector.Distance(kind, v, centroids[0])
		if err != nil {
			return nil, err
		}
		nearestDist[i] = d
	}

	for c := 1; c < l; c++ {
		var total float64
		for i, v := range sample {
			d, err := vector.Distance(kind, v, centroids[c-1])
			if err != nil {
				return nil, err
			}
			if d*d < nearestDist[i]*nearestDist[i] {
				nearestDist[i] = d
			}
			total += float64(nearestDist[i]) * float64(nearestDist[i])
		}

		if total > 0 {
			target := rng.Float64() * total
			var cumulative float64
			chosen := len(sample) - 1
			for i := range sample {
				cumulative += float64(nearestDist[i]) * float64(nearestDist[i])
				if cumulative >= target {
					chosen = i
					break
				}
			}
			centroids[c] = sample[chosen].Clone()
		} else {
			centroids[c] = sample[rng.Intn(len(sample))].Clone()
		}
	}

	assignments := make([]int, len(sample))
	for round := 0; round < maxLloydIterations; round++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: k-means cancelled", annerr.ErrInterrupted)
		}

		changed := 0
		counts := make([]int, l)
		sums := make([][]float64, l)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}

		for i, v := range sample {
			best, bestDist := 0, float32(0)
			for c, centroid := range centroids {
				d, err := vector.Distance(kind, v, centroid)
				if err != nil {
					return nil, err
				}
				if c == 0 || vector.LessDistance(d, bestDist) {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				changed++
			}
			assignments[i] = best
			counts[best]++
			for d := 0; d < dim; d++ {
				sums[best][d] += float64(v[d])
			}
		}

		for c := range centroids {
			if counts[c] == 0 {
				continue // repaired below
			}
			updated := make(vector.Vector, dim)
			for d := 0; d < dim; d++ {
				updated[d] = float32(sums[c][d] / float64(counts[c]))
			}
			if kind == vector.Cosine {
				norm := vector.NormL2(updated)
				if norm > 0 {
					for d := range updated {
						updated[d] /= norm
					}
				}
			}
			centroids[c] = updated
		}

		repairEmptyLists(sample, assignments, centroids, counts, kind)

		if float64(changed) < reassignmentEpsilon*float64(len(sample)) {
			break
		}
	}

	return centroids, nil
}

// repairEmptyLists replaces every centroid with no assignees by the
// farthest sample point from its nearest non-empty centroid, so a
// degenerate seed never leaves a permanently dead list.
func repairEmptyLists(sample []vector.Vector, assignments []int, centroids []vector.Vector, counts []int, kind vector.DistanceKind) {
	for c, n := range counts {
		if n > 0 {
			continue
		}
		farthestIdx, farthestDist := -1, float32(-1)
		for i, v := range sample {
			nearest := assignments[i]
			if counts[nearest] == 0 {
				continue
			}
			d, err := vector.Distance(kind, v, centroids[nearest])
			if err != nil {
				continue
			}
			if d > farthestDist {
				farthestIdx, farthestDist = i, d
			}
		}
		if farthestIdx >= 0 {
			centroids[c] = sample[farthestIdx].Clone()
			counts[c] = 1
		}
	}
}

// assignAll scans source a second time, assigning every tuple to its
// nearest centroid's list. Workers partition the input by index so each
// tuple's list lock is only taken once; lists
// themselves still guard concurrent appends since two workers can target
// the same list.
func (idx *Index) assignAll(ctx context.Context, source TupleSource, reporter *observability.ProgressReporter) error {
	if err := source.Rewind(); err != nil {
		return err
	}

	const numAssignWorkers = 8
	type tuple struct {
		id uint64
		v  vector.Vector
	}
	jobs := make(chan tuple, numAssignWorkers*4)
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	for w := 0; w < numAssignWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if err := idx.assignOne(t.id, t.v); err != nil {
					select {
					case errCh <- err:
					default:
					}
					continue
				}
				if reporter != nil {
					reporter.Advance(1)
				}
			}
		}()
	}

	for {
		if ctx.Err() != nil {
			close(jobs)
			wg.Wait()
			return fmt.Errorf("%w: assignment cancelled", annerr.ErrInterrupted)
		}
		id, v, done, err := source.Next()
		if err != nil {
			close(jobs)
			wg.Wait()
			return err
		}
		if done {
			break
		}
		select {
		case jobs <- tuple{id, v}:
		case err := <-errCh:
			close(jobs)
			wg.Wait()
			return err
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func (idx *Index) assignOne(id uint64, v vector.Vector) error {
	if v.Dims() != idx.dimension {
		return fmt.Errorf("%w: %d vs %d", annerr.ErrDimensionMismatch, idx.dimension, v.Dims())
	}
	idx.mu.RLock()
	centroidIdx, _, err := idx.nearestCentroid(v)
	idx.mu.RUnlock()
	if err != nil {
		return err
	}

	l := idx.lists[centroidIdx]
	l.mu.Lock()
	l.entries = append(l.entries, Entry{ID: id, Vector: v})
	l.mu.Unlock()
	return nil
}
