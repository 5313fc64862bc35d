package hnsw

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/annidx/annidx/pkg/observability"
	"github.com/annidx/annidx/pkg/vector"
)

// BatchInsertResult reports the outcome of a bulk insert.
type BatchInsertResult struct {
	TotalProcessed int
	SuccessCount   int
	FailureCount   int
	Errors         []error
	NodeIDs        []uint64
}

const numInsertWorkers = 8

// BatchInsert inserts vectors concurrently through a small worker pool:
// each element's own neighbor-list updates stay serialized, while
// cross-element inserts proceed in parallel.
func (idx *Index) BatchInsert(ctx context.Context, vectors []vector.Vector, progress *observability.ProgressReporter) *BatchInsertResult {
	result := &BatchInsertResult{
		TotalProcessed: len(vectors),
		NodeIDs:        make([]uint64, len(vectors)),
	}
	if len(vectors) == 0 {
		return result
	}

	jobs := make(chan int, len(vectors))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for w := 0; w < numInsertWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				id, err := idx.Insert(ctx, vectors[i])

				mu.Lock()
				if err != nil {
					result.Errors = append(result.Errors, fmt.Errorf("vector %d: %w", i, err))
					result.FailureCount++
				} else {
					result.NodeIDs[i] = id
					result.SuccessCount++
				}
				mu.Unlock()

				if progress != nil {
					progress.Advance(1)
				}
			}
		}()
	}

	for i := range vectors {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return result
}

// Build creates a fresh HNSW index from a tuple stream, reporting its
// progress through phases ("initializing" -> "loading tuples"). The
// source channel is expected to be exhausted or ctx cancelled.
func Build(ctx context.Context, opts Options, source <-chan vector.Vector, total int64, progressCb observability.ProgressCallback) (*Index, error) {
	idx := New(opts)

	reporter := observability.NewProgressReporter("initializing", total, progressCb)
	reporter.SetPhase("loading tuples", total)

	start := time.Now()
	var count int64
	for v := range source {
		if _, err := idx.Insert(ctx, v); err != nil {
			if idx.metrics != nil {
				idx.metrics.RecordBuild("hnsw", "error", time.Since(start))
			}
			return nil, err
		}
		count++
		reporter.Advance(1)
	}

	if idx.metrics != nil {
		idx.metrics.RecordBuild("hnsw", "ok", time.Since(start))
		idx.metrics.SetIndexSize("hnsw", int(idx.Size()))
		idx.metrics.SetHNSWMaxLayer(idx.MaxLayer())
	}

	return idx, nil
}

// Rebuild re-inserts every live vector into a fresh index, the REINDEX
// equivalent remedy for deletion-degraded recall (tombstoned elements
// are dropped, not carried forward).
func (idx *Index) Rebuild(ctx context.Context, opts Options) (*Index, error) {
	idx.mu.RLock()
	live := make([]vector.Vector, 0, len(idx.nodes)-len(idx.deleted))
	for id, n := range idx.nodes {
		if !idx.deleted[id] {
			live = append(live, n.vector)
		}
	}
	idx.mu.RUnlock()

	fresh := New(opts)
	for _, v := range live {
		if _, err := fresh.Insert(ctx, v); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}
