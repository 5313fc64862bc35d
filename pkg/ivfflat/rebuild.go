package ivfflat

import (
	"context"

	"github.com/annidx/annidx/pkg/observability"
	"github.com/annidx/annidx/pkg/vector"
)

// liveEntry pairs a tuple id with its vector. Rebuild collects only the
// entries its isLive predicate accepts, since the index itself never
// stores visibility and only the host's visibility map does.
type liveEntry struct {
	id uint64
	v  vector.Vector
}

// sliceSource adapts an in-memory slice of entries to TupleSource, used
// to feed Rebuild from an existing index's current contents.
type sliceSource struct {
	entries []liveEntry
	pos     int
}

func (s *sliceSource) Rewind() error { s.pos = 0; return nil }

func (s *sliceSource) Next() (uint64, vector.Vector, bool, error) {
	if s.pos >= len(s.entries) {
		return 0, nil, true, nil
	}
	e := s.entries[s.pos]
	s.pos++
	return e.id, e.v, false, nil
}

// Rebuild re-trains centroids and re-assigns every live entry from idx,
// the remedy for large insert-driven skew and the degradation tombstoning
// leaves behind (deletes never rebalance lists).
func (idx *Index) Rebuild(ctx context.Context, cfg Config, seed int64, isLive func(uint64) bool, progressCb observability.ProgressCallback) (*Index, error) {
	idx.mu.RLock()
	entries := make([]liveEntry, 0)
	var total int64
	for _, l := range idx.lists {
		l.mu.Lock()
		for _, e := range l.entries {
			if isLive == nil || isLive(e.ID) {
				entries = append(entries, liveEntry{id: e.ID, v: e.Vector})
				total++
			}
		}
		l.mu.Unlock()
	}
	idx.mu.RUnlock()

	source := &sliceSource{entries: entries}
	return Build(ctx, cfg, source, total, seed, progressCb)
}
