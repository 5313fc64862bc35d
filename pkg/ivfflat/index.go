// Package ivfflat implements the Inverted File with Flat quantization
// index: centroids trained once by k-means++ over a sample, vectors
// assigned to the nearest centroid's inverted list, queries scanning the
// `probes` nearest lists in ascending distance order.
package ivfflat

import (
	"fmt"
	"sync"

	"github.com/annidx/annidx/pkg/annerr"
	"github.com/annidx/annidx/pkg/observability"
	"github.com/annidx/annidx/pkg/pagestore"
	"github.com/annidx/annidx/pkg/vector"
)

// Entry is one (tuple-id, vector) pair stored in an inverted list.
type Entry struct {
	ID     uint64
	Vector vector.Vector
}

// list is one inverted list: the entries assigned to the centroid at the
// same position in Index.centroids, held as one in-memory slice (not split
// into fixed-size pages), plus the lock guarding concurrent assignment
// during build and insert.
type list struct {
	mu      sync.Mutex
	entries []Entry
}

// Config configures a new Index. Lists must be in [1, 32768].
type Config struct {
	Lists        int
	DistanceKind vector.DistanceKind
	Metrics      *observability.Metrics
	Logger       *observability.Logger
	DiskStore    pagestore.PageStore
}

// Index is a trained (or untrained) IVFFlat partition of the vector
// space. Centroids are frozen after Build; Insert only appends to the
// list nearest the inserted vector.
type Index struct {
	mu sync.RWMutex

	lists     []*list
	centroids []vector.Vector
	dimension int
	distKind  vector.DistanceKind
	trained   bool

	metrics *observability.Metrics
	logger  *observability.Logger
	disk    pagestore.PageStore
}

// Stats summarizes an index for introspection and metrics export.
type Stats struct {
	Lists        int
	Dimension    int
	TotalEntries int
	MinListSize  int
	MaxListSize  int
	AvgListSize  float64
	Trained      bool
}

// New creates an untrained index with the given number of lists. Call
// Build to train centroids and populate lists from a tuple source.
func New(cfg Config) (*Index, error) {
	if cfg.Lists < 1 || cfg.Lists > 32768 {
		return nil, fmt.Errorf("%w: lists must be in [1,32768], got %d", annerr.ErrBadInput, cfg.Lists)
	}
	if cfg.DistanceKind == vector.L1 {
		return nil, fmt.Errorf("%w: L1 distance has no index support", annerr.ErrUnsupported)
	}

	idx := &Index{
		lists:    make([]*list, cfg.Lists),
		distKind: cfg.DistanceKind,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		disk:     cfg.DiskStore,
	}
	for i := range idx.lists {
		idx.lists[i] = &list{}
	}
	return idx, nil
}

func (idx *Index) Lists() int        { return len(idx.lists) }
func (idx *Index) Dimension() int    { return idx.dimension }
func (idx *Index) Trained() bool     { return idx.trained }
func (idx *Index) DistanceKind() vector.DistanceKind { return idx.distKind }

// GetStats summarizes list-size distribution and training state.
func (idx *Index) GetStats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := Stats{Lists: len(idx.lists), Dimension: idx.dimension, Trained: idx.trained}
	if len(idx.lists) == 0 {
		return stats
	}
	stats.MinListSize = len(idx.lists[0].entries)
	for _, l := range idx.lists {
		n := len(l.entries)
		stats.TotalEntries += n
		if n < stats.MinListSize {
			stats.MinListSize = n
		}
		if n > stats.MaxListSize {
			stats.MaxListSize = n
		}
	}
	stats.AvgListSize = float64(stats.TotalEntries) / float64(len(idx.lists))
	return stats
}

// nearestCentroid returns the index of the centroid closest to v under
// the index's distance kind, and its distance.
func (idx *Index) nearestCentroid(v vector.Vector) (int, float32, error) {
	if len(idx.centroids) == 0 {
		return 0, 0, fmt.Errorf("%w: index has no centroids", annerr.ErrBadInput)
	}
	best, bestDist := -1, float32(0)
	for i, c := range idx.centroids {
		d, err := vector.Distance(idx.distKind, v, c)
		if err != nil {
			return 0, 0, err
		}
		if best == -1 || vector.LessDistance(d, bestDist) {
			best, bestDist = i, d
		}
	}
	return best, bestDist, nil
}
