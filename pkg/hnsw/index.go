// Package hnsw implements the Hierarchical Navigable Small World graph
// index: a multi-layer proximity graph searched by greedy descent from a
// single entry point down to a bounded beam search at layer 0.
package hnsw

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/annidx/annidx/pkg/annerr"
	"github.com/annidx/annidx/pkg/observability"
	"github.com/annidx/annidx/pkg/pagestore"
	"github.com/annidx/annidx/pkg/vector"
)

// Index is an HNSW graph index over vectors of a single distance kind and
// dimension, fixed on first insert.
type Index struct {
	// Configuration parameters.
	M              int                 // target neighbors per node per layer >= 1, layer 0 uses Mmax0 = 2*M
	efConstruction int                 // beam width during insertion, range [4, 1000]
	ml             float64             // mL = 1/ln(M), normalization for level assignment
	distKind       vector.DistanceKind // distance metric

	// Index state.
	nodes       map[uint64]*Node
	deleted     map[uint64]bool // host-visibility tombstones; never physically removed
	entryPoint  *Node
	maxLayer    int
	nodeCounter uint64
	dimension   int

	// Concurrency control.
	mu        sync.RWMutex
	entryMu   sync.Mutex // dedicated latch for entry-pointer compare-and-set
	rand      *rand.Rand

	// Statistics.
	size int64

	// Build-memory discipline: elements are appended to an
	// in-memory arena until its budget is exhausted, then new elements
	// allocate directly against disk. The graph topology itself (idx.nodes)
	// is unaffected either way; arena/disk track page accounting and drive
	// the NOTICE emission.
	arena       *pagestore.Arena
	disk        pagestore.PageStore
	arenaSpilled bool

	metrics *observability.Metrics
	logger  *observability.Logger
}

// Options configures a new Index.
type Options struct {
	M              int                 // default 16
	EfConstruction int                 // default 64
	DistanceKind   vector.DistanceKind // default L2

	// MaintenanceMemBudget bounds the in-memory build arena in bytes; 0
	// means unbounded. DiskStore is used once the budget is exceeded; if
	// nil, a disk fallback is never attempted and Allocate failures widen
	// into annerr.ErrResource.
	MaintenanceMemBudget int64
	DiskStore            pagestore.PageStore

	Metrics *observability.Metrics
	Logger  *observability.Logger
}

// Mmax0 returns the layer-0 neighbor capacity, 2*M.
func (idx *Index) Mmax0() int { return idx.M * 2 }

// New creates an HNSW index. M must be in [2,100] and EfConstruction in
// [4,1000] with EfConstruction >= 2*M; callers validate via pkg/config
// before reaching here.
func New(opts Options) *Index {
	if opts.M == 0 {
		opts.M = 16
	}
	if opts.EfConstruction == 0 {
		opts.EfConstruction = 64
	}

	ml := 1.0 / math.Log(float64(opts.M))

	logger := opts.Logger
	if logger == nil {
		logger = observability.NewDefaultLogger()
	}

	return &Index{
		M:              opts.M,
		efConstruction: opts.EfConstruction,
		ml:             ml,
		distKind:       opts.DistanceKind,
		nodes:          make(map[uint64]*Node),
		deleted:        make(map[uint64]bool),
		maxLayer:       -1,
		rand:           rand.New(rand.NewSource(time.Now().UnixNano())),
		arena:          pagestore.NewArena(opts.MaintenanceMemBudget),
		disk:           opts.DiskStore,
		metrics:        opts.Metrics,
		logger:         logger,
	}
}

// randomLevel draws a level from the geometric distribution P(level>=l) =
// e^(-l/mL).
func (idx *Index) randomLevel() int {
	r := idx.rand.Float64()
	return int(math.Floor(-math.Log(r) * idx.ml))
}

func (idx *Index) dist(a, b vector.Vector) float32 {
	d, err := vector.Distance(idx.distKind, a, b)
	if err != nil {
		// Dimensions are enforced at insert/search time; a mismatch here
		// means an internal invariant broke.
		panic(fmt.Sprintf("hnsw: internal distance error: %v", err))
	}
	return d
}

func (idx *Index) distToNode(q vector.Vector, n *Node) float32 {
	return idx.dist(q, n.vector)
}

func (idx *Index) distBetween(a, b *Node) float32 {
	return idx.dist(a.vector, b.vector)
}

// Size returns the number of live (non-tombstoned) vectors in the index.
func (idx *Index) Size() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.size
}

// Dimension returns the fixed vector dimension, or 0 before the first insert.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// MaxLayer returns the highest occupied layer in the graph.
func (idx *Index) MaxLayer() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.maxLayer
}

// GetNode retrieves a node by id.
func (idx *Index) GetNode(id uint64) *Node {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.nodes[id]
}

// EntryPoint returns the current entry point node.
func (idx *Index) EntryPoint() *Node {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.entryPoint
}

// Stats summarizes the index for monitoring and tests.
type Stats struct {
	Size           int64
	Dimension      int
	MaxLayer       int
	M              int
	Mmax0          int
	EfConstruction int
	NodesPerLayer  map[int]int
}

// GetStats returns current index statistics.
func (idx *Index) GetStats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	nodesPerLayer := make(map[int]int)
	for _, node := range idx.nodes {
		for layer := 0; layer <= node.level; layer++ {
			nodesPerLayer[layer]++
		}
	}

	return Stats{
		Size:           idx.size,
		Dimension:      idx.dimension,
		MaxLayer:       idx.maxLayer,
		M:              idx.M,
		Mmax0:          idx.Mmax0(),
		EfConstruction: idx.efConstruction,
		NodesPerLayer:  nodesPerLayer,
	}
}

// allocateElementPage accounts one element's worth of backing storage
// against the build arena, falling back to disk and emitting a single
// NOTICE on first overflow.
func (idx *Index) allocateElementPage(data []byte) error {
	if _, err := idx.arena.Allocate(); err == nil {
		return nil
	} else if !idx.arenaSpilled {
		idx.arenaSpilled = true
		if idx.logger != nil {
			idx.logger.Notice("hnsw", "arena_overflow", map[string]interface{}{
				"tuple_count": idx.size,
			})
		}
		if idx.metrics != nil {
			idx.metrics.RecordNotice("hnsw", "arena_overflow")
		}
	}

	if idx.disk == nil {
		return fmt.Errorf("%w: build arena exhausted and no disk fallback configured", annerr.ErrResource)
	}
	id, err := idx.disk.Allocate()
	if err != nil {
		return err
	}
	return idx.disk.Write(id, data)
}
