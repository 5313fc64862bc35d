package hnsw

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/annidx/annidx/pkg/annerr"
	"github.com/annidx/annidx/pkg/vector"
)

// Insert adds v to the graph and returns its assigned node id.
//
// Greedy descent with ef=1 down to the new element's level, then
// per-layer beam search plus the neighbor-selection heuristic down to
// layer 0.
func (idx *Index) Insert(ctx context.Context, v vector.Vector) (uint64, error) {
	if err := v.CheckFinite(); err != nil {
		return 0, err
	}
	if !vector.IndexableDistance(idx.distKind) {
		return 0, fmt.Errorf("%w: %s distance has no index support", annerr.ErrUnsupported, idx.distKind)
	}
	if v.Dims() > vector.MaxIndexDim {
		return 0, fmt.Errorf("%w: dimension %d exceeds indexed max %d", annerr.ErrUnsupported, v.Dims(), vector.MaxIndexDim)
	}

	idx.mu.Lock()
	if idx.dimension == 0 {
		idx.dimension = v.Dims()
	} else if v.Dims() != idx.dimension {
		idx.mu.Unlock()
		return 0, fmt.Errorf("%w: index dimension %d, vector dimension %d", annerr.ErrDimensionMismatch, idx.dimension, v.Dims())
	}

	nodeID := idx.nodeCounter
	idx.nodeCounter++
	level := idx.randomLevel()
	newNode := NewNode(nodeID, v, level)

	pageData, err := v.MarshalBinary()
	if err != nil {
		idx.mu.Unlock()
		return 0, err
	}
	if err := idx.allocateElementPage(pageData); err != nil {
		idx.mu.Unlock()
		return 0, err
	}

	// First insertion: the new node becomes the entry point.
	if idx.entryPoint == nil {
		idx.nodes[nodeID] = newNode
		idx.entryPoint = newNode
		idx.maxLayer = level
		idx.size++
		idx.mu.Unlock()
		return nodeID, nil
	}

	entryPoint := idx.entryPoint
	currentMaxLayer := idx.maxLayer
	idx.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", annerr.ErrInterrupted, err)
	}

	// Phase 1: greedy descent with ef=1 from the top layer to level+1.
	ep := entryPoint
	currentDist := idx.distToNode(v, ep)
	for lc := currentMaxLayer; lc > level; lc-- {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", annerr.ErrInterrupted, err)
		}
		changed := true
		for changed {
			changed = false
			for _, neighborID := range ep.GetNeighbors(lc) {
				neighborNode := idx.GetNode(neighborID)
				if neighborNode == nil {
					continue
				}
				d := idx.distToNode(v, neighborNode)
				if d < currentDist {
					currentDist = d
					ep = neighborNode
					changed = true
				}
			}
		}
	}

	// Phase 2: beam search plus heuristic selection from min(level,maxLayer) to 0.
	for lc := min(level, currentMaxLayer); lc >= 0; lc-- {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", annerr.ErrInterrupted, err)
		}

		candidates := idx.searchLayer(v, ep, idx.efConstruction, lc)

		m := idx.M
		if lc == 0 {
			m = idx.Mmax0()
		}
		neighbors := idx.selectNeighborsHeuristic(v, candidates, m)

		for _, neighborID := range neighbors {
			neighborNode := idx.GetNode(neighborID)
			if neighborNode == nil {
				continue
			}
			newNode.AddNeighbor(lc, neighborID)
			neighborNode.AddNeighbor(lc, nodeID)
			idx.pruneNeighbors(neighborNode, lc)
		}

		if len(candidates) > 0 {
			ep = idx.GetNode(candidates[0].id)
		}
	}

	idx.mu.Lock()
	idx.nodes[nodeID] = newNode
	idx.size++
	idx.mu.Unlock()

	// Entry-pointer update: compare-and-set, only succeeds if level
	// strictly exceeds the current entry level.
	idx.entryMu.Lock()
	idx.mu.Lock()
	if level > idx.maxLayer {
		idx.maxLayer = level
		idx.entryPoint = newNode
	}
	idx.mu.Unlock()
	idx.entryMu.Unlock()

	return nodeID, nil
}

// searchLayer runs greedy beam search at one layer, returning up to ef
// candidates sorted by ascending distance.
func (idx *Index) searchLayer(query vector.Vector, entryPoint *Node, ef int, layer int) []heapItem {
	visited := make(map[uint64]bool)
	candidates := &minHeap{}
	results := &maxHeap{}

	d := idx.distToNode(query, entryPoint)
	heap.Push(candidates, heapItem{id: entryPoint.ID(), distance: d})
	heap.Push(results, heapItem{id: entryPoint.ID(), distance: d})
	visited[entryPoint.ID()] = true

	for candidates.Len() > 0 {
		current := heap.Pop(candidates).(heapItem)
		if vector.LessDistance(results.Peek().(heapItem).distance, current.distance) {
			break
		}

		currentNode := idx.GetNode(current.id)
		if currentNode == nil {
			continue
		}

		for _, neighborID := range currentNode.GetNeighbors(layer) {
			if visited[neighborID] {
				continue
			}
			visited[neighborID] = true

			neighborNode := idx.GetNode(neighborID)
			if neighborNode == nil {
				continue
			}

			nd := idx.distToNode(query, neighborNode)
			if results.Len() < ef || vector.LessDistance(nd, results.Peek().(heapItem).distance) {
				heap.Push(candidates, heapItem{id: neighborID, distance: nd})
				heap.Push(results, heapItem{id: neighborID, distance: nd})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]heapItem, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(heapItem)
	}
	return out
}

// selectNeighborsHeuristic applies diversity-favoring selection: a
// candidate c is kept only if it is closer to e than to every neighbor
// already kept. This replaces a naive "M closest" cut, which collapses
// into hub nodes under clustered data.
func (idx *Index) selectNeighborsHeuristic(e vector.Vector, candidates []heapItem, m int) []uint64 {
	if len(candidates) <= m {
		out := make([]uint64, len(candidates))
		for i, c := range candidates {
			out[i] = c.id
		}
		return out
	}

	selected := make([]uint64, 0, m)
	for _, c := range candidates {
		if len(selected) >= m {
			break
		}
		candidateNode := idx.GetNode(c.id)
		if candidateNode == nil {
			continue
		}

		keep := true
		for _, rid := range selected {
			r := idx.GetNode(rid)
			if r == nil {
				continue
			}
			if !vector.LessDistance(idx.dist(candidateNode.vector, e), idx.dist(candidateNode.vector, r.vector)) {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, c.id)
		}
	}

	// The heuristic can under-fill when candidates cluster tightly;
	// backfill with the closest remaining candidates so pruning never
	// starves a node below what ef offered.
	if len(selected) < m {
		have := make(map[uint64]bool, len(selected))
		for _, id := range selected {
			have[id] = true
		}
		for _, c := range candidates {
			if len(selected) >= m {
				break
			}
			if !have[c.id] {
				selected = append(selected, c.id)
			}
		}
	}

	return selected
}

// pruneNeighbors re-applies the heuristic to cap a node's neighbor list at
// its layer's capacity after a new edge was added.
func (idx *Index) pruneNeighbors(node *Node, layer int) {
	m := idx.M
	if layer == 0 {
		m = idx.Mmax0()
	}

	neighborIDs := node.GetNeighbors(layer)
	if len(neighborIDs) <= m {
		return
	}

	candidates := make([]heapItem, 0, len(neighborIDs))
	for _, id := range neighborIDs {
		n := idx.GetNode(id)
		if n == nil {
			continue
		}
		candidates = append(candidates, heapItem{id: id, distance: idx.distBetween(node, n)})
	}
	sortByDistance(candidates)

	selected := idx.selectNeighborsHeuristic(node.vector, candidates, m)
	node.SetNeighbors(layer, selected)
}

func sortByDistance(items []heapItem) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && vector.LessDistance(items[j].distance, items[j-1].distance); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// heapItem is one priority-queue entry keyed by distance.
type heapItem struct {
	id       uint64
	distance float32
}

// minHeap orders heapItems with the smallest distance at the top.
type minHeap []heapItem

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return vector.LessDistance(h[i].distance, h[j].distance) }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// maxHeap orders heapItems with the largest distance at the top.
type maxHeap []heapItem

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return vector.LessDistance(h[j].distance, h[i].distance) }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
func (h *maxHeap) Peek() interface{} {
	if len(*h) == 0 {
		return heapItem{distance: float32(math.Inf(1))}
	}
	return (*h)[0]
}
func (h *minHeap) Peek() interface{} {
	if len(*h) == 0 {
		return heapItem{distance: float32(math.Inf(1))}
	}
	return (*h)[0]
}
