package hnsw

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/annidx/annidx/pkg/annerr"
	"github.com/annidx/annidx/pkg/vector"
)

// Result is one search hit: node id and its distance to the query.
type Result struct {
	ID       uint64
	Distance float32
}

// SearchResult holds search output plus how many elements were visited,
// used for the search-visited metric and recall-sanity checks.
type SearchResult struct {
	Results []Result
	Visited int
}

// Search runs greedy descent with ef=1 to layer 1, then a beam search at
// layer 0 with ef = max(efSearch, k).
func (idx *Index) Search(ctx context.Context, query vector.Vector, k int, efSearch int) (*SearchResult, error) {
	if err := query.CheckFinite(); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	if idx.dimension == 0 || idx.entryPoint == nil {
		idx.mu.RUnlock()
		return &SearchResult{}, nil
	}
	if query.Dims() != idx.dimension {
		idx.mu.RUnlock()
		return nil, fmt.Errorf("%w: index dimension %d, query dimension %d", annerr.ErrDimensionMismatch, idx.dimension, query.Dims())
	}
	if efSearch < k {
		efSearch = k
	}
	entryPoint := idx.entryPoint
	maxLayer := idx.maxLayer
	idx.mu.RUnlock()

	ep := entryPoint
	currentDist := idx.distToNode(query, ep)
	visited := 1

	for lc := maxLayer; lc > 0; lc-- {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", annerr.ErrInterrupted, err)
		}
		changed := true
		for changed {
			changed = false
			for _, neighborID := range ep.GetNeighbors(lc) {
				visited++
				neighborNode := idx.GetNode(neighborID)
				if neighborNode == nil {
					continue
				}
				d := idx.distToNode(query, neighborNode)
				if d < currentDist {
					currentDist = d
					ep = neighborNode
					changed = true
				}
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", annerr.ErrInterrupted, err)
	}

	candidates := idx.searchLayerForQuery(ctx, query, ep, efSearch, &visited)
	if candidates == nil {
		return nil, fmt.Errorf("%w: search cancelled", annerr.ErrInterrupted)
	}

	results := make([]Result, 0, k)
	idx.mu.RLock()
	for i := 0; i < len(candidates) && len(results) < k; i++ {
		if idx.deleted[candidates[i].id] {
			continue
		}
		results = append(results, Result{ID: candidates[i].id, Distance: candidates[i].distance})
	}
	idx.mu.RUnlock()

	return &SearchResult{Results: results, Visited: visited}, nil
}

// searchLayerForQuery is searchLayer specialized to layer 0 query-time beam
// search, tracking total visited count and honoring cancellation.
func (idx *Index) searchLayerForQuery(ctx context.Context, query vector.Vector, entryPoint *Node, ef int, visited *int) []heapItem {
	visitedSet := make(map[uint64]bool)
	candidates := &minHeap{}
	results := &maxHeap{}

	d := idx.distToNode(query, entryPoint)
	heap.Push(candidates, heapItem{id: entryPoint.ID(), distance: d})
	heap.Push(results, heapItem{id: entryPoint.ID(), distance: d})
	visitedSet[entryPoint.ID()] = true
	*visited++

	for candidates.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil
		}
		current := heap.Pop(candidates).(heapItem)
		if vector.LessDistance(results.Peek().(heapItem).distance, current.distance) {
			break
		}

		currentNode := idx.GetNode(current.id)
		if currentNode == nil {
			continue
		}

		for _, neighborID := range currentNode.GetNeighbors(0) {
			if visitedSet[neighborID] {
				continue
			}
			visitedSet[neighborID] = true
			*visited++

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

// GetVector retrieves a stored vector by id.
func (idx *Index) GetVector(id uint64) (vector.Vector, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	node := idx.nodes[id]
	if node == nil {
		return nil, fmt.Errorf("%w: node %d not found", annerr.ErrBadInput, id)
	}
	return node.vector.Clone(), nil
}

// MarkDeleted tombstones id for host-side visibility filtering. The graph
// itself is not physically pruned: repeated deletions degrade recall over
// time and REINDEX (Rebuild) is the remedy.
func (idx *Index) MarkDeleted(id uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.nodes[id]; !ok {
		return fmt.Errorf("%w: node %d not found", annerr.ErrBadInput, id)
	}
	if !idx.deleted[id] {
		idx.deleted[id] = true
		idx.size--
	}
	return nil
}

// IsDeleted reports whether id has been tombstoned.
func (idx *Index) IsDeleted(id uint64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.deleted[id]
}
