package hnsw

import (
	"sync"

	"github.com/annidx/annidx/pkg/vector"
)

// Node is one graph element: a vector plus its per-layer neighbor lists.
type Node struct {
	id     uint64
	vector vector.Vector
	level  int // highest layer this node participates in

	// neighbors[layer] holds neighbor ids at that layer; layer 0 holds
	// every live node's neighbors, capped at Mmax0 instead of M.
	neighbors [][]uint64

	mu sync.RWMutex
}

// NewNode creates a node at the given level with empty neighbor lists.
func NewNode(id uint64, v vector.Vector, level int) *Node {
	neighbors := make([][]uint64, level+1)
	for i := range neighbors {
		neighbors[i] = make([]uint64, 0)
	}

	return &Node{
		id:        id,
		vector:    v,
		level:     level,
		neighbors: neighbors,
	}
}

func (n *Node) ID() uint64          { return n.id }
func (n *Node) Vector() vector.Vector { return n.vector }
func (n *Node) Level() int          { return n.level }

// AddNeighbor adds neighborID at layer, skipping duplicates and self-loops.
func (n *Node) AddNeighbor(layer int, neighborID uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if layer < 0 || layer > n.level || neighborID == n.id {
		return
	}
	for _, id := range n.neighbors[layer] {
		if id == neighborID {
			return
		}
	}
	n.neighbors[layer] = append(n.neighbors[layer], neighborID)
}

// RemoveNeighbor removes neighborID from layer, if present.
func (n *Node) RemoveNeighbor(layer int, neighborID uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if layer < 0 || layer > n.level {
		return
	}
	for i, id := range n.neighbors[layer] {
		if id == neighborID {
			n.neighbors[layer][i] = n.neighbors[layer][len(n.neighbors[layer])-1]
			n.neighbors[layer] = n.neighbors[layer][:len(n.neighbors[layer])-1]
			return
		}
	}
}

// GetNeighbors returns a copy of the neighbor ids at layer.
func (n *Node) GetNeighbors(layer int) []uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if layer < 0 || layer > n.level {
		return nil
	}
	out := make([]uint64, len(n.neighbors[layer]))
	copy(out, n.neighbors[layer])
	return out
}

// SetNeighbors replaces the neighbor list at layer.
func (n *Node) SetNeighbors(layer int, neighbors []uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if layer < 0 || layer > n.level {
		return
	}
	n.neighbors[layer] = append([]uint64(nil), neighbors...)
}

// NeighborCount returns the number of neighbors at layer.
func (n *Node) NeighborCount(layer int) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if layer < 0 || layer > n.level {
		return 0
	}
	return len(n.neighbors[layer])
}
