// Package indexscan translates a (query vector, distance op, row-limit
// hint) request into a lazy, distance-ordered tuple-id stream against
// whichever index engine backs a given column, so a query planner can
// treat HNSW and IVFFlat scans identically.
package indexscan

import (
	"context"
	"fmt"

	"github.com/annidx/annidx/pkg/annerr"
	"github.com/annidx/annidx/pkg/hnsw"
	"github.com/annidx/annidx/pkg/ivfflat"
	"github.com/annidx/annidx/pkg/vector"
)

// Tuple is one result from a scan: a tuple id and its distance to the
// query under the scan's configured distance kind.
type Tuple struct {
	ID       uint64
	Distance float32
}

// ANNIndex is the capability both engines expose to a scan: given a
// query and a row-limit hint, return the hint's worth of nearest live
// tuples in ascending distance order. isLive filters tombstoned ids,
// since neither engine stores host visibility itself.
type ANNIndex interface {
	ScanNearest(ctx context.Context, query vector.Vector, limit int, isLive func(uint64) bool) ([]Tuple, error)
}

// HNSWAdapter satisfies ANNIndex against an *hnsw.Index, translating the
// row-limit hint into an efSearch beam width.
type HNSWAdapter struct {
	Index    *hnsw.Index
	EfSearch int // session setting; floored at limit by the index itself
}

func (a *HNSWAdapter) ScanNearest(ctx context.Context, query vector.Vector, limit int, isLive func(uint64) bool) ([]Tuple, error) {
	res, err := a.Index.Search(ctx, query, limit, a.EfSearch)
	if err != nil {
		return nil, err
	}
	out := make([]Tuple, 0, len(res.Results))
	for _, r := range res.Results {
		if isLive != nil && !isLive(r.ID) {
			continue
		}
		out = append(out, Tuple{ID: r.ID, Distance: r.Distance})
	}
	return out, nil
}

// IVFFlatAdapter satisfies ANNIndex against an *ivfflat.Index, translating
// the row-limit hint into a probes-bounded list scan.
type IVFFlatAdapter struct {
	Index  *ivfflat.Index
	Probes int // session setting; clamped to Lists() by the index itself
}

func (a *IVFFlatAdapter) ScanNearest(ctx context.Context, query vector.Vector, limit int, isLive func(uint64) bool) ([]Tuple, error) {
	res, err := a.Index.Search(ctx, query, limit, a.Probes, isLive)
	if err != nil {
		return nil, err
	}
	out := make([]Tuple, len(res))
	for i, r := range res {
		out[i] = Tuple{ID: r.ID, Distance: r.Distance}
	}
	return out, nil
}

// Scanner drives a single ANN scan request and exposes its result as a
// pull-based stream, mirroring how a query executor pulls one row at a
// time from a plan node rather than materializing the whole result.
type Scanner struct {
	tuples []Tuple
	pos    int
}

// NewScan runs idx's nearest-neighbor search for query and wraps the
// result in a Scanner. limit is the row-limit hint (e.g. a LIMIT clause
// or a default cap); distKind is checked against the index's own
// distance kind so a query can't silently scan with the wrong operator
// class.
func NewScan(ctx context.Context, idx ANNIndex, query vector.Vector, limit int, distKind vector.DistanceKind, indexDistKind vector.DistanceKind, isLive func(uint64) bool) (*Scanner, error) {
	if distKind != indexDistKind {
		return nil, fmt.Errorf("%w: query operator class does not match index distance", annerr.ErrUnsupported)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: row-limit hint must be positive", annerr.ErrBadInput)
	}

	tuples, err := idx.ScanNearest(ctx, query, limit, isLive)
	if err != nil {
		return nil, err
	}
	return &Scanner{tuples: tuples}, nil
}

// Next returns the next tuple in ascending distance order, or ok=false
// once the stream is exhausted.
func (s *Scanner) Next() (Tuple, bool) {
	if s.pos >= len(s.tuples) {
		return Tuple{}, false
	}
	t := s.tuples[s.pos]
	s.pos++
	return t, true
}

// Remaining reports how many tuples are left unread.
func (s *Scanner) Remaining() int { return len(s.tuples) - s.pos }
