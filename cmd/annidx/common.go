package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/annidx/annidx/pkg/hnsw"
	"github.com/annidx/annidx/pkg/ivfflat"
	"github.com/annidx/annidx/pkg/vector"
)

// loadVectors reads one JSON float array per line from path, e.g.
// [0.1, 0.2, 0.3]. Blank lines are skipped.
func loadVectors(path string) ([]vector.Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var vectors []vector.Vector
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if len(text) == 0 {
			continue
		}
		var raw []float32
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := vector.New(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		vectors = append(vectors, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func parseDistance(s string) (vector.DistanceKind, error) {
	switch s {
	case "l2", "":
		return vector.L2, nil
	case "inner":
		return vector.Inner, nil
	case "cosine":
		return vector.Cosine, nil
	case "l1":
		return vector.L1, nil
	default:
		return 0, fmt.Errorf("unknown distance %q (want l2, inner, cosine, or l1)", s)
	}
}

// engine bundles an in-process index of either kind so the build/insert/
// search/stats subcommands can share one code path regardless of which
// engine the user picked.
type engine struct {
	hnsw    *hnsw.Index
	ivfflat *ivfflat.Index
}

func buildEngine(ctx context.Context, kind string, vectors []vector.Vector, distKind vector.DistanceKind, m, efConstruction, lists int, seed int64) (*engine, error) {
	switch kind {
	case "hnsw", "":
		idx := hnsw.New(hnsw.Options{M: m, EfConstruction: efConstruction, DistanceKind: distKind})
		for _, v := range vectors {
			if _, err := idx.Insert(ctx, v); err != nil {
				return nil, err
			}
		}
		return &engine{hnsw: idx}, nil
	case "ivfflat":
		src := &memSource{vectors: vectors}
		idx, err := ivfflat.Build(ctx, ivfflat.Config{Lists: lists, DistanceKind: distKind}, src, int64(len(vectors)), seed, nil)
		if err != nil {
			return nil, err
		}
		return &engine{ivfflat: idx}, nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want hnsw or ivfflat)", kind)
	}
}

type result struct {
	ID       uint64
	Distance float32
}

func (e *engine) search(ctx context.Context, query vector.Vector, k, efSearch, probes int) ([]result, error) {
	if e.hnsw != nil {
		res, err := e.hnsw.Search(ctx, query, k, efSearch)
		if err != nil {
			return nil, err
		}
		out := make([]result, len(res.Results))
		for i, r := range res.Results {
			out[i] = result{ID: r.ID, Distance: r.Distance}
		}
		return out, nil
	}
	res, err := e.ivfflat.Search(ctx, query, k, probes, nil)
	if err != nil {
		return nil, err
	}
	out := make([]result, len(res))
	for i, r := range res {
		out[i] = result{ID: r.ID, Distance: r.Distance}
	}
	return out, nil
}

func (e *engine) statsString() string {
	if e.hnsw != nil {
		s := e.hnsw.GetStats()
		return fmt.Sprintf("engine=hnsw size=%d dimension=%d m=%d mmax0=%d max_layer=%d",
			s.Size, s.Dimension, s.M, s.Mmax0, s.MaxLayer)
	}
	s := e.ivfflat.GetStats()
	return fmt.Sprintf("engine=ivfflat lists=%d dimension=%d total_entries=%d min_list=%d max_list=%d avg_list=%.1f trained=%v",
		s.Lists, s.Dimension, s.TotalEntries, s.MinListSize, s.MaxListSize, s.AvgListSize, s.Trained)
}

// memSource adapts an in-memory vector slice to ivfflat.TupleSource for
// builds driven entirely from a loaded file.
type memSource struct {
	vectors []vector.Vector
	pos     int
}

func (s *memSource) Rewind() error { s.pos = 0; return nil }

func (s *memSource) Next() (uint64, vector.Vector, bool, error) {
	if s.pos >= len(s.vectors) {
		return 0, nil, true, nil
	}
	id := uint64(s.pos)
	v := s.vectors[s.pos]
	s.pos++
	return id, v, false, nil
}

func timeIt(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}
