package indexscan

import (
	"context"
	"math/rand"
	"testing"

	"github.com/annidx/annidx/pkg/hnsw"
	"github.com/annidx/annidx/pkg/ivfflat"
	"github.com/annidx/annidx/pkg/vector"
	"github.com/stretchr/testify/require"
)

func randVec(rng *rand.Rand, dim int) vector.Vector {
	v := make(vector.Vector, dim)
	for i := range v {
		v[i] = rng.Float32()
	}
	return v
}

func TestScanHNSW(t *testing.T) {
	idx := hnsw.New(hnsw.Options{DistanceKind: vector.L2})
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		_, err := idx.Insert(ctx, randVec(rng, 4))
		require.NoError(t, err)
	}

	adapter := &HNSWAdapter{Index: idx, EfSearch: 40}
	scan, err := NewScan(ctx, adapter, vector.Vector{0, 0, 0, 0}, 5, vector.L2, vector.L2, nil)
	require.NoError(t, err)

	count := 0
	for {
		_, ok := scan.Next()
		if !ok {
			break
		}
		count++
	}
	require.LessOrEqual(t, count, 5)
	require.Greater(t, count, 0)
}

func TestScanIVFFlat(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	entries := make([]liveEntryForTest, 200)
	for i := range entries {
		entries[i] = liveEntryForTest{id: uint64(i), v: randVec(rng, 4)}
	}

	built := buildIVF(t, entries, 4)
	adapter := &IVFFlatAdapter{Index: built, Probes: 2}
	scan, err := NewScan(context.Background(), adapter, entries[0].v, 5, vector.L2, vector.L2, nil)
	require.NoError(t, err)
	require.Greater(t, scan.Remaining(), 0)
}

func TestScanRejectsWrongOperatorClass(t *testing.T) {
	idx := hnsw.New(hnsw.Options{DistanceKind: vector.L2})
	adapter := &HNSWAdapter{Index: idx, EfSearch: 40}
	_, err := NewScan(context.Background(), adapter, vector.Vector{1, 2}, 5, vector.Cosine, vector.L2, nil)
	require.Error(t, err)
}

func TestScanRejectsNonPositiveLimit(t *testing.T) {
	idx := hnsw.New(hnsw.Options{DistanceKind: vector.L2})
	adapter := &HNSWAdapter{Index: idx, EfSearch: 40}
	_, err := NewScan(context.Background(), adapter, vector.Vector{1, 2}, 0, vector.L2, vector.L2, nil)
	require.Error(t, err)
}

type liveEntryForTest struct {
	id uint64
	v  vector.Vector
}

func buildIVF(t *testing.T, entries []liveEntryForTest, lists int) *ivfflat.Index {
	t.Helper()
	src := &testSource{entries: entries}
	idx, err := ivfflat.Build(context.Background(), ivfflat.Config{Lists: lists, DistanceKind: vector.L2}, src, int64(len(entries)), 3, nil)
	require.NoError(t, err)
	return idx
}

type testSource struct {
	entries []liveEntryForTest
	pos     int
}

func (s *testSource) Rewind() error { s.pos = 0; return nil }

func (s *testSource) Next() (uint64, vector.Vector, bool, error) {
	if s.pos >= len(s.entries) {
		return 0, nil, true, nil
	}
	e := s.entries[s.pos]
	s.pos++
	return e.id, e.v, false, nil
}
