package hnsw

import (
	"context"
	"math/rand"
	"testing"

	"github.com/annidx/annidx/pkg/vector"
	"github.com/stretchr/testify/require"
)

func TestSearchEmptyIndex(t *testing.T) {
	idx := New(Options{DistanceKind: vector.L2})
	res, err := idx.Search(context.Background(), vector.Vector{1, 2, 3}, 5, 40)
	require.NoError(t, err)
	require.Empty(t, res.Results)
}

func TestSearchFindsExactMatches(t *testing.T) {
	idx := New(Options{M: 16, EfConstruction: 100, DistanceKind: vector.L2})
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	dim, count := 8, 200
	vectors := make([]vector.Vector, count)
	for i := 0; i < count; i++ {
		vectors[i] = randVec(rng, dim)
		_, err := idx.Insert(ctx, vectors[i])
		require.NoError(t, err)
	}

	failures := 0
	for i := 0; i < count; i++ {
		res, err := idx.Search(ctx, vectors[i], 1, 80)
		require.NoError(t, err)
		if len(res.Results) == 0 || res.Results[0].ID != uint64(i) {
			failures++
		}
	}
	require.Lessf(t, failures, count/5, "too many failures: %d/%d", failures, count)
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx := New(Options{DistanceKind: vector.L2})
	ctx := context.Background()
	_, err := idx.Insert(ctx, vector.Vector{1, 2, 3})
	require.NoError(t, err)

	_, err = idx.Search(ctx, vector.Vector{1, 2}, 1, 10)
	require.Error(t, err)
}

func TestSearchEfSearchFloorsAtK(t *testing.T) {
	idx := New(Options{DistanceKind: vector.L2})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := idx.Insert(ctx, vector.Vector{float32(i), 0})
		require.NoError(t, err)
	}
	res, err := idx.Search(ctx, vector.Vector{0, 0}, 3, 1)
	require.NoError(t, err)
	require.Len(t, res.Results, 3)
}

func TestMarkDeletedExcludesFromResults(t *testing.T) {
	idx := New(Options{DistanceKind: vector.L2})
	ctx := context.Background()
	ids := make([]uint64, 0, 10)
	for i := 0; i < 10; i++ {
		id, err := idx.Insert(ctx, vector.Vector{float32(i), 0})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.NoError(t, idx.MarkDeleted(ids[0]))
	require.True(t, idx.IsDeleted(ids[0]))
	require.EqualValues(t, 9, idx.Size())

	res, err := idx.Search(ctx, vector.Vector{0, 0}, 10, 40)
	require.NoError(t, err)
	for _, r := range res.Results {
		require.NotEqual(t, ids[0], r.ID)
	}
}

func TestGetVectorRoundTrips(t *testing.T) {
	idx := New(Options{DistanceKind: vector.L2})
	ctx := context.Background()
	id, err := idx.Insert(ctx, vector.Vector{1, 2, 3})
	require.NoError(t, err)

	v, err := idx.GetVector(id)
	require.NoError(t, err)
	require.Equal(t, vector.Vector{1, 2, 3}, v)
}

// A context cancelled before the search starts is reported as an
// interrupted error without panicking.
func TestSearchRespectsInterrupt(t *testing.T) {
	idx := New(Options{DistanceKind: vector.L2})
	ctx := context.Background()
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		_, err := idx.Insert(ctx, randVec(rng, 4))
		require.NoError(t, err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := idx.Search(cancelled, vector.Vector{0, 0, 0, 0}, 5, 40)
	require.Error(t, err)
}
