package ivfflat

import (
	"context"
	"math/rand"
	"testing"

	"github.com/annidx/annidx/pkg/vector"
	"github.com/stretchr/testify/require"
)

func gaussianVec(rng *rand.Rand, center float32, dim int) vector.Vector {
	v := make(vector.Vector, dim)
	for i := range v {
		v[i] = center + float32(rng.NormFloat64())*0.1
	}
	return v
}

func makeSource(n int, dim int, seed int64) (*sliceSource, []vector.Vector) {
	rng := rand.New(rand.NewSource(seed))
	entries := make([]liveEntry, n)
	vecs := make([]vector.Vector, n)
	for i := 0; i < n; i++ {
		center := float32(0)
		if i%2 == 1 {
			center = 10
		}
		v := gaussianVec(rng, center, dim)
		entries[i] = liveEntry{id: uint64(i), v: v}
		vecs[i] = v
	}
	return &sliceSource{entries: entries}, vecs
}

func TestBuildOnEmptySource(t *testing.T) {
	src := &sliceSource{}
	idx, err := Build(context.Background(), Config{Lists: 4, DistanceKind: vector.L2}, src, 0, 1, nil)
	require.NoError(t, err)
	require.True(t, idx.Trained())
	require.Equal(t, 4, idx.Lists())
	require.Equal(t, 0, idx.GetStats().TotalEntries)
}

// A build on an empty table still yields an index that subsequent
// inserts can populate without the centroid table ever being empty.
func TestInsertAfterEmptyBuildPopulatesLists(t *testing.T) {
	src := &sliceSource{}
	idx, err := Build(context.Background(), Config{Lists: 4, DistanceKind: vector.L2}, src, 0, 1, nil)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		for i := 0; i < 10; i++ {
			require.NoError(t, idx.Insert(uint64(i), vector.Vector{1, 2, 3}))
		}
	})
	require.EqualValues(t, 10, idx.GetStats().TotalEntries)
	require.Equal(t, 3, idx.Dimension())
}

func TestBuildAssignsEveryTuple(t *testing.T) {
	src, _ := makeSource(200, 6, 7)
	idx, err := Build(context.Background(), Config{Lists: 4, DistanceKind: vector.L2}, src, 200, 7, nil)
	require.NoError(t, err)
	require.EqualValues(t, 200, idx.GetStats().TotalEntries)
}

// A sample smaller than the list count collapses some seeds to
// duplicates rather than failing the build outright.
func TestBuildToleratesFewerSampleVectorsThanLists(t *testing.T) {
	src, _ := makeSource(3, 4, 1)
	idx, err := Build(context.Background(), Config{Lists: 10, DistanceKind: vector.L2}, src, 3, 1, nil)
	require.NoError(t, err)
	require.True(t, idx.Trained())
	require.EqualValues(t, 3, idx.GetStats().TotalEntries)
}

func TestBuildTwoClusterSeparation(t *testing.T) {
	src, vecs := makeSource(400, 8, 5)
	idx, err := Build(context.Background(), Config{Lists: 2, DistanceKind: vector.L2}, src, 400, 5, nil)
	require.NoError(t, err)

	c0, err := vector.Distance(vector.L2, vecs[0], idx.centroids[0])
	require.NoError(t, err)
	c1, err := vector.Distance(vector.L2, vecs[0], idx.centroids[1])
	require.NoError(t, err)
	require.NotEqual(t, c0, c1)
}

func TestBuildRespectsInterrupt(t *testing.T) {
	src, _ := makeSource(100, 4, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, Config{Lists: 4, DistanceKind: vector.L2}, src, 100, 2, nil)
	require.Error(t, err)
}

func TestBuildReportsProgressPhases(t *testing.T) {
	src, _ := makeSource(100, 4, 2)
	var phases []string
	_, err := Build(context.Background(), Config{Lists: 4, DistanceKind: vector.L2}, src, 100, 2,
		func(phase string, done, total int64) {
			if len(phases) == 0 || phases[len(phases)-1] != phase {
				phases = append(phases, phase)
			}
		})
	require.NoError(t, err)
	require.Contains(t, phases, "initializing")
	require.Contains(t, phases, "performing k-means")
	require.Contains(t, phases, "assigning tuples")
}
