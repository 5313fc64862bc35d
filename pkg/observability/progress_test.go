package observability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgressReporterAdvance(t *testing.T) {
	var calls []int64
	r := NewProgressReporter("loading tuples", 10, func(phase string, done, total int64) {
		require.Equal(t, "loading tuples", phase)
		require.EqualValues(t, 10, total)
		calls = append(calls, done)
	})

	r.Advance(3)
	r.Advance(4)

	phase, done, total := r.Done()
	require.Equal(t, "loading tuples", phase)
	require.EqualValues(t, 7, done)
	require.EqualValues(t, 10, total)
	require.Equal(t, []int64{0, 3, 7}, calls)
}

func TestProgressReporterSetPhase(t *testing.T) {
	r := NewProgressReporter("initializing", 0, nil)
	r.Advance(1)
	r.SetPhase("assigning tuples", 100)

	phase, done, total := r.Done()
	require.Equal(t, "assigning tuples", phase)
	require.EqualValues(t, 0, done)
	require.EqualValues(t, 100, total)
}

func TestProgressReporterConcurrentAdvance(t *testing.T) {
	r := NewProgressReporter("loading tuples", 1000, nil)
	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.Advance(1)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	_, d, _ := r.Done()
	require.EqualValues(t, 1000, d)
}
