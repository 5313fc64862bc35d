package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errDummy = errors.New("dummy insert failure")

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	require.NotNil(t, m)
	require.NotNil(t, m.BuildsTotal)
	require.NotNil(t, m.SearchLatency)
	require.NotNil(t, m.SearchRecall)
}

func TestRecordBuildAndNotice(t *testing.T) {
	m := NewMetrics()
	m.RecordBuild("hnsw", "ok", 250*time.Millisecond)
	m.RecordBuild("ivfflat", "error", 10*time.Millisecond)
	m.RecordNotice("hnsw", "arena_overflow")
	m.RecordNotice("ivfflat", "empty_list_repair")
}

func TestRecordSearch(t *testing.T) {
	m := NewMetrics()
	m.RecordSearch("hnsw", 5*time.Millisecond, 128, 10)
	m.RecordSearch("ivfflat", 12*time.Millisecond, 64, 10)
}

func TestRecordInterrupt(t *testing.T) {
	m := NewMetrics()
	m.RecordInterrupt("hnsw", "search")
	m.RecordInterrupt("ivfflat", "build")
}

func TestRecordInsertDelete(t *testing.T) {
	m := NewMetrics()
	m.RecordInsert("hnsw", nil)
	m.RecordInsert("hnsw", errDummy)
	m.RecordDelete("ivfflat", 3)
}

func TestGauges(t *testing.T) {
	m := NewMetrics()
	m.SetIndexSize("hnsw", 1000)
	m.SetIndexPages("hnsw", 42)
	m.SetHNSWMaxLayer(4)
	m.ObserveIVFListSize(512)
	m.ObserveRecall(0.97)
}

func TestConcurrentMetricUpdates(t *testing.T) {
	m := NewMetrics()
	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 50; j++ {
				m.RecordInsert("hnsw", nil)
				m.SetIndexSize("hnsw", j)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
