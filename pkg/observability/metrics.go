package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments shared by both index engines.
// Series are labeled by "engine" (ivfflat or hnsw) so one process exposing
// several indexes gets per-engine breakdowns without per-index cardinality
// blowup.
type Metrics struct {
	// Build path.
	BuildsTotal       *prometheus.CounterVec
	BuildDuration     *prometheus.HistogramVec
	BuildNoticesTotal *prometheus.CounterVec // arena overflow, many empty lists after build

	// Population.
	IndexSize    *prometheus.GaugeVec
	IndexPages   *prometheus.GaugeVec
	HNSWMaxLayer *prometheus.GaugeVec
	IVFListSize  *prometheus.HistogramVec

	// Write path.
	InsertsTotal *prometheus.CounterVec
	InsertErrors *prometheus.CounterVec
	DeletesTotal *prometheus.CounterVec

	// Search path.
	SearchLatency    *prometheus.HistogramVec
	SearchVisited    *prometheus.HistogramVec
	SearchResultSize *prometheus.HistogramVec
	SearchRecall     prometheus.Histogram

	// Cancellation.
	InterruptsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns the index metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		BuildsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annidx_builds_total",
				Help: "Total number of index builds by engine and outcome",
			},
			[]string{"engine", "outcome"},
		),
		BuildDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "annidx_build_duration_seconds",
				Help:    "Index build duration in seconds",
				Buckets: []float64{.5, 1, 5, 10, 30, 60, 300, 600, 1800},
			},
			[]string{"engine"},
		),
		BuildNoticesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annidx_build_notices_total",
				Help: "Total NOTICE-level downgrades during build",
			},
			[]string{"engine", "reason"},
		),
		IndexSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "annidx_index_size",
				Help: "Number of vectors held by the index",
			},
			[]string{"engine"},
		),
		IndexPages: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "annidx_index_pages",
				Help: "Number of pages allocated from the page store",
			},
			[]string{"engine"},
		),
		HNSWMaxLayer: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "annidx_hnsw_max_layer",
				Help: "Current maximum layer of the HNSW graph",
			},
			[]string{"engine"},
		),
		IVFListSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "annidx_ivfflat_list_size",
				Help:    "Distribution of inverted-list sizes after build or rebalance",
				Buckets: prometheus.ExponentialBuckets(1, 2, 16),
			},
			[]string{"engine"},
		),
		InsertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annidx_inserts_total",
				Help: "Total number of successful single-vector inserts",
			},
			[]string{"engine"},
		),
		InsertErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annidx_insert_errors_total",
				Help: "Total number of failed inserts by error kind",
			},
			[]string{"engine", "kind"},
		),
		DeletesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annidx_deletes_total",
				Help: "Total number of tombstoned or removed vectors",
			},
			[]string{"engine"},
		),
		SearchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "annidx_search_latency_seconds",
				Help:    "Search latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"engine"},
		),
		SearchVisited: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "annidx_search_visited",
				Help:    "Number of elements or entries visited per query",
				Buckets: prometheus.ExponentialBuckets(4, 2, 12),
			},
			[]string{"engine"},
		),
		SearchResultSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "annidx_search_result_size",
				Help:    "Number of results returned by search",
				Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500},
			},
			[]string{"engine"},
		),
		SearchRecall: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "annidx_search_recall",
				Help:    "Recall@k observed by callers running recall-sanity checks",
				Buckets: []float64{.5, .7, .8, .9, .95, .98, .99, 1.0},
			},
		),
		InterruptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annidx_interrupts_total",
				Help: "Total number of cancelled build or search loops",
			},
			[]string{"engine", "phase"},
		),
	}
}

// RecordSearch records one completed query.
func (m *Metrics) RecordSearch(engine string, duration time.Duration, visited, results int) {
	m.SearchLatency.WithLabelValues(engine).Observe(duration.Seconds())
	m.SearchVisited.WithLabelValues(engine).Observe(float64(visited))
	m.SearchResultSize.WithLabelValues(engine).Observe(float64(results))
}

// RecordBuild records one completed (or failed) build.
func (m *Metrics) RecordBuild(engine, outcome string, duration time.Duration) {
	m.BuildsTotal.WithLabelValues(engine, outcome).Inc()
	m.BuildDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

// RecordNotice records a resource event that was downgraded to a NOTICE
// and allowed to continue rather than failing the operation.
func (m *Metrics) RecordNotice(engine, reason string) {
	m.BuildNoticesTotal.WithLabelValues(engine, reason).Inc()
}

// RecordInterrupt records a cancelled build or search loop.
func (m *Metrics) RecordInterrupt(engine, phase string) {
	m.InterruptsTotal.WithLabelValues(engine, phase).Inc()
}

// RecordInsert records a successful or failed single-vector insert.
func (m *Metrics) RecordInsert(engine string, err error) {
	if err != nil {
		m.InsertErrors.WithLabelValues(engine, "error").Inc()
		return
	}
	m.InsertsTotal.WithLabelValues(engine).Inc()
}

// RecordDelete records a tombstoned vector.
func (m *Metrics) RecordDelete(engine string, count int) {
	m.DeletesTotal.WithLabelValues(engine).Add(float64(count))
}

// SetIndexSize updates the gauge tracking live vector count.
func (m *Metrics) SetIndexSize(engine string, size int) {
	m.IndexSize.WithLabelValues(engine).Set(float64(size))
}

// SetIndexPages updates the gauge tracking allocated page count.
func (m *Metrics) SetIndexPages(engine string, pages int) {
	m.IndexPages.WithLabelValues(engine).Set(float64(pages))
}

// SetHNSWMaxLayer updates the HNSW max-layer gauge.
func (m *Metrics) SetHNSWMaxLayer(layer int) {
	m.HNSWMaxLayer.WithLabelValues("hnsw").Set(float64(layer))
}

// ObserveIVFListSize records one inverted-list's size after a build or
// rebalance pass.
func (m *Metrics) ObserveIVFListSize(size int) {
	m.IVFListSize.WithLabelValues("ivfflat").Observe(float64(size))
}

// ObserveRecall records a recall@k sample from a caller-driven sanity
// check.
func (m *Metrics) ObserveRecall(recall float64) {
	m.SearchRecall.Observe(recall)
}
