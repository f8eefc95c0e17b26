// Package metrics provides Prometheus metrics for the help search service
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the search-core Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Query metrics
	QueriesTotal    *prometheus.CounterVec
	QueryDuration   prometheus.Histogram
	PhaseDuration   *prometheus.HistogramVec
	ResultsPerQuery prometheus.Histogram

	// Data load metrics
	DataLoadsTotal     *prometheus.CounterVec
	StaleDiscardsTotal prometheus.Counter

	// Rendering
	SegmentsTotal prometheus.Counter

	// Catalog and sessions
	BooksTotal     prometheus.Gauge
	ActiveSessions prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.QueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpsearch_queries_total",
			Help: "Total number of completed search queries by outcome",
		},
		[]string{"outcome"},
	)

	m.QueryDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helpsearch_query_duration_seconds",
			Help:    "Duration of search queries from submission to final results",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	m.PhaseDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helpsearch_phase_duration_seconds",
			Help:    "Duration of match engine phases",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"phase"},
	)

	m.ResultsPerQuery = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helpsearch_results_per_query",
			Help:    "Number of results per completed query",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	m.DataLoadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpsearch_data_loads_total",
			Help: "Total number of generated search data loads",
		},
		[]string{"kind", "status"},
	)

	m.StaleDiscardsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "helpsearch_stale_discards_total",
			Help: "Total number of query runs discarded because a newer query superseded them",
		},
	)

	m.SegmentsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "helpsearch_segments_total",
			Help: "Total number of rendered result segments",
		},
	)

	m.BooksTotal = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "helpsearch_books",
			Help: "Number of books in the catalog",
		},
	)

	m.ActiveSessions = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "helpsearch_active_sessions",
			Help: "Number of open search sessions",
		},
	)

	return m
}

// RecordQuery records a finished query run
func (m *Metrics) RecordQuery(outcome string, duration time.Duration, results int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	m.QueryDuration.Observe(duration.Seconds())
	m.ResultsPerQuery.Observe(float64(results))
}

// RecordPhase records the duration of one match engine phase
func (m *Metrics) RecordPhase(phase string, duration time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordLoad records one data load of the given kind ("words" or "pairs")
func (m *Metrics) RecordLoad(kind string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.DataLoadsTotal.WithLabelValues(kind, status).Inc()
}

// RecordStale records a discarded stale run
func (m *Metrics) RecordStale() {
	if m == nil {
		return
	}
	m.StaleDiscardsTotal.Inc()
}

// RecordSegment records one rendered segment
func (m *Metrics) RecordSegment() {
	if m == nil {
		return
	}
	m.SegmentsTotal.Inc()
}

// SetBooks updates the catalog size
func (m *Metrics) SetBooks(n int) {
	if m == nil {
		return
	}
	m.BooksTotal.Set(float64(n))
}

// SetActiveSessions updates the session count
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
