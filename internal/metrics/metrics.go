package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agrinexus"

// Metrics groups the pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	cycles         *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	anomalies      *prometheus.CounterVec
	searchQueries  *prometheus.CounterVec
	searchDuration prometheus.Histogram
	fallbacks      *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cycle",
				Name:      "runs_total",
				Help:      "Evaluation cycles by outcome",
			},
			[]string{"outcome"},
		),
		cycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "cycle",
				Name:      "duration_seconds",
				Help:      "Wall time of an evaluation cycle",
				Buckets:   prometheus.DefBuckets,
			},
		),
		anomalies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "detector",
				Name:      "anomalies_total",
				Help:      "Anomaly labels emitted by kind",
			},
			[]string{"kind"},
		),
		searchQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "research",
				Name:      "queries_total",
				Help:      "Search queries issued by origin and outcome",
			},
			[]string{"origin", "outcome"},
		),
		searchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "research",
				Name:      "query_duration_seconds",
				Help:      "Latency of a single search provider call",
				Buckets:   prometheus.DefBuckets,
			},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "research",
				Name:      "provider_fallbacks_total",
				Help:      "Searches answered by the secondary provider, by primary failure reason",
			},
			[]string{"reason"},
		),
	}
}

func (m *Metrics) ObserveCycle(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveAnomaly(kind string) {
	if m == nil {
		return
	}
	m.anomalies.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveQuery(origin, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.searchQueries.WithLabelValues(origin, outcome).Inc()
	m.searchDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}
