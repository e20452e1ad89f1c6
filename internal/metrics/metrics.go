// Package metrics exposes ingestion outcomes as Prometheus collectors on a
// registry owned by the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/plotapi/internal/ingest"
)

const namespace = "plotapi"

// Ingestion sources.
const (
	SourceUpload = "upload"
	SourceURL    = "url"
)

// OutcomeSuccess labels ingestions that produced a result. Failures are
// labelled with their ingest.Kind.
const OutcomeSuccess = "success"

// Metrics holds the service collectors and the registry they live on.
type Metrics struct {
	registry *prometheus.Registry

	ingestions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rows       prometheus.Histogram
}

// New creates the collectors and registers them, the Go runtime collector
// and any extra collectors on a fresh registry.
func New(extra ...prometheus.Collector) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Ingestions by source and outcome.",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time spent fetching, parsing and classifying one input.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
		rows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingested_rows",
			Help:      "Data rows per successful ingestion.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 8),
		}),
	}

	m.registry.MustRegister(m.ingestions, m.duration, m.rows)
	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(extra...)
	return m
}

// ObserveIngestion records one finished ingestion. rows is ignored on error.
func (m *Metrics) ObserveIngestion(source string, err error, elapsed time.Duration, rows int) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = ingest.KindOf(err).String()
	}
	m.ingestions.WithLabelValues(source, outcome).Inc()
	m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
	if err == nil {
		m.rows.Observe(float64(rows))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// InFlight reports the number of ingestions holding a limiter slot.
func InFlight(active func() int) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ingestions_in_flight",
		Help:      "Ingestions currently holding a slot.",
	}, func() float64 { return float64(active()) })
}
