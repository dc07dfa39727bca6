package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IndexerMetrics covers the offline phase: per-document indexing runs, chunk
// counts and the lag between upload and indexing start.
type IndexerMetrics struct {
	registry *prometheus.Registry

	indexTotal    *prometheus.CounterVec
	indexDuration *prometheus.HistogramVec
	indexInFlight prometheus.Gauge
	chunksIndexed *prometheus.HistogramVec
	queueLag      *prometheus.HistogramVec
}

func NewIndexerMetrics(service string) *IndexerMetrics {
	registry := prometheus.NewRegistry()

	indexTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regassist",
			Subsystem: "indexer",
			Name:      "documents_total",
			Help:      "Total indexed regulation documents by status.",
		},
		[]string{"service", "status"},
	)
	indexDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regassist",
			Subsystem: "indexer",
			Name:      "document_duration_seconds",
			Help:      "Per-document indexing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	indexInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "regassist",
			Subsystem: "indexer",
			Name:      "documents_in_flight",
			Help:      "Number of documents currently being indexed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chunksIndexed := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regassist",
			Subsystem: "indexer",
			Name:      "chunks_per_document",
			Help:      "Distribution of article chunks produced per document.",
			Buckets:   []float64{0, 5, 10, 20, 40, 80, 160, 320},
		},
		[]string{"service"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regassist",
			Subsystem: "indexer",
			Name:      "queue_lag_seconds",
			Help:      "Delay between document upload and indexing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(indexTotal, indexDuration, indexInFlight, chunksIndexed, queueLag)

	return &IndexerMetrics{
		registry:      registry,
		indexTotal:    indexTotal,
		indexDuration: indexDuration,
		indexInFlight: indexInFlight,
		chunksIndexed: chunksIndexed,
		queueLag:      queueLag,
	}
}

func (m *IndexerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IndexerMetrics) StartDocument() {
	m.indexInFlight.Inc()
}

func (m *IndexerMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.indexInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.indexTotal.WithLabelValues(service, status).Inc()
	m.indexDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *IndexerMetrics) ObserveChunks(service string, count int) {
	m.chunksIndexed.WithLabelValues(service).Observe(float64(count))
}

func (m *IndexerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
