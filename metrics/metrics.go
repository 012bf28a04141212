package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ergebnisse einer Klassifikation für classifications_total.
const (
	OutcomeRecognized   = "recognized"
	OutcomeUnrecognized = "unrecognized"
	OutcomeRejected     = "rejected"
	OutcomeUpstream     = "upstream_error"
	OutcomeFailed       = "failed"
)

// Metrics bündelt alle Prometheus-Metriken des Backends. Ein nil-*Metrics ist gültig und zählt nichts.
type Metrics struct {
	classifications   *prometheus.CounterVec
	classifierLatency prometheus.Histogram
	catalogMutations  *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	prunedUploads     prometheus.Counter
}

// New registriert die Metriken bei reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medivize_classifications_total",
			Help: "Total number of image classification requests by outcome.",
		}, []string{"outcome"}),
		classifierLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "medivize_classifier_request_seconds",
			Help:    "Latency of calls to the external classifier.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		catalogMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medivize_catalog_mutations_total",
			Help: "Total number of successful catalog mutations by operation.",
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medivize_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medivize_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		prunedUploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medivize_uploads_pruned_total",
			Help: "Total number of transient uploads removed by the cleanup job.",
		}),
	}
	reg.MustRegister(
		m.classifications,
		m.classifierLatency,
		m.catalogMutations,
		m.httpRequests,
		m.httpDuration,
		m.prunedUploads,
	)
	return m
}

// Classification zählt eine Klassifikationsanfrage mit ihrem Ergebnis.
func (m *Metrics) Classification(outcome string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(outcome).Inc()
}

// ClassifierLatency erfasst die Dauer eines Aufrufs der ML API.
func (m *Metrics) ClassifierLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.classifierLatency.Observe(d.Seconds())
}

// CatalogMutation zählt eine erfolgreiche Änderung am Katalog.
func (m *Metrics) CatalogMutation(operation string) {
	if m == nil {
		return
	}
	m.catalogMutations.WithLabelValues(operation).Inc()
}

// HTTPRequest zählt eine HTTP-Anfrage und erfasst ihre Dauer.
func (m *Metrics) HTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// UploadsPruned addiert die Anzahl aufgeräumter Uploads.
func (m *Metrics) UploadsPruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.prunedUploads.Add(float64(n))
}
