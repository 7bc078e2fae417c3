// Package metrics exposes Prometheus instrumentation for the biotica server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexshd/biotica"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	computations      *prometheus.CounterVec
	scores            prometheus.Histogram
	detections        *prometheus.CounterVec
	actions           *prometheus.CounterVec
	alertErrors       prometheus.Counter
	batchDuration     prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biotica_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biotica_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biotica_ibr_computations_total",
			Help: "IBR computations by resulting classification.",
		}, []string{"classification"}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "biotica_ibr_normalized_score",
			Help:    "Distribution of normalized IBR scores.",
			Buckets: []float64{0.15, 0.3, 0.45, 0.6, 0.75, 0.88, 1},
		}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biotica_tipping_detections_total",
			Help: "Tipping-point detections by status and warning level.",
		}, []string{"status", "warning_level"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biotica_governor_actions_total",
			Help: "Governor decisions by action type.",
		}, []string{"action"}),
		alertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "biotica_alert_publish_errors_total",
			Help: "Total alert publish failures.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "biotica_batch_duration_seconds",
			Help:    "Histogram of batch scoring durations.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.computations,
		m.scores,
		m.detections,
		m.actions,
		m.alertErrors,
		m.batchDuration,
	)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request count and latency under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveResult records one computed result.
func (m *Metrics) ObserveResult(r biotica.IBRResult) {
	if m == nil {
		return
	}
	m.computations.WithLabelValues(string(r.Classification)).Inc()
	m.scores.Observe(r.NormalizedScore)
}

// ObserveTipping records one detection.
func (m *Metrics) ObserveTipping(r biotica.TippingPointResult) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(string(r.Status), strconv.Itoa(r.WarningLevel)).Inc()
}

// ObserveAction records one governor decision.
func (m *Metrics) ObserveAction(a biotica.Action) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(string(a.Type)).Inc()
}

// ObserveBatch records the duration of one batch.
func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}

// AlertError counts a failed alert delivery.
func (m *Metrics) AlertError() {
	if m == nil {
		return
	}
	m.alertErrors.Inc()
}
