package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	importsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imports_submitted_total",
			Help: "Import batches admitted, by type",
		},
		[]string{"type"},
	)

	rollbacksExecuted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollbacks_executed_total",
			Help: "Import batches rolled back",
		},
	)

	consultationsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consultations_submitted_total",
			Help: "Consultation batches submitted",
		},
	)
)

// Metrics records request counts and latencies per route.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		status := strconv.Itoa(ww.status)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordImport counts an admitted import batch.
func RecordImport(importType string) {
	importsSubmitted.WithLabelValues(importType).Inc()
}

// RecordRollback counts a completed rollback.
func RecordRollback() {
	rollbacksExecuted.Inc()
}

// RecordConsultation counts a submitted consultation batch.
func RecordConsultation() {
	consultationsSubmitted.Inc()
}
