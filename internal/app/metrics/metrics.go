// Package metrics exposes the portal's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "citizen_portal",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citizen_portal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "citizen_portal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	requestPayments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citizen_portal",
			Subsystem: "payments",
			Name:      "request_payments_total",
			Help:      "Total number of service request payment attempts.",
		},
		[]string{"instrument", "outcome"},
	)

	finesPaid = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "citizen_portal",
			Subsystem: "fines",
			Name:      "paid_total",
			Help:      "Total number of traffic fines settled via batch payment.",
		},
	)

	finesOverdue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "citizen_portal",
			Subsystem: "fines",
			Name:      "overdue_unpaid",
			Help:      "Unpaid traffic fines past their due date, from the last sweep.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		requestPayments,
		finesPaid,
		finesOverdue,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordPayment records one service request payment attempt.
func RecordPayment(instrument, outcome string) {
	if instrument == "" {
		instrument = "none"
	}
	requestPayments.WithLabelValues(instrument, outcome).Inc()
}

// RecordFinesPaid adds settled fines from one batch.
func RecordFinesPaid(count int) {
	if count > 0 {
		finesPaid.Add(float64(count))
	}
}

// SetOverdueFines publishes the latest overdue sweep result.
func SetOverdueFines(count int) {
	finesOverdue.Set(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource identifiers so metric labels stay bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "service-requests", "services", "appointments", "documents":
		if len(parts) == 1 {
			return "/" + parts[0]
		}
		if len(parts) > 2 {
			// e.g. /service-requests/:id/pay
			return "/" + parts[0] + "/:id/" + parts[2]
		}
		return "/" + parts[0] + "/:id"
	case "users", "fines":
		return "/" + trimmed
	default:
		return "/" + parts[0]
	}
}
