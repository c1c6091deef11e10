package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "merchant_onboarding"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	accessDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "decisions_total",
			Help:      "Access state decisions by resulting state.",
		},
		[]string{"state"},
	)

	readRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "read_repairs_total",
			Help:      "Authoritative re-reads after an empty cached connection snapshot.",
		},
		[]string{"outcome"},
	)

	autosaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "autosaves_total",
			Help:      "Debounced draft saves by result.",
		},
		[]string{"result"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "submissions_total",
			Help:      "Application submissions by result.",
		},
		[]string{"result"},
	)

	connectionAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "attempts_total",
			Help:      "Shop connection protocol steps by platform, step and result.",
		},
		[]string{"platform", "step", "result"},
	)

	tokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "refreshes_total",
			Help:      "Platform token freshness checks by outcome.",
		},
		[]string{"outcome"},
	)

	tagChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "gtm_checks_total",
			Help:      "Storefront GTM tag checks by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		accessDecisions,
		readRepairs,
		autosaves,
		submissions,
		connectionAttempts,
		tokenRefreshes,
		tagChecks,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the router with HTTP metrics collection.
// Routes are labelled with their chi pattern to keep cardinality bounded.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordAccessDecision counts a resolved access state
func RecordAccessDecision(state string) {
	accessDecisions.WithLabelValues(state).Inc()
}

// RecordReadRepair counts an authoritative re-read: found, empty or error
func RecordReadRepair(outcome string) {
	readRepairs.WithLabelValues(outcome).Inc()
}

// RecordAutosave counts a debounced draft save
func RecordAutosave(success bool) {
	autosaves.WithLabelValues(result(success)).Inc()
}

// RecordSubmission counts an application submission by result label
func RecordSubmission(resultLabel string) {
	submissions.WithLabelValues(resultLabel).Inc()
}

// RecordConnectionAttempt counts a connection protocol step
func RecordConnectionAttempt(platform, step string, success bool) {
	connectionAttempts.WithLabelValues(platform, step, result(success)).Inc()
}

// RecordTokenRefresh counts a freshness check: fresh, refreshed or failed
func RecordTokenRefresh(outcome string) {
	tokenRefreshes.WithLabelValues(outcome).Inc()
}

// RecordTagCheck counts a storefront GTM check
func RecordTagCheck(resultLabel string) {
	tagChecks.WithLabelValues(resultLabel).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
