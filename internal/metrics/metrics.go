// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skillswap"

var (
	// Registry holds the application collectors plus the Go and process
	// collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests handled, by route pattern and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "route"})

	swapTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "swaps",
		Name:      "transitions_total",
		Help:      "Swap request status changes, by resulting status.",
	}, []string{"status"})

	notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "deliveries_total",
		Help:      "Notification delivery attempts, by channel and outcome.",
	}, []string{"channel", "outcome"})

	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "runs_total",
		Help:      "Scheduled job runs.",
	}, []string{"job", "success"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "run_duration_seconds",
		Help:      "Duration of scheduled job runs.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"job"})
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		swapTransitions,
		notifications,
		jobRuns,
		jobDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler records request counts and latency labelled by the
// ServeMux pattern that matched, so path ids do not explode cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		method := strings.ToUpper(r.Method)
		route := routeLabel(r.Pattern)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func routeLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	// "POST /v1/swaps/{id}/accept" -> "/v1/swaps/{id}/accept"
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}

func RecordSwapTransition(status string) {
	swapTransitions.WithLabelValues(status).Inc()
}

func RecordNotification(channel string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	notifications.WithLabelValues(channel, outcome).Inc()
}

func RecordJobRun(job string, duration time.Duration, success bool) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
	jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
