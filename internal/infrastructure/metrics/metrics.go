// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "estatehub"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	doorbellRings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "doorbell",
			Name:      "rings_total",
			Help:      "Doorbell rings by outcome (created, deduplicated).",
		},
		[]string{"outcome"},
	)

	doorbellRouted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "doorbell",
			Name:      "routed_to_front_desk_total",
			Help:      "Ringing calls routed to the front desk after timeout.",
		},
	)

	deviceCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "iot",
			Name:      "commands_total",
			Help:      "Device commands by vendor and result.",
		},
		[]string{"vendor", "success"},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications created by type.",
		},
		[]string{"type"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		doorbellRings,
		doorbellRouted,
		deviceCommands,
		notificationsSent,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted increments the in-flight gauge and returns a func recording completion
func RequestStarted(method, path string) func(status int) {
	start := time.Now()
	httpInFlight.Inc()
	return func(status int) {
		httpInFlight.Dec()
		httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordDoorbellRing counts a ring; deduplicated rings reuse an existing session
func RecordDoorbellRing(deduplicated bool) {
	outcome := "created"
	if deduplicated {
		outcome = "deduplicated"
	}
	doorbellRings.WithLabelValues(outcome).Inc()
}

// RecordDoorbellRouted counts calls routed to the front desk
func RecordDoorbellRouted(n int) {
	doorbellRouted.Add(float64(n))
}

// RecordDeviceCommand counts a device command by vendor and result
func RecordDeviceCommand(vendor string, success bool) {
	deviceCommands.WithLabelValues(vendor, strconv.FormatBool(success)).Inc()
}

// RecordNotification counts a created notification
func RecordNotification(notificationType string, n int) {
	notificationsSent.WithLabelValues(notificationType).Add(float64(n))
}
