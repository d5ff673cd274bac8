package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API and worker flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	remindersSentTotal    *prometheus.CounterVec
	remindersFailedTotal  *prometheus.CounterVec
	remindersSkippedTotal *prometheus.CounterVec
	retryScheduledTotal   *prometheus.CounterVec
	sendDuration          *prometheus.HistogramVec
	tickDuration          prometheus.Histogram
	jobsInFlight          prometheus.Gauge
	importRowsTotal       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "visit_notify",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "visit_notify",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		remindersSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "visit_notify",
				Name:      "reminders_sent_total",
				Help:      "Total number of reminders delivered successfully.",
			},
			[]string{"kind"},
		),
		remindersFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "visit_notify",
				Name:      "reminders_failed_total",
				Help:      "Total number of reminders that ended in failed state.",
			},
			[]string{"kind", "reason"},
		),
		remindersSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "visit_notify",
				Name:      "reminders_skipped_total",
				Help:      "Total number of reminders skipped as stale.",
			},
			[]string{"kind"},
		),
		retryScheduledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "visit_notify",
				Name:      "retry_scheduled_total",
				Help:      "Total number of reminders left pending for a later retry.",
			},
			[]string{"kind"},
		),
		sendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "visit_notify",
				Name:      "send_duration_seconds",
				Help:      "Transport send duration in seconds grouped by reminder kind.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"kind"},
		),
		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "visit_notify",
				Name:      "tick_duration_seconds",
				Help:      "Duration of one delivery worker tick in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		jobsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "visit_notify",
				Name:      "jobs_in_flight",
				Help:      "Current number of reminder jobs being processed.",
			},
		),
		importRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "visit_notify",
				Name:      "import_rows_total",
				Help:      "Total number of bulk import rows by result.",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.remindersSentTotal,
		m.remindersFailedTotal,
		m.remindersSkippedTotal,
		m.retryScheduledTotal,
		m.sendDuration,
		m.tickDuration,
		m.jobsInFlight,
		m.importRowsTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncReminderSent(kind string) {
	if m == nil {
		return
	}
	m.remindersSentTotal.WithLabelValues(normalizeKind(kind)).Inc()
}

func (m *Metrics) IncReminderFailed(kind string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.remindersFailedTotal.WithLabelValues(normalizeKind(kind), reasonLabel).Inc()
}

func (m *Metrics) IncReminderSkipped(kind string) {
	if m == nil {
		return
	}
	m.remindersSkippedTotal.WithLabelValues(normalizeKind(kind)).Inc()
}

func (m *Metrics) IncRetryScheduled(kind string) {
	if m == nil {
		return
	}
	m.retryScheduledTotal.WithLabelValues(normalizeKind(kind)).Inc()
}

func (m *Metrics) ObserveSendDuration(kind string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.sendDuration.WithLabelValues(normalizeKind(kind)).Observe(seconds)
}

func (m *Metrics) ObserveTickDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.tickDuration.Observe(seconds)
}

func (m *Metrics) IncJobsInFlight() {
	if m == nil {
		return
	}
	m.jobsInFlight.Inc()
}

func (m *Metrics) DecJobsInFlight() {
	if m == nil {
		return
	}
	m.jobsInFlight.Dec()
}

func (m *Metrics) IncImportRow(result string) {
	if m == nil {
		return
	}
	resultLabel := strings.TrimSpace(strings.ToLower(result))
	if resultLabel == "" {
		resultLabel = "unknown"
	}
	m.importRowsTotal.WithLabelValues(resultLabel).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func normalizeKind(kind string) string {
	normalized := strings.TrimSpace(strings.ToLower(kind))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}
	if c == nil {
		return fiber.StatusInternalServerError
	}
	return c.Response().StatusCode()
}
