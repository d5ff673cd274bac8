package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsReminderCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncReminderSent("BEFORE_START")
	metrics.IncReminderFailed("before_start", "retry_exhausted")
	metrics.IncReminderSkipped("after_end")
	metrics.IncRetryScheduled("before_start")
	metrics.ObserveSendDuration("before_start", 120*time.Millisecond)
	metrics.IncJobsInFlight()
	metrics.DecJobsInFlight()
	metrics.IncImportRow("created")

	if got := testutil.ToFloat64(metrics.remindersSentTotal.WithLabelValues("before_start")); got != 1 {
		t.Fatalf("reminders_sent_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.remindersFailedTotal.WithLabelValues("before_start", "retry_exhausted")); got != 1 {
		t.Fatalf("reminders_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.remindersSkippedTotal.WithLabelValues("after_end")); got != 1 {
		t.Fatalf("reminders_skipped_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.retryScheduledTotal.WithLabelValues("before_start")); got != 1 {
		t.Fatalf("retry_scheduled_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.jobsInFlight); got != 0 {
		t.Fatalf("jobs_in_flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(metrics.importRowsTotal.WithLabelValues("created")); got != 1 {
		t.Fatalf("import_rows_total = %v, want 1", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.IncReminderSent("before_start")
	metrics.IncReminderFailed("before_start", "x")
	metrics.IncReminderSkipped("before_start")
	metrics.IncRetryScheduled("before_start")
	metrics.ObserveSendDuration("before_start", time.Second)
	metrics.ObserveTickDuration(time.Second)
	metrics.IncJobsInFlight()
	metrics.DecJobsInFlight()
	metrics.IncImportRow("created")

	if metrics.Handler() == nil {
		t.Fatal("Handler() should fall back to the default handler")
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareSkipsScrapeEndpoint(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/metrics", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/metrics", "200")); got != 0 {
		t.Fatalf("http_requests_total = %v, want 0 for the scrape path", got)
	}
}
