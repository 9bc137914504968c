package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsDispatchCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncMessageSent("SMS")
	metrics.IncMessageFailed("sms", "transient_error")
	metrics.ObserveMessageSendDuration("sms", 120*time.Millisecond)
	metrics.SetQueuePending(4)

	if got := testutil.ToFloat64(metrics.messagesSentTotal.WithLabelValues("sms")); got != 1 {
		t.Fatalf("messages_sent_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.messagesFailedTotal.WithLabelValues("sms", "transient_error")); got != 1 {
		t.Fatalf("messages_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.queuePending); got != 4 {
		t.Fatalf("queue_pending = %v, want 4", got)
	}

	metrics.SetQueuePending(0)
	if got := testutil.ToFloat64(metrics.queuePending); got != 0 {
		t.Fatalf("queue_pending = %v, want 0", got)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics

	metrics.IncMessageSent("sms")
	metrics.IncMessageFailed("sms", "permanent_error")
	metrics.ObserveMessageSendDuration("sms", time.Millisecond)
	metrics.SetQueuePending(1)
	metrics.ObserveRegistryOperation("get_provider", true, time.Millisecond)
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
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsRegistryOperationLabels(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.ObserveRegistryOperation("get_provider_with_client_id", true, 5*time.Millisecond)
	metrics.ObserveRegistryOperation("get_provider", false, 5*time.Millisecond)

	if got := testutil.CollectAndCount(metrics.registryOperationDuration); got != 2 {
		t.Fatalf("registry operation series = %d, want 2", got)
	}
}
