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

// Metrics stores Prometheus collectors used by API, registry, and dispatch
// queue flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDuration       *prometheus.HistogramVec
	messagesSentTotal         *prometheus.CounterVec
	messagesFailedTotal       *prometheus.CounterVec
	messageSendDuration       *prometheus.HistogramVec
	queuePending              prometheus.Gauge
	registryOperationDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "message_courier",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "message_courier",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		messagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "message_courier",
				Name:      "messages_sent_total",
				Help:      "Total number of messages delivered successfully.",
			},
			[]string{"medium"},
		),
		messagesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "message_courier",
				Name:      "messages_failed_total",
				Help:      "Total number of failed delivery attempts.",
			},
			[]string{"medium", "reason"},
		),
		messageSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "message_courier",
				Name:      "message_send_duration_seconds",
				Help:      "Provider send duration in seconds grouped by medium.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"medium"},
		),
		queuePending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "message_courier",
				Name:      "queue_pending",
				Help:      "Current number of message ids in the process-local pending list.",
			},
		),
		registryOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "message_courier",
				Name:      "registry_operation_duration_seconds",
				Help:      "Provider registry operation duration in seconds by operation and outcome.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "success"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.messagesSentTotal,
		m.messagesFailedTotal,
		m.messageSendDuration,
		m.queuePending,
		m.registryOperationDuration,
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

func (m *Metrics) IncMessageSent(medium string) {
	if m == nil {
		return
	}
	m.messagesSentTotal.WithLabelValues(normalizeMedium(medium)).Inc()
}

func (m *Metrics) IncMessageFailed(medium string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.messagesFailedTotal.WithLabelValues(normalizeMedium(medium), reasonLabel).Inc()
}

func (m *Metrics) ObserveMessageSendDuration(medium string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.messageSendDuration.WithLabelValues(normalizeMedium(medium)).Observe(seconds)
}

func (m *Metrics) SetQueuePending(count int) {
	if m == nil {
		return
	}
	m.queuePending.Set(float64(count))
}

func (m *Metrics) ObserveRegistryOperation(operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}

	operationLabel := strings.TrimSpace(strings.ToLower(operation))
	if operationLabel == "" {
		operationLabel = "unknown"
	}

	m.registryOperationDuration.
		WithLabelValues(operationLabel, strconv.FormatBool(success)).
		Observe(duration.Seconds())
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

func normalizeMedium(medium string) string {
	normalized := strings.TrimSpace(strings.ToLower(medium))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}
	return c.Response().StatusCode()
}
