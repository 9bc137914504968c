package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/message-courier/internal/transport"
	"go.uber.org/zap"
)

type stubQueueAdmin struct {
	flushFn   func(ctx context.Context) (int, error)
	dequeueFn func(ctx context.Context) (int64, bool, error)
}

func (s *stubQueueAdmin) Flush(ctx context.Context) (int, error) {
	return s.flushFn(ctx)
}

func (s *stubQueueAdmin) Dequeue(ctx context.Context) (int64, bool, error) {
	return s.dequeueFn(ctx)
}

func newQueueTestApp(t *testing.T, queue QueueAdmin) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterQueueRoutes(app, queue); err != nil {
		t.Fatalf("RegisterQueueRoutes() error = %v", err)
	}

	return app
}

func TestFlushQueueEndpoint(t *testing.T) {
	t.Parallel()

	queue := &stubQueueAdmin{
		flushFn: func(ctx context.Context) (int, error) {
			return 3, nil
		},
	}

	app := newQueueTestApp(t, queue)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/queue/flush", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var flushed struct {
		Flushed int `json:"flushed"`
	}
	if err := json.Unmarshal(body, &flushed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if flushed.Flushed != 3 {
		t.Fatalf("flushed = %d, want 3", flushed.Flushed)
	}
}

func TestPeekQueueEndpoint(t *testing.T) {
	t.Parallel()

	queue := &stubQueueAdmin{
		dequeueFn: func(ctx context.Context) (int64, bool, error) {
			return 11, true, nil
		},
	}

	app := newQueueTestApp(t, queue)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/queue/peek", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var peeked struct {
		Pending bool  `json:"pending"`
		ID      int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &peeked); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if !peeked.Pending || peeked.ID != 11 {
		t.Fatalf("peeked = %+v, want pending id 11", peeked)
	}
}

func TestPeekQueueEndpointEmpty(t *testing.T) {
	t.Parallel()

	queue := &stubQueueAdmin{
		dequeueFn: func(ctx context.Context) (int64, bool, error) {
			return 0, false, nil
		},
	}

	app := newQueueTestApp(t, queue)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/queue/peek", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var peeked struct {
		Pending bool `json:"pending"`
	}
	if err := json.Unmarshal(body, &peeked); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if peeked.Pending {
		t.Fatal("empty queue reported as pending")
	}
}
