package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// QueueAdmin exposes the dispatch queue's administrative operations.
type QueueAdmin interface {
	Flush(ctx context.Context) (int, error)
	Dequeue(ctx context.Context) (int64, bool, error)
}

type QueueHandler struct {
	queue QueueAdmin
}

func NewQueueHandler(queue QueueAdmin) (*QueueHandler, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue is required")
	}
	return &QueueHandler{queue: queue}, nil
}

func RegisterQueueRoutes(router fiber.Router, queue QueueAdmin) error {
	h, err := NewQueueHandler(queue)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/queue/flush", h.FlushQueue)
	v1.Get("/queue/peek", h.PeekQueue)

	return nil
}

func (h *QueueHandler) FlushQueue(c *fiber.Ctx) error {
	flushed, err := h.queue.Flush(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"flushed": flushed,
	})
}

func (h *QueueHandler) PeekQueue(c *fiber.Ctx) error {
	id, found, err := h.queue.Dequeue(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	if !found {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"pending": false,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"pending": true,
		"id":      id,
	})
}
