package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

// HealthHandler reports process liveness and dependency readiness. Both
// stores must answer a ping for the service to accept messages.
type HealthHandler struct {
	sqlDB *sql.DB
	rdb   *redis.Client
}

func RegisterHealthRoutes(router fiber.Router, sqlDB *sql.DB, rdb *redis.Client) {
	h := &HealthHandler{sqlDB: sqlDB, rdb: rdb}
	router.Get("/livez", h.Livez)
	router.Get("/readyz", h.Readyz)
}

func (h *HealthHandler) Livez(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ok",
	})
}

func (h *HealthHandler) Readyz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
	defer cancel()

	checks := fiber.Map{
		"postgres": checkStatus(h.sqlDB.PingContext(ctx)),
		"redis":    checkStatus(h.rdb.Ping(ctx).Err()),
	}

	status := "ready"
	statusCode := fiber.StatusOK
	for _, check := range checks {
		if check != "ok" {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
			break
		}
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}

func checkStatus(err error) string {
	if err != nil {
		return "down"
	}
	return "ok"
}
