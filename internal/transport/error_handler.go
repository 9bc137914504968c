package transport

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler converts handler errors into JSON responses. Client errors
// log at warn, everything else at error.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		}
		if requestID := c.Get(fiber.HeaderXRequestID); requestID != "" {
			fields = append(fields, zap.String("correlationId", requestID))
		}

		if code < fiber.StatusInternalServerError {
			logger.Warn("request failed", fields...)
		} else {
			logger.Error("request failed", fields...)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
