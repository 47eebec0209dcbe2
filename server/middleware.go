package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/pkg/log"
)

const requestIDLocal = "request_id"

func requestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: requestIDLocal,
	})
}

func requestIDOf(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDLocal).(string)
	return id
}

// accessLog writes one line per request. It runs before the error handler,
// so the status of a returned error is taken from the error itself.
func accessLog(logger log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		fields := []interface{}{
			log.RequestIDKey, requestIDOf(c),
			"method", c.Method(),
			log.PathKey, c.Path(),
			"status", status,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("Request failed", append(fields, "error", err)...)
		case c.Path() == "/healthz" || c.Path() == "/metrics":
			logger.Debug("Request", fields...)
		default:
			logger.Info("Request", fields...)
		}
		return err
	}
}
