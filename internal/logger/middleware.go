package logger

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	RequestIDHeader = "X-Request-ID"
	localsLoggerKey = "logger"
	localsRequestID = "request_id"
)

// RequestID assigns every request an id (reusing a client supplied one) and
// attaches a request-scoped logger.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Locals(localsRequestID, id)
		c.Locals(localsLoggerKey, Get().With(zap.String("request_id", id)))
		return c.Next()
	}
}

// Access logs one line per request once the handler chain (and the error
// handler) has run.
func Access() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := StatusOf(c, err)

		fields := []zapcore.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}

		l := FromFiber(c)
		switch {
		case status >= fiber.StatusInternalServerError:
			l.Error("request failed", fields...)
		case status >= fiber.StatusBadRequest:
			l.Warn("request rejected", fields...)
		default:
			l.Info("request completed", fields...)
		}
		return err
	}
}

// StatusOf reports the status a request will be answered with. Errors are
// rendered by the app's error handler after the middleware chain unwinds.
func StatusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	switch e := err.(type) {
	case *fiber.Error:
		return e.Code
	case interface{ StatusCode() int }:
		return e.StatusCode()
	}
	return fiber.StatusInternalServerError
}

// FromFiber returns the request-scoped logger, or the process logger when the
// RequestID middleware did not run.
func FromFiber(c *fiber.Ctx) *zap.Logger {
	if l, ok := c.Locals(localsLoggerKey).(*zap.Logger); ok {
		return l
	}
	return Get()
}
