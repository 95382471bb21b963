// Package apierr defines the error responses of the HTTP API.
package apierr

import (
	"errors"

	"stok-takip/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Error is a client-facing error. Field is set for validation failures. Err
// is the underlying cause; it is logged, never sent to the client.
type Error struct {
	Status  int
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) StatusCode() int { return e.Status }

func Validation(field, message string) *Error {
	return &Error{Status: fiber.StatusBadRequest, Message: message, Field: field}
}

func BadRequest(message string) *Error {
	return &Error{Status: fiber.StatusBadRequest, Message: message}
}

// Conflict is a business rule violation (insufficient stock, referenced
// category, ...). It is reported as 400.
func Conflict(message string) *Error {
	return &Error{Status: fiber.StatusBadRequest, Message: message}
}

func Unauthenticated(message string) *Error {
	return &Error{Status: fiber.StatusUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Status: fiber.StatusForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Status: fiber.StatusNotFound, Message: message}
}

func Internal(message string) *Error {
	return &Error{Status: fiber.StatusInternalServerError, Message: message}
}

// Wrap is an Internal error that keeps err for the error log.
func Wrap(err error, message string) *Error {
	return &Error{Status: fiber.StatusInternalServerError, Message: message, Err: err}
}

const genericMessage = "Unexpected server error"

// ErrorHandler renders every error as {success:false, message, field?}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	body := fiber.Map{"success": false}

	var apiErr *Error
	var fe *fiber.Error
	switch {
	case errors.As(err, &apiErr):
		body["message"] = apiErr.Message
		if apiErr.Field != "" {
			body["field"] = apiErr.Field
		}
		if apiErr.Status >= fiber.StatusInternalServerError {
			fields := []zap.Field{zap.String("message", apiErr.Message)}
			if apiErr.Err != nil {
				fields = append(fields, zap.Error(apiErr.Err))
			}
			logger.FromFiber(c).Error("internal error", fields...)
		}
		return c.Status(apiErr.Status).JSON(body)
	case errors.As(err, &fe):
		body["message"] = fe.Message
		if fe.Code >= fiber.StatusInternalServerError {
			logger.FromFiber(c).Error("internal error", zap.String("message", fe.Message))
		}
		return c.Status(fe.Code).JSON(body)
	}

	logger.FromFiber(c).Error("unhandled error", zap.Error(err))
	body["message"] = genericMessage
	return c.Status(fiber.StatusInternalServerError).JSON(body)
}
