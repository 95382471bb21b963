package apierr

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"stok-takip/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type signup struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Role     string  `json:"role" validate:"omitempty,oneof=owner manager employee"`
	Price    float64 `json:"unitPrice" validate:"gte=0"`
}

func TestValidateReportsJSONFieldName(t *testing.T) {
	err := Validate(signup{Email: "ana@example.com", Password: "123"})

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, fiber.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "password", apiErr.Field)
	assert.Equal(t, "password must be at least 6 characters", apiErr.Message)
}

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		in    signup
		field string
		msg   string
	}{
		{signup{Password: "secret1"}, "email", "email is required"},
		{signup{Email: "nope", Password: "secret1"}, "email", "email must be a valid email address"},
		{signup{Email: "a@b.co", Password: "secret1", Role: "chef"}, "role", "role must be one of: owner, manager, employee"},
		{signup{Email: "a@b.co", Password: "secret1", Price: -1}, "unitPrice", "unitPrice must be greater than or equal to 0"},
	}
	for _, tt := range tests {
		var apiErr *Error
		require.ErrorAs(t, Validate(tt.in), &apiErr)
		assert.Equal(t, tt.field, apiErr.Field)
		assert.Equal(t, tt.msg, apiErr.Message)
	}

	assert.NoError(t, Validate(signup{Email: "a@b.co", Password: "secret1", Role: "owner"}))
}

func TestErrorHandlerShapes(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/validation", func(c *fiber.Ctx) error { return Validation("name", "name is required") })
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusNotFound, "Product not found") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("connection reset by peer") })

	tests := []struct {
		path    string
		status  int
		message string
		field   string
	}{
		{"/validation", 400, "name is required", "name"},
		{"/fiber", 404, "Product not found", ""},
		{"/boom", 500, "Unexpected server error", ""},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode, tt.path)

		raw, _ := io.ReadAll(resp.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, false, body["success"])
		assert.Equal(t, tt.message, body["message"])
		if tt.field == "" {
			assert.NotContains(t, body, "field")
		} else {
			assert.Equal(t, tt.field, body["field"])
		}
	}
}

func TestErrorHandlerLogsWrappedCause(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	prev := logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })

	cause := errors.New(`pq: invalid input syntax for type bigint: "abc"`)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/products", func(c *fiber.Ctx) error { return Wrap(cause, "Could not list products") })

	resp, err := app.Test(httptest.NewRequest("GET", "/products", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(raw), "bigint")

	entries := logs.FilterMessage("internal error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "Could not list products", fields["message"])
	assert.Equal(t, cause.Error(), fields["error"])
	assert.ErrorIs(t, Wrap(cause, "x"), cause)
}
