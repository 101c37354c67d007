package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipstream/internal/logging"
)

func TestRequestID_Generates(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		id, _ := c.Locals("request_id").(string)
		return c.SendString(id)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	header := resp.Header.Get(RequestIDHeader)
	_, parseErr := uuid.Parse(header)
	assert.NoError(t, parseErr)
}

func TestRequestID_HonorsIncoming(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "caller-id")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "caller-id", resp.Header.Get(RequestIDHeader))
}

func TestLogger_PassesThrough(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID(), Logger(logging.NewNop()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestMetrics_PassesThrough(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics("division"))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
