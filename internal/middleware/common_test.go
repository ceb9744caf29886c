package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRegisterPipeline(t *testing.T) {
	var logs bytes.Buffer
	structured := zerolog.New(&logs)

	app := fiber.New()
	Register(app, Config{Logger: &structured, AllowOrigins: []string{"https://vastu.example"}, AccessLog: io.Discard})
	app.Get("/api/v1/boom", func(c *fiber.Ctx) error {
		panic("kaboom")
	})
	app.Get("/api/v1/ok", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ok", nil)
	req.Header.Set("Origin", "https://vastu.example")
	req.Header.Set(correlationHeader, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "abc-123", resp.Header.Get(correlationHeader))
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "https://vastu.example", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/boom", nil)
	req.Header.Set(correlationHeader, "panic-1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.Contains(t, logs.String(), "recovered from panic")
	require.Contains(t, logs.String(), "panic-1")
}

func TestAllowedOriginsDefaultsToWildcard(t *testing.T) {
	require.Equal(t, "*", allowedOrigins(nil))
	require.Equal(t, "https://a.example,https://b.example", allowedOrigins([]string{"https://a.example", "https://b.example"}))
}
