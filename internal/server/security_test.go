package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"quotewall/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeaders(t *testing.T) {
	s := &Server{config: &config.Config{AllowedOrigins: "http://localhost:3000"}}
	app := fiber.New()
	s.SetupMiddleware(app)
	app.Get("/api/projects", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get(publicPrefix+"/widgets/content", func(c *fiber.Ctx) error { return c.SendString("ok") })

	t.Run("dashboard responses carry helmet headers", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/projects", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
		assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	})

	t.Run("widget content can be framed", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, publicPrefix+"/widgets/content", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("X-Frame-Options"))
	})

	t.Run("request id is echoed", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/projects", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	})
}

func TestPublicRoutesAllowAnyOrigin(t *testing.T) {
	s := &Server{config: &config.Config{AllowedOrigins: "http://localhost:3000"}}
	app := fiber.New()
	s.SetupMiddleware(app)
	app.Get(publicPrefix+"/collect/:slug", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/projects", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(http.MethodGet, publicPrefix+"/collect/acme", nil)
	req.Header.Set("Origin", "https://customer-site.example")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	_ = resp.Body.Close()

	req = httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Origin", "https://customer-site.example")
	resp, err = app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
