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

const dashboardOrigin = "http://localhost:3000"

// limitedApp returns an app with the production middleware stack whose per-IP limiter has
// already been drained by POST /limited.
func limitedApp(t *testing.T) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{AllowedOrigins: dashboardOrigin}}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Post("/limited", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 300; i++ {
		resp := corsRequest(t, app, http.MethodPost, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i)
	}
	return app
}

func corsRequest(t *testing.T, app *fiber.App, method string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, "/limited", nil)
	req.Header.Set("Origin", dashboardOrigin)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestSetupMiddleware_LimiterKeepsCORS(t *testing.T) {
	app := limitedApp(t)

	t.Run("Rejected request is still readable by the dashboard", func(t *testing.T) {
		resp := corsRequest(t, app, http.MethodPost, nil)
		assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, dashboardOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("Preflight is never limited", func(t *testing.T) {
		resp := corsRequest(t, app, http.MethodOptions, map[string]string{
			"Access-Control-Request-Method":  http.MethodPost,
			"Access-Control-Request-Headers": "authorization,content-type",
		})
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		assert.Equal(t, dashboardOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
	})
}
