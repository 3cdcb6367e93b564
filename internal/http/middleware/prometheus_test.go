package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPromApp(t *testing.T) (*fiber.App, *PrometheusMiddleware) {
	t.Helper()

	// Fresh registry per test to avoid duplicate-registration panics.
	reg := prometheus.NewRegistry()
	promMiddleware, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(promMiddleware.Handler())
	return app, promMiddleware
}

func TestPrometheusMiddleware(t *testing.T) {
	app, promMiddleware := newPromApp(t)

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/image/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/error", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "bad request")
	})

	t.Run("counts successful requests", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		count := testutil.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", "/test", "200"))
		assert.Equal(t, float64(1), count)
	})

	t.Run("uses route pattern for parameterized paths", func(t *testing.T) {
		app.Test(httptest.NewRequest("GET", "/image/abc-123", nil))

		count := testutil.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", "/image/:id", "200"))
		assert.Equal(t, float64(1), count)
	})

	t.Run("counts error responses with their status", func(t *testing.T) {
		app.Test(httptest.NewRequest("GET", "/error", nil))

		count := testutil.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", "/error", "400"))
		assert.Equal(t, float64(1), count)
	})
}

func TestPrometheusMiddleware_ExcludesMetricsEndpoint(t *testing.T) {
	app, promMiddleware := newPromApp(t)

	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Test(httptest.NewRequest("GET", "/metrics", nil))

	count := testutil.ToFloat64(promMiddleware.requestCount.WithLabelValues("GET", "/metrics", "200"))
	assert.Equal(t, float64(0), count)
}
