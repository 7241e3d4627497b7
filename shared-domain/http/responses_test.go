package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/arojasjg/milicon/shared-domain/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(reg *metrics.Registry) *fiber.App {
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop()))
	app.Use(Metrics(reg))

	app.Get("/ok", func(c *fiber.Ctx) error {
		return SuccessResponse(c, "fine", fiber.Map{"answer": 42})
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return NotFoundResponse(c, "Order not found")
	})
	app.Get("/forbidden", func(c *fiber.Ctx) error {
		return ForbiddenResponse(c, "not yours")
	})
	app.Delete("/empty", func(c *fiber.Ctx) error {
		return NoContentResponse(c)
	})
	return app
}

func decode(t *testing.T, body io.Reader) APIResponse {
	t.Helper()
	var out APIResponse
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestSuccessResponseEnvelope(t *testing.T) {
	app := newTestApp(metrics.New("test", "http"))

	req := httptest.NewRequest("GET", "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Header.Get(RequestIDHeader))

	body := decode(t, resp.Body)
	assert.True(t, body.Success)
	assert.Equal(t, "fine", body.Message)
	assert.Equal(t, "req-1", body.RequestID)
	assert.Nil(t, body.Error)
}

func TestErrorResponsesCarryCode(t *testing.T) {
	app := newTestApp(metrics.New("test", "http"))

	cases := []struct {
		path   string
		status int
		code   string
	}{
		{"/missing", fiber.StatusNotFound, "NOT_FOUND"},
		{"/forbidden", fiber.StatusForbidden, "FORBIDDEN"},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tc.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			body := decode(t, resp.Body)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.NotEmpty(t, body.RequestID)
			assert.Equal(t, body.RequestID, resp.Header.Get(RequestIDHeader))
		})
	}
}

func TestNoContentResponse(t *testing.T) {
	app := newTestApp(metrics.New("test", "http"))

	resp, err := app.Test(httptest.NewRequest("DELETE", "/empty", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestMetricsCountsByRoute(t *testing.T) {
	reg := metrics.New("test", "http")
	app := newTestApp(reg)

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	counter := reg.Counter("http_requests_total", "", "method", "route", "status")
	assert.Equal(t, 3.0, testutil.ToFloat64(counter.WithLabelValues("GET", "/ok", "200")))
}
