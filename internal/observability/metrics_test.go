package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	HTTPRequests().WithLabelValues("GET", "/health", "200").Inc()
	AuthFailures().WithLabelValues("invalid_token").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "studyrooms_http_requests_total")
	require.Contains(t, string(body), `studyrooms_auth_failures_total{reason="invalid_token"} 1`)
}
