package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyrooms-api/internal/auth"
	"github.com/noah-isme/studyrooms-api/internal/middleware"
)

func protectedApp(verifier auth.TokenVerifier) *fiber.App {
	app := fiber.New()
	middleware.Register(app, middleware.Config{})
	app.Get("/me", middleware.JWTProtected(verifier), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"local":       middleware.UserID(c),
			"ctx":         middleware.UserIDFromContext(c.UserContext()),
			"correlation": middleware.CorrelationIDFromContext(c.UserContext()),
		})
	})
	return app
}

func perform(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestJWTProtectedBindsUserID(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	token, _, err := manager.Issue("user-42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Correlation-ID", "corr-1")

	resp, body := perform(t, protectedApp(manager), req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "user-42", body["local"])
	require.Equal(t, "user-42", body["ctx"])
	require.Equal(t, "corr-1", body["correlation"])
	require.Equal(t, "corr-1", resp.Header.Get("X-Correlation-ID"))
}

func TestJWTProtectedRejections(t *testing.T) {
	now := time.Now()
	manager := auth.NewJWTManager("secret", time.Minute).WithClock(func() time.Time { return now.Add(-time.Hour) })
	expired, _, err := manager.Issue("user-1")
	require.NoError(t, err)

	cases := []struct {
		name    string
		header  string
		message string
	}{
		{name: "missing", header: "", message: "authorization header missing"},
		{name: "wrong scheme", header: "Basic abc", message: "invalid authorization header"},
		{name: "garbage", header: "Bearer not-a-jwt", message: "invalid token"},
		{name: "expired", header: "Bearer " + expired, message: "token expired"},
	}

	app := protectedApp(auth.NewJWTManager("secret", time.Hour))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, body := perform(t, app, req)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			require.Equal(t, false, body["success"])
			require.Equal(t, tc.message, body["message"])
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := middleware.BearerToken("bearer abc.def")
	require.True(t, ok)
	require.Equal(t, "abc.def", token)

	_, ok = middleware.BearerToken("Bearer   ")
	require.False(t, ok)
}

func TestRateLimitReturns429(t *testing.T) {
	app := fiber.New()
	app.Post("/auth/login", middleware.RateLimit("auth", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}

	resp, body := perform(t, app, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, false, body["success"])
}

func TestContextWithCorrelation(t *testing.T) {
	ctx := middleware.ContextWithCorrelation(context.Background(), " abc ")
	require.Equal(t, "abc", middleware.CorrelationIDFromContext(ctx))
	require.Empty(t, middleware.UserIDFromContext(context.Background()))
}

func TestJWTQueryOrHeaderPrefersQueryToken(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	token, _, err := manager.Issue("user-7")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/ws", middleware.JWTQueryOrHeader(manager), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"local": middleware.UserID(c)})
	})

	resp, body := perform(t, app, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "user-7", body["local"])

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, body = perform(t, app, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "user-7", body["local"])

	resp, body = perform(t, app, httptest.NewRequest(http.MethodGet, "/ws?token=forged", nil))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid token", body["message"])

	resp, _ = perform(t, app, httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCorrelationIDReplacesUnusableHeader(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"correlation": middleware.GetCorrelationID(c)})
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", strings.Repeat("a", 200))
	req.Header.Set("X-Request-ID", "req-9")
	resp, body := perform(t, app, req)
	require.Equal(t, "req-9", body["correlation"])
	require.Equal(t, "req-9", resp.Header.Get("X-Correlation-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "has space")
	resp, body = perform(t, app, req)
	require.Len(t, body["correlation"], 36)
	require.Equal(t, body["correlation"], resp.Header.Get("X-Correlation-ID"))
}
