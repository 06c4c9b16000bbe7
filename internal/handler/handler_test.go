package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
)

const testUserID = "user-1"

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// newTestApp mounts routes behind a stand-in for the JWT middleware.
func newTestApp(prefix string, register func(router fiber.Router)) *fiber.App {
	app := fiber.New()
	group := app.Group(prefix, func(c *fiber.Ctx) error {
		c.Locals("user_id", testUserID)
		return c.Next()
	})
	register(group)
	return app
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func perform(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, data
}

func decodeBody(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, target))
}

// requireSchema validates a response body against a JSON schema in testdata.
func requireSchema(t *testing.T, schemaFile string, data []byte) {
	t.Helper()
	schema, err := jsonschema.NewCompiler().Compile(filepath.Join("testdata", schemaFile))
	require.NoError(t, err)

	var document interface{}
	require.NoError(t, json.Unmarshal(data, &document))
	require.NoError(t, schema.Validate(document))
}
