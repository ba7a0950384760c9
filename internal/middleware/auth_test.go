package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthApp(keys []string) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlingMiddleware(zap.NewNop()))
	app.Get("/x", APIKeyAuth(keys), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAPIKeyAuthDisabledWithoutKeys(t *testing.T) {
	app := newAuthApp(nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestAPIKeyAuthHeader(t *testing.T) {
	app := newAuthApp([]string{"secret-1", "secret-2"})

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-API-Key", "secret-2")
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestAPIKeyAuthQueryParam(t *testing.T) {
	app := newAuthApp([]string{"secret-1"})

	resp, err := app.Test(httptest.NewRequest("GET", "/x?api_key=secret-1", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestAPIKeyAuthRejects(t *testing.T) {
	app := newAuthApp([]string{"secret-1"})

	tests := []struct {
		name string
		key  string
	}{
		{"missing key", ""},
		{"wrong key", "wrong"},
		{"prefix of a valid key", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/x", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, 401, resp.StatusCode)
		})
	}
}
