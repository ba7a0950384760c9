package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAllowWithinBudget(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.allow("client-a") {
			t.Fatalf("request %d denied inside the budget", i+1)
		}
	}
	if rl.allow("client-a") {
		t.Error("request over budget was allowed")
	}
}

func TestAllowIsPerClient(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if !rl.allow("client-a") {
		t.Fatal("first client denied")
	}
	if !rl.allow("client-b") {
		t.Error("second client must have its own bucket")
	}
	if rl.allow("client-a") {
		t.Error("first client should be out of tokens")
	}
}

func TestAllowRefillsAfterWindow(t *testing.T) {
	rl := NewRateLimiter(1, 30*time.Millisecond)

	if !rl.allow("client-a") {
		t.Fatal("first request denied")
	}
	if rl.allow("client-a") {
		t.Fatal("second request should be over budget")
	}

	time.Sleep(40 * time.Millisecond)
	if !rl.allow("client-a") {
		t.Error("window elapsed, the bucket should have refilled")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlingMiddleware(zap.NewNop()))
	rl := NewRateLimiter(2, time.Minute)
	app.Get("/x", rl.Middleware(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, 200, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 429, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}
