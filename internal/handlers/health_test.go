package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medfetch/internal/extractor"
)

func healthApp(h *HealthHandler) *fiber.App {
	app := fiber.New()
	app.Get("/health", h.Health)
	app.Get("/health/ready", h.Readiness)
	app.Get("/health/live", h.Liveness)
	return app
}

func TestHealthDegradedWhenExtractorMissing(t *testing.T) {
	ytdlp := extractor.NewYtDlp("/nonexistent/yt-dlp", "", time.Minute, zap.NewNop())
	h := NewHealthHandler(ytdlp, nil, zap.NewNop())
	app := healthApp(h)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 503, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])

	ytdlpInfo, ok := body["ytdlp"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "unavailable", ytdlpInfo["status"])
}

func TestHealthOkWithWorkingExtractor(t *testing.T) {
	dir := t.TempDir()
	fakeBinary := filepath.Join(dir, "yt-dlp")
	script := "#!/bin/sh\necho 2026.08.01\n"
	require.NoError(t, os.WriteFile(fakeBinary, []byte(script), 0755))

	ytdlp := extractor.NewYtDlp(fakeBinary, "", time.Minute, zap.NewNop())
	h := NewHealthHandler(ytdlp, nil, zap.NewNop())
	app := healthApp(h)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), 15000)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])

	ytdlpInfo, ok := body["ytdlp"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2026.08.01", ytdlpInfo["version"])
}

func TestLiveness(t *testing.T) {
	ytdlp := extractor.NewYtDlp("/nonexistent/yt-dlp", "", time.Minute, zap.NewNop())
	h := NewHealthHandler(ytdlp, nil, zap.NewNop())
	app := healthApp(h)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestReadinessWithoutQueue(t *testing.T) {
	ytdlp := extractor.NewYtDlp("/nonexistent/yt-dlp", "", time.Minute, zap.NewNop())
	h := NewHealthHandler(ytdlp, nil, zap.NewNop())
	app := healthApp(h)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/ready", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ready"])
}
