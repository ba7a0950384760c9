package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"medfetch/internal/extractor"
	"medfetch/internal/queue"
)

const serviceName = "medfetch"
const serviceVersion = "1.1.0"

// HealthHandler provides health check endpoints
type HealthHandler struct {
	ytdlp   *extractor.YtDlp
	queue   *queue.Client // nil when the job queue is disabled
	logger  *zap.Logger
	started time.Time

	mu           sync.Mutex
	ytdlpVersion string
}

// NewHealthHandler creates a health handler and probes the extractor
// binary once up front
func NewHealthHandler(ytdlp *extractor.YtDlp, queueClient *queue.Client, logger *zap.Logger) *HealthHandler {
	h := &HealthHandler{
		ytdlp:   ytdlp,
		queue:   queueClient,
		logger:  logger,
		started: time.Now(),
	}
	h.probeYtdlp()
	return h
}

// Health handles GET /health. Reports degraded with 503 when the
// extractor binary cannot be invoked.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	version := h.probeYtdlp()

	status := "ok"
	statusCode := fiber.StatusOK
	ytdlpStatus := "available"
	if version == "" {
		status = "degraded"
		statusCode = fiber.StatusServiceUnavailable
		ytdlpStatus = "unavailable"
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":         status,
		"service":        serviceName,
		"version":        serviceVersion,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"ytdlp": fiber.Map{
			"status":  ytdlpStatus,
			"version": version,
		},
	})
}

// Readiness handles GET /health/ready, whether dependencies answer
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	if h.queue != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		if err := h.queue.GetRedis().Ping(ctx).Err(); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"ready":   false,
				"message": "Redis not available",
			})
		}
	}

	return c.JSON(fiber.Map{"ready": true})
}

// Liveness handles GET /health/live
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"alive": true})
}

// probeYtdlp returns the extractor version, probing again on every
// call until the first success
func (h *HealthHandler) probeYtdlp() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ytdlpVersion != "" {
		return h.ytdlpVersion
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	version, err := h.ytdlp.Version(ctx)
	if err != nil {
		h.logger.Warn("yt-dlp version probe failed", zap.Error(err))
		return ""
	}

	h.ytdlpVersion = version
	return version
}
