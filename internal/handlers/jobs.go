package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"medfetch/internal/download"
	"medfetch/internal/errors"
	"medfetch/internal/middleware"
	"medfetch/internal/queue"
	"medfetch/internal/types"
)

// JobsHandler serves the deferred download endpoints
type JobsHandler struct {
	queue   *queue.Client
	service *download.Service
	logger  *zap.Logger
}

// NewJobsHandler creates a jobs handler
func NewJobsHandler(queueClient *queue.Client, service *download.Service, logger *zap.Logger) *JobsHandler {
	return &JobsHandler{
		queue:   queueClient,
		service: service,
		logger:  logger,
	}
}

// Enqueue handles POST /jobs/download. Credentials are resolved here
// so a missing cookie rejects the request with 401 instead of failing
// the job later in the worker.
func (h *JobsHandler) Enqueue(c *fiber.Ctx) error {
	var req types.DownloadRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.ErrInvalidRequest.WithDetails("body must be valid JSON")
	}

	if err := middleware.ValidateDownloadRequest(&req); err != nil {
		return err
	}

	tag, _, _, err := h.service.Prepare(req.URL)
	if err != nil {
		return err
	}

	job, err := h.queue.EnqueueDownloadJob(c.Context(), req, string(tag))
	if err != nil {
		return err
	}

	c.Locals("platform", string(tag))
	return c.Status(fiber.StatusAccepted).JSON(job)
}

// Status handles GET /jobs/:id
func (h *JobsHandler) Status(c *fiber.Ctx) error {
	job, err := h.queue.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(job)
}

// Result handles GET /jobs/:id/result, redirecting to the stored
// artifact once the job is done
func (h *JobsHandler) Result(c *fiber.Ctx) error {
	job, err := h.queue.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	if job.Status != types.StatusCompleted {
		body := fiber.Map{
			"error":  "job not completed",
			"status": job.Status,
		}
		if job.Error != "" {
			body["detail"] = job.Error
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	if job.Result == nil || job.Result.DownloadURL == "" {
		return errors.ErrInternal.WithDetails("download URL not available")
	}

	return c.Redirect(job.Result.DownloadURL, fiber.StatusFound)
}
