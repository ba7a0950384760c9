package handlers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"medfetch/internal/download"
	"medfetch/internal/errors"
	"medfetch/internal/middleware"
	"medfetch/internal/types"
)

// MediaHandler serves the synchronous media endpoints
type MediaHandler struct {
	service *download.Service
	history *History
	logger  *zap.Logger
}

// NewMediaHandler creates a media handler
func NewMediaHandler(service *download.Service, history *History, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		service: service,
		history: history,
		logger:  logger,
	}
}

// Download handles POST /download. The response body is the media
// itself; platform and format land in headers.
func (h *MediaHandler) Download(c *fiber.Ctx) error {
	var req types.DownloadRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.ErrInvalidRequest.WithDetails("body must be valid JSON")
	}

	if err := middleware.ValidateDownloadRequest(&req); err != nil {
		return err
	}

	result, err := h.service.Download(c.Context(), req)
	if err != nil {
		return err
	}

	c.Locals("platform", string(result.Platform))

	if h.history != nil {
		h.history.Record(historyItem(req.URL, result))
	}

	filename := downloadFilename(result)
	c.Set(fiber.HeaderContentType, result.Artifact.MIMEType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Set("X-Platform", string(result.Platform))
	c.Set("X-Format", result.Format)

	return c.Send(result.Artifact.Data)
}

// Extract handles POST /extract, metadata without a download
func (h *MediaHandler) Extract(c *fiber.Ctx) error {
	var req types.ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.ErrInvalidRequest.WithDetails("body must be valid JSON")
	}

	return h.extract(c, req.URL)
}

// Info handles GET /info?url=, the query-string alias of extract
func (h *MediaHandler) Info(c *fiber.Ctx) error {
	return h.extract(c, c.Query("url"))
}

func (h *MediaHandler) extract(c *fiber.Ctx, rawURL string) error {
	if err := middleware.ValidateMediaURL(rawURL); err != nil {
		return err
	}

	metadata, err := h.service.Extract(c.Context(), rawURL)
	if err != nil {
		return err
	}

	c.Locals("platform", metadata.Platform)
	return c.JSON(metadata)
}

// ListFormats handles POST /list-formats, the raw format table
func (h *MediaHandler) ListFormats(c *fiber.Ctx) error {
	var req types.ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.ErrInvalidRequest.WithDetails("body must be valid JSON")
	}

	if err := middleware.ValidateMediaURL(req.URL); err != nil {
		return err
	}

	metadata, err := h.service.Extract(c.Context(), req.URL)
	if err != nil {
		return err
	}

	c.Locals("platform", metadata.Platform)
	return c.JSON(fiber.Map{
		"url":      req.URL,
		"platform": metadata.Platform,
		"count":    len(metadata.Formats),
		"formats":  metadata.Formats,
	})
}

// Search handles GET /search?q=&limit=
func (h *MediaHandler) Search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return errors.ErrInvalidRequest.WithDetails("q is required")
	}

	limit := c.QueryInt("limit", 5)
	if limit < 1 {
		limit = 1
	}
	if limit > 25 {
		limit = 25
	}

	results, err := h.service.Search(c.Context(), query, limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// downloadFilename builds the attachment name from the media title,
// falling back to a plain stem when the extractor reported none.
func downloadFilename(result *download.Result) string {
	base := "video"
	if result.Metadata != nil && result.Metadata.Title != "" {
		if s := sanitizeFilename(result.Metadata.Title); s != "" {
			base = s
		}
	}
	return base + strings.ToLower(filepath.Ext(result.Artifact.Filename))
}

// sanitizeFilename strips characters that break Content-Disposition or
// filesystems and caps the length
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		if b.Len() >= 80 {
			break
		}
	}
	return strings.Trim(b.String(), " ._")
}

func historyItem(url string, result *download.Result) types.HistoryItem {
	item := types.HistoryItem{
		URL:       url,
		Platform:  string(result.Platform),
		Format:    result.Format,
		SizeBytes: result.Artifact.Size,
		Timestamp: time.Now().Unix(),
	}
	if result.Metadata != nil {
		item.Title = result.Metadata.Title
		item.Duration = result.Metadata.Duration
	}
	return item
}
