package handlers

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"medfetch/internal/types"
)

// History is a bounded in-memory ring of recent downloads, newest
// first. It survives only as long as the process; Redis stays free for
// jobs and the metadata cache.
type History struct {
	mu    sync.Mutex
	items []types.HistoryItem
	max   int
}

// NewHistory creates a history ring keeping at most max items
func NewHistory(max int) *History {
	if max < 1 {
		max = 20
	}
	return &History{max: max}
}

// Record prepends a completed download
func (h *History) Record(item types.HistoryItem) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = append([]types.HistoryItem{item}, h.items...)
	if len(h.items) > h.max {
		h.items = h.items[:h.max]
	}
}

// Items returns a copy of the ring, newest first
func (h *History) Items() []types.HistoryItem {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]types.HistoryItem, len(h.items))
	copy(out, h.items)
	return out
}

// Clear empties the ring
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = nil
}

// HistoryHandler serves the recent-download listing
type HistoryHandler struct {
	history *History
	logger  *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history *History, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// GetHistory handles GET /history
func (h *HistoryHandler) GetHistory(c *fiber.Ctx) error {
	items := h.history.Items()
	return c.JSON(fiber.Map{
		"history": items,
		"count":   len(items),
	})
}

// ClearHistory handles DELETE /history
func (h *HistoryHandler) ClearHistory(c *fiber.Ctx) error {
	h.history.Clear()
	h.logger.Info("Download history cleared")
	return c.JSON(fiber.Map{"success": true, "message": "History cleared"})
}
