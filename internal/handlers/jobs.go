package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/media-relay/internal/registry"
	"github.com/codebuildervaibhav/media-relay/internal/storage"
)

// JobsHandler exposes the registry for operators: listing, inspecting and
// clearing failed jobs for retry.
type JobsHandler struct {
	registry *registry.Registry
	history  *storage.HistoryDB
}

// NewJobsHandler creates the jobs API handler. history may be nil.
func NewJobsHandler(reg *registry.Registry, history *storage.HistoryDB) *JobsHandler {
	return &JobsHandler{registry: reg, history: history}
}

// HandleList returns all jobs known to this process, newest first.
func (h *JobsHandler) HandleList(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"jobs": h.registry.List(),
	})
}

// HandleGet returns one job, with its history row when one exists.
func (h *JobsHandler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("id")

	snap, ok := h.registry.Lookup(id)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "Job not found"})
	}

	resp := fiber.Map{"job": snap}
	if h.history != nil {
		if conversion, err := h.history.GetConversion(id); err == nil {
			resp["conversion"] = conversion
		}
	}
	return c.JSON(resp)
}

// HandleRetry drops a failed job so the next request for its id starts a
// fresh pipeline. Failed jobs are never retried without this explicit step.
func (h *JobsHandler) HandleRetry(c *fiber.Ctx) error {
	id := c.Params("id")

	switch err := h.registry.Retrigger(id); {
	case errors.Is(err, registry.ErrUnknownJob):
		return c.Status(404).JSON(fiber.Map{"error": "Job not found"})
	case errors.Is(err, registry.ErrNotFailed):
		return c.Status(409).JSON(fiber.Map{"error": "Job is not failed"})
	case err != nil:
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"state":   "success",
		"message": "Job cleared, next request will start over",
	})
}
