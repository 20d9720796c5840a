package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/media-relay/internal/registry"
	"github.com/codebuildervaibhav/media-relay/internal/storage"
	"github.com/codebuildervaibhav/media-relay/internal/types"
)

// AssistantHandler serves the voice-assistant endpoints: fire-and-forget
// conversion plus a polling check. Responses return immediately; completion
// is observed through HandleCheck.
type AssistantHandler struct {
	resolver Resolver
	registry *registry.Registry
	runner   Runner
	layout   *storage.Layout
}

// NewAssistantHandler creates the assistant search/check handler.
func NewAssistantHandler(res Resolver, reg *registry.Registry, runner Runner, layout *storage.Layout) *AssistantHandler {
	return &AssistantHandler{
		resolver: res,
		registry: reg,
		runner:   runner,
		layout:   layout,
	}
}

// HandleSearch resolves a base64-encoded query, claims or joins the job and
// answers with the eventual artifact link without waiting for the pipeline.
func (h *AssistantHandler) HandleSearch(c *fiber.Ctx) error {
	decoded, err := base64.StdEncoding.DecodeString(c.Params("query"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"state":   "error",
			"message": "Invalid query encoding",
		})
	}
	query := string(decoded)
	language := c.Query("language")

	log.Printf("Query from %s: %s", c.IP(), query)

	result, err := h.resolver.Resolve(c.UserContext(), query, language)
	if errors.Is(err, types.ErrNoResults) {
		log.Println("No results found.")
		return c.Status(200).JSON(fiber.Map{
			"state":   "error",
			"message": "No results found",
		})
	}
	if err != nil {
		log.Printf("An error occurred: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"state":   "error",
			"message": err.Error(),
		})
	}

	log.Printf("Query result: %s", result.Title)

	if _, created := h.registry.ClaimOrJoin(result.ID, result.Title); created {
		go h.runner.Run(context.Background(), result.ID)
	}

	return c.Status(200).JSON(fiber.Map{
		"state":   "success",
		"message": "Uploaded successfully.",
		"link":    h.layout.Link(result.ID),
		"info": fiber.Map{
			"id":       result.ID,
			"title":    result.Title,
			"original": "https://www.youtube.com/watch?v=" + result.ID,
		},
	})
}

// HandleCheck reports whether the artifact for id is ready. Unknown ids are
// a normal answer, not an error.
func (h *AssistantHandler) HandleCheck(c *fiber.Ctx) error {
	id := c.Params("id")

	snap, ok := h.registry.Lookup(id)
	if !ok {
		return c.Status(200).JSON(fiber.Map{
			"state":   "success",
			"message": "Not in cache",
		})
	}

	switch snap.State {
	case types.StateReady:
		return c.Status(200).JSON(fiber.Map{
			"state":      "success",
			"message":    "Downloaded",
			"downloaded": true,
		})
	case types.StateFailed:
		return c.Status(200).JSON(fiber.Map{
			"state":      "success",
			"message":    "Download failed",
			"downloaded": false,
		})
	default:
		return c.Status(200).JSON(fiber.Map{
			"state":      "success",
			"message":    "Download in progress",
			"downloaded": false,
		})
	}
}
