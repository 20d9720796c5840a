package handlers

import (
	"context"
	"errors"
	"log"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/media-relay/internal/registry"
	"github.com/codebuildervaibhav/media-relay/internal/resolver"
	"github.com/codebuildervaibhav/media-relay/internal/source"
	"github.com/codebuildervaibhav/media-relay/internal/types"
)

// Resolver maps a free-text query to the best matching media id and title.
type Resolver interface {
	Resolve(ctx context.Context, query, languageHint string) (resolver.Result, error)
}

// InfoProvider fetches metadata for a known media id.
type InfoProvider interface {
	Info(ctx context.Context, id string) (source.Info, error)
}

// Runner executes the fetch-transcode pipeline for a claimed job.
type Runner interface {
	Run(ctx context.Context, id string)
}

// SearchHandler serves the synchronous endpoints: the response is held back
// until the artifact is ready (or the job fails).
type SearchHandler struct {
	resolver    Resolver
	info        InfoProvider
	registry    *registry.Registry
	runner      Runner
	waitTimeout time.Duration
}

// NewSearchHandler creates the synchronous search/target handler.
func NewSearchHandler(res Resolver, info InfoProvider, reg *registry.Registry, runner Runner, waitTimeout time.Duration) *SearchHandler {
	return &SearchHandler{
		resolver:    res,
		info:        info,
		registry:    reg,
		runner:      runner,
		waitTimeout: waitTimeout,
	}
}

// HandleSearch resolves a query and serves the converted artifact link once
// the pipeline finishes.
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	query, err := url.PathUnescape(c.Params("query"))
	if err != nil {
		query = c.Params("query")
	}

	result, err := h.resolver.Resolve(c.UserContext(), query, "")
	if errors.Is(err, types.ErrNoResults) {
		return c.Status(200).JSON(fiber.Map{
			"state":   "error",
			"message": "No results found",
		})
	}
	if err != nil {
		log.Printf("Search resolution failed: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"state":   "error",
			"message": err.Error(),
		})
	}

	return h.deliver(c, result.ID, result.Title)
}

// HandleTarget runs the same pipeline for an already known media id.
func (h *SearchHandler) HandleTarget(c *fiber.Ctx) error {
	id := c.Params("id")

	info, err := h.info.Info(c.UserContext(), id)
	if err != nil {
		log.Printf("Info lookup failed for %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{
			"state":   "error",
			"message": err.Error(),
		})
	}

	return h.deliver(c, id, info.Title)
}

// deliver claims or joins the job for id, starts the pipeline when this
// request won the claim, and blocks until a terminal state.
func (h *SearchHandler) deliver(c *fiber.Ctx, id, title string) error {
	_, created := h.registry.ClaimOrJoin(id, title)
	if created {
		// Detached from the request so a dropped client cannot abort a
		// pipeline other callers may have joined.
		go h.runner.Run(context.Background(), id)
	}

	ctx := c.UserContext()
	if h.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.waitTimeout)
		defer cancel()
	}

	snap, err := h.registry.Await(ctx, id)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"state":   "error",
			"message": "conversion did not finish in time",
		})
	}
	if snap.State == types.StateFailed {
		return c.Status(500).JSON(fiber.Map{
			"state":   "error",
			"message": snap.Error,
		})
	}

	return c.Status(200).JSON(fiber.Map{
		"state": "success",
		"link":  snap.OutputRef,
		"info": fiber.Map{
			"id":    snap.ID,
			"title": snap.Title,
		},
	})
}
